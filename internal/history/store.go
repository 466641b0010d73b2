// Package history keeps a bounded, in-memory series of recent price samples
// per currency code. Nothing here is persisted.
package history

import (
	"sync"

	"github.com/kjannette/rate-tracker/internal/models"
)

const DefaultCapacity = 50

// Series is a fixed-capacity FIFO ring of samples.
type Series struct {
	buf   []models.PriceSample
	start int
	size  int
}

func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{buf: make([]models.PriceSample, capacity)}
}

// Append adds s, evicting the oldest sample when full.
func (r *Series) Append(s models.PriceSample) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = s
		r.size++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

func (r *Series) Len() int      { return r.size }
func (r *Series) Capacity() int { return len(r.buf) }

// Samples returns the series oldest first.
func (r *Series) Samples() []models.PriceSample {
	return r.Tail(r.size)
}

// Tail returns up to n most recent samples, oldest first.
func (r *Series) Tail(n int) []models.PriceSample {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return []models.PriceSample{}
	}
	out := make([]models.PriceSample, n)
	skip := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+skip+i)%len(r.buf)]
	}
	return out
}

// Store holds one Series per currency code.
type Store struct {
	mu       sync.RWMutex
	capacity int
	series   map[string]*Series
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		series:   make(map[string]*Series),
	}
}

// Append records a sample for code, creating the series if absent.
func (s *Store) Append(code string, sample models.PriceSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.series[code]
	if !ok {
		r = NewSeries(s.capacity)
		s.series[code] = r
	}
	r.Append(sample)
}

// Series returns a copy of code's samples, oldest first.
func (s *Store) Series(code string) []models.PriceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.series[code]
	if !ok {
		return []models.PriceSample{}
	}
	return r.Samples()
}

func (s *Store) Tail(code string, n int) []models.PriceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.series[code]
	if !ok {
		return []models.PriceSample{}
	}
	return r.Tail(n)
}

func (s *Store) Len(code string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.series[code]; ok {
		return r.Len()
	}
	return 0
}

// Drop forgets code's series.
func (s *Store) Drop(code string) {
	s.mu.Lock()
	delete(s.series, code)
	s.mu.Unlock()
}

func (s *Store) Capacity() int { return s.capacity }
