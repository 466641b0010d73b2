package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyEntry is one tracked currency. Code is the unique key.
type CurrencyEntry struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	LastPrice    *float64 `json:"last_price"`
	CurrentPrice *float64 `json:"current_price"`
}

// ApplyPrice shifts the current price into last and stores the new one.
func (e *CurrencyEntry) ApplyPrice(price float64) {
	e.LastPrice = e.CurrentPrice
	p := price
	e.CurrentPrice = &p
}

// Clone returns a copy that shares no pointers with e.
func (e CurrencyEntry) Clone() CurrencyEntry {
	out := CurrencyEntry{Code: e.Code, Name: e.Name}
	if e.LastPrice != nil {
		v := *e.LastPrice
		out.LastPrice = &v
	}
	if e.CurrentPrice != nil {
		v := *e.CurrentPrice
		out.CurrentPrice = &v
	}
	return out
}

// Equal compares codes, names and price values (not pointers).
func (e CurrencyEntry) Equal(o CurrencyEntry) bool {
	return e.Code == o.Code && e.Name == o.Name &&
		floatPtrEqual(e.LastPrice, o.LastPrice) &&
		floatPtrEqual(e.CurrentPrice, o.CurrentPrice)
}

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Change is the move between the last two observed prices.
type Change struct {
	Delta     float64   `json:"delta"`
	Percent   float64   `json:"percent"`
	Direction Direction `json:"direction"`
}

// Change reports the last->current move. ok is false until both prices
// are known and the last price is non-zero.
func (e CurrencyEntry) Change() (Change, bool) {
	if e.LastPrice == nil || e.CurrentPrice == nil || *e.LastPrice == 0 {
		return Change{}, false
	}
	last := decimal.NewFromFloat(*e.LastPrice)
	cur := decimal.NewFromFloat(*e.CurrentPrice)
	delta := cur.Sub(last)
	pct := delta.Div(last).Mul(decimal.NewFromInt(100)).Round(2)

	dir := DirectionFlat
	switch delta.Sign() {
	case 1:
		dir = DirectionUp
	case -1:
		dir = DirectionDown
	}

	return Change{
		Delta:     delta.Round(4).InexactFloat64(),
		Percent:   pct.InexactFloat64(),
		Direction: dir,
	}, true
}

// PriceSample is one accepted observation. Immutable once created.
type PriceSample struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// ArchivedSample is a PriceSample as stored by the optional archive.
type ArchivedSample struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
