// Package publisher streams accepted rates to Kafka for downstream
// consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/kjannette/rate-tracker/internal/models"
	"github.com/kjannette/rate-tracker/internal/tracker"
)

var log = logrus.WithField("component", "kafka")

const (
	EventRate = "rate"
	EventPass = "pass"
)

// RateEvent is the message value for every accepted price.
type RateEvent struct {
	Type      string         `json:"type"`
	PassID    string         `json:"passId"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Price     float64        `json:"price"`
	LastPrice *float64       `json:"lastPrice,omitempty"`
	Change    *models.Change `json:"change,omitempty"`
	Strategy  string         `json:"strategy"`
	Timestamp time.Time      `json:"timestamp"`
}

// PassEvent closes a pass so consumers can tell a quiet pass from an outage.
type PassEvent struct {
	Type        string            `json:"type"`
	PassID      string            `json:"passId"`
	Total       int               `json:"total"`
	Updated     int               `json:"updated"`
	Failures    map[string]string `json:"failures"`
	CompletedAt time.Time         `json:"completedAt"`
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher is a tracker observer. Rate messages are keyed by
// currency code so each code stays ordered within its partition.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher builds an async writer; delivery errors surface in the
// completion callback and never block a pass.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		RequiredAcks: kafka.RequireOne,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorf("deliver %d messages: %v", len(messages), err)
			}
		},
	})
}

func NewWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second}
}

func (p *KafkaPublisher) OnProgress(tracker.Progress) {}

func (p *KafkaPublisher) OnEntryUpdated(u tracker.EntryUpdate) {
	msg, err := RateMessage(u)
	if err != nil {
		log.Errorf("encode rate event for %s: %v", u.Entry.Code, err)
		return
	}
	p.write(msg)
}

func (p *KafkaPublisher) OnPassComplete(s tracker.PassSummary) {
	msg, err := PassMessage(s)
	if err != nil {
		log.Errorf("encode pass event %s: %v", s.ID, err)
		return
	}
	p.write(msg)
}

func (p *KafkaPublisher) write(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Errorf("publish %s: %v", msg.Key, err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func RateMessage(u tracker.EntryUpdate) (kafka.Message, error) {
	ev := RateEvent{
		Type:      EventRate,
		PassID:    u.PassID,
		Code:      u.Entry.Code,
		Name:      u.Entry.Name,
		Price:     u.Sample.Price,
		LastPrice: u.Entry.LastPrice,
		Strategy:  u.Strategy,
		Timestamp: u.Sample.Timestamp,
	}
	if ch, ok := u.Entry.Change(); ok {
		ev.Change = &ch
	}
	v, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal rate event: %w", err)
	}
	return kafka.Message{Key: []byte(u.Entry.Code), Value: v, Time: u.Sample.Timestamp}, nil
}

func PassMessage(s tracker.PassSummary) (kafka.Message, error) {
	v, err := json.Marshal(PassEvent{
		Type:        EventPass,
		PassID:      s.ID,
		Total:       s.Total,
		Updated:     s.Updated,
		Failures:    s.Failures,
		CompletedAt: s.CompletedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal pass event: %w", err)
	}
	return kafka.Message{Key: []byte(s.ID), Value: v, Time: s.CompletedAt}, nil
}
