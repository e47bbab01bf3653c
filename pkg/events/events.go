// Package events publishes domain events for downstream consumers. The
// services only see Publisher; AMQP is one implementation.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type Type string

const (
	TransactionCreated Type = "transaction.created"
	TransactionUpdated Type = "transaction.updated"
	TransactionDeleted Type = "transaction.deleted"
	BudgetAlert        Type = "budget.alert"
)

type Event struct {
	Type          Type      `json:"type"`
	UserID        uint      `json:"userId"`
	TransactionID uint      `json:"transactionId,omitempty"`
	Percentage    float64   `json:"percentage,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func New(t Type, userID uint) Event {
	return Event{Type: t, UserID: userID, Timestamp: time.Now().UTC()}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory; tests use it to assert on what
// the services emitted.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
