// Package notifications publishes domain events to Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

// EventsChannel carries every gate-pass domain event.
const EventsChannel = "gatepass:events"

// Event types.
const (
	EventRequestResolved = "request.resolved"
	EventAlertSwept      = "alert.swept"
)

// Event is the envelope published on EventsChannel.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RequestResolved describes a committed approval or rejection.
type RequestResolved struct {
	RequestID  uint   `json:"request_id"`
	Username   string `json:"username"`
	Type       string `json:"type"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	UserStatus string `json:"user_status,omitempty"`
}

// AlertSwept summarizes a finished alert sweep.
type AlertSwept struct {
	Penalized  int `json:"penalized"`
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends an event of the given type to EventsChannel.
func (n *Notifier) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	body, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, EventsChannel, string(body)).Err()
}

// PublishRequestResolved announces a resolved request.
func (n *Notifier) PublishRequestResolved(ctx context.Context, ev RequestResolved) error {
	return n.Publish(ctx, EventRequestResolved, ev)
}

// PublishAlertSwept announces a completed alert sweep.
func (n *Notifier) PublishAlertSwept(ctx context.Context, ev AlertSwept) error {
	return n.Publish(ctx, EventAlertSwept, ev)
}

// StartSubscriber subscribes to EventsChannel and calls onMessage for each
// event until ctx is cancelled. It returns once the subscription is confirmed.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("notifications: dropping malformed event: %v", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in event subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(ev)
				}()
			}
		}
	}()

	return nil
}
