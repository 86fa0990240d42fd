package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the subset of *redis.Client used for fan-out.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisFanout forwards board events to a per-company Redis channel so other
// API instances and open boards learn that their cached view is stale.
type RedisFanout struct {
	client Publisher
	prefix string
}

// NewRedisFanout builds the fan-out; prefix namespaces channel names.
func NewRedisFanout(client Publisher, prefix string) *RedisFanout {
	if prefix == "" {
		prefix = "creative-board"
	}
	return &RedisFanout{client: client, prefix: prefix}
}

// Channel returns the channel carrying events for a company.
func (f *RedisFanout) Channel(companyID string) string {
	return fmt.Sprintf("%s:company:%s:events", f.prefix, companyID)
}

// Handle is an EventHandler publishing the event as JSON.
func (f *RedisFanout) Handle(ctx context.Context, event Event) error {
	if f == nil || f.client == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := f.client.Publish(ctx, f.Channel(event.CompanyID), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Register subscribes the fan-out to every board event.
func (f *RedisFanout) Register(d Dispatcher) {
	if d == nil {
		return
	}
	SubscribeAll(d, f.Handle)
}
