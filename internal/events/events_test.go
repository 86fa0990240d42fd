package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/creative-board/internal/domain"
)

type published struct {
	channel string
	message []byte
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
		return cmd
	}
	raw, _ := message.([]byte)
	p.sent = append(p.sent, published{channel: channel, message: raw})
	cmd.SetVal(1)
	return cmd
}

func statusEvent() Event {
	return Event{
		ID:        "evt-1",
		Type:      EventTicketStatusChanged,
		CompanyID: "company-1",
		TicketID:  "ticket-1",
		Actor:     Actor{ID: "creative-1", Kind: domain.ActorKindCreative},
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Payload: TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusInProgress,
			NewStatus: domain.TicketStatusInReview,
		},
	}
}

func TestRedisFanoutPublishesPerCompany(t *testing.T) {
	pub := &fakePublisher{}
	fanout := NewRedisFanout(pub, "")
	dispatcher := NewInMemoryDispatcher(zap.NewNop())
	fanout.Register(dispatcher)

	require.NoError(t, dispatcher.Publish(context.Background(), statusEvent()))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "creative-board:company:company-1:events", pub.sent[0].channel)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.sent[0].message, &decoded))
	assert.Equal(t, "ticket_status_changed", decoded["type"])
	assert.Equal(t, "ticket-1", decoded["ticket_id"])
}

func TestRedisFanoutCustomPrefix(t *testing.T) {
	fanout := NewRedisFanout(&fakePublisher{}, "staging")
	assert.Equal(t, "staging:company:c9:events", fanout.Channel("c9"))
}

func TestRedisFanoutReportsPublishFailure(t *testing.T) {
	fanout := NewRedisFanout(&fakePublisher{err: errors.New("connection refused")}, "")
	err := fanout.Handle(context.Background(), statusEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	var nilFanout *RedisFanout
	assert.NoError(t, nilFanout.Handle(context.Background(), statusEvent()))
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dispatcher := NewInMemoryDispatcher(zap.New(core))

	var calls []string
	dispatcher.Subscribe(EventTicketApproved, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("smtp down")
	})
	dispatcher.Subscribe(EventTicketApproved, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketApproved, TicketID: "ticket-7"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event handler failed", logs.All()[0].Message)
}

func TestSubscribeAllCoversEveryEventType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)
	seen := map[EventType]int{}
	SubscribeAll(dispatcher, func(_ context.Context, e Event) error {
		seen[e.Type]++
		return nil
	})
	for _, eventType := range AllEventTypes {
		require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: eventType}))
	}
	assert.Len(t, seen, len(AllEventTypes))
}
