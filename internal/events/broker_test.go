package events_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker() *events.Broker {
	return events.NewBroker(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBroker_PublishSubscribe(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	defer broker.Close()

	ch, cancel := broker.Subscribe()
	defer cancel()

	itemID := uuid.New()
	broker.Publish(events.NewJobProgress(itemID, events.StageRunning, "sketching outlines"))

	select {
	case got := <-ch:
		assert.Equal(t, itemID, got.ItemID)
		assert.Equal(t, events.StageRunning, got.Stage)
		assert.Equal(t, "sketching outlines", got.Message)
		assert.False(t, got.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	defer broker.Close()

	_, cancel := broker.Subscribe()
	defer cancel()

	// Publish far more events than the subscriber buffer holds without
	// ever reading; Publish must return regardless.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			broker.Publish(events.NewJobProgress(uuid.New(), events.StageRunning, "tick"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	defer broker.Close()

	ch, cancel := broker.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open, "channel should be closed after cancel")

	// Publishing after cancel must not panic.
	broker.Publish(events.NewJobProgress(uuid.New(), events.StageCompleted, ""))
}

func TestBroker_CloseClosesAllSubscribers(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()

	ch1, _ := broker.Subscribe()
	ch2, _ := broker.Subscribe()
	broker.Close()

	_, open := <-ch1
	require.False(t, open)
	_, open = <-ch2
	require.False(t, open)

	// Subscribing after close yields a closed channel.
	ch3, _ := broker.Subscribe()
	_, open = <-ch3
	assert.False(t, open)
}
