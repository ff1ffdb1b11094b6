package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	bus := NewBus(0)
	sub := bus.Subscribe()
	defer sub.Close()

	actorID := uuid.New()
	bus.Publish(New(KindSwapExecuted, "swap-1", actorID, map[string]any{"transaction_id": int64(7)}))

	select {
	case ev := <-sub.C:
		assert.Equal(t, KindSwapExecuted, ev.Kind)
		assert.Equal(t, "swap-1", ev.Resource)
		assert.Equal(t, actorID, ev.ActorID)
		assert.Equal(t, int64(7), ev.Payload["transaction_id"])
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected to receive the published event")
	}
}

func TestMultipleSubscribersEachReceiveTheEvent(t *testing.T) {
	bus := NewBus(0)
	subA, subB := bus.Subscribe(), bus.Subscribe()
	defer subA.Close()
	defer subB.Close()

	bus.Publish(New(KindScheduleGenerated, "run-1", uuid.New(), nil))

	for _, sub := range []*Subscription{subA, subB} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, KindScheduleGenerated, ev.Kind)
		case <-time.After(time.Second):
			t.Fatal("expected every subscriber to receive the event")
		}
	}
}

func TestCloseStopsDeliveryAndClosesTheChannel(t *testing.T) {
	bus := NewBus(0)
	sub := bus.Subscribe()
	sub.Close()

	bus.Publish(New(KindSwapRolledBack, "swap-2", uuid.New(), nil))

	_, open := <-sub.C
	assert.False(t, open)
}

func TestPublishNeverBlocksOnAFullSubscriberBuffer(t *testing.T) {
	bus := NewBus(0)
	sub := bus.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultSubscriberBuffer+10; i++ {
			bus.Publish(New(KindSwapFlagged, "swap-3", uuid.New(), nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}

func TestDrainReturnsAndClearsTheBacklog(t *testing.T) {
	bus := NewBus(2)
	bus.Publish(New(KindResilienceDegraded, "window-1", uuid.New(), nil))
	bus.Publish(New(KindResilienceRecovered, "window-2", uuid.New(), nil))
	bus.Publish(New(KindResilienceDegraded, "window-3", uuid.New(), nil))

	drained := bus.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "window-2", drained[0].Resource)
	assert.Equal(t, "window-3", drained[1].Resource)

	assert.Empty(t, bus.Drain())
}

func TestDrainDisabledWhenBacklogCapIsZero(t *testing.T) {
	bus := NewBus(0)
	bus.Publish(New(KindSwapExecuted, "swap-4", uuid.New(), nil))
	assert.Empty(t, bus.Drain())
}
