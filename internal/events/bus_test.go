package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/terra-clan/challenge-progress/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func event(id string) models.CompletionEvent {
	return models.CompletionEvent{
		ChallengeID: id,
		CompletedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	a, cancelA := bus.Subscribe(1)
	defer cancelA()
	b, cancelB := bus.Subscribe(1)
	defer cancelB()

	assert.Equal(t, 2, bus.Publish(event("challenge-ocr")))
	assert.Equal(t, "challenge-ocr", (<-a).ChallengeID)
	assert.Equal(t, "challenge-ocr", (<-b).ChallengeID)
}

func TestPublish_NoSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	assert.Equal(t, 0, bus.Publish(event("challenge-1")))
}

func TestPublish_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	slow, cancel := bus.Subscribe(1)
	defer cancel()

	assert.Equal(t, 1, bus.Publish(event("first")))
	assert.Equal(t, 0, bus.Publish(event("second")))

	assert.Equal(t, "first", (<-slow).ChallengeID)
	select {
	case ev := <-slow:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestCancel_ClosesChannelAndUnsubscribes(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(0)
	require.Equal(t, 1, bus.Subscribers())

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Subscribers())
	assert.Equal(t, 0, bus.Publish(event("challenge-1")))
}

func TestClose(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(4)

	bus.Close()
	bus.Close()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Publish(event("challenge-1")))

	late, lateCancel := bus.Subscribe(1)
	defer lateCancel()
	_, open = <-late
	assert.False(t, open)
}

func TestConcurrentSubscribers(t *testing.T) {
	bus := NewBus()

	const listeners = 8
	var wg sync.WaitGroup
	received := make([]int, listeners)
	for i := 0; i < listeners; i++ {
		ch, _ := bus.Subscribe(64)
		wg.Add(1)
		go func(i int, ch <-chan models.CompletionEvent) {
			defer wg.Done()
			for range ch {
				received[i]++
			}
		}(i, ch)
	}

	for i := 0; i < 32; i++ {
		bus.Publish(event("challenge-2"))
	}
	bus.Close()
	wg.Wait()

	for i, n := range received {
		assert.Equal(t, 32, n, "listener %d", i)
	}
}
