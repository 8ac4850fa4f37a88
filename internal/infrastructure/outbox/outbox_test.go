package outbox_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := outbox.NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	var mu sync.Mutex
	var got []string
	bus.Subscribe("order.created", func(_ context.Context, e domoutbox.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "a:"+e.EventName())
		return nil
	})
	bus.Subscribe("order.created", func(_ context.Context, e domoutbox.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "b:"+e.EventName())
		return errors.New("handler failure is logged, not propagated")
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.created"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.unrouted"}))
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a:order.created", "b:order.created"}, got)
}

func TestBus_RecoversFromPanickingHandler(t *testing.T) {
	bus := outbox.NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	var calls atomic.Int32
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "x"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "x"}))
	bus.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestBus_PublishAfterStop(t *testing.T) {
	bus := outbox.NewBus(nil)
	bus.Start(context.Background())
	bus.Stop(context.Background())

	assert.ErrorIs(t, bus.Publish(context.Background(), testEvent{name: "x"}), outbox.ErrBusStopped)
	assert.NoError(t, bus.Publish(context.Background(), nil))
}

func TestBus_StopTimeoutReleasesQueuedEvents(t *testing.T) {
	bus := outbox.NewBus(nil)
	bus.Start(context.Background())

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var handled atomic.Int32
	bus.Subscribe("slow", func(context.Context, domoutbox.Event) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		handled.Add(1)
		return nil
	})

	for range 3 {
		require.NoError(t, bus.Publish(context.Background(), testEvent{name: "slow"}))
	}
	<-entered

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Stop(expired)
	close(release)

	waited := make(chan struct{})
	go func() {
		bus.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked on abandoned events")
	}
	assert.Equal(t, int32(1), handled.Load())
}

func TestBus_StopWithoutStartReleasesQueuedEvents(t *testing.T) {
	bus := outbox.NewBus(nil)
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "x"}))
	bus.Stop(context.Background())

	waited := make(chan struct{})
	go func() {
		bus.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked on an unstarted bus")
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.EventName())
	return p.err
}

func TestForward_RepublishesNamedEvents(t *testing.T) {
	bus := outbox.NewBus(nil)
	sink := &recordingPublisher{err: errors.New("broker down")}
	outbox.Forward(bus, sink, "order.paid", "order.cancelled")
	bus.Start(context.Background())
	t.Cleanup(func() { bus.Stop(context.Background()) })

	for _, name := range []string{"order.paid", "order.created", "order.cancelled"} {
		require.NoError(t, bus.Publish(context.Background(), testEvent{name: name}))
	}
	bus.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{"order.paid", "order.cancelled"}, sink.events)
}
