package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kitties/pkg/domain"
	"kitties/pkg/platform/circuit"
	"kitties/pkg/platform/events"
	"kitties/pkg/platform/events/store/memory"
)

type failingSink struct {
	mu    sync.Mutex
	fail  bool
	calls int
	got   []events.Event
}

func (s *failingSink) Publish(_ context.Context, batch ...events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.got = append(s.got, batch...)
	return nil
}

func (s *failingSink) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func createdEvent(account id.AccountID, kittyID uint32) events.Event {
	return events.Event{Kind: events.KindKittyCreated, Account: account, KittyID: kittyID}
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	account := id.NewAccountID()
	require.NoError(t, pub.Emit(context.Background(), createdEvent(account, 0)))

	got, err := store.ListByAccount(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.IsZero(), "timestamp is stamped on emit")
}

func TestPublisher_SyncModeReturnsSinkError(t *testing.T) {
	sink := &failingSink{fail: true}
	pub := New(sink)

	err := pub.Emit(context.Background(), createdEvent(id.NewAccountID(), 0))
	assert.Error(t, err)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithAsyncBuffer(10), WithFlushInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx) }()

	account := id.NewAccountID()
	require.NoError(t, pub.Emit(ctx, createdEvent(account, 0)))
	require.NoError(t, pub.Emit(ctx, createdEvent(account, 1)))

	assert.Eventually(t, func() bool {
		got, _ := store.ListByAccount(context.Background(), account)
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPublisher_RunFlushesOnShutdown(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithAsyncBuffer(10), WithFlushInterval(time.Hour))

	account := id.NewAccountID()
	require.NoError(t, pub.Emit(context.Background(), createdEvent(account, 0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pub.Run(ctx))

	got, err := store.ListByAccount(context.Background(), account)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Zero(t, pub.Pending())
}

func TestPublisher_BufferOverflowDropsOldest(t *testing.T) {
	sink := &failingSink{}
	metrics := NewMetrics(nil)
	pub := New(sink, WithAsyncBuffer(2), WithMetrics(metrics))

	account := id.NewAccountID()
	for i := range 3 {
		require.NoError(t, pub.Emit(context.Background(), createdEvent(account, uint32(i))))
	}
	pub.Flush(context.Background())

	require.Len(t, sink.got, 2)
	assert.Equal(t, uint32(1), sink.got[0].KittyID)
	assert.Equal(t, uint32(2), sink.got[1].KittyID)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped.WithLabelValues("buffer_full")))
}

func TestPublisher_BreakerStopsFlushingUnhealthySink(t *testing.T) {
	sink := &failingSink{fail: true}
	breaker := circuit.New("events", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	pub := New(sink, WithAsyncBuffer(10), WithBatchSize(1), WithBreaker(breaker))

	account := id.NewAccountID()
	for i := range 3 {
		require.NoError(t, pub.Emit(context.Background(), createdEvent(account, uint32(i))))
	}

	pub.Flush(context.Background())
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, 2, pub.Pending(), "remaining events wait for the breaker")

	pub.Flush(context.Background())
	assert.Equal(t, 1, sink.calls, "open breaker skips the sink")

	sink.setFail(false)
	breaker.Reset()
	pub.Flush(context.Background())
	assert.Len(t, sink.got, 2)
	assert.Zero(t, pub.Pending())
}
