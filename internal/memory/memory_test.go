package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avvvet/hotel-concierge/internal/booking"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

func newMiniredisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client, ttl), mr
}

func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	s, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, ModeIdle, s.Mode)

	exists, err := store.SessionExists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)

	rooms := 2
	s.Mode = ModeBooking
	s.Booking = booking.State{CheckIn: "2025-01-15", Rooms: &rooms}
	require.NoError(t, store.SaveSession(ctx, s))

	loaded, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ModeBooking, loaded.Mode)
	assert.Equal(t, "2025-01-15", loaded.Booking.CheckIn)
	require.NotNil(t, loaded.Booking.Rooms)
	assert.Equal(t, 2, *loaded.Booking.Rooms)

	loaded.Booking.CheckIn = "changed"
	again, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", again.Booking.CheckIn)

	require.NoError(t, store.ClearSession(ctx, "s1"))
	exists, err = store.SessionExists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStore(t *testing.T) {
	store, _ := newMiniredisStore(t, time.Minute)
	storeContract(t, store)
}

func TestInMemoryStore(t *testing.T) {
	storeContract(t, NewInMemoryStore(time.Minute))
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newMiniredisStore(t, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, NewSession("ttl")))
	mr.FastForward(31 * time.Minute)

	exists, err := store.SessionExists(ctx, "ttl")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInMemoryStoreTTL(t *testing.T) {
	store := NewInMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, NewSession("ttl")))
	now = now.Add(2 * time.Minute)

	exists, err := store.SessionExists(ctx, "ttl")
	require.NoError(t, err)
	assert.False(t, exists)

	s, err := store.LoadSession(ctx, "ttl")
	require.NoError(t, err)
	assert.Empty(t, s.Messages)
}

func TestManagerRecordsAndTrimsHistory(t *testing.T) {
	store := NewInMemoryStore(time.Minute)
	m := NewManager(store, 4, zap.NewNop())
	ctx := context.Background()

	s, err := m.Load(ctx, "abc")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.RecordTurn(ctx, s, fmt.Sprintf("soru %d", i), fmt.Sprintf("cevap %d", i)))
	}

	assert.Len(t, s.Messages, 4)
	assert.Equal(t, 6, s.Metadata.MessageCount)

	history, err := m.History(ctx, s)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, llms.HumanChatMessage{Content: "soru 1"}, history[0])
	assert.Equal(t, llms.AIChatMessage{Content: "cevap 2"}, history[3])

	transcript, err := m.GetFormattedHistory(ctx, "abc")
	require.NoError(t, err)
	assert.Contains(t, transcript, "User: soru 2\nAssistant: cevap 2\n")

	assert.Equal(t, 1, m.GetActiveSessionCount())
}

func TestManagerHistoryAfterRestart(t *testing.T) {
	store, _ := newMiniredisStore(t, time.Minute)
	ctx := context.Background()

	first := NewManager(store, 0, zap.NewNop())
	s, err := first.Load(ctx, "xyz")
	require.NoError(t, err)
	require.NoError(t, first.RecordTurn(ctx, s, "merhaba", "hoş geldiniz"))

	second := NewManager(store, 0, zap.NewNop())
	reloaded, err := second.Load(ctx, "xyz")
	require.NoError(t, err)
	history, err := second.History(ctx, reloaded)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	transcript, err := second.GetFormattedHistory(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "User: merhaba\nAssistant: hoş geldiniz\n", transcript)
}

func TestInMemoryStoreSweepsExpiredSessions(t *testing.T) {
	store := NewInMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	m := NewManager(store, 0, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		s, err := m.Load(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		require.NoError(t, m.RecordTurn(ctx, s, "soru", "cevap"))
	}
	assert.Equal(t, 1000, m.GetActiveSessionCount())

	now = now.Add(time.Hour)
	assert.Zero(t, m.GetActiveSessionCount())
	assert.Equal(t, 1000, store.Sweep())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.sessions)
}

func TestInMemoryStoreRunStopsWithContext(t *testing.T) {
	store := NewInMemoryStore(time.Millisecond)
	require.NoError(t, store.SaveSession(context.Background(), NewSession("old")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sessions) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRedisStoreSharedClientStaysOpen(t *testing.T) {
	store, _ := newMiniredisStore(t, time.Minute)
	m := NewManager(store, 0, zap.NewNop())

	require.NoError(t, m.Close())
	assert.NoError(t, m.Ping(context.Background()), "closing the store must not close a shared client")
}

func TestManagerPingWithoutConnection(t *testing.T) {
	m := NewManager(NewInMemoryStore(time.Minute), 0, zap.NewNop())
	assert.NoError(t, m.Ping(context.Background()))
}

func TestManagerClearSession(t *testing.T) {
	store := NewInMemoryStore(time.Minute)
	m := NewManager(store, 0, zap.NewNop())
	ctx := context.Background()

	s, err := m.Load(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, m.RecordTurn(ctx, s, "a", "b"))
	require.NoError(t, m.ClearSession(ctx, "gone"))

	exists, err := m.SessionExists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, m.GetActiveSessionCount())
}

func TestManagerCountUnknownForRedis(t *testing.T) {
	store, _ := newMiniredisStore(t, time.Minute)
	assert.Equal(t, -1, NewManager(store, 0, zap.NewNop()).GetActiveSessionCount())
}

func TestSessionBookingMode(t *testing.T) {
	s := NewSession("b")
	s.StartBooking()
	assert.True(t, s.InBooking())

	n := 1
	s.Booking.Rooms = &n
	s.EndBooking()
	assert.False(t, s.InBooking())
	assert.True(t, s.Booking.IsEmpty())
}
