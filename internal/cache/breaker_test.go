package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCache returns err from every data operation.
type stubCache struct {
	err   error
	value []byte
	calls atomic.Int32
}

func (s *stubCache) Get(context.Context, string) ([]byte, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.value, nil
}

func (s *stubCache) Set(context.Context, string, []byte, time.Duration) error {
	s.calls.Add(1)
	return s.err
}

func (s *stubCache) Delete(context.Context, string) error {
	s.calls.Add(1)
	return s.err
}

func (s *stubCache) Ping(context.Context) error { return s.err }
func (s *stubCache) Backend() string            { return "stub" }
func (s *stubCache) Close() error               { return nil }

func TestBreakerCache_TripsOnFailures(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("connection reset")
	stub := &stubCache{err: backendErr}
	b := NewBreaker(stub, 2, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.Get(ctx, "k")
		assert.ErrorIs(t, err, backendErr)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, b.Set(ctx, "k", []byte("v"), 0), ErrCircuitOpen)
	assert.ErrorIs(t, b.Delete(ctx, "k"), ErrCircuitOpen)
	assert.Equal(t, int32(2), stub.calls.Load())

	// Ping reaches the backend even while open.
	assert.ErrorIs(t, b.Ping(ctx), backendErr)
}

func TestBreakerCache_MissesDoNotTrip(t *testing.T) {
	t.Parallel()

	stub := &stubCache{err: ErrCacheMiss}
	b := NewBreaker(stub, 1, time.Minute, nil)

	for i := 0; i < 10; i++ {
		_, err := b.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrCacheMiss)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, int32(10), stub.calls.Load())
}

func TestBreakerCache_HalfOpenRecovers(t *testing.T) {
	t.Parallel()

	stub := &stubCache{err: errors.New("down")}
	b := NewBreaker(stub, 1, 50*time.Millisecond, nil)
	ctx := context.Background()

	_, err := b.Get(ctx, "k")
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, b.State())

	stub.err = nil
	stub.value = []byte("v")
	require.Eventually(t, func() bool {
		return b.State() == gobreaker.StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerCache_Delegates(t *testing.T) {
	t.Parallel()

	stub := &stubCache{value: []byte("v")}
	b := NewBreaker(stub, 5, time.Minute, nil)

	assert.Equal(t, "stub", b.Backend())
	assert.NoError(t, b.Set(context.Background(), "k", []byte("v"), time.Second))
	assert.NoError(t, b.Delete(context.Background(), "k"))
	assert.NoError(t, b.Close())
}

func TestSafeIntToUint32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(1), safeIntToUint32(0))
	assert.Equal(t, uint32(1), safeIntToUint32(-4))
	assert.Equal(t, uint32(7), safeIntToUint32(7))
}
