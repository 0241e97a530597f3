package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fastConfig(retries int) *Config {
	return &Config{
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		JitterFactor:   0.1,
	}
}

func TestDo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		failures  int
		retries   int
		retryable bool
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", failures: 0, retries: 3, retryable: true, wantCalls: 1},
		{name: "succeeds after retries", failures: 2, retries: 3, retryable: true, wantCalls: 3},
		{name: "exhausted", failures: 10, retries: 2, retryable: true, wantCalls: 3, wantErr: true},
		{name: "not retryable", failures: 10, retries: 3, retryable: false, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			var retried []int
			err := Do(context.Background(), fastConfig(tt.retries), func() error {
				calls++
				if calls <= tt.failures {
					return errBoom
				}
				return nil
			}, &Options{
				ShouldRetry: func(error) bool { return tt.retryable },
				OnRetry:     func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
			})

			assert.Equal(t, tt.wantCalls, calls)
			assert.Len(t, retried, tt.wantCalls-1)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBoom)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, nil, func() error { calls++; return nil }, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	err := Do(ctx, cfg, func() error { return errBoom }, &Options{
		OnRetry: func(int, error, time.Duration) { cancel() },
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_Metrics(t *testing.T) {
	m := GetMetrics()
	attempts := testutil.ToFloat64(m.attemptsTotal.WithLabelValues("test_op"))
	success := testutil.ToFloat64(m.successTotal.WithLabelValues("test_op"))
	exhausted := testutil.ToFloat64(m.exhaustedTotal.WithLabelValues("test_op"))

	calls := 0
	require.NoError(t, Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 2 {
			return errBoom
		}
		return nil
	}, &Options{Operation: "test_op"}))
	require.Error(t, Do(context.Background(), fastConfig(1), func() error { return errBoom },
		&Options{Operation: "test_op"}))

	assert.Equal(t, attempts+2, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("test_op")))
	assert.Equal(t, success+1, testutil.ToFloat64(m.successTotal.WithLabelValues("test_op")))
	assert.Equal(t, exhausted+1, testutil.ToFloat64(m.exhaustedTotal.WithLabelValues("test_op")))
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, 100*time.Millisecond, time.Second, 0))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoff(2, 100*time.Millisecond, time.Second, 0))
	assert.Equal(t, time.Second, CalculateBackoff(10, 100*time.Millisecond, time.Second, 0))

	for i := 0; i < 50; i++ {
		b := CalculateBackoff(1, 100*time.Millisecond, time.Second, 0.5)
		assert.GreaterOrEqual(t, b, 200*time.Millisecond)
		assert.LessOrEqual(t, b, 300*time.Millisecond)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	var nilCfg *Config
	assert.Equal(t, DefaultMaxRetries, nilCfg.maxRetries())
	assert.Equal(t, DefaultInitialBackoff, nilCfg.initialBackoff())
	assert.Equal(t, DefaultMaxBackoff, nilCfg.maxBackoff())
	assert.Equal(t, DefaultJitterFactor, nilCfg.jitterFactor())
	assert.Equal(t, MaxJitterFactor, (&Config{JitterFactor: 3}).jitterFactor())
	assert.Equal(t, DefaultConfig().MaxRetries, DefaultMaxRetries)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errBoom, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: fmt.Errorf("wrapped: %w", context.DeadlineExceeded), want: false},
		{name: "eof", err: io.EOF, want: true},
		{name: "conn refused", err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, want: true},
		{name: "conn reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: true},
		{name: "net timeout", err: timeoutErr{}, want: true},
		{name: "closed", err: net.ErrClosed, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
