package guard

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLimitsTimeout(t *testing.T) {
	limits := Limits{MaxMemoryBytes: 1 << 20, MaxTimeSec: 3}
	assert.Equal(t, 3*time.Second, limits.Timeout())
}

func TestProtectDeadline(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("DeadlineFires", func(t *testing.T) {
		g := New(logger, Limits{MaxMemoryBytes: 1 << 30, MaxTimeSec: 1})

		cancelled := make(chan string, 1)
		scope := g.Protect(func(reason string) {
			cancelled <- reason
		})
		defer scope.Release()

		select {
		case reason := <-cancelled:
			assert.Contains(t, reason, "deadline")
		case <-time.After(3 * time.Second):
			t.Fatal("deadline never fired")
		}
		assert.True(t, scope.TimedOut())
	})

	t.Run("ReleaseDisarmsDeadline", func(t *testing.T) {
		g := New(logger, Limits{MaxMemoryBytes: 1 << 30, MaxTimeSec: 1})

		var fired atomic.Bool
		scope := g.Protect(func(string) {
			fired.Store(true)
		})
		scope.Release()

		time.Sleep(1200 * time.Millisecond)
		assert.False(t, fired.Load())
		assert.False(t, scope.TimedOut())
	})

	t.Run("ReleaseIsIdempotent", func(t *testing.T) {
		g := New(logger, Limits{MaxMemoryBytes: 1 << 30, MaxTimeSec: 10})

		scope := g.Protect(func(string) {})
		scope.Release()
		assert.NotPanics(t, scope.Release)
	})
}

func TestCheckMemory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	limits := Limits{MaxMemoryBytes: 1000, MaxTimeSec: 10}

	t.Run("WithinTolerance", func(t *testing.T) {
		// 1.4x the nominal limit stays under the 1.5x hard ceiling.
		g := New(logger, limits, WithMemorySampler(func() (uint64, error) {
			return 1400, nil
		}))
		assert.NoError(t, g.CheckMemory())
	})

	t.Run("BeyondTolerance", func(t *testing.T) {
		g := New(logger, limits, WithMemorySampler(func() (uint64, error) {
			return 1600, nil
		}))
		err := g.CheckMemory()
		require.Error(t, err)

		var memErr *MemoryLimitError
		require.ErrorAs(t, err, &memErr)
		assert.Equal(t, uint64(1000), memErr.LimitBytes)
		assert.Equal(t, uint64(1600), memErr.UsageBytes)
		assert.Contains(t, err.Error(), "memory limit exceeded")
	})

	t.Run("SamplerFailureIsNotAViolation", func(t *testing.T) {
		g := New(logger, limits, WithMemorySampler(func() (uint64, error) {
			return 0, errors.New("platform unsupported")
		}))
		assert.NoError(t, g.CheckMemory())
	})
}

func TestMemoryWatchdog(t *testing.T) {
	logger := zaptest.NewLogger(t)

	g := New(logger, Limits{MaxMemoryBytes: 1000, MaxTimeSec: 30},
		WithMemorySampler(func() (uint64, error) {
			return 5000, nil
		}))

	cancelled := make(chan string, 1)
	scope := g.Protect(func(reason string) {
		cancelled <- reason
	})
	defer scope.Release()

	select {
	case reason := <-cancelled:
		assert.Contains(t, reason, "memory")
	case <-time.After(2 * time.Second):
		t.Fatal("memory watchdog never fired")
	}

	exceeded, usage := scope.MemoryExceeded()
	assert.True(t, exceeded)
	assert.Equal(t, uint64(5000), usage)
	assert.False(t, scope.TimedOut())
}

func TestProcessResidentMemory(t *testing.T) {
	usage, err := ProcessResidentMemory()
	require.NoError(t, err)
	assert.Positive(t, usage)
}
