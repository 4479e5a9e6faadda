package guard

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Limits holds the resource ceilings for one engine. Limits are configured
// once at construction and shared read-only for the engine's lifetime.
type Limits struct {
	MaxMemoryBytes uint64
	MaxTimeSec     uint32
}

// Timeout returns the time ceiling as a duration.
func (l Limits) Timeout() time.Duration {
	return time.Duration(l.MaxTimeSec) * time.Second
}

// MemoryToleranceFactor scales the configured memory ceiling into the hard
// ceiling. The slack trades strict enforcement for fewer false aborts on
// noisy allocators.
const MemoryToleranceFactor = 1.5

// memoryCheckInterval is how often the watchdog samples resident memory.
const memoryCheckInterval = 100 * time.Millisecond

// MemoryLimitError reports that resident memory exceeded the hard ceiling.
// Both values are in bytes.
type MemoryLimitError struct {
	LimitBytes uint64
	UsageBytes uint64
}

func (e *MemoryLimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded: using %d bytes of the %d byte limit", e.UsageBytes, e.LimitBytes)
}

// MemorySampler reports the current resident memory of the process in bytes.
type MemorySampler func() (uint64, error)

// Guard enforces Limits over protected execution scopes. A Guard is safe for
// concurrent use; each call to Protect returns an independent Scope.
type Guard struct {
	logger  *zap.Logger
	limits  Limits
	sampler MemorySampler
}

// Option configures a Guard.
type Option func(*Guard)

// WithMemorySampler replaces the default process memory sampler.
func WithMemorySampler(sampler MemorySampler) Option {
	return func(g *Guard) {
		g.sampler = sampler
	}
}

// New creates a Guard for the given limits.
func New(logger *zap.Logger, limits Limits, opts ...Option) *Guard {
	g := &Guard{
		logger:  logger,
		limits:  limits,
		sampler: ProcessResidentMemory,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Limits returns the configured ceilings.
func (g *Guard) Limits() Limits {
	return g.limits
}

// CheckMemory samples resident memory and returns a *MemoryLimitError if it
// exceeds the configured ceiling scaled by MemoryToleranceFactor. A sampling
// failure is never a violation: it is logged and treated as usage unknown.
func (g *Guard) CheckMemory() error {
	usage, err := g.sampler()
	if err != nil {
		g.logger.Debug("memory sampling failed, treating usage as unknown", zap.Error(err))
		return nil
	}
	hardCeiling := uint64(float64(g.limits.MaxMemoryBytes) * MemoryToleranceFactor)
	if usage > hardCeiling {
		return &MemoryLimitError{
			LimitBytes: g.limits.MaxMemoryBytes,
			UsageBytes: usage,
		}
	}
	return nil
}

// Scope is one armed protected region. It must be released exactly once;
// Release is idempotent and safe under defer.
type Scope struct {
	guard   *Guard
	cancel  func(reason string)
	timer   *time.Timer
	done    chan struct{}
	release sync.Once

	timedOut    atomic.Bool
	memExceeded atomic.Bool
	memUsage    atomic.Uint64
}

// Protect arms a deadline timer and a memory watchdog around the region the
// caller is about to run. When either limit trips, cancel is invoked with a
// reason and the corresponding flag is set so the caller can distinguish the
// abort from an ordinary failure.
func (g *Guard) Protect(cancel func(reason string)) *Scope {
	s := &Scope{
		guard:  g,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.timer = time.AfterFunc(g.limits.Timeout(), func() {
		s.timedOut.Store(true)
		g.logger.Warn("execution deadline exceeded, cancelling run",
			zap.Uint32("max_time_sec", g.limits.MaxTimeSec))
		cancel("deadline exceeded")
	})

	go s.watchMemory()

	return s
}

// watchMemory periodically applies CheckMemory until the scope is released.
func (s *Scope) watchMemory() {
	ticker := time.NewTicker(memoryCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			err := s.guard.CheckMemory()
			if err == nil {
				continue
			}
			var memErr *MemoryLimitError
			if errors.As(err, &memErr) {
				s.memUsage.Store(memErr.UsageBytes)
			}
			s.memExceeded.Store(true)
			s.guard.logger.Warn("memory limit exceeded, cancelling run", zap.Error(err))
			s.cancel("memory limit exceeded")
			return
		}
	}
}

// Release disarms the deadline timer and stops the memory watchdog. It holds
// on every exit path, including when the protected code fails.
func (s *Scope) Release() {
	s.release.Do(func() {
		s.timer.Stop()
		close(s.done)
	})
}

// Limits returns the ceilings this scope enforces.
func (s *Scope) Limits() Limits {
	return s.guard.limits
}

// TimedOut reports whether the deadline fired for this scope.
func (s *Scope) TimedOut() bool {
	return s.timedOut.Load()
}

// MemoryExceeded reports whether the watchdog tripped, and the observed
// usage in bytes when it did.
func (s *Scope) MemoryExceeded() (bool, uint64) {
	return s.memExceeded.Load(), s.memUsage.Load()
}
