package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithCapacity bounds the number of live sessions. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(s *MemStore) {
		if n >= 0 {
			s.capacity = n
		}
	}
}

// WithIdleTTL evicts sessions unused for longer than ttl. Zero disables
// idle eviction.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *MemStore) {
		if ttl >= 0 {
			s.idleTTL = ttl
		}
	}
}

// WithSweepInterval sets how often idle sessions are looked for.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *MemStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}
