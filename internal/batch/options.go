package batch

import (
	"time"

	"github.com/okian/quickshop/internal/domain/dedupe"
	"github.com/okian/quickshop/pkg/logger"
)

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces time.Now; it dates the output file names.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDeduper shares a deduper between runners.
func WithDeduper(d dedupe.Deduper) Option {
	return func(r *Runner) {
		if d != nil {
			r.seen = d
		}
	}
}
