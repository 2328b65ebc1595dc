package loader

import (
	"time"

	"github.com/okian/quickshop/pkg/logger"
)

const defaultMaxErrors = 1_000

// Option configures a Loader.
type Option func(*Loader)

// WithSchema replaces DefaultSchema.
func WithSchema(s Schema) Option {
	return func(l *Loader) {
		if len(s) > 0 {
			l.schema = s
		}
	}
}

// WithMaxErrors caps how many RowCoercionErrors are kept. Dropped still
// counts every rejected record.
func WithMaxErrors(n int) Option {
	return func(l *Loader) {
		if n >= 0 {
			l.maxErrors = n
		}
	}
}

// WithClock sets the clock used for Dataset.LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}
