package worker

import (
	"github.com/okian/quickshop/pkg/logger"
)

// Option applies a configuration option to an InMemoryWorker.
type Option func(*options)

type options struct {
	name   string
	logger logger.Logger
}

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
