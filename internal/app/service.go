// Package service implements the dashboard operations used by the HTTP API
// and the batch exporter.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/quickshop/internal/adapters/filewatcher"
	"github.com/okian/quickshop/internal/adapters/repository"
	"github.com/okian/quickshop/internal/domain/loader"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/pkg/logger"
	"github.com/okian/quickshop/pkg/metrics"
)

// Service owns the session store and the shared default dataset.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions repository.Store
	loader   *loader.Loader
	watcher  *filewatcher.Watcher

	// defaultDS is published once at Start and swapped whole on reload.
	defaultDS atomic.Pointer[model.Dataset]

	// Configuration
	maxSessions       int
	idleTTL           time.Duration
	sweepInterval     time.Duration
	samplePath        string
	watchSample       bool
	maxReportedErrors int
	now               func() time.Time

	// State
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMaxSessions bounds the number of live sessions. Zero is unbounded.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxSessions = n
		}
	}
}

// WithSessionIdleTTL sets how long an unused session is kept.
func WithSessionIdleTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.idleTTL = ttl
		}
	}
}

// WithSweepInterval sets how often idle sessions are evicted.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithSamplePath loads the default dataset from a file instead of the
// bundled sample.
func WithSamplePath(path string) Option {
	return func(s *Service) {
		s.samplePath = path
	}
}

// WithWatchSample reloads the default dataset when the sample file changes.
func WithWatchSample(watch bool) Option {
	return func(s *Service) {
		s.watchSample = watch
	}
}

// WithMaxReportedErrors caps the row errors returned for one upload.
func WithMaxReportedErrors(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxReportedErrors = n
		}
	}
}

// WithStore replaces the in-memory session store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.sessions = store
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxSessions:       1000,
		idleTTL:           30 * time.Minute,
		sweepInterval:     time.Minute,
		maxReportedErrors: 20,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the default dataset and starts the session store and, when
// enabled, the sample file watcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting dashboard service...")

	s.loader = loader.New(loader.WithClock(s.now))
	ds, err := s.loadDefault(ctx)
	if err != nil {
		return err
	}
	s.publishDefault(ds)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.sessions == nil {
		s.sessions = repository.NewMemStore(runCtx,
			repository.WithCapacity(s.maxSessions),
			repository.WithIdleTTL(s.idleTTL),
			repository.WithSweepInterval(s.sweepInterval),
			repository.WithClock(s.now),
		)
	}

	if s.watchSample && s.samplePath != "" {
		if err := s.startWatcher(runCtx); err != nil {
			cancel()
			return err
		}
	}

	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.String("dataset", ds.Source),
		logger.Int("rows", len(ds.Rows)),
		logger.Int("maxSessions", s.maxSessions),
		logger.Duration("idleTTL", s.idleTTL),
		logger.Bool("watchSample", s.watcher != nil),
	)
	return nil
}

// Stop shuts down background work. Sessions are discarded.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping dashboard service...")

	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		_ = s.watcher.Stop()
		s.watcher = nil
	}
	s.wg.Wait()

	if closer, ok := s.sessions.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.sessions = nil

	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

func (s *Service) store() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.sessions, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"maxSessions":       s.maxSessions,
		"idleTTLSeconds":    int(s.idleTTL.Seconds()),
		"watchSample":       s.watcher != nil,
		"maxReportedErrors": s.maxReportedErrors,
	}

	if s.started {
		count := s.sessions.Count(context.Background())
		stats["sessions"] = count
		metrics.UpdateActiveSessions(count)

		if ds := s.defaultDS.Load(); ds != nil {
			stats["defaultDataset"] = ds.Describe()
			stats["defaultLoadedAt"] = ds.LoadedAt
		}
	}
	return stats
}
