package service

import (
	"context"
	"fmt"

	"github.com/okian/quickshop/internal/adapters/filewatcher"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/internal/domain/sample"
	"github.com/okian/quickshop/pkg/logger"
	"github.com/okian/quickshop/pkg/metrics"
)

// loadDefault reads the configured sample file, or the bundled sample.
func (s *Service) loadDefault(ctx context.Context) (*model.Dataset, error) {
	if s.samplePath == "" {
		return sample.Dataset()
	}
	ds, err := s.loader.LoadFile(ctx, s.samplePath)
	if err != nil {
		return nil, fmt.Errorf("load sample %s: %w", s.samplePath, err)
	}
	return ds, nil
}

func (s *Service) publishDefault(ds *model.Dataset) {
	s.defaultDS.Store(ds)
	metrics.UpdateDefaultDatasetRows(len(ds.Rows))
}

// DefaultDataset returns the shared dataset. It must not be modified.
func (s *Service) DefaultDataset() *model.Dataset {
	return s.defaultDS.Load()
}

// SampleCSV returns the CSV that documents the expected input format.
func (s *Service) SampleCSV() []byte {
	return sample.CSV()
}

// ReloadDefault re-reads the sample file and publishes it. On failure the
// current dataset stays in place.
func (s *Service) ReloadDefault(ctx context.Context) error {
	if s.samplePath == "" {
		return nil
	}
	ds, err := s.loadDefault(ctx)
	if err != nil {
		metrics.RecordDatasetReload("error")
		s.logger.Warn(ctx, "sample reload failed, keeping current dataset",
			logger.String("path", s.samplePath), logger.Error(err))
		return err
	}
	s.publishDefault(ds)
	metrics.RecordDatasetReload("ok")
	s.logger.Info(ctx, "sample reloaded",
		logger.String("path", s.samplePath),
		logger.Int("rows", len(ds.Rows)),
		logger.Int("dropped", ds.Dropped))
	return nil
}

// startWatcher must be called with s.mu held.
func (s *Service) startWatcher(ctx context.Context) error {
	w, err := filewatcher.New(s.samplePath)
	if err != nil {
		return fmt.Errorf("watch sample: %w", err)
	}
	events, err := w.Watch(ctx)
	if err != nil {
		_ = w.Stop()
		return fmt.Errorf("watch sample: %w", err)
	}
	s.watcher = w

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range events {
			if ev.Operation == filewatcher.FileRemoved {
				s.logger.Warn(ctx, "sample file removed, keeping current dataset", logger.String("path", ev.Path))
				continue
			}
			_ = s.ReloadDefault(ctx)
		}
	}()
	return nil
}
