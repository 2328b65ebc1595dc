package service

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/quickshop/internal/domain/chart"
	"github.com/okian/quickshop/internal/domain/filter"
	"github.com/okian/quickshop/internal/domain/loader"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/internal/domain/pipeline"
	"github.com/okian/quickshop/internal/domain/session"
	"github.com/okian/quickshop/pkg/logger"
	"github.com/okian/quickshop/pkg/metrics"
)

// CreateSession starts a session on the default dataset.
func (s *Service) CreateSession(ctx context.Context) (session.Info, error) {
	store, err := s.store()
	if err != nil {
		return session.Info{}, err
	}
	sess := session.New(uuid.NewString(), s.defaultDS.Load(), s.now())
	if err := store.Create(ctx, sess); err != nil {
		return session.Info{}, err
	}
	s.logger.Debug(ctx, "session created", logger.String("session", sess.ID))
	return sess.Describe(), nil
}

// Session returns the client view of a session.
func (s *Service) Session(ctx context.Context, id string) (session.Info, error) {
	sess, err := s.get(ctx, id)
	if err != nil {
		return session.Info{}, err
	}
	return sess.Describe(), nil
}

// DeleteSession drops a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	return store.Delete(ctx, id)
}

// Upload parses r and, when it yields at least one row, makes it the
// session's dataset. On any error the session keeps its current data.
func (s *Service) Upload(ctx context.Context, id string, r io.Reader, name string) (*session.UploadReport, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "upload.csv"
	}

	ds, err := s.loader.Load(ctx, r, name)
	if err != nil {
		var se *loader.SchemaError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			metrics.RecordUpload("too_large")
		case errors.As(err, &se):
			metrics.RecordUpload("schema_error")
		case errors.Is(err, loader.ErrParse):
			metrics.RecordUpload("parse_error")
		default:
			metrics.RecordUpload("error")
		}
		s.logger.Warn(ctx, "upload rejected",
			logger.String("session", id), logger.String("file", name), logger.Error(err))
		return nil, err
	}

	if len(ds.Rows) == 0 && ds.Records > 0 {
		metrics.RecordUpload("no_rows")
		return nil, &UploadError{
			Err:     ErrNoValidRows,
			Records: ds.Records,
			Dropped: ds.Dropped,
			Errors:  s.capErrors(ds.Errors),
		}
	}

	next := sess.WithUpload(ds, s.now())
	if err := store.Put(ctx, next); err != nil {
		return nil, err
	}
	metrics.RecordUpload("ok")
	s.logger.Info(ctx, "upload accepted",
		logger.String("session", id),
		logger.String("file", name),
		logger.Int("rows", len(ds.Rows)),
		logger.Int("dropped", ds.Dropped))

	return &session.UploadReport{
		Session: next.Describe(),
		Records: ds.Records,
		Rows:    len(ds.Rows),
		Dropped: ds.Dropped,
		Errors:  s.capErrors(ds.Errors),
	}, nil
}

func (s *Service) capErrors(errs []model.RowCoercionError) []model.RowCoercionError {
	if len(errs) > s.maxReportedErrors {
		errs = errs[:s.maxReportedErrors]
	}
	out := make([]model.RowCoercionError, len(errs))
	copy(out, errs)
	return out
}

// UseSample switches the session back to the default dataset.
func (s *Service) UseSample(ctx context.Context, id string) (session.Info, error) {
	return s.update(ctx, id, func(sess *session.Session) *session.Session {
		return sess.WithDefault(s.defaultDS.Load(), s.now())
	})
}

// UpdateSelection stores a new selection for the session.
func (s *Service) UpdateSelection(ctx context.Context, id string, sel model.Selection) (session.Info, error) {
	return s.update(ctx, id, func(sess *session.Session) *session.Session {
		return sess.WithSelection(sel, s.now())
	})
}

// SelectAllSegments keeps the range and selects every segment.
func (s *Service) SelectAllSegments(ctx context.Context, id string) (session.Info, error) {
	return s.update(ctx, id, func(sess *session.Session) *session.Session {
		return sess.WithSelection(filter.SelectAll(sess.Rows(), sess.Selection), s.now())
	})
}

// ClearSegments keeps the range and clears the segment choice.
func (s *Service) ClearSegments(ctx context.Context, id string) (session.Info, error) {
	return s.update(ctx, id, func(sess *session.Session) *session.Session {
		return sess.WithSelection(filter.ClearAll(sess.Selection), s.now())
	})
}

// Dashboard evaluates the session's selection.
func (s *Service) Dashboard(ctx context.Context, id string, metric chart.Metric) (*pipeline.View, error) {
	sess, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.Run(ctx, sess, metric)
	if err != nil {
		return nil, err
	}
	return &pipeline.View{Session: sess.Describe(), Result: res}, nil
}

func (s *Service) update(ctx context.Context, id string, fn func(*session.Session) *session.Session) (session.Info, error) {
	store, err := s.store()
	if err != nil {
		return session.Info{}, err
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		return session.Info{}, err
	}
	next := fn(s.resolve(sess))
	if err := store.Put(ctx, next); err != nil {
		return session.Info{}, err
	}
	return s.resolve(next).Describe(), nil
}

// get loads a session with its default dataset brought up to date.
func (s *Service) get(ctx context.Context, id string) (*session.Session, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolve(sess), nil
}

// resolve points a default-backed session at the current default dataset.
// The stored session is left untouched.
func (s *Service) resolve(sess *session.Session) *session.Session {
	if !sess.Default {
		return sess
	}
	current := s.defaultDS.Load()
	if sess.Dataset == current {
		return sess
	}
	c := *sess
	c.Dataset = current
	return &c
}
