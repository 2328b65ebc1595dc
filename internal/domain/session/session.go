// Package session holds the per-user dashboard state handed to the pipeline.
package session

import (
	"time"

	"github.com/okian/quickshop/internal/domain/filter"
	"github.com/okian/quickshop/internal/domain/model"
)

// Session is one user's working state. Values are never modified after
// they are stored; every change produces a new Session.
type Session struct {
	ID      string
	Dataset *model.Dataset
	// Default is true while the session shows the shared default dataset.
	Default   bool
	Selection model.Selection
	// LastUpload is the name of the most recent accepted upload.
	LastUpload string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New starts a session on the default dataset with its default selection.
func New(id string, def *model.Dataset, now time.Time) *Session {
	s := &Session{
		ID:        id,
		Dataset:   def,
		Default:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if def != nil {
		s.Selection = filter.DefaultSelection(def.Rows)
	}
	return s
}

func (s *Session) clone(now time.Time) *Session {
	c := *s
	c.UpdatedAt = now
	return &c
}

// WithUpload replaces the dataset with an uploaded one and resets the
// selection to its full span.
func (s *Session) WithUpload(ds *model.Dataset, now time.Time) *Session {
	c := s.clone(now)
	c.Dataset = ds
	c.Default = false
	c.LastUpload = ds.Source
	c.Selection = filter.DefaultSelection(ds.Rows)
	return c
}

// WithDefault switches back to the shared dataset. LastUpload is kept.
func (s *Session) WithDefault(def *model.Dataset, now time.Time) *Session {
	c := s.clone(now)
	c.Dataset = def
	c.Default = true
	c.Selection = filter.DefaultSelection(def.Rows)
	return c
}

// WithSelection stores a normalized selection.
func (s *Session) WithSelection(sel model.Selection, now time.Time) *Session {
	c := s.clone(now)
	c.Selection = filter.Normalize(sel)
	return c
}

// Rows returns the session's full Row Set.
func (s *Session) Rows() model.Rows {
	if s.Dataset == nil {
		return nil
	}
	return s.Dataset.Rows
}

// Info is the client view of a session.
type Info struct {
	ID         string          `json:"id"`
	Default    bool            `json:"default"`
	LastUpload string          `json:"last_upload,omitempty"`
	Data       model.Info      `json:"data"`
	Selection  model.Selection `json:"selection"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Describe builds the client view.
func (s *Session) Describe() Info {
	info := Info{
		ID:         s.ID,
		Default:    s.Default,
		LastUpload: s.LastUpload,
		Selection:  s.Selection,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Dataset != nil {
		info.Data = s.Dataset.Describe()
	}
	return info
}
