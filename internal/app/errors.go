package service

import (
	"errors"

	"github.com/okian/quickshop/internal/adapters/repository"
	"github.com/okian/quickshop/internal/domain/session"
)

// Sentinel kinds for service errors.
var (
	// ErrNotStarted is returned by operations invoked before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrSessionNotFound is returned for unknown or evicted sessions.
	ErrSessionNotFound = repository.ErrNotFound
	// ErrNoValidRows rejects an upload whose every record was dropped.
	ErrNoValidRows = session.ErrNoValidRows
)

// UploadError carries the diagnostics of a rejected upload.
type UploadError = session.UploadError
