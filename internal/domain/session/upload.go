package session

import (
	"errors"

	"github.com/okian/quickshop/internal/domain/model"
)

// ErrNoValidRows rejects an upload whose every record was dropped.
var ErrNoValidRows = errors.New("no valid rows in upload")

// UploadReport describes an accepted upload.
type UploadReport struct {
	Session Info                     `json:"session"`
	Records int                      `json:"records"`
	Rows    int                      `json:"rows"`
	Dropped int                      `json:"dropped"`
	Errors  []model.RowCoercionError `json:"errors"`
}

// UploadError carries the diagnostics of a rejected upload.
type UploadError struct {
	Err     error
	Records int
	Dropped int
	Errors  []model.RowCoercionError
}

func (e *UploadError) Error() string { return e.Err.Error() }

func (e *UploadError) Unwrap() error { return e.Err }
