package batch

import "errors"

// Sentinel errors for batch exports.
var (
	ErrNoInputs  = errors.New("no input files")
	ErrNoOutDir  = errors.New("output directory not set")
	ErrNoRows    = errors.New("no valid rows")
	ErrDuplicate = errors.New("duplicate input")
)
