package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrCollect = errors.New("metrics collect failed")
)
