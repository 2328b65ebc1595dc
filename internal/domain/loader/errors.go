package loader

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for loader errors.
var (
	// ErrParse marks input that is not well-formed CSV.
	ErrParse = errors.New("malformed csv")
	// ErrSchema is matched by every *SchemaError.
	ErrSchema = errors.New("schema mismatch")
)

// SchemaError reports required columns absent from the header.
type SchemaError struct {
	Missing  []string
	Required []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// Is lets errors.Is(err, ErrSchema) match.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
