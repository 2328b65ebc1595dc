package pipeline

import (
	"errors"
	"fmt"

	"github.com/okian/quickshop/internal/domain/model"
)

// ErrNoData is returned when the session carries no dataset.
var ErrNoData = errors.New("session has no dataset")

// EmptyResultWarning reports a selection that matched no rows. It is
// attached to the Result rather than returned as an error.
type EmptyResultWarning struct {
	Selection model.Selection
}

func (w *EmptyResultWarning) Error() string {
	switch {
	case w.Selection.Bounded():
		return fmt.Sprintf("no data between %s and %s for the selected segments",
			w.Selection.Start.Format(model.DateLayout), w.Selection.End.Format(model.DateLayout))
	default:
		return "no data for the selected filters"
	}
}
