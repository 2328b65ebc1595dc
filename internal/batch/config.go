package batch

import (
	"io"
	"time"

	"github.com/okian/quickshop/internal/domain/model"
)

// Config describes one batch export run.
type Config struct {
	Inputs    []string        // CSV files to export
	OutDir    string          // root directory; each input gets a subdirectory
	Selection model.Selection // zero value keeps each input's full span
	Workers   int             // concurrent exports; < 1 means one per CPU
	Workbook  bool            // also write the XLSX workbook
	Progress  io.Writer       // progress bar destination; nil hides it
}

// Result is the outcome for one input.
type Result struct {
	Input     string   `json:"input"`
	OutDir    string   `json:"out_dir,omitempty"`
	Files     []string `json:"files,omitempty"`
	Rows      int      `json:"rows"`
	Dropped   int      `json:"dropped"`
	Duplicate bool     `json:"duplicate,omitempty"`
	Err       error    `json:"-"`
}

// Report summarizes a run.
type Report struct {
	Results    []Result
	Exported   int
	Failed     int
	Duplicates int
	Duration   time.Duration
}
