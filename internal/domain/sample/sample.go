// Package sample provides the bundled default dataset used when a session
// has no upload of its own.
package sample

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/okian/quickshop/internal/domain/loader"
	"github.com/okian/quickshop/internal/domain/model"
)

// FileName is the source name reported for the bundled dataset.
const FileName = "sample.csv"

// DownloadName is the file name offered when the sample is downloaded.
const DownloadName = "sample_data.csv"

//go:embed sample.csv
var raw []byte

var (
	once    sync.Once
	dataset *model.Dataset
	loadErr error
)

// CSV returns a copy of the bundled file.
func CSV() []byte {
	return bytes.Clone(raw)
}

// Dataset parses the bundled file once and returns the shared result.
// Callers must not modify it.
func Dataset() (*model.Dataset, error) {
	once.Do(func() {
		dataset, loadErr = loader.New().Load(context.Background(), bytes.NewReader(raw), FileName)
		if loadErr != nil {
			loadErr = fmt.Errorf("bundled sample: %w", loadErr)
		}
	})
	return dataset, loadErr
}
