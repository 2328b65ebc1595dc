package service

import (
	"context"
	"io"
	"time"

	"github.com/okian/quickshop/internal/adapters/xlsx"
	"github.com/okian/quickshop/internal/domain/chart"
	"github.com/okian/quickshop/internal/domain/export"
	"github.com/okian/quickshop/pkg/logger"
	"github.com/okian/quickshop/pkg/metrics"
)

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// Export writes table kind of the session's current view as CSV.
func (s *Service) Export(ctx context.Context, id string, kind export.Kind, w io.Writer) error {
	d, err := s.Dashboard(ctx, id, chart.MetricRevenue)
	if err != nil {
		return err
	}
	cw := &countingWriter{w: w}
	if err := export.Write(cw, kind, d.Result); err != nil {
		s.logger.Error(ctx, "csv export failed", logger.String("session", id), logger.Error(err))
		return err
	}
	metrics.RecordExport(string(kind), "csv", cw.n)
	return nil
}

// ExportWorkbook writes all three tables as one XLSX workbook.
func (s *Service) ExportWorkbook(ctx context.Context, id string, w io.Writer) error {
	d, err := s.Dashboard(ctx, id, chart.MetricRevenue)
	if err != nil {
		return err
	}
	cw := &countingWriter{w: w}
	if err := xlsx.Write(cw, d.Result); err != nil {
		s.logger.Error(ctx, "workbook export failed", logger.String("session", id), logger.Error(err))
		return err
	}
	metrics.RecordExport("workbook", "xlsx", cw.n)
	return nil
}

// Now returns the service clock, used for export file names.
func (s *Service) Now() time.Time {
	return s.now()
}
