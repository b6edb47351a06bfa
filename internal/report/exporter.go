package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

const csvContentType = "text/csv; charset=utf-8"

// Exporter writes the summary and detail tables of a scan to a local
// directory, an object store, or both.
type Exporter struct {
	dir    string
	blob   domain.BlobWriter
	prefix string
	logger *slog.Logger
}

// NewExporter creates an Exporter. An empty dir skips local files; a nil blob
// skips uploads.
func NewExporter(dir string, blob domain.BlobWriter, prefix string, logger *slog.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		blob:   blob,
		prefix: prefix,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// Export renders both tables and stores them. It returns the written
// locations (file paths and object keys).
func (e *Exporter) Export(ctx context.Context, res domain.ScanResult) ([]string, error) {
	var summary, detail bytes.Buffer
	if err := WriteSummaryCSV(&summary, res); err != nil {
		return nil, err
	}
	if err := WriteDetailCSV(&detail, res); err != nil {
		return nil, err
	}

	stamp := res.FetchedAt.UTC().Format("20060102T150405Z")
	files := map[string][]byte{
		"summary_" + stamp + ".csv": summary.Bytes(),
		"detail_" + stamp + ".csv":  detail.Bytes(),
	}

	var written []string
	var errs []error

	if e.dir != "" {
		if err := os.MkdirAll(e.dir, 0o755); err != nil {
			return nil, fmt.Errorf("report: create export dir: %w", err)
		}
		for _, name := range slices.Sorted(maps.Keys(files)) {
			p := filepath.Join(e.dir, name)
			if err := os.WriteFile(p, files[name], 0o644); err != nil {
				errs = append(errs, fmt.Errorf("report: write %s: %w", p, err))
				continue
			}
			written = append(written, p)
		}
	}

	if e.blob != nil {
		day := res.FetchedAt.UTC().Format("2006/01/02")
		for _, name := range slices.Sorted(maps.Keys(files)) {
			key := path.Join(e.prefix, day, res.ID, name)
			if err := e.blob.Put(ctx, key, bytes.NewReader(files[name]), csvContentType); err != nil {
				errs = append(errs, fmt.Errorf("report: upload %s: %w", key, err))
				continue
			}
			written = append(written, key)
		}
	}

	if len(errs) > 0 {
		return written, errors.Join(errs...)
	}
	e.logger.InfoContext(ctx, "scan exported",
		slog.String("scan_id", res.ID),
		slog.Int("opportunities", len(res.Opportunities)),
		slog.Int("files", len(written)),
	)
	return written, nil
}
