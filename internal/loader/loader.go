// Package loader normalizes tabular and line-delimited document sources
// into records for the pipeline. Extra columns are preserved untouched.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// Options configures column mapping and limits for all loaders.
type Options struct {
	TextColumn string // default "text"
	IDColumn   string // default "id"; "guid" is also probed
	Limit      int    // 0 = no limit
	SheetName  string // XLSX only
	SkipRows   int    // XLSX only; header rows to skip beyond the first
}

func (o Options) textColumn() string {
	if o.TextColumn == "" {
		return "text"
	}
	return o.TextColumn
}

func (o Options) idColumn() string {
	if o.IDColumn == "" {
		return "id"
	}
	return o.IDColumn
}

// Load dispatches on file extension: .csv, .jsonl (or .ndjson), .xlsx.
func Load(path string, opts Options) ([]model.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path, opts)
	case ".jsonl", ".ndjson":
		return LoadJSONL(path, opts)
	case ".xlsx":
		return LoadXLSX(path, opts)
	default:
		return nil, eris.Errorf("loader: unsupported input format %q", filepath.Ext(path))
	}
}

// fallbackID produces a stable identifier for rows without one.
func fallbackID(index int) string {
	return fmt.Sprintf("row_%06d", index)
}

// buildRecord assembles a record from a column map, probing id/guid columns
// and preserving everything else in Extra.
func buildRecord(row map[string]string, index int, opts Options) (model.Record, bool) {
	text := strings.TrimSpace(row[opts.textColumn()])
	if text == "" {
		return model.Record{}, false
	}

	id := strings.TrimSpace(row[opts.idColumn()])
	if id == "" {
		id = strings.TrimSpace(row["guid"])
	}
	if id == "" {
		id = fallbackID(index)
	}

	extra := make(map[string]any)
	for k, v := range row {
		if k == opts.textColumn() || k == opts.idColumn() {
			continue
		}
		extra[k] = v
	}
	if len(extra) == 0 {
		extra = nil
	}

	return model.Record{ID: id, Text: text, Extra: extra}, true
}
