// Package bulkload imports exported content batches from disk: a directory
// of JSON batch files, each declaring a content type and a data array, is
// normalized and upserted like any scraped batch, then summarized.
package bulkload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"streamvault/config"
	"streamvault/internal/database"
	"streamvault/models"
	"streamvault/services/normalize"
)

// batchFile is the on-disk shape of one export.
type batchFile struct {
	ContentType string           `json:"content_type"`
	Source      string           `json:"source,omitempty"`
	Data        []map[string]any `json:"data"`
}

// FileResult is the per-file line in the summary.
type FileResult struct {
	File     string `json:"file"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// Summary totals one load pass.
type Summary struct {
	Files     int          `json:"files"`
	Imported  int          `json:"imported"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Results   []FileResult `json:"results"`
	StartedAt time.Time    `json:"started_at"`
	Duration  string       `json:"duration"`
}

// Loader walks a directory of batch files and upserts their contents.
type Loader struct {
	fs         afero.Fs
	db         *database.DB
	normalizer *normalize.Normalizer
}

func NewLoader(fs afero.Fs, db *database.DB, normalizer *normalize.Normalizer) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs, db: db, normalizer: normalizer}
}

// Load imports every .json batch file under dir (non-recursive) and writes
// a summary.json next to them. One bad file never stops the rest.
func (l *Loader) Load(ctx context.Context, dir string) (*Summary, error) {
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read batch dir: %w", err)
	}

	start := time.Now()
	summary := &Summary{StartedAt: start.UTC()}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") || entry.Name() == "summary.json" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		res := l.loadFile(ctx, filepath.Join(dir, name))
		res.File = name
		summary.Files++
		summary.Imported += res.Imported
		summary.Skipped += res.Skipped
		if res.Error != "" {
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}

	summary.Duration = time.Since(start).Round(time.Millisecond).String()

	if err := l.writeSummary(dir, summary); err != nil {
		log.Printf("[bulkload] summary write: %v", err)
	}
	log.Printf("[bulkload] %d file(s): %d imported, %d skipped, %d failed",
		summary.Files, summary.Imported, summary.Skipped, summary.Failed)
	return summary, nil
}

// loadFile imports every batch document in one file. A file is usually a
// single JSON document, but exports also come newline-delimited with one
// batch object per line; the decoder loop accepts both.
func (l *Loader) loadFile(ctx context.Context, path string) FileResult {
	var res FileResult

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var batch batchFile
		if err := dec.Decode(&batch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			res.Error = fmt.Sprintf("parse: %v", err)
			return res
		}
		imported, skipped, err := l.loadBatch(ctx, batch)
		res.Imported += imported
		res.Skipped += skipped
		if err != nil {
			res.Error = err.Error()
			return res
		}
	}
	return res
}

func (l *Loader) loadBatch(ctx context.Context, batch batchFile) (imported, skipped int, err error) {
	contentType := models.ContentType(strings.ToLower(batch.ContentType))
	if !contentType.Valid() {
		return 0, 0, fmt.Errorf("unknown content type %q", batch.ContentType)
	}

	source := batch.Source
	if source == "" {
		source = "bulkload"
	}
	cfg := config.SourceSettings{Name: source, Category: string(contentType)}

	raws := make([]models.RawItem, 0, len(batch.Data))
	for _, fields := range batch.Data {
		raws = append(raws, models.RawItem{Fields: fields})
	}

	records, errs := l.normalizer.NormalizeBatch(raws, cfg, contentType)
	if len(records) > 0 {
		if err := l.db.UpsertBatch(ctx, contentType, records); err != nil {
			return 0, len(errs), err
		}
	}
	return len(records), len(errs), nil
}

func (l *Loader) writeSummary(dir string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(l.fs, filepath.Join(dir, "summary.json"), data, 0644)
}
