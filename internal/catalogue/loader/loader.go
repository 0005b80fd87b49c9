// Package loader reads catalogue seed files from a directory.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"askdata/internal/catalogue/models"
)

const defaultConcurrency = 4

// Report summarizes one load.
type Report struct {
	Files             int
	FailedFiles       []string
	IgnoredFiles      []string
	Datasets          int
	SkippedIndicators int
	DroppedRows       int
}

type fileResult struct {
	datasets          []models.Dataset
	skippedIndicators int
	droppedRows       int
}

// Loader reads YAML seed files and SDMX-ML exports.
type Loader struct {
	dir         string
	fileThemes  map[string]string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithFileThemes replaces the SDMX file name → theme mapping.
func WithFileThemes(themes map[string]string) Option {
	return func(l *Loader) {
		l.fileThemes = themes
	}
}

// WithConcurrency bounds the number of files parsed at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a loader for dir.
func New(dir string, opts ...Option) *Loader {
	l := &Loader{
		dir:         dir,
		fileThemes:  DefaultFileThemes(),
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses every supported file in the directory. A file that fails to
// parse is logged and skipped. Files are processed in name order and their
// datasets concatenated in that order, so identical input yields identical
// output regardless of scheduling.
func (l *Loader) Load(ctx context.Context) ([]models.Dataset, Report, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, Report{}, fmt.Errorf("read catalogue directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	results := make([]*fileResult, len(names))
	failures := make([]error, len(names))
	var report Report

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, name := range names {
		parse, ok := l.parserFor(name)
		if !ok {
			report.IgnoredFiles = append(report.IgnoredFiles, name)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(l.dir, name))
			if err != nil {
				failures[i] = err
				return nil
			}
			res, err := parse(data)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}

	var datasets []models.Dataset
	for i, name := range names {
		if failures[i] != nil {
			l.logger.Warn("catalogue file skipped", "file", name, "error", failures[i])
			report.FailedFiles = append(report.FailedFiles, name)
			continue
		}
		res := results[i]
		if res == nil {
			continue
		}
		report.Files++
		report.SkippedIndicators += res.skippedIndicators
		report.DroppedRows += res.droppedRows
		datasets = append(datasets, res.datasets...)
	}
	report.Datasets = len(datasets)

	l.logger.Info("catalogue files loaded",
		"dir", l.dir,
		"files", report.Files,
		"failed", len(report.FailedFiles),
		"datasets", report.Datasets,
		"dropped_rows", report.DroppedRows,
	)
	return datasets, report, nil
}

func (l *Loader) parserFor(name string) (func([]byte) (fileResult, error), bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return parseYAML, true
	case ".xml":
		theme, ok := l.fileThemes[name]
		if !ok {
			return nil, false
		}
		return func(data []byte) (fileResult, error) {
			return parseSDMX(data, theme)
		}, true
	}
	return nil, false
}
