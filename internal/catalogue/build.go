package catalogue

import (
	"errors"
	"log/slog"

	"askdata/internal/aggregate"
	"askdata/internal/catalogue/models"
)

// BuildReport summarizes a catalogue build for startup logs.
type BuildReport struct {
	Datasets      int
	Kept          int
	NotEnoughData []string
	Dropped       int
	Derived       int
}

// Builder normalizes loader datasets into a Catalogue.
type Builder struct {
	normalizer  *aggregate.Normalizer
	derivations []Derivation
	logger      *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *aggregate.Normalizer) BuilderOption {
	return func(b *Builder) {
		if n != nil {
			b.normalizer = n
		}
	}
}

// WithDerivations replaces the default derived series.
func WithDerivations(d []Derivation) BuilderOption {
	return func(b *Builder) {
		b.derivations = d
	}
}

// WithBuildLogger sets the logger used for build diagnostics.
func WithBuildLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder constructs a Builder with the default normalizer and derivations.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		normalizer:  aggregate.New(),
		derivations: DefaultDerivations(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build normalizes every dataset, drops those without enough data, appends
// derived series and returns the immutable catalogue. Identical input yields
// an identical catalogue.
func (b *Builder) Build(datasets []models.Dataset) (*Catalogue, BuildReport) {
	report := BuildReport{Datasets: len(datasets)}
	entries := make([]Entry, 0, len(datasets))

	for _, ds := range datasets {
		res, err := b.normalizer.Normalize(ds.Indicator.Code, ds.Indicator.Theme, ds.Variants)
		report.Dropped += res.Dropped
		if err != nil {
			if errors.Is(err, aggregate.ErrNotEnoughData) {
				report.NotEnoughData = append(report.NotEnoughData, ds.Indicator.Code)
				continue
			}
			b.logger.Warn("indicator skipped", "indicator_code", ds.Indicator.Code, "error", err)
			continue
		}
		entries = append(entries, Entry{
			Indicator: ds.Indicator,
			Series:    res.Series,
			Frequency: res.Frequency,
		})
	}

	derived := derive(entries, b.derivations)
	report.Derived = len(derived)
	entries = append(entries, derived...)

	c := New(entries, WithLogger(b.logger))
	report.Kept = c.Len()

	b.logger.Info("catalogue built",
		"datasets", report.Datasets,
		"indicators", report.Kept,
		"not_enough_data", len(report.NotEnoughData),
		"dropped_observations", report.Dropped,
		"derived", report.Derived,
	)
	return c, report
}
