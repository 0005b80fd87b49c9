// Package catalogue holds the immutable set of indicators and their annual
// series. A Catalogue is built once at startup and shared read-only.
package catalogue

import (
	"log/slog"
	"slices"
	"strings"

	"askdata/internal/catalogue/models"
)

// Entry pairs an indicator with its normalized series.
type Entry struct {
	Indicator models.Indicator
	Series    models.AnnualSeries
	// Frequency is the raw variant the series was built from.
	Frequency models.Frequency
}

// Catalogue is safe for concurrent reads; nothing mutates it after New.
type Catalogue struct {
	entries    []Entry
	indicators []models.Indicator
	byCode     map[string]int
	byFolded   map[string]int
}

// Option configures catalogue construction.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger reports duplicate codes to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New builds a catalogue. Entries keep their input order; on duplicate codes
// the first entry wins. Entries without a code or name are ignored.
func New(entries []Entry, opts ...Option) *Catalogue {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Catalogue{
		entries:  make([]Entry, 0, len(entries)),
		byCode:   make(map[string]int, len(entries)),
		byFolded: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		code := strings.TrimSpace(e.Indicator.Code)
		if code == "" || strings.TrimSpace(e.Indicator.Name) == "" {
			continue
		}
		if _, dup := c.byCode[code]; dup {
			if o.logger != nil {
				o.logger.Warn("duplicate indicator code ignored", "indicator_code", code)
			}
			continue
		}
		e.Indicator.Code = code
		e.Indicator.Source = models.ParseSource(code)
		e.Series = slices.Clone(e.Series)

		idx := len(c.entries)
		c.entries = append(c.entries, e)
		c.indicators = append(c.indicators, e.Indicator)
		c.byCode[code] = idx
		if _, ok := c.byFolded[strings.ToLower(code)]; !ok {
			c.byFolded[strings.ToLower(code)] = idx
		}
	}
	return c
}

// Lookup finds an entry by code. An exact match is tried first, then a
// case-insensitive one, since interpreter output does not always keep case.
func (c *Catalogue) Lookup(code string) (Entry, bool) {
	code = strings.TrimSpace(code)
	if idx, ok := c.byCode[code]; ok {
		return c.entries[idx], true
	}
	if idx, ok := c.byFolded[strings.ToLower(code)]; ok {
		return c.entries[idx], true
	}
	return Entry{}, false
}

// Series returns a copy of the series for code.
func (c *Catalogue) Series(code string) (models.AnnualSeries, bool) {
	e, ok := c.Lookup(code)
	if !ok {
		return nil, false
	}
	return slices.Clone(e.Series), true
}

// Indicators returns every indicator in catalogue order. The slice is
// shared and must not be modified.
func (c *Catalogue) Indicators() []models.Indicator {
	return c.indicators
}

// Len returns the number of indicators.
func (c *Catalogue) Len() int {
	return len(c.entries)
}

// Contains reports whether code is in the catalogue.
func (c *Catalogue) Contains(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}

// NameIndex maps folded indicator names to codes, first occurrence winning.
func (c *Catalogue) NameIndex() map[string]string {
	idx := make(map[string]string, len(c.entries))
	for _, ind := range c.indicators {
		key := strings.ToLower(strings.TrimSpace(ind.Name))
		if _, ok := idx[key]; !ok {
			idx[key] = ind.Code
		}
	}
	return idx
}
