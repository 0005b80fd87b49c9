package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdata/internal/catalogue"
	"askdata/internal/catalogue/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestLoad(t *testing.T) {
	l := New("testdata", WithLogger(discardLogger()), WithConcurrency(2))

	datasets, report, err := l.Load(context.Background())
	require.NoError(t, err)

	codes := make([]string, len(datasets))
	for i, ds := range datasets {
		codes[i] = ds.Indicator.Code
	}
	assert.Equal(t, []string{
		"population.P3",
		"population.IPC_M",
		"NAT.tofe.recettes_fiscales",
		"NAT.tofe.depenses_trimestrielles",
		"SP.POP.TOTL",
	}, codes)

	assert.Equal(t, 3, report.Files)
	assert.Equal(t, []string{"broken.yaml"}, report.FailedFiles)
	assert.Equal(t, []string{"Unknown.xml", "notes.txt"}, report.IgnoredFiles)
	assert.Equal(t, 2, report.SkippedIndicators)
	assert.Equal(t, 4, report.DroppedRows)

	t.Run("yaml rows keep file order and accept comma decimals", func(t *testing.T) {
		ds := datasets[2]
		assert.Equal(t, "tofe", ds.Indicator.Theme)
		assert.Equal(t, "DGTCP", ds.Indicator.Provider)
		require.Len(t, ds.Variants, 1)
		assert.Equal(t, []models.RawObservation{
			{Year: 2019, Value: 3500},
			{Year: 2020, Value: 4000.5},
			{Year: 2022, Value: 4400},
		}, ds.Variants[0].Observations)
	})

	t.Run("quarterly rows are parsed as quarterly", func(t *testing.T) {
		ds := datasets[3]
		require.Len(t, ds.Variants, 1)
		assert.Equal(t, models.FrequencyQuarterly, ds.Variants[0].Frequency)
		assert.Len(t, ds.Variants[0].Observations, 3)
	})

	t.Run("sdmx series use the file theme and french names", func(t *testing.T) {
		ds := datasets[0]
		assert.Equal(t, "Population totale", ds.Indicator.Name)
		assert.Equal(t, "population", ds.Indicator.Theme)
		assert.Equal(t, "Indice des prix", datasets[1].Indicator.Name)
	})
}

func TestLoadIsIdempotent(t *testing.T) {
	l := New("testdata", WithLogger(discardLogger()))
	first, _, err := l.Load(context.Background())
	require.NoError(t, err)
	second, _, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadIntoCatalogue(t *testing.T) {
	datasets, _, err := New("testdata", WithLogger(discardLogger())).Load(context.Background())
	require.NoError(t, err)

	c, report := catalogue.NewBuilder(catalogue.WithBuildLogger(discardLogger())).Build(datasets)

	assert.Contains(t, report.NotEnoughData, "population.IPC_M")
	assert.True(t, c.Contains("SP.POP.TOTL"))

	// The NaN observation is dropped during normalization.
	series, ok := c.Series("population.P3")
	require.True(t, ok)
	assert.Equal(t, models.AnnualSeries{{Year: 2019, Value: 25700}, {Year: 2020, Value: 26400}}, series)

	e, ok := c.Lookup("NAT.tofe.recettes_fiscales")
	require.True(t, ok)
	assert.Equal(t, models.National("tofe"), e.Indicator.Source)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, _, err := New(filepath.Join(t.TempDir(), "missing")).Load(context.Background())
	require.Error(t, err)
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New("testdata", WithLogger(discardLogger())).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{"12,5", 12.5, true},
		{"1 234,5", 1234.5, true},
		{"1,234.5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseValue(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
