package catalogue

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"askdata/internal/catalogue/models"
)

// =============================================================================
// Catalogue Test Suite
// =============================================================================
// Justification for unit tests: first-wins deduplication, source tagging and
// the build pipeline's exclusion rules determine what every other module can
// see, and are not directly observable from the HTTP surface.

type CatalogueSuite struct {
	suite.Suite
}

func TestCatalogueSuite(t *testing.T) {
	suite.Run(t, new(CatalogueSuite))
}

func series(start int, values ...float64) models.AnnualSeries {
	out := make(models.AnnualSeries, len(values))
	for i, v := range values {
		out[i] = models.Point{Year: start + i, Value: v}
	}
	return out
}

func annualVariant(start int, values ...float64) models.Variant {
	obs := make([]models.RawObservation, len(values))
	for i, v := range values {
		obs[i] = models.RawObservation{Year: start + i, Value: v}
	}
	return models.Variant{Frequency: models.FrequencyAnnual, Observations: obs}
}

// =============================================================================
// Construction Tests
// =============================================================================

func (s *CatalogueSuite) TestNew() {
	entries := []Entry{
		{Indicator: models.Indicator{Code: "SP.POP.TOTL", Name: "Population, total"}, Series: series(2019, 1, 2)},
		{Indicator: models.Indicator{Code: "SP.POP.TOTL", Name: "Duplicate"}, Series: series(2019, 9, 9)},
		{Indicator: models.Indicator{Code: "NAT.tofe.dons", Name: "Dons reçus"}, Series: series(2019, 3, 4)},
		{Indicator: models.Indicator{Code: "", Name: "No code"}},
	}
	c := New(entries)

	s.Run("first duplicate wins and invalid entries are ignored", func() {
		s.Equal(2, c.Len())
		e, ok := c.Lookup("SP.POP.TOTL")
		s.Require().True(ok)
		s.Equal("Population, total", e.Indicator.Name)
	})

	s.Run("source is tagged once at construction", func() {
		e, ok := c.Lookup("NAT.tofe.dons")
		s.Require().True(ok)
		s.Equal(models.National("tofe"), e.Indicator.Source)

		e, _ = c.Lookup("SP.POP.TOTL")
		s.Equal(models.Standard(), e.Indicator.Source)
	})

	s.Run("lookup falls back to case-insensitive codes", func() {
		e, ok := c.Lookup("sp.pop.totl")
		s.Require().True(ok)
		s.Equal("SP.POP.TOTL", e.Indicator.Code)
	})

	s.Run("series are copies", func() {
		got, ok := c.Series("SP.POP.TOTL")
		s.Require().True(ok)
		got[0].Value = 1000
		again, _ := c.Series("SP.POP.TOTL")
		s.Equal(1.0, again[0].Value)
	})

	s.Run("indicators keep input order", func() {
		inds := c.Indicators()
		s.Equal([]string{"SP.POP.TOTL", "NAT.tofe.dons"}, []string{inds[0].Code, inds[1].Code})
	})
}

// =============================================================================
// Build Tests
// =============================================================================

func (s *CatalogueSuite) TestBuild() {
	datasets := []models.Dataset{
		{
			Indicator: models.Indicator{Code: "NAT.tofe.recettes_fiscales", Name: "Recettes fiscales (TOFE)", Theme: "tofe"},
			Variants:  []models.Variant{annualVariant(2019, 3500, 4000, 4400)},
		},
		{
			Indicator: models.Indicator{Code: "NAT.base_eco.pib_nominal_mxof", Name: "PIB nominal", Theme: "base_eco"},
			Variants:  []models.Variant{annualVariant(2019, 35000000, 0, 40000000)},
		},
		{
			Indicator: models.Indicator{Code: "ipc.SPARSE", Name: "Sparse", Theme: "ipc"},
			Variants:  []models.Variant{annualVariant(2020, 1)},
		},
	}
	builder := NewBuilder()

	s.Run("sparse indicators are excluded", func() {
		c, report := builder.Build(datasets)
		s.False(c.Contains("ipc.SPARSE"))
		s.Equal([]string{"ipc.SPARSE"}, report.NotEnoughData)
	})

	s.Run("fiscal pressure derived over positive GDP years", func() {
		c, report := builder.Build(datasets)
		s.Equal(1, report.Derived)
		got, ok := c.Series("NAT.tofe.pression_fiscale")
		s.Require().True(ok)
		// 3500 / (35000000/1000) * 100 = 10.0 ; 4400 / 40000 * 100 = 11.0
		s.Equal(series(2019, 10.0), got[:1])
		s.Equal(models.Point{Year: 2021, Value: 11.0}, got[1])
		s.Len(got, 2)
	})

	s.Run("rebuilding identical input is idempotent", func() {
		first, _ := builder.Build(datasets)
		second, _ := builder.Build(datasets)
		s.Equal(first.Indicators(), second.Indicators())
		for _, ind := range first.Indicators() {
			a, _ := first.Series(ind.Code)
			b, _ := second.Series(ind.Code)
			s.Equal(a, b)
		}
	})
}

func (s *CatalogueSuite) TestDerivationRatio() {
	d := Derivation{DenominatorScale: 1000, Decimals: 1}
	num := series(2020, -500, 300)
	den := series(2019, 40000000, 50000000, 60000000)
	got := d.Ratio(num, den)
	s.Equal(models.AnnualSeries{{Year: 2020, Value: -1.0}, {Year: 2021, Value: 0.5}}, got)
}
