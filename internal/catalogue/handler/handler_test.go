package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"askdata/internal/catalogue/cataloguetest"
	"askdata/internal/catalogue/models"
	"askdata/internal/matcher"
	"askdata/pkg/testutil"
)

type CatalogueHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestCatalogueHandlerSuite(t *testing.T) {
	suite.Run(t, new(CatalogueHandlerSuite))
}

func (s *CatalogueHandlerSuite) SetupTest() {
	s.router = chi.NewRouter()
	New(cataloguetest.Catalogue(), matcher.New(), slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *CatalogueHandlerSuite) get(path string) *http.Request {
	return testutil.NewRequest(s.T(), http.MethodGet, path)
}

func (s *CatalogueHandlerSuite) TestList() {
	s.Run("all indicators in catalogue order", func() {
		rr := testutil.DoRequest(s.router, s.get("/api/indicators"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[ListResponse](s.T(), rr)
		s.Equal(cataloguetest.Catalogue().Len(), resp.Count)
		s.Equal("SP.POP.TOTL", resp.Indicators[0].Code)
	})

	s.Run("search ranks matches", func() {
		rr := testutil.DoRequest(s.router, s.get("/api/indicators?search=recettes%20fiscales"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[ListResponse](s.T(), rr)
		s.Require().NotZero(resp.Count)
		s.Equal("NAT.tofe.recettes_fiscales", resp.Indicators[0].Code)
		s.True(resp.Indicators[0].National)
	})

	s.Run("search without match is empty", func() {
		rr := testutil.DoRequest(s.router, s.get("/api/indicators?search=xyzzy"))
		resp := testutil.UnmarshalResponse[ListResponse](s.T(), rr)
		s.Zero(resp.Count)
		s.NotNil(resp.Indicators)
	})
}

func (s *CatalogueHandlerSuite) TestGet() {
	s.Run("case-insensitive code with year filter", func() {
		rr := testutil.DoRequest(s.router, s.get("/api/indicator/sp.pop.totl?start=2019&end=2020"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[DetailResponse](s.T(), rr)
		s.Equal("SP.POP.TOTL", resp.Code)
		s.Equal([]models.Point{{Year: 2019, Value: 25700000}, {Year: 2020, Value: 26400000}}, resp.Data)
	})

	s.Run("unknown code", func() {
		rr := testutil.DoRequest(s.router, s.get("/api/indicator/NOPE"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("inverted range", func() {
		rr := testutil.DoRequest(s.router, s.get("/api/indicator/SP.POP.TOTL?start=2021&end=2019"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *CatalogueHandlerSuite) TestRelated() {
	s.Run("bounded by limit", func() {
		rr := testutil.DoRequest(s.router, s.get("/api/indicator/SP.POP.TOTL/related?limit=2"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[RelatedResponse](s.T(), rr)
		s.LessOrEqual(len(resp.Related), 2)
		s.NotContains(resp.Related, "Population, total")
	})

	s.Run("invalid limit", func() {
		rr := testutil.DoRequest(s.router, s.get("/api/indicator/SP.POP.TOTL/related?limit=0"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}
