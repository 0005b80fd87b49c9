package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	catalogue "askdata/internal/catalogue/models"
	"askdata/internal/resolution/handler/mocks"
	"askdata/internal/resolution/models"
	"askdata/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type QueryHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestQueryHandlerSuite(t *testing.T) {
	suite.Run(t, new(QueryHandlerSuite))
}

func (s *QueryHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *QueryHandlerSuite) post(body any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/query", body)
	return testutil.WithAccount(req, "user-1")
}

func (s *QueryHandlerSuite) TestResolved() {
	result := 2.5
	s.service.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req models.Request) (*models.Result, error) {
			s.Equal("population 2020", req.Query)
			s.Equal("account:user-1", req.Identity.String())
			return &models.Result{
				Outcome:       models.OutcomeResolved,
				Tier:          models.TierDirect,
				Message:       "ok",
				QueryHash:     "h",
				IndicatorCode: "SP.POP.TOTL",
				MatchType:     models.MatchExact,
				Data:          catalogue.AnnualSeries{{Year: 2020, Value: 26400000}},
				Calculation:   &models.Calculation{Kind: models.CalculationAverage, Result: &result},
				Remaining:     4,
			}, nil
		})

	rr := testutil.DoRequest(s.router, s.post(map[string]string{"query": "  population 2020 "}))
	testutil.AssertStatusOK(s.T(), rr)

	resp := testutil.UnmarshalResponse[QueryResponse](s.T(), rr)
	s.True(resp.Success)
	s.Equal("resolved", resp.Outcome)
	s.Equal("SP.POP.TOTL", resp.IndicatorCode)
	s.Equal([]catalogue.Point{{Year: 2020, Value: 26400000}}, resp.Data)
	s.Require().NotNil(resp.Calculation)
	s.Equal("average", resp.Calculation.Type)
	s.Equal(2.5, resp.Calculation.Result)
	s.Equal(4, resp.Remaining)
}

func (s *QueryHandlerSuite) TestUndefinedCalculationIsOmitted() {
	s.service.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		Return(&models.Result{
			Outcome:       models.OutcomeResolved,
			Message:       "ok",
			QueryHash:     "h",
			IndicatorCode: "NY.GDP.MKTP.CD",
			Data:          catalogue.AnnualSeries{{Year: 2019, Value: 0}, {Year: 2020, Value: 12}},
			Calculation:   &models.Calculation{Kind: models.CalculationVariation},
		}, nil)

	rr := testutil.DoRequest(s.router, s.post(map[string]string{"query": "variation du pib"}))
	testutil.AssertStatusOK(s.T(), rr)
	s.NotContains(rr.Body.String(), `"calculation"`)
}

func (s *QueryHandlerSuite) TestOutcomeStatuses() {
	tests := []struct {
		outcome models.Outcome
		status  int
	}{
		{models.OutcomeUnresolved, http.StatusOK},
		{models.OutcomeQuotaExceeded, http.StatusTooManyRequests},
		{models.OutcomeUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		s.Run(string(tt.outcome), func() {
			s.service.EXPECT().Resolve(gomock.Any(), gomock.Any()).
				Return(&models.Result{Outcome: tt.outcome, Message: "m", QueryHash: "h"}, nil)

			rr := testutil.DoRequest(s.router, s.post(map[string]string{"query": "q"}))
			testutil.AssertStatus(s.T(), rr, tt.status)
			resp := testutil.UnmarshalResponse[QueryResponse](s.T(), rr)
			s.False(resp.Success)
			s.Equal(string(tt.outcome), resp.Outcome)
			s.NotNil(resp.Data, "data is always an array")
		})
	}
}

func (s *QueryHandlerSuite) TestValidation() {
	s.Run("empty query", func() {
		rr := testutil.DoRequest(s.router, s.post(map[string]string{"query": "   "}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("malformed body", func() {
		req := testutil.WithAccount(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/query", "{"), "user-1")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("no identity", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/query", map[string]string{"query": "q"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *QueryHandlerSuite) TestServiceErrorHidesDetails() {
	s.service.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis: connection refused"))

	rr := testutil.DoRequest(s.router, s.post(map[string]string{"query": "q"}))
	testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
	body := testutil.UnmarshalErrorResponse(s.T(), rr)
	s.Equal("internal_error", body["error"])
	s.Empty(body["error_description"])
}
