package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"askdata/internal/cache/models"
	"askdata/internal/cache/service"
	"askdata/internal/cache/store"
	"askdata/pkg/testutil"
)

type FeedbackHandlerSuite struct {
	suite.Suite
	service *service.Service
	router  chi.Router
}

func TestFeedbackHandlerSuite(t *testing.T) {
	suite.Run(t, new(FeedbackHandlerSuite))
}

func (s *FeedbackHandlerSuite) SetupTest() {
	svc, err := service.New(store.NewInMemoryStore())
	s.Require().NoError(err)
	s.service = svc

	s.router = chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *FeedbackHandlerSuite) send(body any) *FeedbackResponse {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/feedback", body))
	testutil.AssertStatusOK(s.T(), rr)
	return testutil.UnmarshalResponse[FeedbackResponse](s.T(), rr)
}

func (s *FeedbackHandlerSuite) TestNegativeInvalidates() {
	e, err := s.service.Upsert(context.Background(), "population 2020", []byte(`{}`))
	s.Require().NoError(err)

	resp := s.send(map[string]string{"query_hash": e.Key, "feedback": "Negative"})
	s.True(resp.Success)
	s.True(resp.Invalidated)
	s.Equal(1, resp.Negative)

	hit, err := s.service.Lookup(context.Background(), "population 2020")
	s.Require().NoError(err)
	s.Nil(hit)
}

func (s *FeedbackHandlerSuite) TestPositiveKeepsEntry() {
	e, err := s.service.Upsert(context.Background(), "pib", []byte(`{}`))
	s.Require().NoError(err)

	resp := s.send(map[string]string{"query_hash": e.Key, "feedback": "positive"})
	s.False(resp.Invalidated)
	s.Equal(1, resp.Positive)
}

func (s *FeedbackHandlerSuite) TestErrors() {
	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{"unknown hash", map[string]string{"query_hash": models.Key("nothing"), "feedback": "positive"}, http.StatusNotFound, "not_found"},
		{"missing hash", map[string]string{"feedback": "positive"}, http.StatusBadRequest, "validation_error"},
		{"bad vote", map[string]string{"query_hash": "abc", "feedback": "meh"}, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/feedback", tt.body))
			testutil.AssertStatusAndError(s.T(), rr, tt.status, tt.code)
		})
	}
}
