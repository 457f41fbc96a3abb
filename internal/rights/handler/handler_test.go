package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/service"
	disputestore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/dispute"
	oppositionstore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/opposition"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopPurger struct{}

func (noopPurger) PurgeUser(_ context.Context, _ id.TenantID, _ id.UserID) (int64, error) {
	return 0, nil
}

type RightsHandlerSuite struct {
	suite.Suite
	router chi.Router
	users  *user.InMemoryStore
	now    time.Time
	tenant id.TenantID
	userID id.UserID
}

func (s *RightsHandlerSuite) SetupTest() {
	oppositions := oppositionstore.NewInMemoryStore()
	disputes := disputestore.NewInMemoryStore()
	s.users = user.NewInMemoryStore()

	h := New(
		service.NewOppositionService(oppositions),
		service.NewDisputeService(disputes),
		service.NewSuspensionService(s.users, oppositions, disputes, noopPurger{}),
		testLogger(),
	)

	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.tenant = id.TenantID(uuid.New())
	s.userID = id.UserID(uuid.New())

	s.Require().NoError(s.users.Create(context.Background(), &user.User{
		ID:       s.userID,
		TenantID: s.tenant,
		Email:    "subject@example.test",
	}))

	s.router = chi.NewRouter()
	h.Register(s.router)
}

func TestRightsHandlerSuite(t *testing.T) {
	suite.Run(t, new(RightsHandlerSuite))
}

func (s *RightsHandlerSuite) authed(req *http.Request) *http.Request {
	req = testutil.WithAuth(req, s.tenant.String(), s.userID.String())
	return req.WithContext(requestcontext.WithTime(req.Context(), s.now))
}

func (s *RightsHandlerSuite) TestSubmitOpposition() {
	req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/rights/oppositions", map[string]string{
		"treatment": "analytics",
		"reason":    "I object to analytics processing of my data",
	}))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[OppositionResponse](s.T(), rr)
	s.Equal("pending", resp.Status)
	s.Equal("analytics", resp.Treatment)
	s.False(resp.SlaExceeded)
	s.Equal(30, resp.DaysUntilSla)
}

func (s *RightsHandlerSuite) TestSubmitOppositionShortReason() {
	req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/rights/oppositions", map[string]string{
		"treatment": "analytics",
		"reason":    "too short",
	}))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, "validation_error")
}

func (s *RightsHandlerSuite) TestUnauthenticatedRequestRefused() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/rights/oppositions", map[string]string{
		"treatment": "analytics",
		"reason":    "I object to analytics processing of my data",
	})
	rr := testutil.DoRequest(s.router, req.WithContext(requestcontext.WithTime(req.Context(), s.now)))

	testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
	testutil.AssertErrorCode(s.T(), rr, "internal_error")
}

func (s *RightsHandlerSuite) TestReviewOppositionFlow() {
	req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/rights/oppositions", map[string]string{
		"treatment": "analytics",
		"reason":    "I object to analytics processing of my data",
	}))
	created := testutil.UnmarshalResponse[OppositionResponse](s.T(), testutil.DoRequest(s.router, req))

	review := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/rights/oppositions/"+created.ID+"/review", map[string]string{
			"status":         "accepted",
			"admin_response": "processing stopped for this subject",
		}))
	review = testutil.WithActor(review, "dpo-1")
	rr := testutil.DoRequest(s.router, review)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[OppositionResponse](s.T(), rr)
	s.Equal("accepted", resp.Status)
	s.Equal("dpo-1", resp.ReviewedBy)

	again := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/rights/oppositions/"+created.ID+"/review", map[string]string{
			"status":         "rejected",
			"admin_response": "changed our minds about this",
		}))
	rr = testutil.DoRequest(s.router, again)
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
}

func (s *RightsHandlerSuite) TestDisputeLifecycle() {
	submit := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/rights/disputes", map[string]string{
		"ai_job_id": "job-42",
		"reason":    "the model output about me is factually wrong",
	}))
	created := testutil.UnmarshalResponse[DisputeResponse](s.T(), testutil.DoRequest(s.router, submit))
	s.Equal("pending", created.Status)

	start := testutil.WithActor(s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/rights/disputes/"+created.ID+"/review", nil)), "dpo-1")
	rr := testutil.DoRequest(s.router, start)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("under_review", testutil.UnmarshalResponse[DisputeResponse](s.T(), rr).Status)

	resolve := testutil.WithActor(s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/rights/disputes/"+created.ID+"/resolve", map[string]string{
			"status":         "resolved",
			"admin_response": "output corrected and regenerated",
		})), "dpo-1")
	rr = testutil.DoRequest(s.router, resolve)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("resolved", testutil.UnmarshalResponse[DisputeResponse](s.T(), rr).Status)

	list := s.authed(testutil.NewJSONRequest(s.T(), http.MethodGet, "/rights/disputes", nil))
	listResp := testutil.UnmarshalResponse[DisputeListResponse](s.T(), testutil.DoRequest(s.router, list))
	s.Len(listResp.Disputes, 1)
	s.Zero(listResp.PendingCount)
	s.Zero(listResp.UnderReviewCount)
}

func (s *RightsHandlerSuite) TestSuspensionRoundTrip() {
	suspend := testutil.WithActor(s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/rights/users/"+s.userID.String()+"/suspend", map[string]string{
			"reason": "user_request",
		})), "admin-1")
	rr := testutil.DoRequest(s.router, suspend)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.True(testutil.UnmarshalResponse[SuspensionResponse](s.T(), rr).Suspended)

	own := s.authed(testutil.NewJSONRequest(s.T(), http.MethodGet, "/rights/suspension", nil))
	rr = testutil.DoRequest(s.router, own)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.True(testutil.UnmarshalResponse[SuspensionResponse](s.T(), rr).Suspended)

	unsuspend := testutil.WithActor(s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/rights/users/"+s.userID.String()+"/unsuspend", map[string]string{})), "admin-1")
	rr = testutil.DoRequest(s.router, unsuspend)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.False(testutil.UnmarshalResponse[SuspensionResponse](s.T(), rr).Suspended)

	again := testutil.WithActor(s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/rights/users/"+s.userID.String()+"/unsuspend", map[string]string{})), "admin-1")
	rr = testutil.DoRequest(s.router, again)
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
}

func (s *RightsHandlerSuite) TestEraseUser() {
	req := testutil.WithActor(s.authed(testutil.NewJSONRequest(s.T(), http.MethodDelete,
		"/admin/rights/users/"+s.userID.String(), nil)), "admin-1")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	u, err := s.users.FindByID(context.Background(), s.tenant, s.userID)
	s.Require().NoError(err)
	s.NotNil(u.ErasedAt)
	s.Empty(u.Email)
}
