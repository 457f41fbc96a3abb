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

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	auditpublisher "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/publisher"
	auditmemory "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/store/memory"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type AuditHandlerSuite struct {
	suite.Suite
	router    chi.Router
	publisher *auditpublisher.Publisher
	now       time.Time
	tenant    string
	userID    string
}

func (s *AuditHandlerSuite) SetupTest() {
	s.publisher = auditpublisher.New(auditmemory.New())
	s.router = chi.NewRouter()
	New(s.publisher, testLogger()).Register(s.router)

	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.tenant = uuid.NewString()
	s.userID = uuid.NewString()
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func (s *AuditHandlerSuite) emit(tenantID string, name audit.EventName) {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.Require().NoError(s.publisher.Emit(ctx, audit.Event{
		Name:     name,
		TenantID: tenantID,
		UserID:   s.userID,
		TargetID: uuid.NewString(),
	}))
}

func (s *AuditHandlerSuite) TestListReturnsOwnTenantTrail() {
	s.emit(s.tenant, audit.EventOppositionSubmitted)
	s.emit(s.tenant, audit.EventConsentGranted)
	s.emit(uuid.NewString(), audit.EventOppositionSubmitted)

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/audit/events", nil)
	req = testutil.WithAuth(req, s.tenant, s.userID)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[EventListResponse](s.T(), rr)
	s.Require().Len(resp.Events, 2)
	for _, e := range resp.Events {
		s.NotEmpty(e.ID)
		s.NotEmpty(e.Category)
		s.Equal(s.userID, e.UserID)
	}
}

func (s *AuditHandlerSuite) TestEmptyTrail() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/audit/events", nil)
	req = testutil.WithAuth(req, s.tenant, s.userID)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[EventListResponse](s.T(), rr)
	s.Empty(resp.Events)
}
