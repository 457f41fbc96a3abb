//go:build integration

package dispute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	tenantmodels "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/models"
	tenantstore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/store"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/testutil/containers"
)

type DisputePostgresSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	store  *PostgresStore
	ctx    context.Context
	now    time.Time
	tenant id.TenantID
	userID id.UserID
}

func (s *DisputePostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
}

func (s *DisputePostgresSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "disputes", "tenants"))

	s.tenant = id.TenantID(uuid.New())
	s.userID = id.UserID(uuid.New())

	t, err := tenantmodels.NewTenant(s.tenant, "Dispute Store Tenant", s.now)
	s.Require().NoError(err)
	s.Require().NoError(tenantstore.NewPostgres(s.pg.DB).CreateIfNameAvailable(s.ctx, t))
}

func TestDisputePostgresSuite(t *testing.T) {
	suite.Run(t, new(DisputePostgresSuite))
}

func (s *DisputePostgresSuite) seed(attachmentURL string, createdAt time.Time) *models.UserDispute {
	d, err := models.NewUserDispute(id.DisputeID(uuid.New()), s.tenant, s.userID,
		"job-42", "the model output about me is factually wrong", attachmentURL, createdAt)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, d))
	return d
}

func (s *DisputePostgresSuite) TestCreateAndFind() {
	d := s.seed("https://files.example/evidence.pdf", s.now)

	got, err := s.store.FindByID(s.ctx, s.tenant, d.ID)
	s.Require().NoError(err)
	s.Equal(models.DisputeStatusPending, got.Status)
	s.Equal("job-42", got.AIJobID)
	s.Equal("https://files.example/evidence.pdf", got.AttachmentURL)
}

func (s *DisputePostgresSuite) TestNullableColumnsRoundTrip() {
	d, err := models.NewUserDispute(id.DisputeID(uuid.New()), s.tenant, s.userID,
		"", "the model output about me is factually wrong", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, d))

	got, err := s.store.FindByID(s.ctx, s.tenant, d.ID)
	s.Require().NoError(err)
	s.Empty(got.AIJobID)
	s.Empty(got.AttachmentURL)
}

func (s *DisputePostgresSuite) TestConditionalUpdateClosesRace() {
	d := s.seed("", s.now)

	first, err := s.store.FindByID(s.ctx, s.tenant, d.ID)
	s.Require().NoError(err)
	second, err := s.store.FindByID(s.ctx, s.tenant, d.ID)
	s.Require().NoError(err)

	s.Require().NoError(first.ApplyStartReview("dpo-1", s.now))
	s.Require().NoError(s.store.UpdateIfStatus(s.ctx, first, models.DisputeStatusPending))

	s.Require().NoError(second.ApplyStartReview("dpo-2", s.now))
	err = s.store.UpdateIfStatus(s.ctx, second, models.DisputeStatusPending)
	s.True(errors.Is(err, sentinel.ErrInvalidState))

	stored, err := s.store.FindByID(s.ctx, s.tenant, d.ID)
	s.Require().NoError(err)
	s.Equal(models.DisputeStatusUnderReview, stored.Status)
	s.Equal("dpo-1", stored.ReviewedBy)
}

func (s *DisputePostgresSuite) TestFindWithExpiredAttachments() {
	expired := s.seed("https://files.example/old.pdf", s.now.Add(-models.AttachmentTTL-24*time.Hour))
	s.seed("https://files.example/recent.pdf", s.now)
	s.seed("", s.now.Add(-models.AttachmentTTL-24*time.Hour))

	got, err := s.store.FindWithExpiredAttachments(s.ctx, s.tenant, s.now)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(expired.ID, got[0].ID)
}

func (s *DisputePostgresSuite) TestSoftDeleteByUser() {
	s.seed("", s.now)
	otherUser := id.UserID(uuid.New())
	kept, err := models.NewUserDispute(id.DisputeID(uuid.New()), s.tenant, otherUser,
		"", "a different subject's dispute must survive", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, kept))

	n, err := s.store.SoftDeleteByUser(s.ctx, s.tenant, s.userID, s.now)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	remaining, err := s.store.ListByUser(s.ctx, s.tenant, otherUser)
	s.Require().NoError(err)
	s.Len(remaining, 1)
}
