//go:build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	oppositionstore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/opposition"
	tenantmodels "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/models"
	tenantstore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/store"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	auditpublisher "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/publisher"
	auditpostgres "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/store/postgres"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/tx"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/testutil/containers"
)

// failingPublisher rejects every audit append, standing in for an
// unavailable trail.
type failingPublisher struct{}

func (failingPublisher) Emit(ctx context.Context, event audit.Event) error {
	return dErrors.New(dErrors.CodeInternal, "audit trail write failed")
}

type TxPostgresSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	ctx    context.Context
	tenant id.TenantID
	userID id.UserID
}

func (s *TxPostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
}

func (s *TxPostgresSuite) SetupTest() {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "oppositions", "audit_outbox", "tenants"))

	s.tenant = id.TenantID(uuid.New())
	s.userID = id.UserID(uuid.New())

	t, err := tenantmodels.NewTenant(s.tenant, "Tx Boundary Tenant", now)
	s.Require().NoError(err)
	s.Require().NoError(tenantstore.NewPostgres(s.pg.DB).CreateIfNameAvailable(context.Background(), t))
}

func TestTxPostgresSuite(t *testing.T) {
	suite.Run(t, new(TxPostgresSuite))
}

func (s *TxPostgresSuite) countRows(table string) int {
	var n int
	s.Require().NoError(s.pg.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func (s *TxPostgresSuite) TestOppositionAndOutboxCommitTogether() {
	publisher := auditpublisher.New(auditpostgres.New(s.pg.DB))
	svc := NewOppositionService(oppositionstore.NewPostgres(s.pg.DB),
		WithAuditPublisher(publisher),
		WithStoreTx(tx.NewPostgres(s.pg.DB)),
	)

	_, err := svc.SubmitOpposition(s.ctx, SubmitOppositionInput{
		TenantID:  s.tenant,
		UserID:    s.userID,
		Treatment: id.TreatmentAnalytics,
		Reason:    "No analytics on my account data",
	})
	s.Require().NoError(err)

	s.Equal(1, s.countRows("oppositions"))
	s.Equal(1, s.countRows("audit_outbox"))
}

func (s *TxPostgresSuite) TestFailedAuditRollsBackOpposition() {
	svc := NewOppositionService(oppositionstore.NewPostgres(s.pg.DB),
		WithAuditPublisher(failingPublisher{}),
		WithStoreTx(tx.NewPostgres(s.pg.DB)),
	)

	_, err := svc.SubmitOpposition(s.ctx, SubmitOppositionInput{
		TenantID:  s.tenant,
		UserID:    s.userID,
		Treatment: id.TreatmentAnalytics,
		Reason:    "No analytics on my account data",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	s.Equal(0, s.countRows("oppositions"), "entity write must roll back with the failed audit append")
	s.Equal(0, s.countRows("audit_outbox"))
}
