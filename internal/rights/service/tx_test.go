package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	disputestore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/dispute"
	oppositionstore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/opposition"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// trackingTx flags the window where the transactional callback is running so
// wrapped dependencies can record whether they were called inside it.
type trackingTx struct {
	inTx bool
	runs int
}

func (t *trackingTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.runs++
	t.inTx = true
	defer func() { t.inTx = false }()
	return fn(ctx)
}

type trackedOppositionStore struct {
	OppositionStore
	tx         *trackingTx
	createInTx bool
	updateInTx bool
}

func (s *trackedOppositionStore) Create(ctx context.Context, o *models.UserOpposition) error {
	s.createInTx = s.tx.inTx
	return s.OppositionStore.Create(ctx, o)
}

func (s *trackedOppositionStore) UpdateIfPending(ctx context.Context, o *models.UserOpposition) error {
	s.updateInTx = s.tx.inTx
	return s.OppositionStore.UpdateIfPending(ctx, o)
}

type trackedPublisher struct {
	tx       *trackingTx
	emitInTx []bool
}

func (p *trackedPublisher) Emit(ctx context.Context, event audit.Event) error {
	p.emitInTx = append(p.emitInTx, p.tx.inTx)
	return nil
}

type TxBoundarySuite struct {
	suite.Suite
	tx        *trackingTx
	store     *trackedOppositionStore
	publisher *trackedPublisher
	svc       *OppositionService
	ctx       context.Context
	tenant    id.TenantID
	userID    id.UserID
}

func (s *TxBoundarySuite) SetupTest() {
	s.tx = &trackingTx{}
	s.store = &trackedOppositionStore{OppositionStore: oppositionstore.NewInMemoryStore(), tx: s.tx}
	s.publisher = &trackedPublisher{tx: s.tx}
	s.svc = NewOppositionService(s.store,
		WithAuditPublisher(s.publisher),
		WithStoreTx(s.tx),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	s.tenant = id.TenantID(uuid.New())
	s.userID = id.UserID(uuid.New())
}

func TestTxBoundarySuite(t *testing.T) {
	suite.Run(t, new(TxBoundarySuite))
}

func (s *TxBoundarySuite) TestSubmitWrapsWriteAndAudit() {
	_, err := s.svc.SubmitOpposition(s.ctx, SubmitOppositionInput{
		TenantID:  s.tenant,
		UserID:    s.userID,
		Treatment: id.TreatmentAnalytics,
		Reason:    "No analytics please, thank you",
	})
	s.Require().NoError(err)

	s.Equal(1, s.tx.runs)
	s.True(s.store.createInTx, "entity write must run inside the transactional boundary")
	s.Require().Len(s.publisher.emitInTx, 1)
	s.True(s.publisher.emitInTx[0], "audit append must share the boundary with the entity write")
}

func (s *TxBoundarySuite) TestReviewWrapsWriteAndAudit() {
	o, err := s.svc.SubmitOpposition(s.ctx, SubmitOppositionInput{
		TenantID:  s.tenant,
		UserID:    s.userID,
		Treatment: id.TreatmentAnalytics,
		Reason:    "No analytics please, thank you",
	})
	s.Require().NoError(err)

	_, err = s.svc.ReviewOpposition(s.ctx, ReviewOppositionInput{
		TenantID:      s.tenant,
		OppositionID:  o.ID,
		Status:        models.OppositionStatusAccepted,
		AdminResponse: "Opposition upheld, treatment stopped",
		ReviewedBy:    "dpo-1",
	})
	s.Require().NoError(err)

	s.Equal(2, s.tx.runs)
	s.True(s.store.updateInTx, "review write must run inside the transactional boundary")
	s.Require().Len(s.publisher.emitInTx, 2)
	s.True(s.publisher.emitInTx[1])
}

func (s *TxBoundarySuite) TestDisputeResolveWrapsWriteAndAudit() {
	store := disputestore.NewInMemoryStore()
	disputes := NewDisputeService(store,
		WithAuditPublisher(s.publisher),
		WithStoreTx(s.tx),
	)

	d, err := disputes.SubmitDispute(s.ctx, SubmitDisputeInput{
		TenantID: s.tenant,
		UserID:   s.userID,
		Reason:   "this decision was made about me unfairly",
	})
	s.Require().NoError(err)

	_, err = disputes.StartDisputeReview(s.ctx, s.tenant, d.ID, "dpo-1")
	s.Require().NoError(err)

	_, err = disputes.ResolveDispute(s.ctx, ResolveDisputeInput{
		TenantID:      s.tenant,
		DisputeID:     d.ID,
		Status:        models.DisputeStatusResolved,
		AdminResponse: "Decision re-examined by a human reviewer",
		ReviewedBy:    "dpo-1",
	})
	s.Require().NoError(err)

	s.Equal(3, s.tx.runs)
	s.Require().Len(s.publisher.emitInTx, 3)
	for _, inTx := range s.publisher.emitInTx {
		s.True(inTx, "every audit append must share its entity write's boundary")
	}
}
