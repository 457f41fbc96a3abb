package service

import (
	"context"
	"errors"
	"strings"

	rightsmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/metrics"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// SuspensionService drives the Art. 18 restriction lifecycle and Art. 17
// erasure. The restriction state is a single flag on the user record; both
// transitions use a compare-and-swap on the current flag so concurrent
// toggles surface as state conflicts rather than lost updates.
type SuspensionService struct {
	users        UserStore
	oppositions  OppositionStore
	disputes     DisputeStore
	consents     ConsentPurger
	auditEmitter *auditEmitter
	metrics      *rightsmetrics.Metrics
	tx           StoreTx
}

func NewSuspensionService(users UserStore, oppositions OppositionStore, disputes DisputeStore, consents ConsentPurger, opts ...Option) *SuspensionService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &SuspensionService{
		users:        users,
		oppositions:  oppositions,
		disputes:     disputes,
		consents:     consents,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
		tx:           cfg.storeTx(),
	}
}

// SuspendInput carries a restriction request.
type SuspendInput struct {
	TenantID    id.TenantID
	UserID      id.UserID
	Reason      id.SuspensionReason
	RequestedBy string
	Notes       string
}

// SuspendUserData activates the Art. 18 restriction on a user. Fails with a
// state conflict if the user's data is already suspended.
func (s *SuspensionService) SuspendUserData(ctx context.Context, in SuspendInput) (*user.Suspension, error) {
	if err := requireTenant(in.TenantID); err != nil {
		return nil, err
	}
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	requestedBy := strings.TrimSpace(in.RequestedBy)
	if requestedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "requestedBy is required")
	}
	if !in.Reason.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid suspension reason: "+in.Reason.String())
	}

	now := requestcontext.Now(ctx)
	reason := in.Reason
	next := user.Suspension{
		UserID:      in.UserID,
		TenantID:    in.TenantID,
		Suspended:   true,
		SuspendedAt: &now,
		Reason:      &reason,
		RequestedBy: requestedBy,
		Notes:       strings.TrimSpace(in.Notes),
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.UpdateDataSuspension(txCtx, in.TenantID, in.UserID, false, next); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "User not found")
			}
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeConflict, "User data is already suspended")
			}
			return wrapStoreErr(err, "failed to suspend user data")
		}
		return s.auditEmitter.emit(txCtx, audit.Event{
			Name:            audit.EventDataSuspensionActivated,
			ActorScope:      actorScope(requestedBy, in.UserID),
			ActorID:         requestedBy,
			TenantID:        in.TenantID.String(),
			UserID:          in.UserID.String(),
			TargetID:        in.UserID.String(),
			Reason:          reason.String(),
			RequestedByUser: requestedBy == in.UserID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementSuspensionToggled("activated")
	}
	return &next, nil
}

// UnsuspendInput carries a restriction-lifting request.
type UnsuspendInput struct {
	TenantID    id.TenantID
	UserID      id.UserID
	RequestedBy string
	Notes       string
}

// UnsuspendUserData lifts the Art. 18 restriction. Not idempotent: calling it
// on a user whose data is not suspended is a state conflict, so callers must
// check current state first.
func (s *SuspensionService) UnsuspendUserData(ctx context.Context, in UnsuspendInput) (*user.Suspension, error) {
	if err := requireTenant(in.TenantID); err != nil {
		return nil, err
	}
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	requestedBy := strings.TrimSpace(in.RequestedBy)
	if requestedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "requestedBy is required")
	}

	u, err := s.users.FindByID(ctx, in.TenantID, in.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, wrapStoreErr(err, "failed to load user")
	}
	if !u.DataSuspended {
		return nil, dErrors.New(dErrors.CodeConflict, "User data is not currently suspended")
	}

	now := requestcontext.Now(ctx)
	next := user.Suspension{
		UserID:        in.UserID,
		TenantID:      in.TenantID,
		Suspended:     false,
		UnsuspendedAt: &now,
		RequestedBy:   requestedBy,
		Notes:         strings.TrimSpace(in.Notes),
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.UpdateDataSuspension(txCtx, in.TenantID, in.UserID, true, next); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeConflict, "User data is not currently suspended")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "User not found")
			}
			return wrapStoreErr(err, "failed to unsuspend user data")
		}
		return s.auditEmitter.emit(txCtx, audit.Event{
			Name:            audit.EventDataSuspensionDeactivated,
			ActorScope:      actorScope(requestedBy, in.UserID),
			ActorID:         requestedBy,
			TenantID:        in.TenantID.String(),
			UserID:          in.UserID.String(),
			TargetID:        in.UserID.String(),
			RequestedByUser: requestedBy == in.UserID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementSuspensionToggled("deactivated")
	}
	return &next, nil
}

// GetSuspension returns the user's current restriction snapshot.
func (s *SuspensionService) GetSuspension(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*user.Suspension, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, wrapStoreErr(err, "failed to load user")
	}
	snap := user.SuspensionOf(u)
	return &snap, nil
}

// EraseUserData performs Art. 17 erasure: the user record is anonymized in
// place, their oppositions and disputes are soft-deleted, consent records are
// purged. The erasure itself is recorded on the audit trail with IDs only.
func (s *SuspensionService) EraseUserData(ctx context.Context, tenantID id.TenantID, userID id.UserID, requestedBy string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if err := requireUser(userID); err != nil {
		return err
	}
	requestedBy = strings.TrimSpace(requestedBy)
	if requestedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "requestedBy is required")
	}

	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		affected, err := s.users.SoftEraseByID(txCtx, tenantID, userID, now)
		if err != nil {
			return wrapStoreErr(err, "failed to erase user record")
		}
		if affected == 0 {
			return dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		if _, err := s.oppositions.SoftDeleteByUser(txCtx, tenantID, userID, now); err != nil {
			return wrapStoreErr(err, "failed to erase user oppositions")
		}
		if _, err := s.disputes.SoftDeleteByUser(txCtx, tenantID, userID, now); err != nil {
			return wrapStoreErr(err, "failed to erase user disputes")
		}
		if _, err := s.consents.PurgeUser(txCtx, tenantID, userID); err != nil {
			return wrapStoreErr(err, "failed to purge user consents")
		}
		return s.auditEmitter.emit(txCtx, audit.Event{
			Name:            audit.EventUserDataErased,
			ActorScope:      actorScope(requestedBy, userID),
			ActorID:         requestedBy,
			TenantID:        tenantID.String(),
			UserID:          userID.String(),
			TargetID:        userID.String(),
			RequestedByUser: requestedBy == userID.String(),
		})
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementUserErased()
	}
	return nil
}

func actorScope(requestedBy string, userID id.UserID) string {
	if requestedBy == userID.String() {
		return "user"
	}
	return "admin"
}
