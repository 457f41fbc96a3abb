package dispute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	txcontext "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/tx"
)

// PostgresStore persists disputes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const disputeColumns = `id, tenant_id, user_id, ai_job_id, reason, attachment_url, status, admin_response, reviewed_by, created_at, reviewed_at, resolved_at, deleted_at`

func (s *PostgresStore) Create(ctx context.Context, d *models.UserDispute) error {
	if err := requireTenant(d.TenantID); err != nil {
		return err
	}
	query := `
		INSERT INTO disputes (id, tenant_id, user_id, ai_job_id, reason, attachment_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		uuid.UUID(d.TenantID),
		uuid.UUID(d.UserID),
		nullString(d.AIJobID),
		d.Reason,
		nullString(d.AttachmentURL),
		string(d.Status),
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create dispute: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, disputeID id.DisputeID) (*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	d, err := scanDispute(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(disputeID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find dispute: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE tenant_id = $1 AND user_id = $2 AND deleted_at IS NULL
		ORDER BY created_at
	`
	return s.queryDisputes(ctx, query, uuid.UUID(tenantID), uuid.UUID(userID))
}

// UpdateIfStatus persists a transitioned dispute with a conditional update on
// the expected pre-transition status.
func (s *PostgresStore) UpdateIfStatus(ctx context.Context, d *models.UserDispute, expected models.DisputeStatus) error {
	if err := requireTenant(d.TenantID); err != nil {
		return err
	}
	query := `
		UPDATE disputes
		SET status = $3, admin_response = $4, reviewed_by = $5, reviewed_at = $6, resolved_at = $7
		WHERE tenant_id = $1 AND id = $2 AND status = $8 AND deleted_at IS NULL
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(d.TenantID),
		uuid.UUID(d.ID),
		string(d.Status),
		nullString(d.AdminResponse),
		nullString(d.ReviewedBy),
		d.ReviewedAt,
		d.ResolvedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dispute rows: %w", err)
	}
	if rows == 0 {
		if _, findErr := s.FindByID(ctx, d.TenantID, d.ID); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) FindExceedingSLA(ctx context.Context, tenantID id.TenantID, cutoff time.Time) ([]*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE tenant_id = $1 AND status = 'pending' AND created_at <= $2 AND deleted_at IS NULL
		ORDER BY created_at
	`
	return s.queryDisputes(ctx, query, uuid.UUID(tenantID), cutoff)
}

func (s *PostgresStore) FindWithExpiredAttachments(ctx context.Context, tenantID id.TenantID, now time.Time) ([]*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE tenant_id = $1
		  AND attachment_url IS NOT NULL
		  AND created_at <= $2
		  AND deleted_at IS NULL
		ORDER BY created_at
	`
	return s.queryDisputes(ctx, query, uuid.UUID(tenantID), now.Add(-models.AttachmentTTL))
}

func (s *PostgresStore) SoftDeleteByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, deletedAt time.Time) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE disputes SET deleted_at = $3 WHERE tenant_id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		uuid.UUID(tenantID), uuid.UUID(userID), deletedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("soft delete disputes: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) HardDeleteByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM disputes WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID),
	)
	if err != nil {
		return 0, fmt.Errorf("hard delete disputes: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) queryDisputes(ctx context.Context, query string, args ...any) ([]*models.UserDispute, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query disputes: %w", err)
	}
	defer rows.Close()

	var out []*models.UserDispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disputes: %w", err)
	}
	return out, nil
}

type disputeRow interface {
	Scan(dest ...any) error
}

func scanDispute(row disputeRow) (*models.UserDispute, error) {
	var (
		d             models.UserDispute
		disputeID     uuid.UUID
		tenantID      uuid.UUID
		userID        uuid.UUID
		aiJobID       sql.NullString
		attachmentURL sql.NullString
		status        string
		adminResponse sql.NullString
		reviewedBy    sql.NullString
		reviewedAt    sql.NullTime
		resolvedAt    sql.NullTime
		deletedAt     sql.NullTime
	)
	err := row.Scan(&disputeID, &tenantID, &userID, &aiJobID, &d.Reason, &attachmentURL, &status, &adminResponse, &reviewedBy, &d.CreatedAt, &reviewedAt, &resolvedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DisputeID(disputeID)
	d.TenantID = id.TenantID(tenantID)
	d.UserID = id.UserID(userID)
	d.AIJobID = aiJobID.String
	d.AttachmentURL = attachmentURL.String
	d.Status = models.DisputeStatus(status)
	d.AdminResponse = adminResponse.String
	d.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		at := reviewedAt.Time
		d.ReviewedAt = &at
	}
	if resolvedAt.Valid {
		at := resolvedAt.Time
		d.ResolvedAt = &at
	}
	if deletedAt.Valid {
		at := deletedAt.Time
		d.DeletedAt = &at
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
