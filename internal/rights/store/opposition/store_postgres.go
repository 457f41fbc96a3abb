package opposition

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

// PostgresStore persists oppositions in PostgreSQL.
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

const oppositionColumns = `id, tenant_id, user_id, treatment, reason, status, admin_response, reviewed_by, created_at, reviewed_at, deleted_at`

func (s *PostgresStore) Create(ctx context.Context, o *models.UserOpposition) error {
	if err := requireTenant(o.TenantID); err != nil {
		return err
	}
	query := `
		INSERT INTO oppositions (id, tenant_id, user_id, treatment, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(o.ID),
		uuid.UUID(o.TenantID),
		uuid.UUID(o.UserID),
		o.Treatment.String(),
		o.Reason,
		string(o.Status),
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create opposition: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, oppositionID id.OppositionID) (*models.UserOpposition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `SELECT ` + oppositionColumns + ` FROM oppositions WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	o, err := scanOpposition(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(oppositionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find opposition: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]*models.UserOpposition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + oppositionColumns + `
		FROM oppositions
		WHERE tenant_id = $1 AND user_id = $2 AND deleted_at IS NULL
		ORDER BY created_at
	`
	return s.queryOppositions(ctx, query, uuid.UUID(tenantID), uuid.UUID(userID))
}

// UpdateIfPending persists a reviewed opposition with a conditional update on
// status = 'pending', closing the concurrent-review race at the row level.
func (s *PostgresStore) UpdateIfPending(ctx context.Context, o *models.UserOpposition) error {
	if err := requireTenant(o.TenantID); err != nil {
		return err
	}
	query := `
		UPDATE oppositions
		SET status = $3, admin_response = $4, reviewed_by = $5, reviewed_at = $6
		WHERE tenant_id = $1 AND id = $2 AND status = 'pending' AND deleted_at IS NULL
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(o.TenantID),
		uuid.UUID(o.ID),
		string(o.Status),
		o.AdminResponse,
		o.ReviewedBy,
		o.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("review opposition: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("review opposition rows: %w", err)
	}
	if rows == 0 {
		if _, findErr := s.FindByID(ctx, o.TenantID, o.ID); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) FindExceedingSLA(ctx context.Context, tenantID id.TenantID, cutoff time.Time) ([]*models.UserOpposition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + oppositionColumns + `
		FROM oppositions
		WHERE tenant_id = $1 AND status = 'pending' AND created_at <= $2 AND deleted_at IS NULL
		ORDER BY created_at
	`
	return s.queryOppositions(ctx, query, uuid.UUID(tenantID), cutoff)
}

func (s *PostgresStore) SoftDeleteByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, deletedAt time.Time) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE oppositions SET deleted_at = $3 WHERE tenant_id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		uuid.UUID(tenantID), uuid.UUID(userID), deletedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("soft delete oppositions: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) HardDeleteByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM oppositions WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID),
	)
	if err != nil {
		return 0, fmt.Errorf("hard delete oppositions: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) queryOppositions(ctx context.Context, query string, args ...any) ([]*models.UserOpposition, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query oppositions: %w", err)
	}
	defer rows.Close()

	var out []*models.UserOpposition
	for rows.Next() {
		o, err := scanOpposition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan opposition: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate oppositions: %w", err)
	}
	return out, nil
}

type oppositionRow interface {
	Scan(dest ...any) error
}

func scanOpposition(row oppositionRow) (*models.UserOpposition, error) {
	var (
		o             models.UserOpposition
		oppositionID  uuid.UUID
		tenantID      uuid.UUID
		userID        uuid.UUID
		treatment     string
		status        string
		adminResponse sql.NullString
		reviewedBy    sql.NullString
		reviewedAt    sql.NullTime
		deletedAt     sql.NullTime
	)
	err := row.Scan(&oppositionID, &tenantID, &userID, &treatment, &o.Reason, &status, &adminResponse, &reviewedBy, &o.CreatedAt, &reviewedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	o.ID = id.OppositionID(oppositionID)
	o.TenantID = id.TenantID(tenantID)
	o.UserID = id.UserID(userID)
	o.Treatment = id.TreatmentType(treatment)
	o.Status = models.OppositionStatus(status)
	o.AdminResponse = adminResponse.String
	o.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		at := reviewedAt.Time
		o.ReviewedAt = &at
	}
	if deletedAt.Valid {
		at := deletedAt.Time
		o.DeletedAt = &at
	}
	return &o, nil
}
