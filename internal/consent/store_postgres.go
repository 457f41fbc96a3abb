package consent

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	txcontext "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/tx"
)

// PostgresStore persists consent records in PostgreSQL.
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

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	if err := requireTenant(record.TenantID); err != nil {
		return err
	}
	query := `
		INSERT INTO consents (id, tenant_id, user_id, treatment, granted_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var expires sql.NullTime
	if !record.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: record.ExpiresAt, Valid: true}
	}
	var revoked sql.NullTime
	if record.RevokedAt != nil {
		revoked = sql.NullTime{Time: *record.RevokedAt, Valid: true}
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.TenantID),
		uuid.UUID(record.UserID),
		record.Treatment.String(),
		record.GrantedAt,
		expires,
		revoked,
	)
	if err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]Record, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `
		SELECT id, tenant_id, user_id, treatment, granted_at, expires_at, revoked_at
		FROM consents
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY granted_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			recordID  uuid.UUID
			tenant    uuid.UUID
			user      uuid.UUID
			treatment string
			expires   sql.NullTime
			revoked   sql.NullTime
		)
		if err := rows.Scan(&recordID, &tenant, &user, &treatment, &r.GrantedAt, &expires, &revoked); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		r.ID = id.ConsentID(recordID)
		r.TenantID = id.TenantID(tenant)
		r.UserID = id.UserID(user)
		r.Treatment = id.TreatmentType(treatment)
		if expires.Valid {
			r.ExpiresAt = expires.Time
		}
		if revoked.Valid {
			at := revoked.Time
			r.RevokedAt = &at
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, tenantID id.TenantID, userID id.UserID, treatment id.TreatmentType, revokedAt time.Time) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	query := `
		UPDATE consents
		SET revoked_at = $4
		WHERE tenant_id = $1 AND user_id = $2 AND treatment = $3 AND revoked_at IS NULL
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(tenantID), uuid.UUID(userID), treatment.String(), revokedAt,
	); err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) HardDeleteByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM consents WHERE tenant_id = $1 AND user_id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID),
	)
	if err != nil {
		return 0, fmt.Errorf("delete consents: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete consents rows: %w", err)
	}
	return rows, nil
}

var _ Store = (*PostgresStore)(nil)
