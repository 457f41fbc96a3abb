package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	txcontext "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/tx"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists user records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	if err := requireTenant(u.TenantID); err != nil {
		return err
	}
	query := `
		INSERT INTO users (id, tenant_id, email, display_name, data_suspended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID),
		uuid.UUID(u.TenantID),
		u.Email,
		u.DisplayName,
		u.DataSuspended,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user already exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*User, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `
		SELECT id, tenant_id, email, display_name,
		       data_suspended, data_suspended_at, data_suspended_reason,
		       data_unsuspended_at, suspension_requested_by, suspension_notes,
		       erased_at, created_at, updated_at
		FROM users
		WHERE tenant_id = $1 AND id = $2
	`
	u, err := scanUser(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// UpdateDataSuspension flips the restriction state only when the stored flag
// still matches expectedCurrent. A zero-row update means either the user is
// missing or a concurrent toggle won; the follow-up lookup disambiguates.
func (s *PostgresStore) UpdateDataSuspension(ctx context.Context, tenantID id.TenantID, userID id.UserID, expectedCurrent bool, next Suspension) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	query := `
		UPDATE users
		SET data_suspended = $4,
		    data_suspended_at = $5,
		    data_suspended_reason = $6,
		    data_unsuspended_at = $7,
		    suspension_requested_by = $8,
		    suspension_notes = $9,
		    updated_at = $10
		WHERE tenant_id = $1 AND id = $2 AND data_suspended = $3
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(tenantID),
		uuid.UUID(userID),
		expectedCurrent,
		next.Suspended,
		nullTime(next.SuspendedAt),
		nullReason(next.Reason),
		nullTime(next.UnsuspendedAt),
		nullString(next.RequestedBy),
		nullString(next.Notes),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("update data suspension: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update data suspension rows: %w", err)
	}
	if rows == 0 {
		if _, findErr := s.FindByID(ctx, tenantID, userID); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) SoftEraseByID(ctx context.Context, tenantID id.TenantID, userID id.UserID, erasedAt time.Time) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	query := `
		UPDATE users
		SET email = '', display_name = '', suspension_notes = NULL,
		    erased_at = $3, updated_at = $4
		WHERE tenant_id = $1 AND id = $2 AND erased_at IS NULL
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(tenantID),
		uuid.UUID(userID),
		erasedAt,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("soft erase user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("soft erase user rows: %w", err)
	}
	return rows, nil
}

func (s *PostgresStore) HardDeleteByID(ctx context.Context, tenantID id.TenantID, userID id.UserID) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM users WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(userID),
	)
	if err != nil {
		return 0, fmt.Errorf("hard delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("hard delete user rows: %w", err)
	}
	return rows, nil
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*User, error) {
	var (
		u        User
		userID   uuid.UUID
		tenantID uuid.UUID
		reason   sql.NullString
		reqBy    sql.NullString
		notes    sql.NullString
		suspAt   sql.NullTime
		unsuspAt sql.NullTime
		erasedAt sql.NullTime
	)
	err := row.Scan(
		&userID, &tenantID, &u.Email, &u.DisplayName,
		&u.DataSuspended, &suspAt, &reason,
		&unsuspAt, &reqBy, &notes,
		&erasedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	u.TenantID = id.TenantID(tenantID)
	u.DataSuspendedAt = timePtr(suspAt)
	u.DataUnsuspendedAt = timePtr(unsuspAt)
	u.ErasedAt = timePtr(erasedAt)
	u.SuspensionRequestedBy = reqBy.String
	u.SuspensionNotes = notes.String
	if reason.Valid {
		r := id.SuspensionReason(reason.String)
		u.DataSuspendedReason = &r
	}
	return &u, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullReason(r *id.SuspensionReason) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*r), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
