package dpia

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
)

// PostgresStore persists assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

const assessmentColumns = `id, tenant_id, treatment, title, risk_level, status, submitted_by, validated_by, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *Assessment) error {
	if err := requireTenant(a.TenantID); err != nil {
		return err
	}
	query := `
		INSERT INTO assessments (id, tenant_id, treatment, title, risk_level, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID),
		uuid.UUID(a.TenantID),
		a.Treatment.String(),
		a.Title,
		string(a.RiskLevel),
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, assessmentID id.AssessmentID) (*Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE tenant_id = $1 AND id = $2`
	a, err := scanAssessment(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(assessmentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find assessment: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE tenant_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateIfStatus(ctx context.Context, a *Assessment, expected AssessmentStatus) error {
	if err := requireTenant(a.TenantID); err != nil {
		return err
	}
	query := `
		UPDATE assessments
		SET status = $3, submitted_by = $4, validated_by = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2 AND status = $7
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.TenantID),
		uuid.UUID(a.ID),
		string(a.Status),
		nullString(a.SubmittedBy),
		nullString(a.ValidatedBy),
		a.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assessment rows: %w", err)
	}
	if rows == 0 {
		if _, findErr := s.FindByID(ctx, a.TenantID, a.ID); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) FindValidatedByTreatment(ctx context.Context, tenantID id.TenantID, treatment id.TreatmentType) (*Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE tenant_id = $1 AND treatment = $2 AND status = 'validated'
		ORDER BY updated_at DESC
		LIMIT 1
	`
	a, err := scanAssessment(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), treatment.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find validated assessment: %w", err)
	}
	return a, nil
}

type assessmentRow interface {
	Scan(dest ...any) error
}

func scanAssessment(row assessmentRow) (*Assessment, error) {
	var (
		a            Assessment
		assessmentID uuid.UUID
		tenantID     uuid.UUID
		treatment    string
		riskLevel    string
		status       string
		submittedBy  sql.NullString
		validatedBy  sql.NullString
	)
	err := row.Scan(&assessmentID, &tenantID, &treatment, &a.Title, &riskLevel, &status, &submittedBy, &validatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = id.AssessmentID(assessmentID)
	a.TenantID = id.TenantID(tenantID)
	a.Treatment = id.TreatmentType(treatment)
	a.RiskLevel = RiskLevel(riskLevel)
	a.Status = AssessmentStatus(status)
	a.SubmittedBy = submittedBy.String
	a.ValidatedBy = validatedBy.String
	return &a, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
