package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/sentinel"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint hits.
const pgUniqueViolation = "23505"

// PostgresStore persists identity records in PostgreSQL. Settings, lockout
// snapshot and the medical-data document are stored as jsonb; the public
// number carries a unique index for the issuance collision check.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, identity *models.Identity) error {
	security, err := json.Marshal(identity.SecuritySettings)
	if err != nil {
		return fmt.Errorf("marshal security settings: %w", err)
	}
	code, err := json.Marshal(identity.CodeSettings)
	if err != nil {
		return fmt.Errorf("marshal code settings: %w", err)
	}
	lockoutState, err := json.Marshal(identity.Lockout)
	if err != nil {
		return fmt.Errorf("marshal lockout state: %w", err)
	}
	medical, err := json.Marshal(identity.MedicalData)
	if err != nil {
		return fmt.Errorf("marshal medical data: %w", err)
	}

	query := `
		INSERT INTO identities (
			id, patient_id, public_number, encrypted_secret, is_active,
			issued_at, deactivated_at, security_settings, code_settings,
			lockout, medical_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(identity.ID),
		uuid.UUID(identity.PatientID),
		identity.PublicNumber,
		identity.EncryptedSecret,
		identity.IsActive,
		identity.IssuedAt,
		identity.DeactivatedAt,
		security,
		code,
		lockoutState,
		medical,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

const selectColumns = `
	id, patient_id, public_number, encrypted_secret, is_active,
	issued_at, deactivated_at, security_settings, code_settings,
	lockout, medical_data
`

func (s *PostgresStore) FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM identities WHERE id = $1`,
		uuid.UUID(identityID),
	)
	return scanIdentity(row)
}

func (s *PostgresStore) FindByPublicNumber(ctx context.Context, publicNumber string) (*models.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM identities WHERE public_number = $1`,
		publicNumber,
	)
	return scanIdentity(row)
}

func (s *PostgresStore) FindActiveByPatient(ctx context.Context, patientID id.PatientID) (*models.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM identities WHERE patient_id = $1 AND is_active ORDER BY issued_at DESC LIMIT 1`,
		uuid.UUID(patientID),
	)
	return scanIdentity(row)
}

// Deactivate flips the active flag once. The WHERE clause makes repeated
// calls no-ops without touching deactivated_at again.
func (s *PostgresStore) Deactivate(ctx context.Context, identityID id.IdentityID, now time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE identities SET is_active = FALSE, deactivated_at = $2 WHERE id = $1 AND is_active`,
		uuid.UUID(identityID), now,
	)
	if err != nil {
		return fmt.Errorf("deactivate identity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate identity rows affected: %w", err)
	}
	if rows == 0 {
		// Either already inactive (no-op) or missing; distinguish for callers.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM identities WHERE id = $1)`,
			uuid.UUID(identityID),
		).Scan(&exists); err != nil {
			return fmt.Errorf("check identity existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
	}
	return nil
}

func (s *PostgresStore) UpdateMedicalData(ctx context.Context, identityID id.IdentityID, data models.LinkedMedicalData) error {
	medical, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal medical data: %w", err)
	}
	return s.updateColumn(ctx, identityID, "medical_data", medical)
}

func (s *PostgresStore) UpdateLockout(ctx context.Context, identityID id.IdentityID, state models.LockoutState) error {
	lockoutState, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal lockout state: %w", err)
	}
	return s.updateColumn(ctx, identityID, "lockout", lockoutState)
}

func (s *PostgresStore) updateColumn(ctx context.Context, identityID id.IdentityID, column string, value []byte) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE identities SET %s = $2 WHERE id = $1`, column),
		uuid.UUID(identityID), value,
	)
	if err != nil {
		return fmt.Errorf("update identity %s: %w", column, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity %s rows affected: %w", column, err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type identityRow interface {
	Scan(dest ...any) error
}

func scanIdentity(row identityRow) (*models.Identity, error) {
	var (
		identity      models.Identity
		identityID    uuid.UUID
		patientID     uuid.UUID
		deactivatedAt sql.NullTime
		security      []byte
		code          []byte
		lockoutState  []byte
		medical       []byte
	)
	err := row.Scan(
		&identityID, &patientID, &identity.PublicNumber, &identity.EncryptedSecret,
		&identity.IsActive, &identity.IssuedAt, &deactivatedAt,
		&security, &code, &lockoutState, &medical,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	identity.ID = id.IdentityID(identityID)
	identity.PatientID = id.PatientID(patientID)
	if deactivatedAt.Valid {
		identity.DeactivatedAt = &deactivatedAt.Time
	}
	if err := json.Unmarshal(security, &identity.SecuritySettings); err != nil {
		return nil, fmt.Errorf("unmarshal security settings: %w", err)
	}
	if err := json.Unmarshal(code, &identity.CodeSettings); err != nil {
		return nil, fmt.Errorf("unmarshal code settings: %w", err)
	}
	if err := json.Unmarshal(lockoutState, &identity.Lockout); err != nil {
		return nil, fmt.Errorf("unmarshal lockout state: %w", err)
	}
	if err := json.Unmarshal(medical, &identity.MedicalData); err != nil {
		return nil, fmt.Errorf("unmarshal medical data: %w", err)
	}
	return &identity, nil
}
