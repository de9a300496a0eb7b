package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
)

// PostgresStore persists ledger entries in PostgreSQL. This store is pure
// I/O; the append-only guarantee is enforced by never issuing UPDATE or
// DELETE against the table (and by table grants in the integrating system).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.AccessLogEntry) (id.EntryID, error) {
	if entry == nil {
		return id.EntryID{}, fmt.Errorf("ledger entry is required")
	}

	disclosed, err := json.Marshal(entry.DisclosedFields)
	if err != nil {
		return id.EntryID{}, fmt.Errorf("marshal disclosed fields: %w", err)
	}
	device, err := json.Marshal(entry.Device)
	if err != nil {
		return id.EntryID{}, fmt.Errorf("marshal device info: %w", err)
	}

	query := `
		INSERT INTO access_ledger (
			id, identity_id, staff_id, declared_role, purpose,
			attempted_at, access_type, outcome, failure_reason,
			disclosed_fields, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.IdentityID),
		uuid.UUID(entry.StaffID),
		entry.DeclaredRole,
		entry.Purpose,
		entry.AttemptedAt,
		string(entry.AccessType),
		string(entry.Outcome),
		string(entry.FailureReason),
		disclosed,
		device,
	)
	if err != nil {
		return id.EntryID{}, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry.ID, nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identityID id.IdentityID, pageSize int, cursorToken string) (*Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	const baseQuery = `
		SELECT id, identity_id, staff_id, declared_role, purpose,
		       attempted_at, access_type, outcome, failure_reason,
		       disclosed_fields, device
		FROM access_ledger
		WHERE identity_id = $1
	`
	var rows *sql.Rows
	var err error
	if cursorToken == "" {
		rows, err = s.db.QueryContext(ctx,
			baseQuery+` ORDER BY attempted_at DESC, id DESC LIMIT $2`,
			uuid.UUID(identityID), pageSize+1,
		)
	} else {
		cur, decodeErr := decodeCursor(cursorToken)
		if decodeErr != nil {
			return nil, decodeErr
		}
		rows, err = s.db.QueryContext(ctx,
			baseQuery+` AND (attempted_at, id) < ($2, $3) ORDER BY attempted_at DESC, id DESC LIMIT $4`,
			uuid.UUID(identityID), cur.attemptedAt, uuid.UUID(cur.entryID), pageSize+1,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query access ledger: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	page := &Page{}
	if len(entries) > pageSize {
		entries = entries[:pageSize]
		last := entries[len(entries)-1]
		page.NextCursor = encodeCursor(cursor{attemptedAt: last.AttemptedAt, entryID: last.ID})
	}
	page.Entries = entries
	return page, nil
}

func scanEntries(rows *sql.Rows) ([]models.AccessLogEntry, error) {
	var entries []models.AccessLogEntry
	for rows.Next() {
		var (
			entry         models.AccessLogEntry
			entryID       uuid.UUID
			identityID    uuid.UUID
			staffID       uuid.UUID
			accessType    string
			outcome       string
			failureReason string
			disclosed     []byte
			device        []byte
		)
		err := rows.Scan(
			&entryID, &identityID, &staffID,
			&entry.DeclaredRole, &entry.Purpose, &entry.AttemptedAt,
			&accessType, &outcome, &failureReason,
			&disclosed, &device,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		entry.IdentityID = id.IdentityID(identityID)
		entry.StaffID = id.StaffID(staffID)
		entry.AccessType = models.AccessType(accessType)
		entry.Outcome = models.AccessOutcome(outcome)
		entry.FailureReason = models.FailureReason(failureReason)
		if err := json.Unmarshal(disclosed, &entry.DisclosedFields); err != nil {
			return nil, fmt.Errorf("unmarshal disclosed fields: %w", err)
		}
		if err := json.Unmarshal(device, &entry.Device); err != nil {
			return nil, fmt.Errorf("unmarshal device info: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
