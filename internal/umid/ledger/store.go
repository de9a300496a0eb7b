// Package ledger is the append-only audit trail of authentication attempts.
// Entries are never updated or deleted; queries are read-only and ordered
// newest first.
package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

// Store persists ledger entries. There is deliberately no update or delete.
type Store interface {
	// Append writes one entry and returns its ID. Append must never fail
	// silently: a failed append aborts the surrounding authentication,
	// because an unaudited successful access is a worse failure mode than
	// a rejected one.
	Append(ctx context.Context, entry *models.AccessLogEntry) (id.EntryID, error)

	// ListByIdentity returns one page of entries for an identity in
	// reverse chronological order. cursor is an opaque token from a
	// previous page; empty means start at the newest entry.
	ListByIdentity(ctx context.Context, identityID id.IdentityID, pageSize int, cursor string) (*Page, error)
}

// Page is one page of ledger entries plus the cursor for the next page.
// NextCursor is empty when there are no further entries.
type Page struct {
	Entries    []models.AccessLogEntry `json:"entries"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

// DefaultPageSize bounds unpaginated history queries.
const DefaultPageSize = 50

// cursor pins a position in the (attempted_at DESC, id DESC) ordering.
type cursor struct {
	attemptedAt time.Time
	entryID     id.EntryID
}

func encodeCursor(c cursor) string {
	raw := fmt.Sprintf("%s|%s", c.attemptedAt.UTC().Format(time.RFC3339Nano), c.entryID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return cursor{}, dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return cursor{}, dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	entryID, err := id.ParseEntryID(parts[1])
	if err != nil {
		return cursor{}, dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	return cursor{attemptedAt: at, entryID: entryID}, nil
}
