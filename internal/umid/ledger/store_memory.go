package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

// InMemoryStore keeps ledger entries in process memory. It favors clarity
// over performance and is the dev/test backend.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.IdentityID][]models.AccessLogEntry
}

// NewInMemory constructs an empty in-memory ledger store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.IdentityID][]models.AccessLogEntry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry *models.AccessLogEntry) (id.EntryID, error) {
	if entry == nil {
		return id.EntryID{}, dErrors.New(dErrors.CodeInvariantViolation, "ledger entry is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Store a copy so callers cannot mutate the ledger after the fact.
	s.entries[entry.IdentityID] = append(s.entries[entry.IdentityID], *entry)
	return entry.ID, nil
}

func (s *InMemoryStore) ListByIdentity(_ context.Context, identityID id.IdentityID, pageSize int, cursorToken string) (*Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	s.mu.RLock()
	all := append([]models.AccessLogEntry{}, s.entries[identityID]...)
	s.mu.RUnlock()

	sort.SliceStable(all, func(a, b int) bool {
		if !all[a].AttemptedAt.Equal(all[b].AttemptedAt) {
			return all[a].AttemptedAt.After(all[b].AttemptedAt)
		}
		return all[a].ID.String() > all[b].ID.String()
	})

	start := 0
	if cursorToken != "" {
		cur, err := decodeCursor(cursorToken)
		if err != nil {
			return nil, err
		}
		for i, e := range all {
			if e.AttemptedAt.Equal(cur.attemptedAt) && e.ID == cur.entryID {
				start = i + 1
				break
			}
		}
	}

	end := min(start+pageSize, len(all))
	page := &Page{Entries: all[start:end]}
	if end < len(all) && end > start {
		last := page.Entries[len(page.Entries)-1]
		page.NextCursor = encodeCursor(cursor{attemptedAt: last.AttemptedAt, entryID: last.ID})
	}
	return page, nil
}
