package credential

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
)

// identityLocks serializes authentication attempts per identity. Two
// concurrent attempts against the same identity must not both read the
// lockout state before either writes it; attempts against different
// identities proceed without contention.
type identityLocks struct {
	locks sync.Map // id.IdentityID -> *semaphore.Weighted
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{}
}

// acquire blocks until the identity's slot is free or the context is
// canceled. The returned release must be called exactly once.
func (l *identityLocks) acquire(ctx context.Context, identityID id.IdentityID) (release func(), err error) {
	entry, _ := l.locks.LoadOrStore(identityID, semaphore.NewWeighted(1))
	sem := entry.(*semaphore.Weighted)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
