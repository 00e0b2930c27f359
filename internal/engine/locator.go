package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
)

// LeaseNext finds the highest-priority eligible contact of the list and
// atomically leases it for owner. When the check-and-set loses a race for a
// candidate the next-ranked one is tried; there is no blocking wait. Returns
// nil when the list has no leasable contact.
func (e *Engine) LeaseNext(ctx context.Context, listID uuid.UUID, owner string, now time.Time) (*domain.Contact, error) {
	contacts, err := e.contacts.ListByList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("locator: list contacts: %w", err)
	}

	ev := Evaluator{StaleLockTimeout: e.cfg.StaleLockTimeout}
	eligible := make([]domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if ev.IsEligible(c, now) {
			eligible = append(eligible, c)
		}
	}
	Rank(eligible)

	staleBefore := now.Add(-e.cfg.StaleLockTimeout)
	for i := range eligible {
		ok, err := e.contacts.TryLease(ctx, eligible[i].ID, owner, now, staleBefore)
		if err != nil {
			return nil, fmt.Errorf("locator: lease contact %s: %w", eligible[i].ID, err)
		}
		if !ok {
			// another caller raced ahead; move on
			continue
		}
		leased := eligible[i]
		lockedAt := now
		leased.Locked = true
		leased.LockedBy = owner
		leased.LockedAt = &lockedAt
		return &leased, nil
	}

	return nil, nil
}
