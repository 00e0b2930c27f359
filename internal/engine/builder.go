package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/repository"
)

// BuildEntry produces at most one queue entry for the campaign. It returns
// nil (no error) when the campaign's queue is at capacity, when no active
// list exists, or when no contact could be leased; the caller must not retry
// within the same replenishment decision.
func (e *Engine) BuildEntry(ctx context.Context, campaignID uuid.UUID, now time.Time) (*domain.QueueEntry, error) {
	depth, err := e.queue.ActiveCount(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("queue builder: active count: %w", err)
	}
	if depth >= e.cfg.MaxQueueSize {
		return nil, nil
	}

	lists, err := e.directory.ActiveLists(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("queue builder: active lists: %w", err)
	}
	list := SelectList(lists, e.rng)
	if list == nil {
		return nil, nil
	}

	contact, err := e.LeaseNext(ctx, list.ID, e.owner, now)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, nil
	}

	// Leasing succeeded, so any prior lease on the contact is dead. An entry
	// that lease left active belongs to a dial that will never finish; expire
	// it so the contact never has two active entries.
	prior, err := e.queue.FindActiveByContact(ctx, contact.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		_ = e.contacts.ReleaseLock(ctx, contact.ID)
		return nil, fmt.Errorf("queue builder: find prior entry: %w", err)
	}
	if prior != nil {
		if err := e.queue.UpdateStatus(ctx, prior.ID, domain.QueueStatusExpired, now); err != nil {
			_ = e.contacts.ReleaseLock(ctx, contact.ID)
			return nil, fmt.Errorf("queue builder: expire prior entry: %w", err)
		}
	}

	entry := &domain.QueueEntry{
		ID:         uuid.New(),
		CampaignID: campaignID,
		ListID:     list.ID,
		ContactID:  contact.ID,
		Status:     domain.QueueStatusQueued,
		Priority:   PriorityScore(contact, now),
		EnqueuedAt: now,
	}

	if err := e.queue.Append(ctx, entry); err != nil {
		// free the lease so the contact is not stranded until reclaim
		_ = e.contacts.ReleaseLock(ctx, contact.ID)
		return nil, fmt.Errorf("queue builder: append entry: %w", err)
	}

	return entry, nil
}

// PriorityScore ranks urgency: fewer attempts score higher, older records
// score higher. Higher score means dial sooner.
func PriorityScore(c *domain.Contact, now time.Time) float64 {
	score := 1000 - 100*float64(c.AttemptCount) + now.Sub(c.CreatedAt).Hours()
	if score < 0 {
		return 0
	}
	return score
}
