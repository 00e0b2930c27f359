package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/repository"
)

// ContactRepository is an in-memory contact store. Every mutation runs under
// one mutex so TryLease is an atomic check-and-set.
type ContactRepository struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]domain.Contact
}

// NewContactRepository constructs an empty repository.
func NewContactRepository() *ContactRepository {
	return &ContactRepository{contacts: make(map[uuid.UUID]domain.Contact)}
}

// Get retrieves a contact by id.
func (r *ContactRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact %s: %w", id, repository.ErrNotFound)
	}
	return &c, nil
}

// ListByList returns all contacts belonging to a list, oldest first.
func (r *ContactRepository) ListByList(ctx context.Context, listID uuid.UUID) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Contact
	for _, c := range r.contacts {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// BulkInsert stores a batch of contacts.
func (r *ContactRepository) BulkInsert(ctx context.Context, contacts []domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range contacts {
		if _, exists := r.contacts[c.ID]; exists {
			return fmt.Errorf("contact %s: %w", c.ID, repository.ErrConflict)
		}
		r.contacts[c.ID] = c
	}
	return nil
}

// TryLease claims the contact for owner unless a live lease is already held.
func (r *ContactRepository) TryLease(ctx context.Context, contactID uuid.UUID, owner string, at time.Time, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[contactID]
	if !ok {
		return false, fmt.Errorf("contact %s: %w", contactID, repository.ErrNotFound)
	}

	if c.Locked && c.LockedAt != nil && !c.LockedAt.Before(staleBefore) {
		return false, nil
	}

	lockedAt := at
	c.Locked = true
	c.LockedBy = owner
	c.LockedAt = &lockedAt
	r.contacts[contactID] = c
	return true, nil
}

// ReleaseLock clears the contact's lock fields.
func (r *ContactRepository) ReleaseLock(ctx context.Context, contactID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[contactID]
	if !ok {
		return fmt.Errorf("contact %s: %w", contactID, repository.ErrNotFound)
	}
	c.Locked = false
	c.LockedBy = ""
	c.LockedAt = nil
	r.contacts[contactID] = c
	return nil
}

// ReleaseStaleLocks clears every lock acquired before staleBefore.
func (r *ContactRepository) ReleaseStaleLocks(ctx context.Context, staleBefore time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reclaimed []uuid.UUID
	for id, c := range r.contacts {
		if c.Locked && c.LockedAt != nil && c.LockedAt.Before(staleBefore) {
			c.Locked = false
			c.LockedBy = ""
			c.LockedAt = nil
			r.contacts[id] = c
			reclaimed = append(reclaimed, id)
		}
	}
	return reclaimed, nil
}

// ApplyOutcome records the result of a dial attempt on the contact.
func (r *ContactRepository) ApplyOutcome(ctx context.Context, contactID uuid.UUID, update repository.ContactOutcomeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[contactID]
	if !ok {
		return fmt.Errorf("contact %s: %w", contactID, repository.ErrNotFound)
	}

	lastAttempt := update.LastAttemptAt
	c.Status = update.Status
	c.AttemptCount = update.AttemptCount
	c.LastAttemptAt = &lastAttempt
	c.NextEligibleAt = update.NextEligibleAt
	if update.ReleaseLock {
		c.Locked = false
		c.LockedBy = ""
		c.LockedAt = nil
	}
	r.contacts[contactID] = c
	return nil
}
