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

// QueueRepository is an in-memory queue entry store.
type QueueRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID]domain.QueueEntry
}

// NewQueueRepository constructs an empty repository.
func NewQueueRepository() *QueueRepository {
	return &QueueRepository{entries: make(map[uuid.UUID]domain.QueueEntry)}
}

// Append stores a new queue entry.
func (r *QueueRepository) Append(ctx context.Context, entry *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("queue entry %s: %w", entry.ID, repository.ErrConflict)
	}
	r.entries[entry.ID] = *entry
	return nil
}

// Get retrieves an entry by id.
func (r *QueueRepository) Get(ctx context.Context, id uuid.UUID) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("queue entry %s: %w", id, repository.ErrNotFound)
	}
	return &e, nil
}

// ActiveCount counts queued and dialing entries for a campaign.
func (r *QueueRepository) ActiveCount(ctx context.Context, campaignID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.CampaignID == campaignID && e.Status.Active() {
			n++
		}
	}
	return n, nil
}

// TotalActiveCount counts queued and dialing entries across all campaigns.
func (r *QueueRepository) TotalActiveCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.Status.Active() {
			n++
		}
	}
	return n, nil
}

// UpdateStatus advances an entry's lifecycle status.
func (r *QueueRepository) UpdateStatus(ctx context.Context, entryID uuid.UUID, status domain.QueueStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[entryID]
	if !ok {
		return fmt.Errorf("queue entry %s: %w", entryID, repository.ErrNotFound)
	}

	e.Status = status
	switch status {
	case domain.QueueStatusDialing:
		t := at
		e.DialStartedAt = &t
	case domain.QueueStatusCompleted, domain.QueueStatusAbandoned, domain.QueueStatusExpired:
		t := at
		e.CompletedAt = &t
	}
	r.entries[entryID] = e
	return nil
}

// FindActiveByContact locates the non-terminal entry for a contact, if any.
func (r *QueueRepository) FindActiveByContact(ctx context.Context, contactID uuid.UUID) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.ContactID == contactID && e.Status.Active() {
			entry := e
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("active entry for contact %s: %w", contactID, repository.ErrNotFound)
}

// List returns entries, newest first, optionally filtered by campaign.
func (r *QueueRepository) List(ctx context.Context, campaignID *uuid.UUID, limit int) ([]domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	var out []domain.QueueEntry
	for _, e := range r.entries {
		if campaignID != nil && e.CampaignID != *campaignID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.After(out[j].EnqueuedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats aggregates entry counts, average dial time and success rate.
func (r *QueueRepository) Stats(ctx context.Context, campaignID *uuid.UUID) (domain.CampaignStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats domain.CampaignStats
	var totalDial time.Duration
	var dialSamples int64
	var terminal int64

	for _, e := range r.entries {
		if campaignID != nil && e.CampaignID != *campaignID {
			continue
		}
		switch e.Status {
		case domain.QueueStatusQueued:
			stats.Queued++
		case domain.QueueStatusDialing:
			stats.Dialing++
		case domain.QueueStatusConnected:
			stats.Connected++
		case domain.QueueStatusCompleted:
			stats.Completed++
		case domain.QueueStatusAbandoned:
			stats.Abandoned++
		case domain.QueueStatusExpired:
			stats.Expired++
		}
		if e.CompletedAt != nil {
			terminal++
			totalDial += e.CompletedAt.Sub(e.EnqueuedAt)
			dialSamples++
		}
	}

	if dialSamples > 0 {
		stats.AvgDialTime = totalDial / time.Duration(dialSamples)
	}
	if terminal > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(terminal)
	}
	return stats, nil
}
