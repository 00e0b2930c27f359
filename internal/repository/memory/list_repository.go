package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
)

// ContactListRepository is an in-memory list store used by tests and local runs.
type ContactListRepository struct {
	mu    sync.RWMutex
	lists map[uuid.UUID]domain.ContactList
}

// NewContactListRepository constructs an empty repository.
func NewContactListRepository() *ContactListRepository {
	return &ContactListRepository{lists: make(map[uuid.UUID]domain.ContactList)}
}

// Put inserts or replaces a list.
func (r *ContactListRepository) Put(list domain.ContactList) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[list.ID] = list
}

// ActiveByCampaign returns the campaign's active lists in creation order.
func (r *ContactListRepository) ActiveByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.ContactList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.ContactList
	for _, l := range r.lists {
		if l.CampaignID == campaignID && l.Active {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ActiveCampaignIDs returns the distinct campaigns that have at least one active list.
func (r *ContactListRepository) ActiveCampaignIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, l := range r.lists {
		if l.Active && !seen[l.CampaignID] {
			seen[l.CampaignID] = true
			out = append(out, l.CampaignID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
