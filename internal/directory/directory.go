package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/repository"
)

// CampaignDirectory supplies campaign-level facts owned by external systems:
// which campaigns are dialing, their active lists, and live agent capacity.
type CampaignDirectory interface {
	ActiveCampaigns(ctx context.Context) ([]uuid.UUID, error)
	ActiveLists(ctx context.Context, campaignID uuid.UUID) ([]domain.ContactList, error)
	AvailableAgents(ctx context.Context, campaignID uuid.UUID) (int, error)
}

// Static is a directory with fixed agent counts, for tests and local runs.
type Static struct {
	lists repository.ContactListRepository

	mu     sync.RWMutex
	agents map[uuid.UUID]int
}

// NewStatic builds a static directory over the given list repository.
func NewStatic(lists repository.ContactListRepository) *Static {
	return &Static{lists: lists, agents: make(map[uuid.UUID]int)}
}

// SetAgents fixes the available agent count for a campaign.
func (d *Static) SetAgents(campaignID uuid.UUID, count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agents[campaignID] = count
}

// ActiveCampaigns lists campaigns with at least one active list.
func (d *Static) ActiveCampaigns(ctx context.Context) ([]uuid.UUID, error) {
	return d.lists.ActiveCampaignIDs(ctx)
}

// ActiveLists returns the campaign's active lists.
func (d *Static) ActiveLists(ctx context.Context, campaignID uuid.UUID) ([]domain.ContactList, error) {
	return d.lists.ActiveByCampaign(ctx, campaignID)
}

// AvailableAgents returns the fixed agent count for the campaign.
func (d *Static) AvailableAgents(ctx context.Context, campaignID uuid.UUID) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.agents[campaignID], nil
}
