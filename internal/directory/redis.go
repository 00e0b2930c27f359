package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/repository"
)

// Redis is the production directory. Lists come from the list repository; the
// agent gateway maintains per-campaign availability counters in Redis, which
// this adapter reads.
type Redis struct {
	client *redis.Client
	lists  repository.ContactListRepository
}

// NewRedis constructs the directory adapter.
func NewRedis(client *redis.Client, lists repository.ContactListRepository) *Redis {
	return &Redis{client: client, lists: lists}
}

// ActiveCampaigns lists campaigns with at least one active list.
func (d *Redis) ActiveCampaigns(ctx context.Context) ([]uuid.UUID, error) {
	return d.lists.ActiveCampaignIDs(ctx)
}

// ActiveLists returns the campaign's active lists.
func (d *Redis) ActiveLists(ctx context.Context, campaignID uuid.UUID) ([]domain.ContactList, error) {
	return d.lists.ActiveByCampaign(ctx, campaignID)
}

// AvailableAgents reads the campaign's availability counter. A missing key
// means no agents are free.
func (d *Redis) AvailableAgents(ctx context.Context, campaignID uuid.UUID) (int, error) {
	count, err := d.client.Get(ctx, agentKey(campaignID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("directory: read agent count: %w", err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

func agentKey(campaignID uuid.UUID) string {
	return fmt.Sprintf("dialqueue:campaign:%s:agents", campaignID.String())
}
