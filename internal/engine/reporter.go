package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/config"
	"github.com/acme/dial-queue-engine/internal/domain"
)

// Status is a point-in-time snapshot of the engine.
type Status struct {
	Running         bool                `json:"running"`
	Config          config.EngineConfig `json:"config"`
	ActiveQueueSize int                 `json:"active_queue_size"`
	LastTickAt      *time.Time          `json:"last_tick_at,omitempty"`
	TicksCompleted  int64               `json:"ticks_completed"`
	TicksSkipped    int64               `json:"ticks_skipped"`
	TickFailures    int64               `json:"tick_failures"`
}

// Queue returns current queue entries, optionally scoped to one campaign.
func (e *Engine) Queue(ctx context.Context, campaignID *uuid.UUID, limit int) ([]domain.QueueEntry, error) {
	entries, err := e.queue.List(ctx, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("reporter: list queue: %w", err)
	}
	return entries, nil
}

// Stats returns aggregate dial statistics, optionally scoped to one campaign.
func (e *Engine) Stats(ctx context.Context, campaignID *uuid.UUID) (domain.CampaignStats, error) {
	stats, err := e.queue.Stats(ctx, campaignID)
	if err != nil {
		return domain.CampaignStats{}, fmt.Errorf("reporter: stats: %w", err)
	}
	stats.TickFailures = e.tickFailures.Load()
	return stats, nil
}

// Status reports the engine's lifecycle state and counters.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	total, err := e.queue.TotalActiveCount(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("reporter: total active count: %w", err)
	}
	return Status{
		Running:         e.Running(),
		Config:          e.cfg,
		ActiveQueueSize: total,
		LastTickAt:      e.lastTickAt.Load(),
		TicksCompleted:  e.ticksCompleted.Load(),
		TicksSkipped:    e.ticksSkipped.Load(),
		TickFailures:    e.tickFailures.Load(),
	}, nil
}
