package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/dial-queue-engine/internal/config"
	"github.com/acme/dial-queue-engine/internal/directory"
	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/repository"
	"github.com/acme/dial-queue-engine/internal/telephony"
	"github.com/acme/dial-queue-engine/pkg/logger"
)

// Engine owns the dial queue for every active campaign: it keeps each queue
// replenished in proportion to free agent capacity, leases contacts so no
// record is dialed twice concurrently, and reclaims stale leases.
type Engine struct {
	cfg       config.EngineConfig
	logger    *logger.Logger
	contacts  repository.ContactRepository
	queue     repository.QueueRepository
	directory directory.CampaignDirectory
	dialer    telephony.Provider
	rng       RandSource
	owner     string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	tickBusy       atomic.Bool
	ticksCompleted atomic.Int64
	ticksSkipped   atomic.Int64
	tickFailures   atomic.Int64
	lastTickAt     atomic.Pointer[time.Time]
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Contacts  repository.ContactRepository
	Queue     repository.QueueRepository
	Directory directory.CampaignDirectory
	Dialer    telephony.Provider
	Logger    *logger.Logger

	// Rand overrides the list selection randomness; nil gets a seeded source.
	Rand RandSource
}

// New constructs an engine instance. Multiple isolated engines may coexist in
// one process; each owns its own state.
func New(cfg config.EngineConfig, deps Deps) *Engine {
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	lg := deps.Logger
	if lg == nil {
		lg = logger.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		logger:    lg,
		contacts:  deps.Contacts,
		queue:     deps.Queue,
		directory: deps.Directory,
		dialer:    deps.Dialer,
		rng:       rng,
		owner:     "engine-" + uuid.NewString(),
	}
}

// Start validates the configuration and launches the replenishment loop.
// Starting a running engine is a warned no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.logger.Warn("engine already running; start ignored")
		return nil
	}

	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("engine start: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	go e.run(ctx, e.done)

	e.logger.Info("engine started",
		zap.Duration("tick_interval", e.cfg.TickInterval),
		zap.Int("max_queue_size", e.cfg.MaxQueueSize),
		zap.String("owner", e.owner))
	return nil
}

// Stop cancels the timer and waits for any in-flight tick to finish.
// Stopping a stopped engine is a warned no-op. Outstanding leases and
// in-flight dials resolve independently.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		e.logger.Warn("engine already stopped; stop ignored")
		return
	}
	cancel := e.cancel
	done := e.done
	e.running = false
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	cancel()
	<-done
	e.logger.Info("engine stopped")
}

// Running reports whether the replenishment loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		if err := e.Tick(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
			e.logger.Error("engine tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick processes one replenishment pass: reclaim stale leases, then top up
// each campaign with free agent capacity. Ticks never overlap; a tick that
// fires while another is processing is skipped, not queued. A single
// campaign's failure never aborts the pass.
func (e *Engine) Tick(ctx context.Context, now time.Time) error {
	if !e.tickBusy.CompareAndSwap(false, true) {
		e.ticksSkipped.Add(1)
		e.logger.Warn("previous tick still processing; skipping")
		return nil
	}
	defer e.tickBusy.Store(false)

	tracer := otel.Tracer("dialqueue.engine")
	tctx, span := tracer.Start(ctx, "engine.tick")
	defer span.End()

	staleBefore := now.Add(-e.cfg.StaleLockTimeout)
	reclaimed, err := e.contacts.ReleaseStaleLocks(tctx, staleBefore)
	if err != nil {
		span.RecordError(err)
		e.tickFailures.Add(1)
		e.logger.Error("engine: reclaim stale locks", zap.Error(err))
	} else if len(reclaimed) > 0 {
		e.expireOrphanedEntries(tctx, reclaimed, now)
		e.logger.Info("engine: reclaimed stale locks", zap.Int("count", len(reclaimed)))
	}

	campaigns, err := e.directory.ActiveCampaigns(tctx)
	if err != nil {
		span.RecordError(err)
		e.tickFailures.Add(1)
		return fmt.Errorf("engine: list active campaigns: %w", err)
	}
	span.SetAttributes(attribute.Int("campaign.count", len(campaigns)))

	for _, campaignID := range campaigns {
		if err := e.replenishCampaign(tctx, campaignID, now); err != nil {
			e.tickFailures.Add(1)
			e.logger.Error("engine: campaign replenish failed",
				zap.String("campaign_id", campaignID.String()), zap.Error(err))
		}
	}

	e.ticksCompleted.Add(1)
	tick := now
	e.lastTickAt.Store(&tick)
	return nil
}

// expireOrphanedEntries finalizes the queue entries of contacts whose leases
// were just reclaimed. The dial that enqueued them died with its lock, so the
// entry would otherwise stay active forever and the contact's next lease would
// give it a second active entry.
func (e *Engine) expireOrphanedEntries(ctx context.Context, contactIDs []uuid.UUID, now time.Time) {
	for _, contactID := range contactIDs {
		entry, err := e.queue.FindActiveByContact(ctx, contactID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			e.tickFailures.Add(1)
			e.logger.Error("engine: find orphaned entry",
				zap.String("contact_id", contactID.String()), zap.Error(err))
			continue
		}
		if err := e.queue.UpdateStatus(ctx, entry.ID, domain.QueueStatusExpired, now); err != nil {
			e.tickFailures.Add(1)
			e.logger.Error("engine: expire orphaned entry",
				zap.String("entry_id", entry.ID.String()), zap.Error(err))
			continue
		}
		e.logger.Info("engine: expired orphaned entry",
			zap.String("entry_id", entry.ID.String()),
			zap.String("contact_id", contactID.String()))
	}
}

func (e *Engine) replenishCampaign(ctx context.Context, campaignID uuid.UUID, now time.Time) error {
	tracer := otel.Tracer("dialqueue.engine")
	cctx, span := tracer.Start(ctx, "engine.campaign", trace.WithAttributes(
		attribute.String("campaign.id", campaignID.String()),
	))
	defer span.End()

	agents, err := e.directory.AvailableAgents(cctx, campaignID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("available agents: %w", err)
	}
	if agents <= 0 {
		return nil
	}

	depth, err := e.queue.ActiveCount(cctx, campaignID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("queue depth: %w", err)
	}

	target := agents * e.cfg.Multiplier()
	if target > e.cfg.MaxQueueSize {
		target = e.cfg.MaxQueueSize
	}
	span.SetAttributes(attribute.Int("depth.current", depth), attribute.Int("depth.target", target))

	for depth < target {
		entry, err := e.BuildEntry(cctx, campaignID, now)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if entry == nil {
			// nothing leasable this tick
			break
		}
		e.dispatch(cctx, entry, now)
		depth++
	}

	return nil
}

// dispatch hands the entry to telephony. Failures leave the entry queued; the
// contact's lease is freed by the stale-lock reclaimer if the dial never
// happens.
func (e *Engine) dispatch(ctx context.Context, entry *domain.QueueEntry, now time.Time) {
	contact, err := e.contacts.Get(ctx, entry.ContactID)
	if err != nil {
		e.tickFailures.Add(1)
		e.logger.Error("engine: load contact for dispatch",
			zap.String("entry_id", entry.ID.String()), zap.Error(err))
		return
	}

	if err := e.dialer.Dispatch(ctx, *entry, *contact); err != nil {
		e.tickFailures.Add(1)
		e.logger.Error("engine: dispatch entry",
			zap.String("entry_id", entry.ID.String()),
			zap.String("campaign_id", entry.CampaignID.String()),
			zap.Error(err))
		return
	}

	if err := e.queue.UpdateStatus(ctx, entry.ID, domain.QueueStatusDialing, now); err != nil {
		e.logger.Error("engine: mark entry dialing",
			zap.String("entry_id", entry.ID.String()), zap.Error(err))
	}
}
