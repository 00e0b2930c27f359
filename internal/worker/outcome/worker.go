package outcome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/dial-queue-engine/internal/app"
	"github.com/acme/dial-queue-engine/internal/queue"
	"github.com/acme/dial-queue-engine/internal/repository"
)

// Worker consumes dial outcomes reported by the telephony/disposition side
// and applies them: contact status and retry window, lock release, queue
// entry finalization, and the dial log archive.
type Worker struct {
	container *app.Container
}

// New creates an outcome worker instance.
func New(container *app.Container) *Worker {
	return &Worker{container: container}
}

// Run starts the consumer loop.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	reader := w.container.Kafka.NewReader(cfg.Kafka.OutcomeTopic, cfg.Kafka.ConsumerGroupID)
	defer reader.Close()

	logger := w.container.Logger
	logger.Info("outcome worker started", zap.String("topic", cfg.Kafka.OutcomeTopic))

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("outcome worker: fetch message", zap.Error(err))
			continue
		}

		if err := w.processMessage(ctx, reader, m); err != nil {
			logger.Error("outcome worker: process", zap.Error(err))
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, reader *kafka.Reader, m kafka.Message) error {
	var msg queue.OutcomeMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		_ = reader.CommitMessages(ctx, m)
		return fmt.Errorf("unmarshal outcome: %w", err)
	}

	tracer := otel.Tracer("dialqueue.outcomeworker")
	sctx, span := tracer.Start(ctx, "outcome.apply", trace.WithAttributes(
		attribute.String("entry.id", msg.EntryID.String()),
		attribute.String("campaign.id", msg.CampaignID.String()),
		attribute.String("outcome", msg.Outcome),
	))
	defer span.End()

	if err := w.apply(sctx, msg); err != nil {
		span.RecordError(err)
		return err
	}

	if err := reader.CommitMessages(sctx, m); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit outcome: %w", err)
	}
	return nil
}

func (w *Worker) apply(ctx context.Context, msg queue.OutcomeMessage) error {
	repos := w.container.Repositories()
	logger := w.container.Logger
	retryDelay := w.container.Config.Engine.RetryDelay

	contact, err := repos.Contacts.Get(ctx, msg.ContactID)
	if err != nil {
		// contact vanished; nothing to apply, drop the message
		logger.Warn("outcome worker: contact not found",
			zap.String("contact_id", msg.ContactID.String()), zap.Error(err))
		return nil
	}

	update, entryStatus := MapOutcome(*contact, msg, retryDelay)
	if err := repos.Contacts.ApplyOutcome(ctx, contact.ID, update); err != nil {
		return fmt.Errorf("apply contact outcome: %w", err)
	}

	entry, err := repos.Queue.Get(ctx, msg.EntryID)
	if err != nil {
		logger.Warn("outcome worker: queue entry not found",
			zap.String("entry_id", msg.EntryID.String()), zap.Error(err))
		return nil
	}

	if err := repos.Queue.UpdateStatus(ctx, entry.ID, entryStatus, msg.OccurredAt); err != nil {
		return fmt.Errorf("finalize queue entry: %w", err)
	}

	record := repository.DialRecord{
		EntryID:     entry.ID,
		CampaignID:  entry.CampaignID,
		ListID:      entry.ListID,
		ContactID:   contact.ID,
		PhoneNumber: contact.PhoneNumber,
		Outcome:     msg.Outcome,
		Attempt:     update.AttemptCount,
		EnqueuedAt:  entry.EnqueuedAt,
		FinishedAt:  msg.OccurredAt,
		Duration:    time.Duration(msg.DurationMs) * time.Millisecond,
		Error:       msg.Error,
	}
	if err := repos.DialLog.AppendRecord(ctx, record); err != nil {
		// archive is best-effort; the authoritative state is already updated
		logger.Warn("outcome worker: archive dial record",
			zap.String("entry_id", entry.ID.String()), zap.Error(err))
	}

	logger.Info("outcome applied",
		zap.String("contact_id", contact.ID.String()),
		zap.String("outcome", msg.Outcome),
		zap.Int("attempt", update.AttemptCount))
	return nil
}
