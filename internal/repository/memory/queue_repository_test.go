package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
)

func seedEntry(t *testing.T, repo *QueueRepository, campaignID uuid.UUID, status domain.QueueStatus, enqueuedAt time.Time) domain.QueueEntry {
	t.Helper()
	entry := domain.QueueEntry{
		ID:         uuid.New(),
		CampaignID: campaignID,
		ListID:     uuid.New(),
		ContactID:  uuid.New(),
		Status:     status,
		EnqueuedAt: enqueuedAt,
	}
	if err := repo.Append(context.Background(), &entry); err != nil {
		t.Fatalf("append entry: %v", err)
	}
	return entry
}

func TestActiveCountIgnoresTerminalEntries(t *testing.T) {
	ctx := context.Background()
	repo := NewQueueRepository()
	campaignID := uuid.New()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	seedEntry(t, repo, campaignID, domain.QueueStatusQueued, now)
	seedEntry(t, repo, campaignID, domain.QueueStatusDialing, now)
	seedEntry(t, repo, campaignID, domain.QueueStatusCompleted, now)
	seedEntry(t, repo, uuid.New(), domain.QueueStatusQueued, now)

	count, err := repo.ActiveCount(ctx, campaignID)
	if err != nil {
		t.Fatalf("active count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 active entries, got %d", count)
	}

	total, err := repo.TotalActiveCount(ctx)
	if err != nil {
		t.Fatalf("total active count: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 active entries in total, got %d", total)
	}
}

func TestUpdateStatusStampsTimes(t *testing.T) {
	ctx := context.Background()
	repo := NewQueueRepository()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := seedEntry(t, repo, uuid.New(), domain.QueueStatusQueued, now)

	if err := repo.UpdateStatus(ctx, entry.ID, domain.QueueStatusDialing, now.Add(time.Second)); err != nil {
		t.Fatalf("mark dialing: %v", err)
	}
	got, _ := repo.Get(ctx, entry.ID)
	if got.DialStartedAt == nil {
		t.Fatal("expected dial start recorded")
	}

	if err := repo.UpdateStatus(ctx, entry.ID, domain.QueueStatusCompleted, now.Add(30*time.Second)); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	got, _ = repo.Get(ctx, entry.ID)
	if got.CompletedAt == nil {
		t.Fatal("expected completion recorded")
	}
}

func TestStatsAggregation(t *testing.T) {
	ctx := context.Background()
	repo := NewQueueRepository()
	campaignID := uuid.New()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	seedEntry(t, repo, campaignID, domain.QueueStatusQueued, now)

	done := seedEntry(t, repo, campaignID, domain.QueueStatusQueued, now)
	if err := repo.UpdateStatus(ctx, done.ID, domain.QueueStatusCompleted, now.Add(time.Minute)); err != nil {
		t.Fatalf("complete entry: %v", err)
	}

	dropped := seedEntry(t, repo, campaignID, domain.QueueStatusQueued, now)
	if err := repo.UpdateStatus(ctx, dropped.ID, domain.QueueStatusAbandoned, now.Add(3*time.Minute)); err != nil {
		t.Fatalf("abandon entry: %v", err)
	}

	stats, err := repo.Stats(ctx, &campaignID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Queued != 1 || stats.Completed != 1 || stats.Abandoned != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AvgDialTime != 2*time.Minute {
		t.Fatalf("expected 2m average dial time, got %v", stats.AvgDialTime)
	}
	if stats.SuccessRate != 0.5 {
		t.Fatalf("expected 0.5 success rate, got %v", stats.SuccessRate)
	}
	if stats.ActiveDepth() != 1 {
		t.Fatalf("expected active depth 1, got %d", stats.ActiveDepth())
	}
}
