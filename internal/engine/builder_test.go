package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
)

func TestBuildEntryCreatesQueuedEntry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(testEngineConfig())
	campaignID := uuid.New()
	list := f.addList(campaignID, 1, now.Add(-time.Hour))
	contact := f.addContact(t, list.ID, now.Add(-time.Hour))

	entry, err := f.engine.BuildEntry(ctx, campaignID, now)
	if err != nil {
		t.Fatalf("build entry: %v", err)
	}
	if entry == nil {
		t.Fatal("expected an entry to be built")
	}
	if entry.CampaignID != campaignID || entry.ListID != list.ID || entry.ContactID != contact.ID {
		t.Fatal("entry references wrong campaign, list or contact")
	}
	if entry.Status != domain.QueueStatusQueued {
		t.Fatalf("expected queued status, got %s", entry.Status)
	}
	if entry.Priority <= 0 {
		t.Fatalf("expected positive priority, got %v", entry.Priority)
	}

	stored, err := f.queue.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("expected entry persisted: %v", err)
	}
	if stored.Status != domain.QueueStatusQueued {
		t.Fatalf("persisted entry has status %s", stored.Status)
	}

	got, err := f.contacts.Get(ctx, contact.ID)
	if err != nil {
		t.Fatalf("get contact: %v", err)
	}
	if !got.Locked {
		t.Fatal("expected built contact to hold a lease")
	}
}

func TestBuildEntryRespectsDepthCap(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := testEngineConfig()

	f := newFixture(cfg)
	campaignID := uuid.New()
	list := f.addList(campaignID, 1, now.Add(-time.Hour))
	f.addContact(t, list.ID, now.Add(-time.Hour))

	for i := 0; i < cfg.MaxQueueSize; i++ {
		err := f.queue.Append(ctx, &domain.QueueEntry{
			ID:         uuid.New(),
			CampaignID: campaignID,
			ListID:     list.ID,
			ContactID:  uuid.New(),
			Status:     domain.QueueStatusQueued,
			EnqueuedAt: now,
		})
		if err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}

	entry, err := f.engine.BuildEntry(ctx, campaignID, now)
	if err != nil {
		t.Fatalf("build entry: %v", err)
	}
	if entry != nil {
		t.Fatal("expected no entry while queue is at capacity")
	}
}

func TestBuildEntryExpiresStalePredecessor(t *testing.T) {
	ctx := context.Background()
	cfg := testEngineConfig()
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(cfg)
	campaignID := uuid.New()
	list := f.addList(campaignID, 1, t0.Add(-time.Hour))
	contact := f.addContact(t, list.ID, t0.Add(-time.Hour))

	// a crashed dial: lease taken, entry left dialing, no outcome ever
	if ok, _ := f.contacts.TryLease(ctx, contact.ID, "engine-crashed", t0, t0.Add(-cfg.StaleLockTimeout)); !ok {
		t.Fatal("seed lease failed")
	}
	dialStarted := t0
	stuck := domain.QueueEntry{
		ID:            uuid.New(),
		CampaignID:    campaignID,
		ListID:        list.ID,
		ContactID:     contact.ID,
		Status:        domain.QueueStatusDialing,
		EnqueuedAt:    t0,
		DialStartedAt: &dialStarted,
	}
	if err := f.queue.Append(ctx, &stuck); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	now := t0.Add(cfg.StaleLockTimeout + time.Second)
	entry, err := f.engine.BuildEntry(ctx, campaignID, now)
	if err != nil {
		t.Fatalf("build entry: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a replacement entry")
	}
	if entry.ContactID != contact.ID {
		t.Fatal("expected the reclaimed contact to be requeued")
	}

	old, err := f.queue.Get(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("get stuck entry: %v", err)
	}
	if old.Status != domain.QueueStatusExpired {
		t.Fatalf("expected stale predecessor expired, got %s", old.Status)
	}

	active, err := f.queue.FindActiveByContact(ctx, contact.ID)
	if err != nil {
		t.Fatalf("find active entry: %v", err)
	}
	if active.ID != entry.ID {
		t.Fatal("expected exactly the new entry to be active for the contact")
	}
}

func TestBuildEntryNoActiveLists(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(testEngineConfig())
	entry, err := f.engine.BuildEntry(ctx, uuid.New(), now)
	if err != nil {
		t.Fatalf("build entry: %v", err)
	}
	if entry != nil {
		t.Fatal("expected no entry for a campaign without lists")
	}
}

func TestBuildEntryNoEligibleContacts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(testEngineConfig())
	campaignID := uuid.New()
	f.addList(campaignID, 1, now.Add(-time.Hour))

	entry, err := f.engine.BuildEntry(ctx, campaignID, now)
	if err != nil {
		t.Fatalf("build entry: %v", err)
	}
	if entry != nil {
		t.Fatal("expected no entry for an empty list")
	}
}

func TestPriorityScore(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	fresh := &domain.Contact{AttemptCount: 0, CreatedAt: now.Add(-10 * time.Hour)}
	retried := &domain.Contact{AttemptCount: 2, CreatedAt: now.Add(-10 * time.Hour)}
	if PriorityScore(fresh, now) <= PriorityScore(retried, now) {
		t.Fatal("expected fewer attempts to score higher")
	}

	young := &domain.Contact{AttemptCount: 0, CreatedAt: now.Add(-time.Hour)}
	if PriorityScore(fresh, now) <= PriorityScore(young, now) {
		t.Fatal("expected older records to score higher")
	}

	exhausted := &domain.Contact{AttemptCount: 50, CreatedAt: now}
	if got := PriorityScore(exhausted, now); got != 0 {
		t.Fatalf("expected score clamped at zero, got %v", got)
	}
}
