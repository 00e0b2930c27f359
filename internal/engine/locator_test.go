package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLeaseNextPrefersHighestRanked(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(testEngineConfig())
	list := f.addList(uuid.New(), 1, now.Add(-time.Hour))
	oldest := f.addContact(t, list.ID, now.Add(-3*time.Hour))
	f.addContact(t, list.ID, now.Add(-time.Hour))

	leased, err := f.engine.LeaseNext(ctx, list.ID, "owner-a", now)
	if err != nil {
		t.Fatalf("lease next: %v", err)
	}
	if leased == nil || leased.ID != oldest.ID {
		t.Fatal("expected the oldest fresh contact to be leased first")
	}
	if !leased.Locked || leased.LockedBy != "owner-a" {
		t.Fatal("expected returned contact to carry the new lease")
	}
}

func TestLeaseNextNeverDoubleLeases(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(testEngineConfig())
	list := f.addList(uuid.New(), 1, now.Add(-time.Hour))
	f.addContact(t, list.ID, now.Add(-2*time.Hour))
	f.addContact(t, list.ID, now.Add(-time.Hour))

	first, err := f.engine.LeaseNext(ctx, list.ID, "owner-a", now)
	if err != nil || first == nil {
		t.Fatalf("first lease: contact=%v err=%v", first, err)
	}
	second, err := f.engine.LeaseNext(ctx, list.ID, "owner-a", now)
	if err != nil || second == nil {
		t.Fatalf("second lease: contact=%v err=%v", second, err)
	}
	if first.ID == second.ID {
		t.Fatal("expected distinct contacts from consecutive leases")
	}

	third, err := f.engine.LeaseNext(ctx, list.ID, "owner-a", now)
	if err != nil {
		t.Fatalf("third lease: %v", err)
	}
	if third != nil {
		t.Fatal("expected nil once every contact is leased")
	}
}

func TestLeaseNextSkipsLiveLeases(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := testEngineConfig()

	f := newFixture(cfg)
	list := f.addList(uuid.New(), 1, now.Add(-time.Hour))
	held := f.addContact(t, list.ID, now.Add(-2*time.Hour))
	free := f.addContact(t, list.ID, now.Add(-time.Hour))

	ok, err := f.contacts.TryLease(ctx, held.ID, "owner-other", now, now.Add(-cfg.StaleLockTimeout))
	if err != nil || !ok {
		t.Fatalf("seed lease: ok=%v err=%v", ok, err)
	}

	leased, err := f.engine.LeaseNext(ctx, list.ID, "owner-a", now)
	if err != nil {
		t.Fatalf("lease next: %v", err)
	}
	if leased == nil || leased.ID != free.ID {
		t.Fatal("expected the unheld contact to be leased")
	}
}

func TestLeaseNextStealsExpiredLease(t *testing.T) {
	ctx := context.Background()
	cfg := testEngineConfig()
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(cfg)
	list := f.addList(uuid.New(), 1, t0.Add(-time.Hour))
	contact := f.addContact(t, list.ID, t0.Add(-time.Hour))

	ok, err := f.contacts.TryLease(ctx, contact.ID, "owner-crashed", t0, t0.Add(-cfg.StaleLockTimeout))
	if err != nil || !ok {
		t.Fatalf("seed lease: ok=%v err=%v", ok, err)
	}

	// one second inside the window the lease still protects the contact
	held, err := f.engine.LeaseNext(ctx, list.ID, "owner-a", t0.Add(cfg.StaleLockTimeout-time.Second))
	if err != nil {
		t.Fatalf("lease next inside window: %v", err)
	}
	if held != nil {
		t.Fatal("expected no lease while the window is still open")
	}

	// one second past the timeout the lease no longer protects the contact
	now := t0.Add(cfg.StaleLockTimeout + time.Second)
	leased, err := f.engine.LeaseNext(ctx, list.ID, "owner-a", now)
	if err != nil {
		t.Fatalf("lease next: %v", err)
	}
	if leased == nil || leased.ID != contact.ID {
		t.Fatal("expected the expired lease to be stolen")
	}
	if leased.LockedBy != "owner-a" {
		t.Fatalf("expected new owner, got %q", leased.LockedBy)
	}
}
