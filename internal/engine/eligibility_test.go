package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
)

func TestIsEligibleFreshContact(t *testing.T) {
	ev := Evaluator{StaleLockTimeout: 5 * time.Minute}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c := domain.Contact{
		ID:          uuid.New(),
		Status:      domain.ContactStatusNotAttempted,
		MaxAttempts: 3,
	}
	if !ev.IsEligible(c, now) {
		t.Fatal("expected fresh contact to be eligible")
	}
}

func TestIsEligibleTerminalStatuses(t *testing.T) {
	ev := Evaluator{StaleLockTimeout: 5 * time.Minute}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, status := range []domain.ContactStatus{
		domain.ContactStatusDoNotCall,
		domain.ContactStatusMaxAttempts,
		domain.ContactStatusCompleted,
	} {
		c := domain.Contact{Status: status, MaxAttempts: 3}
		if ev.IsEligible(c, now) {
			t.Fatalf("expected %s contact to be ineligible", status)
		}
	}
}

func TestIsEligibleUnknownStatus(t *testing.T) {
	ev := Evaluator{StaleLockTimeout: 5 * time.Minute}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c := domain.Contact{Status: domain.ContactStatus("mystery"), MaxAttempts: 3}
	if ev.IsEligible(c, now) {
		t.Fatal("expected unrecognized status to be ineligible")
	}
}

func TestIsEligibleRetryWindow(t *testing.T) {
	ev := Evaluator{StaleLockTimeout: 5 * time.Minute}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	next := now.Add(10 * time.Minute)

	c := domain.Contact{
		Status:         domain.ContactStatusNoAnswer,
		AttemptCount:   1,
		MaxAttempts:    3,
		NextEligibleAt: &next,
	}
	if ev.IsEligible(c, now) {
		t.Fatal("expected contact inside retry window to be ineligible")
	}

	if !ev.IsEligible(c, next) {
		t.Fatal("expected contact to be eligible at exactly the retry boundary")
	}

	if !ev.IsEligible(c, next.Add(time.Second)) {
		t.Fatal("expected contact past the retry window to be eligible")
	}
}

func TestIsEligibleAttemptBudget(t *testing.T) {
	ev := Evaluator{StaleLockTimeout: 5 * time.Minute}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c := domain.Contact{
		Status:       domain.ContactStatusBusy,
		AttemptCount: 3,
		MaxAttempts:  3,
	}
	if ev.IsEligible(c, now) {
		t.Fatal("expected contact at attempt budget to be ineligible")
	}
}

func TestIsEligibleLockedContact(t *testing.T) {
	ev := Evaluator{StaleLockTimeout: 5 * time.Minute}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lockedAt := now.Add(-time.Minute)

	c := domain.Contact{
		Status:      domain.ContactStatusNotAttempted,
		MaxAttempts: 3,
		Locked:      true,
		LockedBy:    "engine-other",
		LockedAt:    &lockedAt,
	}
	if ev.IsEligible(c, now) {
		t.Fatal("expected contact with live lease to be ineligible")
	}

	staleAt := now.Add(-6 * time.Minute)
	c.LockedAt = &staleAt
	if !ev.IsEligible(c, now) {
		t.Fatal("expected contact with expired lease to be eligible")
	}
}
