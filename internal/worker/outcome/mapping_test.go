package outcome

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/queue"
)

func outcomeMsg(outcome string, at time.Time) queue.OutcomeMessage {
	return queue.OutcomeMessage{
		EntryID:    uuid.New(),
		ContactID:  uuid.New(),
		Outcome:    outcome,
		OccurredAt: at,
	}
}

func TestMapOutcomeCompleted(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	contact := domain.Contact{AttemptCount: 0, MaxAttempts: 3}

	update, entryStatus := MapOutcome(contact, outcomeMsg(queue.OutcomeCompleted, at), 15*time.Minute)

	if update.Status != domain.ContactStatusCompleted {
		t.Fatalf("expected completed, got %s", update.Status)
	}
	if update.AttemptCount != 1 {
		t.Fatalf("expected attempt count 1, got %d", update.AttemptCount)
	}
	if !update.ReleaseLock {
		t.Fatal("expected lock release")
	}
	if update.NextEligibleAt != nil {
		t.Fatal("terminal outcome must not schedule a retry")
	}
	if entryStatus != domain.QueueStatusCompleted {
		t.Fatalf("expected completed entry, got %s", entryStatus)
	}
}

func TestMapOutcomeRetrySchedulesWindow(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	contact := domain.Contact{AttemptCount: 0, MaxAttempts: 3}
	delay := 15 * time.Minute

	for _, outcome := range []string{queue.OutcomeNoAnswer, queue.OutcomeBusy, queue.OutcomeVoicemail} {
		update, _ := MapOutcome(contact, outcomeMsg(outcome, at), delay)
		if !update.Status.Retryable() {
			t.Fatalf("%s: expected retryable status, got %s", outcome, update.Status)
		}
		if update.NextEligibleAt == nil || !update.NextEligibleAt.Equal(at.Add(delay)) {
			t.Fatalf("%s: expected retry window at %v", outcome, at.Add(delay))
		}
	}
}

func TestMapOutcomeDoNotCall(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	contact := domain.Contact{AttemptCount: 0, MaxAttempts: 3}

	update, entryStatus := MapOutcome(contact, outcomeMsg(queue.OutcomeDoNotCall, at), 15*time.Minute)

	if update.Status != domain.ContactStatusDoNotCall {
		t.Fatalf("expected do_not_call, got %s", update.Status)
	}
	if entryStatus != domain.QueueStatusAbandoned {
		t.Fatalf("expected abandoned entry, got %s", entryStatus)
	}
}

func TestMapOutcomePromotesToMaxAttempts(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	contact := domain.Contact{
		Status:       domain.ContactStatusBusy,
		AttemptCount: 2,
		MaxAttempts:  3,
	}

	update, _ := MapOutcome(contact, outcomeMsg(queue.OutcomeBusy, at), 15*time.Minute)

	if update.AttemptCount != 3 {
		t.Fatalf("expected attempt count 3, got %d", update.AttemptCount)
	}
	if update.Status != domain.ContactStatusMaxAttempts {
		t.Fatalf("expected promotion to max_attempts, got %s", update.Status)
	}
	if update.NextEligibleAt != nil {
		t.Fatal("exhausted contact must not get a retry window")
	}
}

func TestMapOutcomeUnknownIsRetryGated(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	contact := domain.Contact{AttemptCount: 0, MaxAttempts: 3}

	update, entryStatus := MapOutcome(contact, outcomeMsg("weird_carrier_code", at), 15*time.Minute)

	if update.Status != domain.ContactStatusNoAnswer {
		t.Fatalf("expected unknown outcome mapped to no_answer, got %s", update.Status)
	}
	if update.NextEligibleAt == nil {
		t.Fatal("expected retry window for unknown outcome")
	}
	if entryStatus != domain.QueueStatusCompleted {
		t.Fatalf("expected completed entry, got %s", entryStatus)
	}
}

func TestMapOutcomeExpired(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	contact := domain.Contact{AttemptCount: 0, MaxAttempts: 3}

	update, entryStatus := MapOutcome(contact, outcomeMsg(queue.OutcomeExpired, at), 15*time.Minute)

	if entryStatus != domain.QueueStatusExpired {
		t.Fatalf("expected expired entry, got %s", entryStatus)
	}
	if update.Status != domain.ContactStatusNoAnswer {
		t.Fatalf("expected contact back to no_answer, got %s", update.Status)
	}
}
