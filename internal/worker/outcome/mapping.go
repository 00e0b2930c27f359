package outcome

import (
	"time"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/queue"
	"github.com/acme/dial-queue-engine/internal/repository"
)

// MapOutcome translates a reported dial outcome into the contact mutation and
// the queue entry's terminal status. The attempt always counts, the lock is
// always released, and a contact whose attempt budget is exhausted is promoted
// to max_attempts regardless of a pending retry window.
func MapOutcome(contact domain.Contact, msg queue.OutcomeMessage, retryDelay time.Duration) (repository.ContactOutcomeUpdate, domain.QueueStatus) {
	attempts := contact.AttemptCount + 1
	update := repository.ContactOutcomeUpdate{
		AttemptCount:  attempts,
		LastAttemptAt: msg.OccurredAt,
		ReleaseLock:   true,
	}
	entryStatus := domain.QueueStatusCompleted

	switch msg.Outcome {
	case queue.OutcomeCompleted:
		update.Status = domain.ContactStatusCompleted
	case queue.OutcomeDoNotCall:
		update.Status = domain.ContactStatusDoNotCall
		entryStatus = domain.QueueStatusAbandoned
	case queue.OutcomeBusy:
		update.Status = domain.ContactStatusBusy
	case queue.OutcomeVoicemail:
		update.Status = domain.ContactStatusVoicemail
	case queue.OutcomeAbandoned:
		update.Status = domain.ContactStatusNoAnswer
		entryStatus = domain.QueueStatusAbandoned
	case queue.OutcomeExpired:
		update.Status = domain.ContactStatusNoAnswer
		entryStatus = domain.QueueStatusExpired
	default:
		// no_answer and anything unrecognized gate behind the retry window
		update.Status = domain.ContactStatusNoAnswer
	}

	if update.Status.Retryable() {
		next := msg.OccurredAt.Add(retryDelay)
		update.NextEligibleAt = &next
	}

	if attempts >= contact.MaxAttempts && !update.Status.Terminal() {
		update.Status = domain.ContactStatusMaxAttempts
		update.NextEligibleAt = nil
	}

	return update, entryStatus
}
