package queue

import (
	"time"

	"github.com/google/uuid"
)

// DialMessage instructs the telephony collaborator to dial a leased contact.
type DialMessage struct {
	EntryID     uuid.UUID `json:"entry_id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	ListID      uuid.UUID `json:"list_id"`
	ContactID   uuid.UUID `json:"contact_id"`
	PhoneNumber string    `json:"phone_number"`
	Attempt     int       `json:"attempt"`
	Priority    float64   `json:"priority"`
	LockOwner   string    `json:"lock_owner"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Dial outcome values the disposition side may report.
const (
	OutcomeCompleted = "completed"
	OutcomeNoAnswer  = "no_answer"
	OutcomeBusy      = "busy"
	OutcomeVoicemail = "voicemail"
	OutcomeDoNotCall = "do_not_call"
	OutcomeAbandoned = "abandoned"
	OutcomeExpired   = "expired"
)

// OutcomeMessage reports the result of a dial attempt back to the engine side.
type OutcomeMessage struct {
	EntryID     uuid.UUID `json:"entry_id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	ContactID   uuid.UUID `json:"contact_id"`
	PhoneNumber string    `json:"phone_number"`
	Outcome     string    `json:"outcome"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
