package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContactStatus enumerates dial outcomes recorded on a contact.
type ContactStatus string

const (
	ContactStatusNotAttempted ContactStatus = "not_attempted"
	ContactStatusNoAnswer     ContactStatus = "no_answer"
	ContactStatusBusy         ContactStatus = "busy"
	ContactStatusVoicemail    ContactStatus = "voicemail"
	ContactStatusCompleted    ContactStatus = "completed"
	ContactStatusMaxAttempts  ContactStatus = "max_attempts"
	ContactStatusDoNotCall    ContactStatus = "do_not_call"
)

// Terminal reports whether the status permanently removes the contact from dialing.
func (s ContactStatus) Terminal() bool {
	switch s {
	case ContactStatusCompleted, ContactStatusMaxAttempts, ContactStatusDoNotCall:
		return true
	}
	return false
}

// Retryable reports whether the status allows another attempt after the retry window.
func (s ContactStatus) Retryable() bool {
	switch s {
	case ContactStatusNoAnswer, ContactStatusBusy, ContactStatusVoicemail:
		return true
	}
	return false
}

// QueueStatus enumerates lifecycle stages of a queue entry.
type QueueStatus string

const (
	QueueStatusQueued    QueueStatus = "queued"
	QueueStatusDialing   QueueStatus = "dialing"
	QueueStatusConnected QueueStatus = "connected"
	QueueStatusCompleted QueueStatus = "completed"
	QueueStatusAbandoned QueueStatus = "abandoned"
	QueueStatusExpired   QueueStatus = "expired"
)

// Active reports whether the entry counts toward campaign queue depth.
func (s QueueStatus) Active() bool {
	return s == QueueStatusQueued || s == QueueStatusDialing
}

// ContactList models one importable list of contacts attached to a campaign.
// Lists are owned by the campaign management collaborator; the engine only reads them.
type ContactList struct {
	ID          uuid.UUID
	CampaignID  uuid.UUID
	Name        string
	BlendWeight float64
	Active      bool
	CreatedAt   time.Time
}

// Contact is a dialable record belonging to a list.
type Contact struct {
	ID             uuid.UUID
	ListID         uuid.UUID
	FirstName      string
	LastName       string
	PhoneNumber    string
	Status         ContactStatus
	AttemptCount   int
	MaxAttempts    int
	LastAttemptAt  *time.Time
	NextEligibleAt *time.Time
	Locked         bool
	LockedBy       string
	LockedAt       *time.Time
	CreatedAt      time.Time
}

// LockExpired reports whether the contact's lease is older than the given timeout.
func (c *Contact) LockExpired(now time.Time, timeout time.Duration) bool {
	if !c.Locked || c.LockedAt == nil {
		return false
	}
	return now.Sub(*c.LockedAt) >= timeout
}

// QueueEntry is one pending or in-flight dial job.
type QueueEntry struct {
	ID            uuid.UUID
	CampaignID    uuid.UUID
	ListID        uuid.UUID
	ContactID     uuid.UUID
	Status        QueueStatus
	Priority      float64
	EnqueuedAt    time.Time
	DialStartedAt *time.Time
	CompletedAt   *time.Time
}

// CampaignStats aggregates dial metrics for one campaign.
type CampaignStats struct {
	Queued       int64
	Dialing      int64
	Connected    int64
	Completed    int64
	Abandoned    int64
	Expired      int64
	AvgDialTime  time.Duration
	SuccessRate  float64
	TickFailures int64
}

// ActiveDepth is the count of entries still occupying queue capacity.
func (s CampaignStats) ActiveDepth() int64 {
	return s.Queued + s.Dialing
}
