package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
	apperrors "github.com/acme/dial-queue-engine/pkg/errors"
)

var (
	// ErrNotFound indicates the entity was not located.
	ErrNotFound = apperrors.ErrNotFound
	// ErrConflict indicates a unique constraint violation.
	ErrConflict = apperrors.ErrConflict
)

// ContactListRepository reads contact lists configured by the campaign
// management collaborator. The engine never writes lists.
type ContactListRepository interface {
	ActiveByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.ContactList, error)
	ActiveCampaignIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ContactRepository manages contact records and their dial leases.
type ContactRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Contact, error)
	ListByList(ctx context.Context, listID uuid.UUID) ([]domain.Contact, error)
	BulkInsert(ctx context.Context, contacts []domain.Contact) error

	// TryLease atomically claims the contact for owner. A contact can be
	// claimed when it is unlocked, or when its current lock is older than
	// staleBefore. Returns false without error when another caller holds a
	// live lease.
	TryLease(ctx context.Context, contactID uuid.UUID, owner string, at time.Time, staleBefore time.Time) (bool, error)

	ReleaseLock(ctx context.Context, contactID uuid.UUID) error

	// ReleaseStaleLocks clears every lock acquired before staleBefore and
	// returns the ids of the contacts reclaimed, so the caller can finalize
	// whatever the crashed holder left behind.
	ReleaseStaleLocks(ctx context.Context, staleBefore time.Time) ([]uuid.UUID, error)

	ApplyOutcome(ctx context.Context, contactID uuid.UUID, update ContactOutcomeUpdate) error
}

// ContactOutcomeUpdate captures the post-call mutation of a contact.
type ContactOutcomeUpdate struct {
	Status         domain.ContactStatus
	AttemptCount   int
	LastAttemptAt  time.Time
	NextEligibleAt *time.Time
	ReleaseLock    bool
}

// QueueRepository stores queue entries. Entries are never deleted; terminal
// entries drop out of depth accounting but stay for reporting.
type QueueRepository interface {
	Append(ctx context.Context, entry *domain.QueueEntry) error
	Get(ctx context.Context, id uuid.UUID) (*domain.QueueEntry, error)
	ActiveCount(ctx context.Context, campaignID uuid.UUID) (int, error)
	TotalActiveCount(ctx context.Context) (int, error)
	UpdateStatus(ctx context.Context, entryID uuid.UUID, status domain.QueueStatus, at time.Time) error
	FindActiveByContact(ctx context.Context, contactID uuid.UUID) (*domain.QueueEntry, error)
	List(ctx context.Context, campaignID *uuid.UUID, limit int) ([]domain.QueueEntry, error)
	Stats(ctx context.Context, campaignID *uuid.UUID) (domain.CampaignStats, error)
}

// DialLogStore archives finished dial attempts for long-range reporting.
type DialLogStore interface {
	AppendRecord(ctx context.Context, record DialRecord) error
	ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit int, pagingState []byte) ([]DialRecord, []byte, error)
}

// DialRecord is the archived form of one completed dial attempt.
type DialRecord struct {
	EntryID     uuid.UUID
	CampaignID  uuid.UUID
	ListID      uuid.UUID
	ContactID   uuid.UUID
	PhoneNumber string
	Outcome     string
	Attempt     int
	EnqueuedAt  time.Time
	FinishedAt  time.Time
	Duration    time.Duration
	Error       string
}
