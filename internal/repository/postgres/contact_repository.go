package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/repository"
)

// ContactRepository persists contacts in Postgres. The lease is a conditional
// UPDATE so it stays correct under concurrent engine workers.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository constructs the repository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Get retrieves a contact by id.
func (r *ContactRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	var rec contactRecord
	err := r.db.GetContext(ctx, &rec, `SELECT id, list_id, first_name, last_name, phone_number, status,
		attempt_count, max_attempts, last_attempt_at, next_eligible_at, locked, locked_by, locked_at, created_at
		FROM contacts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("contacts: get: %w", err)
	}
	model := rec.toModel()
	return &model, nil
}

// ListByList returns all contacts of a list, oldest first.
func (r *ContactRepository) ListByList(ctx context.Context, listID uuid.UUID) ([]domain.Contact, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT id, list_id, first_name, last_name, phone_number, status,
		attempt_count, max_attempts, last_attempt_at, next_eligible_at, locked, locked_by, locked_at, created_at
		FROM contacts WHERE list_id = $1 ORDER BY created_at ASC`, listID)
	if err != nil {
		return nil, fmt.Errorf("contacts: list: %w", err)
	}
	defer rows.Close()

	var results []domain.Contact
	for rows.Next() {
		var rec contactRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("contacts: scan: %w", err)
		}
		results = append(results, rec.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contacts: rows err: %w", err)
	}
	return results, nil
}

// BulkInsert inserts a batch of contacts.
func (r *ContactRepository) BulkInsert(ctx context.Context, contacts []domain.Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	query := `INSERT INTO contacts (
		id, list_id, first_name, last_name, phone_number, status, attempt_count, max_attempts,
		last_attempt_at, next_eligible_at, locked, locked_by, locked_at, created_at
	) VALUES (:id, :list_id, :first_name, :last_name, :phone_number, :status, :attempt_count, :max_attempts,
		:last_attempt_at, :next_eligible_at, :locked, :locked_by, :locked_at, :created_at)
	ON CONFLICT (id) DO NOTHING`

	rows := make([]map[string]any, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, map[string]any{
			"id":               c.ID,
			"list_id":          c.ListID,
			"first_name":       c.FirstName,
			"last_name":        c.LastName,
			"phone_number":     c.PhoneNumber,
			"status":           string(c.Status),
			"attempt_count":    c.AttemptCount,
			"max_attempts":     c.MaxAttempts,
			"last_attempt_at":  c.LastAttemptAt,
			"next_eligible_at": c.NextEligibleAt,
			"locked":           c.Locked,
			"locked_by":        c.LockedBy,
			"locked_at":        c.LockedAt,
			"created_at":       c.CreatedAt,
		})
	}

	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("contacts: bulk insert: %w", err)
	}
	return nil
}

// TryLease claims the contact unless a live lease is held. The WHERE clause is
// the atomicity boundary: zero rows affected means another caller won the race.
func (r *ContactRepository) TryLease(ctx context.Context, contactID uuid.UUID, owner string, at time.Time, staleBefore time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE contacts
		SET locked = TRUE, locked_by = $1, locked_at = $2
		WHERE id = $3 AND (NOT locked OR locked_at < $4)`,
		owner, at, contactID, staleBefore)
	if err != nil {
		return false, fmt.Errorf("contacts: try lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("contacts: try lease rows: %w", err)
	}
	return affected == 1, nil
}

// ReleaseLock clears the contact's lock fields.
func (r *ContactRepository) ReleaseLock(ctx context.Context, contactID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE contacts
		SET locked = FALSE, locked_by = '', locked_at = NULL
		WHERE id = $1`, contactID); err != nil {
		return fmt.Errorf("contacts: release lock: %w", err)
	}
	return nil
}

// ReleaseStaleLocks clears every lock acquired before staleBefore and returns
// the ids of the contacts it reclaimed.
func (r *ContactRepository) ReleaseStaleLocks(ctx context.Context, staleBefore time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryxContext(ctx, `UPDATE contacts
		SET locked = FALSE, locked_by = '', locked_at = NULL
		WHERE locked AND locked_at < $1
		RETURNING id`, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("contacts: release stale locks: %w", err)
	}
	defer rows.Close()

	var reclaimed []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("contacts: release stale scan: %w", err)
		}
		reclaimed = append(reclaimed, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contacts: release stale rows: %w", err)
	}
	return reclaimed, nil
}

// ApplyOutcome records the result of a dial attempt on the contact.
func (r *ContactRepository) ApplyOutcome(ctx context.Context, contactID uuid.UUID, update repository.ContactOutcomeUpdate) error {
	query := `UPDATE contacts
		SET status = $1, attempt_count = $2, last_attempt_at = $3, next_eligible_at = $4
		WHERE id = $5`
	args := []any{string(update.Status), update.AttemptCount, update.LastAttemptAt, update.NextEligibleAt, contactID}
	if update.ReleaseLock {
		query = `UPDATE contacts
			SET status = $1, attempt_count = $2, last_attempt_at = $3, next_eligible_at = $4,
				locked = FALSE, locked_by = '', locked_at = NULL
			WHERE id = $5`
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("contacts: apply outcome: %w", err)
	}
	return nil
}

type contactRecord struct {
	ID             uuid.UUID    `db:"id"`
	ListID         uuid.UUID    `db:"list_id"`
	FirstName      string       `db:"first_name"`
	LastName       string       `db:"last_name"`
	PhoneNumber    string       `db:"phone_number"`
	Status         string       `db:"status"`
	AttemptCount   int          `db:"attempt_count"`
	MaxAttempts    int          `db:"max_attempts"`
	LastAttemptAt  sql.NullTime `db:"last_attempt_at"`
	NextEligibleAt sql.NullTime `db:"next_eligible_at"`
	Locked         bool         `db:"locked"`
	LockedBy       string       `db:"locked_by"`
	LockedAt       sql.NullTime `db:"locked_at"`
	CreatedAt      time.Time    `db:"created_at"`
}

func (r contactRecord) toModel() domain.Contact {
	c := domain.Contact{
		ID:           r.ID,
		ListID:       r.ListID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PhoneNumber:  r.PhoneNumber,
		Status:       domain.ContactStatus(r.Status),
		AttemptCount: r.AttemptCount,
		MaxAttempts:  r.MaxAttempts,
		Locked:       r.Locked,
		LockedBy:     r.LockedBy,
		CreatedAt:    r.CreatedAt,
	}
	if r.LastAttemptAt.Valid {
		t := r.LastAttemptAt.Time
		c.LastAttemptAt = &t
	}
	if r.NextEligibleAt.Valid {
		t := r.NextEligibleAt.Time
		c.NextEligibleAt = &t
	}
	if r.LockedAt.Valid {
		t := r.LockedAt.Time
		c.LockedAt = &t
	}
	return c
}
