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

// QueueRepository persists queue entries in Postgres.
type QueueRepository struct {
	db *sqlx.DB
}

// NewQueueRepository constructs the repository.
func NewQueueRepository(db *sqlx.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Append stores a new queue entry.
func (r *QueueRepository) Append(ctx context.Context, entry *domain.QueueEntry) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO queue_entries (
		id, campaign_id, list_id, contact_id, status, priority, enqueued_at, dial_started_at, completed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.CampaignID, entry.ListID, entry.ContactID, string(entry.Status),
		entry.Priority, entry.EnqueuedAt, entry.DialStartedAt, entry.CompletedAt)
	if err != nil {
		return fmt.Errorf("queue entries: insert: %w", err)
	}
	return nil
}

// Get retrieves an entry by id.
func (r *QueueRepository) Get(ctx context.Context, id uuid.UUID) (*domain.QueueEntry, error) {
	var rec entryRecord
	err := r.db.GetContext(ctx, &rec, `SELECT id, campaign_id, list_id, contact_id, status, priority,
		enqueued_at, dial_started_at, completed_at
		FROM queue_entries WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue entry %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("queue entries: get: %w", err)
	}
	model := rec.toModel()
	return &model, nil
}

// ActiveCount counts queued and dialing entries for a campaign.
func (r *QueueRepository) ActiveCount(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM queue_entries
		WHERE campaign_id = $1 AND status IN ('queued', 'dialing')`, campaignID)
	if err != nil {
		return 0, fmt.Errorf("queue entries: active count: %w", err)
	}
	return n, nil
}

// TotalActiveCount counts queued and dialing entries across all campaigns.
func (r *QueueRepository) TotalActiveCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM queue_entries
		WHERE status IN ('queued', 'dialing')`)
	if err != nil {
		return 0, fmt.Errorf("queue entries: total active count: %w", err)
	}
	return n, nil
}

// UpdateStatus advances an entry's lifecycle status and stamps the transition.
func (r *QueueRepository) UpdateStatus(ctx context.Context, entryID uuid.UUID, status domain.QueueStatus, at time.Time) error {
	query := `UPDATE queue_entries SET status = $1 WHERE id = $2`
	args := []any{string(status), entryID}

	switch status {
	case domain.QueueStatusDialing:
		query = `UPDATE queue_entries SET status = $1, dial_started_at = $2 WHERE id = $3`
		args = []any{string(status), at, entryID}
	case domain.QueueStatusCompleted, domain.QueueStatusAbandoned, domain.QueueStatusExpired:
		query = `UPDATE queue_entries SET status = $1, completed_at = $2 WHERE id = $3`
		args = []any{string(status), at, entryID}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("queue entries: update status: %w", err)
	}
	return nil
}

// FindActiveByContact locates the non-terminal entry for a contact.
func (r *QueueRepository) FindActiveByContact(ctx context.Context, contactID uuid.UUID) (*domain.QueueEntry, error) {
	var rec entryRecord
	err := r.db.GetContext(ctx, &rec, `SELECT id, campaign_id, list_id, contact_id, status, priority,
		enqueued_at, dial_started_at, completed_at
		FROM queue_entries
		WHERE contact_id = $1 AND status IN ('queued', 'dialing')
		LIMIT 1`, contactID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active entry for contact %s: %w", contactID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("queue entries: find active by contact: %w", err)
	}
	model := rec.toModel()
	return &model, nil
}

// List returns entries, newest first, optionally filtered by campaign.
func (r *QueueRepository) List(ctx context.Context, campaignID *uuid.UUID, limit int) ([]domain.QueueEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, campaign_id, list_id, contact_id, status, priority, enqueued_at, dial_started_at, completed_at
		FROM queue_entries`
	args := []any{}
	if campaignID != nil {
		query += ` WHERE campaign_id = $1 ORDER BY enqueued_at DESC LIMIT $2`
		args = append(args, *campaignID, limit)
	} else {
		query += ` ORDER BY enqueued_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queue entries: list: %w", err)
	}
	defer rows.Close()

	var results []domain.QueueEntry
	for rows.Next() {
		var rec entryRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("queue entries: scan: %w", err)
		}
		results = append(results, rec.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue entries: rows err: %w", err)
	}
	return results, nil
}

// Stats aggregates entry counts, average dial time and success rate.
func (r *QueueRepository) Stats(ctx context.Context, campaignID *uuid.UUID) (domain.CampaignStats, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE status = 'queued') AS queued,
		COUNT(*) FILTER (WHERE status = 'dialing') AS dialing,
		COUNT(*) FILTER (WHERE status = 'connected') AS connected,
		COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		COUNT(*) FILTER (WHERE status = 'abandoned') AS abandoned,
		COUNT(*) FILTER (WHERE status = 'expired') AS expired,
		COALESCE(EXTRACT(EPOCH FROM AVG(completed_at - enqueued_at) FILTER (WHERE completed_at IS NOT NULL)), 0) AS avg_dial_seconds
		FROM queue_entries`
	args := []any{}
	if campaignID != nil {
		query += ` WHERE campaign_id = $1`
		args = append(args, *campaignID)
	}

	var row struct {
		Queued         int64   `db:"queued"`
		Dialing        int64   `db:"dialing"`
		Connected      int64   `db:"connected"`
		Completed      int64   `db:"completed"`
		Abandoned      int64   `db:"abandoned"`
		Expired        int64   `db:"expired"`
		AvgDialSeconds float64 `db:"avg_dial_seconds"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return domain.CampaignStats{}, fmt.Errorf("queue entries: stats: %w", err)
	}

	stats := domain.CampaignStats{
		Queued:      row.Queued,
		Dialing:     row.Dialing,
		Connected:   row.Connected,
		Completed:   row.Completed,
		Abandoned:   row.Abandoned,
		Expired:     row.Expired,
		AvgDialTime: time.Duration(row.AvgDialSeconds * float64(time.Second)),
	}
	terminal := stats.Completed + stats.Abandoned + stats.Expired
	if terminal > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(terminal)
	}
	return stats, nil
}

type entryRecord struct {
	ID            uuid.UUID    `db:"id"`
	CampaignID    uuid.UUID    `db:"campaign_id"`
	ListID        uuid.UUID    `db:"list_id"`
	ContactID     uuid.UUID    `db:"contact_id"`
	Status        string       `db:"status"`
	Priority      float64      `db:"priority"`
	EnqueuedAt    time.Time    `db:"enqueued_at"`
	DialStartedAt sql.NullTime `db:"dial_started_at"`
	CompletedAt   sql.NullTime `db:"completed_at"`
}

func (r entryRecord) toModel() domain.QueueEntry {
	e := domain.QueueEntry{
		ID:         r.ID,
		CampaignID: r.CampaignID,
		ListID:     r.ListID,
		ContactID:  r.ContactID,
		Status:     domain.QueueStatus(r.Status),
		Priority:   r.Priority,
		EnqueuedAt: r.EnqueuedAt,
	}
	if r.DialStartedAt.Valid {
		t := r.DialStartedAt.Time
		e.DialStartedAt = &t
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		e.CompletedAt = &t
	}
	return e
}
