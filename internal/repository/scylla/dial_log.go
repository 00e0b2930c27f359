package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/repository"
)

// DialLogStore archives finished dial attempts in Scylla, partitioned by
// campaign and day bucket.
type DialLogStore struct {
	session *gocql.Session
}

// NewDialLogStore creates a new dial log store.
func NewDialLogStore(session *gocql.Session) *DialLogStore {
	return &DialLogStore{session: session}
}

// AppendRecord writes one archived dial attempt.
func (s *DialLogStore) AppendRecord(ctx context.Context, record repository.DialRecord) error {
	bucket := bucketDate(record.FinishedAt)
	durationMs := record.Duration.Milliseconds()

	if err := s.session.Query(`INSERT INTO dial_log_by_campaign (campaign_id, bucket, entry_id, list_id, contact_id, phone_number, outcome, attempt, enqueued_at, finished_at, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.CampaignID.String(), bucket, record.EntryID.String(), record.ListID.String(), record.ContactID.String(),
		record.PhoneNumber, record.Outcome, record.Attempt, record.EnqueuedAt, record.FinishedAt, durationMs, record.Error,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("dial log: insert: %w", err)
	}
	return nil
}

// ListByCampaign pages through archived dial attempts for a campaign.
func (s *DialLogStore) ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit int, pagingState []byte) ([]repository.DialRecord, []byte, error) {
	if limit <= 0 {
		limit = 100
	}

	query := s.session.Query(`SELECT bucket, entry_id, list_id, contact_id, phone_number, outcome, attempt, enqueued_at, finished_at, duration_ms, error
		FROM dial_log_by_campaign WHERE campaign_id = ?`, campaignID.String()).WithContext(ctx)
	query = query.PageSize(limit)
	if len(pagingState) > 0 {
		query = query.PageState(pagingState)
	}

	iter := query.Iter()
	records := make([]repository.DialRecord, 0, limit)

	var (
		bucket     time.Time
		entryID    string
		listID     string
		contactID  string
		phone      string
		outcome    string
		attempt    int
		enqueued   time.Time
		finished   time.Time
		durationMs int64
		errText    string
	)

	for iter.Scan(&bucket, &entryID, &listID, &contactID, &phone, &outcome, &attempt, &enqueued, &finished, &durationMs, &errText) {
		eid, err := uuid.Parse(entryID)
		if err != nil {
			continue
		}
		lid, _ := uuid.Parse(listID)
		cid, _ := uuid.Parse(contactID)

		records = append(records, repository.DialRecord{
			EntryID:     eid,
			CampaignID:  campaignID,
			ListID:      lid,
			ContactID:   cid,
			PhoneNumber: phone,
			Outcome:     outcome,
			Attempt:     attempt,
			EnqueuedAt:  enqueued,
			FinishedAt:  finished,
			Duration:    time.Duration(durationMs) * time.Millisecond,
			Error:       errText,
		})
	}

	if err := iter.Close(); err != nil {
		return nil, nil, fmt.Errorf("dial log: iter close: %w", err)
	}

	return records, iter.PageState(), nil
}

func bucketDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
