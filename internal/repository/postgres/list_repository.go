package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/dial-queue-engine/internal/domain"
)

// ContactListRepository reads contact lists from Postgres.
type ContactListRepository struct {
	db *sqlx.DB
}

// NewContactListRepository constructs the repository.
func NewContactListRepository(db *sqlx.DB) *ContactListRepository {
	return &ContactListRepository{db: db}
}

// ActiveByCampaign returns the campaign's active lists, oldest first.
func (r *ContactListRepository) ActiveByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.ContactList, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT id, campaign_id, name, blend_weight, active, created_at
		FROM contact_lists
		WHERE campaign_id = $1 AND active
		ORDER BY created_at ASC`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("contact lists: select active: %w", err)
	}
	defer rows.Close()

	var results []domain.ContactList
	for rows.Next() {
		var rec listRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("contact lists: scan: %w", err)
		}
		results = append(results, rec.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contact lists: rows err: %w", err)
	}
	return results, nil
}

// ActiveCampaignIDs returns the distinct campaigns with at least one active list.
func (r *ContactListRepository) ActiveCampaignIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT DISTINCT campaign_id FROM contact_lists WHERE active ORDER BY campaign_id`)
	if err != nil {
		return nil, fmt.Errorf("contact lists: select campaigns: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("contact lists: scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contact lists: rows err: %w", err)
	}
	return ids, nil
}

type listRecord struct {
	ID          uuid.UUID `db:"id"`
	CampaignID  uuid.UUID `db:"campaign_id"`
	Name        string    `db:"name"`
	BlendWeight float64   `db:"blend_weight"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r listRecord) toModel() domain.ContactList {
	return domain.ContactList{
		ID:          r.ID,
		CampaignID:  r.CampaignID,
		Name:        r.Name,
		BlendWeight: r.BlendWeight,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
	}
}
