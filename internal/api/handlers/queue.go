package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
)

type queueEntryResponse struct {
	ID            uuid.UUID          `json:"id"`
	CampaignID    uuid.UUID          `json:"campaign_id"`
	ListID        uuid.UUID          `json:"list_id"`
	ContactID     uuid.UUID          `json:"contact_id"`
	Status        domain.QueueStatus `json:"status"`
	Priority      float64            `json:"priority"`
	EnqueuedAt    time.Time          `json:"enqueued_at"`
	DialStartedAt *time.Time         `json:"dial_started_at,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
}

type listQueueResponse struct {
	Entries []queueEntryResponse `json:"entries"`
}

type statsResponse struct {
	Queued       int64   `json:"queued"`
	Dialing      int64   `json:"dialing"`
	Connected    int64   `json:"connected"`
	Completed    int64   `json:"completed"`
	Abandoned    int64   `json:"abandoned"`
	Expired      int64   `json:"expired"`
	AvgDialTime  string  `json:"avg_dial_time"`
	SuccessRate  float64 `json:"success_rate"`
	TickFailures int64   `json:"tick_failures"`
}

type dialLogRecordResponse struct {
	EntryID     uuid.UUID `json:"entry_id"`
	ContactID   uuid.UUID `json:"contact_id"`
	PhoneNumber string    `json:"phone_number"`
	Outcome     string    `json:"outcome"`
	Attempt     int       `json:"attempt"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Duration    string    `json:"duration"`
	Error       string    `json:"error,omitempty"`
}

type listDialLogResponse struct {
	Records  []dialLogRecordResponse `json:"records"`
	NextPage string                  `json:"next_page_token,omitempty"`
}

func (h *HandlerSet) listQueue(ctx *fiber.Ctx) error {
	campaignID, err := optionalUUID(ctx.Query("campaign_id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid campaign_id")
	}
	limit, _ := strconv.Atoi(ctx.Query("limit", "100"))

	entries, err := h.engine.Queue(ctx.Context(), campaignID, limit)
	if err != nil {
		return translateError(err)
	}

	resp := listQueueResponse{Entries: make([]queueEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, queueEntryResponse{
			ID:            e.ID,
			CampaignID:    e.CampaignID,
			ListID:        e.ListID,
			ContactID:     e.ContactID,
			Status:        e.Status,
			Priority:      e.Priority,
			EnqueuedAt:    e.EnqueuedAt,
			DialStartedAt: e.DialStartedAt,
			CompletedAt:   e.CompletedAt,
		})
	}

	return ctx.Status(http.StatusOK).JSON(resp)
}

func (h *HandlerSet) stats(ctx *fiber.Ctx) error {
	campaignID, err := optionalUUID(ctx.Query("campaign_id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid campaign_id")
	}

	stats, err := h.engine.Stats(ctx.Context(), campaignID)
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(statsResponse{
		Queued:       stats.Queued,
		Dialing:      stats.Dialing,
		Connected:    stats.Connected,
		Completed:    stats.Completed,
		Abandoned:    stats.Abandoned,
		Expired:      stats.Expired,
		AvgDialTime:  stats.AvgDialTime.String(),
		SuccessRate:  stats.SuccessRate,
		TickFailures: stats.TickFailures,
	})
}

func (h *HandlerSet) engineStatus(ctx *fiber.Ctx) error {
	status, err := h.engine.Status(ctx.Context())
	if err != nil {
		return translateError(err)
	}
	return ctx.Status(http.StatusOK).JSON(status)
}

func (h *HandlerSet) startEngine(ctx *fiber.Ctx) error {
	if err := h.engine.Start(); err != nil {
		return translateError(err)
	}
	return ctx.SendStatus(http.StatusNoContent)
}

func (h *HandlerSet) stopEngine(ctx *fiber.Ctx) error {
	h.engine.Stop()
	return ctx.SendStatus(http.StatusNoContent)
}

func (h *HandlerSet) listDialLog(ctx *fiber.Ctx) error {
	campaignID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid campaign id")
	}

	limit, _ := strconv.Atoi(ctx.Query("limit", "100"))
	paging, err := decodePageToken(ctx.Query("page_token", ""))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid page token")
	}

	records, nextPage, err := h.container.Repositories().DialLog.ListByCampaign(ctx.Context(), campaignID, limit, paging)
	if err != nil {
		return translateError(err)
	}

	resp := listDialLogResponse{Records: make([]dialLogRecordResponse, 0, len(records))}
	for _, r := range records {
		resp.Records = append(resp.Records, dialLogRecordResponse{
			EntryID:     r.EntryID,
			ContactID:   r.ContactID,
			PhoneNumber: r.PhoneNumber,
			Outcome:     r.Outcome,
			Attempt:     r.Attempt,
			EnqueuedAt:  r.EnqueuedAt,
			FinishedAt:  r.FinishedAt,
			Duration:    r.Duration.String(),
			Error:       r.Error,
		})
	}
	resp.NextPage = encodePageToken(nextPage)

	return ctx.Status(http.StatusOK).JSON(resp)
}

func optionalUUID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func decodePageToken(token string) ([]byte, error) {
	if token == "" {
		return nil, nil
	}
	return base64.URLEncoding.DecodeString(token)
}

func encodePageToken(state []byte) string {
	if len(state) == 0 {
		return ""
	}
	return base64.URLEncoding.EncodeToString(state)
}
