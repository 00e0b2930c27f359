package telephony

import (
	"context"
	"fmt"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/queue"
)

// KafkaProvider publishes dial jobs to the dial topic. The downstream dialer
// consumes them and reports outcomes on the outcome topic.
type KafkaProvider struct {
	dispatcher *queue.DialDispatcher
}

// NewKafkaProvider constructs the provider.
func NewKafkaProvider(dispatcher *queue.DialDispatcher) *KafkaProvider {
	return &KafkaProvider{dispatcher: dispatcher}
}

// Dispatch publishes the queue entry as a dial job.
func (p *KafkaProvider) Dispatch(ctx context.Context, entry domain.QueueEntry, contact domain.Contact) error {
	msg := queue.DialMessage{
		EntryID:     entry.ID,
		CampaignID:  entry.CampaignID,
		ListID:      entry.ListID,
		ContactID:   contact.ID,
		PhoneNumber: contact.PhoneNumber,
		Attempt:     contact.AttemptCount + 1,
		Priority:    entry.Priority,
		LockOwner:   contact.LockedBy,
		EnqueuedAt:  entry.EnqueuedAt,
	}
	if err := p.dispatcher.DispatchDial(ctx, msg); err != nil {
		return fmt.Errorf("telephony: dispatch entry %s: %w", entry.ID, err)
	}
	return nil
}
