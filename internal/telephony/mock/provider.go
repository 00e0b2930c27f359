package mock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/acme/dial-queue-engine/internal/domain"
	"github.com/acme/dial-queue-engine/internal/queue"
)

// OutcomeSink receives the simulated call result.
type OutcomeSink interface {
	PublishOutcome(ctx context.Context, msg queue.OutcomeMessage) error
}

// Provider simulates outbound call behaviour for local runs. Each dispatched
// entry resolves after a short random pickup delay and publishes an outcome.
type Provider struct {
	sink        OutcomeSink
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewProvider constructs a mock provider with its own random source.
func NewProvider(sink OutcomeSink) *Provider {
	return &Provider{
		sink:        sink,
		successRate: 0.8,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Dispatch simulates the call asynchronously.
func (p *Provider) Dispatch(ctx context.Context, entry domain.QueueEntry, contact domain.Contact) error {
	p.mu.Lock()
	delay := time.Duration(1+p.rng.Intn(4)) * time.Second
	roll := p.rng.Float64()
	p.mu.Unlock()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		msg := queue.OutcomeMessage{
			EntryID:     entry.ID,
			CampaignID:  entry.CampaignID,
			ContactID:   contact.ID,
			PhoneNumber: contact.PhoneNumber,
			Outcome:     p.outcomeFor(roll),
			DurationMs:  delay.Milliseconds(),
			OccurredAt:  time.Now().UTC(),
		}
		if p.sink != nil {
			_ = p.sink.PublishOutcome(context.WithoutCancel(ctx), msg)
		}
	}()

	return nil
}

func (p *Provider) outcomeFor(roll float64) string {
	switch {
	case roll <= p.successRate:
		return queue.OutcomeCompleted
	case roll <= p.successRate+0.1:
		return queue.OutcomeBusy
	case roll <= p.successRate+0.15:
		return queue.OutcomeVoicemail
	default:
		return queue.OutcomeNoAnswer
	}
}
