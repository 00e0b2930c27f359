package telephony

import (
	"context"

	"github.com/acme/dial-queue-engine/internal/domain"
)

// Provider hands a leased queue entry to the dialing side. The hand-off is
// fire-and-forget: the engine does not wait for the call to resolve.
type Provider interface {
	Dispatch(ctx context.Context, entry domain.QueueEntry, contact domain.Contact) error
}
