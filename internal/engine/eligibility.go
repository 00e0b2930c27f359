package engine

import (
	"time"

	"github.com/acme/dial-queue-engine/internal/domain"
)

// Evaluator decides whether a contact may currently be dialed. It is a pure
// function of contact state and the supplied time.
type Evaluator struct {
	// StaleLockTimeout bounds how long a lease excludes a contact. A lock
	// older than this no longer blocks eligibility even before the
	// reclaimer has cleared it.
	StaleLockTimeout time.Duration
}

// IsEligible reports whether the contact satisfies every dialing rule.
// Any status outside the known retry-eligible and terminal sets is not
// eligible: an unrecognized state must never be re-dialed by accident.
func (ev Evaluator) IsEligible(c domain.Contact, now time.Time) bool {
	if c.Locked && !c.LockExpired(now, ev.StaleLockTimeout) {
		return false
	}

	switch c.Status {
	case domain.ContactStatusNotAttempted:
		return true
	case domain.ContactStatusMaxAttempts, domain.ContactStatusDoNotCall:
		return false
	}

	if c.AttemptCount >= c.MaxAttempts {
		return false
	}

	if c.Status.Retryable() {
		if c.NextEligibleAt != nil && now.Before(*c.NextEligibleAt) {
			return false
		}
		return true
	}

	return false
}
