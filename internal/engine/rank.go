package engine

import (
	"slices"
	"time"

	"github.com/acme/dial-queue-engine/internal/domain"
)

// Rank orders already-eligible contacts of one list, most dialable first:
// fresh contacts before retries, then fewest attempts, then longest-waiting.
func Rank(contacts []domain.Contact) {
	slices.SortStableFunc(contacts, compareContacts)
}

func compareContacts(a, b domain.Contact) int {
	aFresh := a.Status == domain.ContactStatusNotAttempted
	bFresh := b.Status == domain.ContactStatusNotAttempted
	if aFresh != bFresh {
		if aFresh {
			return -1
		}
		return 1
	}

	if a.AttemptCount != b.AttemptCount {
		return a.AttemptCount - b.AttemptCount
	}

	at := timeOrZero(a.LastAttemptAt)
	bt := timeOrZero(b.LastAttemptAt)
	switch {
	case at.Before(bt):
		return -1
	case bt.Before(at):
		return 1
	}
	return 0
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
