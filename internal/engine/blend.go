package engine

import (
	"github.com/acme/dial-queue-engine/internal/domain"
)

// RandSource supplies the uniform draws for weighted list selection. Injected
// so tests can script exact outcomes.
type RandSource interface {
	Float64() float64
}

// SelectList picks one list by weighted random selection ("blending"). Lists
// with equal weight get proportional, not positional, chance. When every
// weight is zero or missing the first list wins so a misconfigured campaign
// still makes forward progress.
func SelectList(lists []domain.ContactList, rng RandSource) *domain.ContactList {
	switch len(lists) {
	case 0:
		return nil
	case 1:
		return &lists[0]
	}

	total := 0.0
	for _, l := range lists {
		if l.BlendWeight > 0 {
			total += l.BlendWeight
		}
	}
	if total == 0 {
		return &lists[0]
	}

	draw := rng.Float64() * total
	acc := 0.0
	for i := range lists {
		if lists[i].BlendWeight <= 0 {
			continue
		}
		acc += lists[i].BlendWeight
		if draw < acc {
			return &lists[i]
		}
	}

	// Float accumulation can leave draw a hair past the final range.
	for i := len(lists) - 1; i >= 0; i-- {
		if lists[i].BlendWeight > 0 {
			return &lists[i]
		}
	}
	return &lists[0]
}
