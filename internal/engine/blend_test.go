package engine

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/acme/dial-queue-engine/internal/domain"
)

type scriptedRand struct {
	draws []float64
	i     int
}

func (s *scriptedRand) Float64() float64 {
	v := s.draws[s.i%len(s.draws)]
	s.i++
	return v
}

func TestSelectListScriptedDraws(t *testing.T) {
	listA := domain.ContactList{ID: uuid.New(), Name: "a", BlendWeight: 3, Active: true}
	listB := domain.ContactList{ID: uuid.New(), Name: "b", BlendWeight: 1, Active: true}
	lists := []domain.ContactList{listA, listB}

	// total weight 4: draws below 0.75 land in a, above in b
	cases := []struct {
		draw float64
		want uuid.UUID
	}{
		{0.0, listA.ID},
		{0.5, listA.ID},
		{0.74, listA.ID},
		{0.75, listB.ID},
		{0.99, listB.ID},
	}
	for _, tc := range cases {
		got := SelectList(lists, &scriptedRand{draws: []float64{tc.draw}})
		if got == nil || got.ID != tc.want {
			t.Fatalf("draw %v: selected wrong list", tc.draw)
		}
	}
}

func TestSelectListSingleList(t *testing.T) {
	list := domain.ContactList{ID: uuid.New(), Name: "only", BlendWeight: 1}
	got := SelectList([]domain.ContactList{list}, nil)
	if got == nil || got.ID != list.ID {
		t.Fatal("expected the only list to be selected without a draw")
	}
}

func TestSelectListEmpty(t *testing.T) {
	if got := SelectList(nil, nil); got != nil {
		t.Fatal("expected nil for empty list set")
	}
}

func TestSelectListZeroWeights(t *testing.T) {
	lists := []domain.ContactList{
		{ID: uuid.New(), Name: "a", BlendWeight: 0},
		{ID: uuid.New(), Name: "b", BlendWeight: 0},
	}
	got := SelectList(lists, &scriptedRand{draws: []float64{0.9}})
	if got == nil || got.ID != lists[0].ID {
		t.Fatal("expected first list when every weight is zero")
	}
}

func TestSelectListProportionalConvergence(t *testing.T) {
	listA := domain.ContactList{ID: uuid.New(), Name: "a", BlendWeight: 75}
	listB := domain.ContactList{ID: uuid.New(), Name: "b", BlendWeight: 25}
	lists := []domain.ContactList{listA, listB}

	rng := rand.New(rand.NewSource(42))
	const draws = 20000

	countA := 0
	for i := 0; i < draws; i++ {
		if SelectList(lists, rng).ID == listA.ID {
			countA++
		}
	}

	fraction := float64(countA) / draws
	if fraction < 0.73 || fraction > 0.77 {
		t.Fatalf("expected roughly 75%% selection of the heavier list, got %.3f", fraction)
	}
}
