package signup

import (
	"testing"
	"time"
)

func ts(day, hour int) *time.Time {
	t := time.Date(2026, 5, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func TestSortWaitlistClasses(t *testing.T) {
	cutoff := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)

	entries := []WaitlistEntry{
		{SignupID: 1, ValidatedAt: ts(25, 10), Partial: false}, // late: class 2
		{SignupID: 2, ValidatedAt: ts(10, 10), Partial: true},  // early partial: class 1
		{SignupID: 3, ValidatedAt: ts(12, 10), Partial: false}, // early complete: class 0
		{SignupID: 4, ValidatedAt: ts(11, 10), Partial: false}, // early complete, earlier: class 0
		{SignupID: 5, ValidatedAt: ts(22, 10), Partial: true},  // late partial: class 2
	}

	sorted := SortWaitlist(entries, cutoff)
	want := []uint{4, 3, 2, 1, 5}
	for i, e := range sorted {
		if e.SignupID != want[i] {
			t.Fatalf("position %d: got signup %d, want %d", i, e.SignupID, want[i])
		}
	}
}

func TestSortWaitlistTiebreakByID(t *testing.T) {
	cutoff := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)
	same := ts(10, 10)

	entries := []WaitlistEntry{
		{SignupID: 9, ValidatedAt: same},
		{SignupID: 3, ValidatedAt: same},
		{SignupID: 7, ValidatedAt: same},
	}

	sorted := SortWaitlist(entries, cutoff)
	want := []uint{3, 7, 9}
	for i, e := range sorted {
		if e.SignupID != want[i] {
			t.Fatalf("position %d: got signup %d, want %d", i, e.SignupID, want[i])
		}
	}
}

func TestWaitlistRank(t *testing.T) {
	cutoff := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)

	entries := []WaitlistEntry{
		{SignupID: 1, ValidatedAt: ts(25, 10), Partial: false},
		{SignupID: 2, ValidatedAt: ts(10, 10), Partial: true},
		{SignupID: 3, ValidatedAt: ts(12, 10), Partial: false},
	}

	if got := WaitlistRank(entries, cutoff, 3); got != 1 {
		t.Fatalf("early complete signup should rank 1, got %d", got)
	}
	if got := WaitlistRank(entries, cutoff, 2); got != 2 {
		t.Fatalf("early partial signup should rank 2, got %d", got)
	}
	if got := WaitlistRank(entries, cutoff, 1); got != 3 {
		t.Fatalf("late signup should rank 3, got %d", got)
	}
	if got := WaitlistRank(entries, cutoff, 42); got != 0 {
		t.Fatalf("absent signup should rank 0, got %d", got)
	}
}

func TestLateArrivalDoesNotMoveEarlierClasses(t *testing.T) {
	cutoff := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)

	entries := []WaitlistEntry{
		{SignupID: 1, ValidatedAt: ts(10, 10), Partial: false},
		{SignupID: 2, ValidatedAt: ts(11, 10), Partial: true},
		{SignupID: 3, ValidatedAt: ts(25, 10), Partial: false},
	}
	before := map[uint]int{}
	for _, e := range entries[:2] {
		before[e.SignupID] = WaitlistRank(entries, cutoff, e.SignupID)
	}

	// A new signup validated after the cutoff lands in the last class.
	grown := append(entries, WaitlistEntry{SignupID: 4, ValidatedAt: ts(24, 10), Partial: true})
	for id, rank := range before {
		if got := WaitlistRank(grown, cutoff, id); got != rank {
			t.Errorf("signup %d moved from rank %d to %d after a late arrival", id, rank, got)
		}
	}
}

func TestSortWaitlistDoesNotMutateInput(t *testing.T) {
	cutoff := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)
	entries := []WaitlistEntry{
		{SignupID: 2, ValidatedAt: ts(25, 10)},
		{SignupID: 1, ValidatedAt: ts(10, 10)},
	}

	SortWaitlist(entries, cutoff)
	if entries[0].SignupID != 2 {
		t.Fatal("input slice was reordered")
	}
}
