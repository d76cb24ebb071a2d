package signup

import (
	"sort"
	"time"
)

// WaitlistEntry is the slice of a held signup the ranking looks at.
type WaitlistEntry struct {
	SignupID    uint
	ValidatedAt *time.Time
	Partial     bool
}

// waitlistClass orders held signups into three fairness classes:
// complete signups validated before partial signups opened go first, then
// partial signups validated before that date, then everyone else.
func waitlistClass(e WaitlistEntry, partialOpensAt time.Time) int {
	early := e.ValidatedAt != nil && e.ValidatedAt.Before(partialOpensAt)
	switch {
	case early && !e.Partial:
		return 0
	case early && e.Partial:
		return 1
	default:
		return 2
	}
}

// SortWaitlist orders entries by (class, validation time, id). The id
// tiebreak makes the ranking deterministic for signups validated in the
// same instant.
func SortWaitlist(entries []WaitlistEntry, partialOpensAt time.Time) []WaitlistEntry {
	sorted := make([]WaitlistEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := waitlistClass(sorted[i], partialOpensAt), waitlistClass(sorted[j], partialOpensAt)
		if ci != cj {
			return ci < cj
		}
		ti, tj := sorted[i].ValidatedAt, sorted[j].ValidatedAt
		switch {
		case ti == nil && tj != nil:
			return false
		case ti != nil && tj == nil:
			return true
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.Before(*tj)
		}
		return sorted[i].SignupID < sorted[j].SignupID
	})
	return sorted
}

// WaitlistRank is the 1-based position of a signup in the sorted waitlist,
// 0 when the signup is not on it.
func WaitlistRank(entries []WaitlistEntry, partialOpensAt time.Time, signupID uint) int {
	for i, e := range SortWaitlist(entries, partialOpensAt) {
		if e.SignupID == signupID {
			return i + 1
		}
	}
	return 0
}
