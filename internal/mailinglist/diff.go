// Package mailinglist keeps the season's announcement list in sync with
// the admitted signups.
package mailinglist

import (
	"sort"
	"strings"
)

// Diff is what a sync would do: addresses missing from the list and
// addresses on it that no longer belong.
type Diff struct {
	ToAdd    []string `json:"to_add"`
	ToRemove []string `json:"to_remove"`
}

// Compute compares who should be on the list with who is. Addresses are
// matched case-insensitively; both outputs come back sorted so previews
// are stable.
func Compute(shouldBe, subscribed []string) Diff {
	want := normalize(shouldBe)
	have := normalize(subscribed)

	var diff Diff
	for email := range want {
		if _, ok := have[email]; !ok {
			diff.ToAdd = append(diff.ToAdd, email)
		}
	}
	for email := range have {
		if _, ok := want[email]; !ok {
			diff.ToRemove = append(diff.ToRemove, email)
		}
	}
	sort.Strings(diff.ToAdd)
	sort.Strings(diff.ToRemove)
	return diff
}

func normalize(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		set[e] = struct{}{}
	}
	return set
}
