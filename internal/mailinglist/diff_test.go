package mailinglist

import (
	"reflect"
	"testing"
)

func TestComputeDiff(t *testing.T) {
	wanted := []string{"a@example.org", "b@example.org", "c@example.org"}
	subscribed := []string{"b@example.org", "d@example.org"}

	diff := Compute(wanted, subscribed)
	if !reflect.DeepEqual(diff.ToAdd, []string{"a@example.org", "c@example.org"}) {
		t.Errorf("to_add: got %v", diff.ToAdd)
	}
	if !reflect.DeepEqual(diff.ToRemove, []string{"d@example.org"}) {
		t.Errorf("to_remove: got %v", diff.ToRemove)
	}
}

func TestComputeDiffInSync(t *testing.T) {
	emails := []string{"a@example.org", "b@example.org"}
	diff := Compute(emails, emails)
	if len(diff.ToAdd) != 0 || len(diff.ToRemove) != 0 {
		t.Errorf("in-sync lists should diff empty, got %+v", diff)
	}
}

func TestComputeDiffNormalizes(t *testing.T) {
	diff := Compute(
		[]string{" A@Example.ORG ", "a@example.org", ""},
		[]string{"a@example.org"},
	)
	if len(diff.ToAdd) != 0 || len(diff.ToRemove) != 0 {
		t.Errorf("case and whitespace variants are the same address, got %+v", diff)
	}
}
