package expense

import "testing"

func TestNextTitle(t *testing.T) {
	if got := NextTitle(2026, 0); got != "2026-0001" {
		t.Errorf("first title of the year: got %q", got)
	}
	if got := NextTitle(2026, 41); got != "2026-0042" {
		t.Errorf("sequence should increment: got %q", got)
	}
	if got := NextTitle(2027, 9999); got != "2027-10000" {
		t.Errorf("sequence may outgrow its padding: got %q", got)
	}
}
