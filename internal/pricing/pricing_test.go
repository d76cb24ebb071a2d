package pricing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var eventEnd = time.Date(2026, 7, 26, 0, 0, 0, 0, time.UTC)

func defaultTiers() []Tier {
	return []Tier{
		{MinAge: 0, MaxAge: 6, AllDaysPrice: decimal.NewFromInt(80), UpfrontFee: decimal.NewFromInt(10)},
		{MinAge: 6, MaxAge: 12, AllDaysPrice: decimal.NewFromInt(160), UpfrontFee: decimal.NewFromInt(20)},
		{MinAge: 12, MaxAge: 18, AllDaysPrice: decimal.NewFromInt(240), UpfrontFee: decimal.NewFromInt(30)},
		{MinAge: 18, MaxAge: 999, AllDaysPrice: decimal.NewFromInt(325), UpfrontFee: decimal.NewFromInt(40)},
	}
}

func aged(years int) time.Time {
	return eventEnd.AddDate(-years, 0, -1)
}

func complete(name string, age int) Attendee {
	return Attendee{FirstName: name, LastName: "Test", Birthday: aged(age), Complete: true, DaysAttended: 9}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuoteSingleAdult(t *testing.T) {
	total, explanation, err := Quote([]Attendee{complete("Anne", 35)}, defaultTiers(), 9, eventEnd)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !total.Equal(dec("365")) {
		t.Fatalf("adult full price should be 40+325=365, got %s", total)
	}
	if !strings.Contains(explanation, "Anne") || !strings.Contains(explanation, "total: 365.00€") {
		t.Errorf("explanation incomplete:\n%s", explanation)
	}
}

func TestQuoteSiblingDiscountProgression(t *testing.T) {
	// Children of 10 and 8: full price 20+160=180 each. The oldest child
	// is child 1 (no discount yet), the second gets 25% off.
	attendees := []Attendee{complete("Cadet", 8), complete("Ainee", 10)}
	total, explanation, err := Quote(attendees, defaultTiers(), 9, eventEnd)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !total.Equal(dec("315")) {
		t.Fatalf("180 + 180*0.75 = 315, got %s", total)
	}
	// Oldest first regardless of input order.
	if strings.Index(explanation, "Ainee") > strings.Index(explanation, "Cadet") {
		t.Errorf("participants should be priced oldest first:\n%s", explanation)
	}
}

func TestQuoteDiscountCapsAtHalf(t *testing.T) {
	attendees := []Attendee{
		complete("A", 16), complete("B", 14), complete("C", 10), complete("D", 8),
	}
	total, _, err := Quote(attendees, defaultTiers(), 9, eventEnd)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	// 270 + 270*0.75 + 180*0.5 + 180*0.5: the 4th child would be 75% off
	// but the discount caps at 50%.
	if !total.Equal(dec("652.50")) {
		t.Fatalf("want 652.50 with the 50%% cap, got %s", total)
	}
}

func TestQuoteAdultsDoNotConsumeDiscount(t *testing.T) {
	// Two adults before a child: the child is still child 1, no discount.
	attendees := []Attendee{complete("P1", 40), complete("P2", 38), complete("Kid", 9)}
	total, _, err := Quote(attendees, defaultTiers(), 9, eventEnd)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !total.Equal(dec("910")) {
		t.Fatalf("365*2 + 180 = 910, got %s", total)
	}
}

func TestQuotePartialAttendanceProRated(t *testing.T) {
	partial := Attendee{FirstName: "Part", LastName: "Time", Birthday: aged(30), DaysAttended: 3}
	total, explanation, err := Quote([]Attendee{partial}, defaultTiers(), 9, eventEnd)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	// 40 + 325*3/9 = 148.33
	if !total.Equal(dec("148.33")) {
		t.Fatalf("want 148.33, got %s", total)
	}
	if !strings.Contains(explanation, "(partial)") {
		t.Errorf("explanation should flag partial attendance:\n%s", explanation)
	}
}

func TestQuoteMoreDaysNeverCheaper(t *testing.T) {
	tiers := defaultTiers()
	prev := decimal.Zero
	for days := 1; days <= 9; days++ {
		a := Attendee{FirstName: "Var", LastName: "Days", Birthday: aged(30), DaysAttended: days}
		total, _, err := Quote([]Attendee{a}, tiers, 9, eventEnd)
		if err != nil {
			t.Fatalf("quote failed at %d days: %v", days, err)
		}
		if total.LessThan(prev) {
			t.Fatalf("attending %d days costs %s, less than %s for fewer days", days, total, prev)
		}
		prev = total
	}
}

func TestQuoteMoreAttendeesNeverCheaper(t *testing.T) {
	tiers := defaultTiers()
	base := []Attendee{complete("A", 12), complete("B", 9)}
	withExtra := append([]Attendee{complete("C", 7)}, base...)

	smaller, _, err := Quote(base, tiers, 9, eventEnd)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	larger, _, err := Quote(withExtra, tiers, 9, eventEnd)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if larger.LessThan(smaller) {
		t.Fatalf("adding a participant must not lower the total: %s < %s", larger, smaller)
	}
}

func TestQuoteTierGapIsConfigurationError(t *testing.T) {
	gappy := []Tier{
		{MinAge: 0, MaxAge: 6, AllDaysPrice: decimal.NewFromInt(80), UpfrontFee: decimal.NewFromInt(10)},
		{MinAge: 12, MaxAge: 999, AllDaysPrice: decimal.NewFromInt(240), UpfrontFee: decimal.NewFromInt(30)},
	}
	_, _, err := Quote([]Attendee{complete("Gap", 8)}, gappy, 9, eventEnd)

	var confErr ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	if confErr.Age != 8 {
		t.Errorf("error should carry the unmatched age, got %d", confErr.Age)
	}
}

func TestQuoteEmptySignup(t *testing.T) {
	total, explanation, err := Quote(nil, defaultTiers(), 9, eventEnd)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !total.IsZero() {
		t.Fatalf("empty signup should cost 0, got %s", total)
	}
	if !strings.Contains(explanation, "total: 0.00€") {
		t.Errorf("explanation should still state the total:\n%s", explanation)
	}
}

func TestAgeAt(t *testing.T) {
	ref := time.Date(2026, 7, 26, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		birthday string
		want     int
	}{
		{"2008-07-26", 18}, // birthday on the reference day counts
		{"2008-07-27", 17}, // one day short
		{"2008-06-01", 18},
		{"2026-01-10", 0},
	}
	for _, tc := range cases {
		birthday, _ := time.Parse("2006-01-02", tc.birthday)
		if got := AgeAt(birthday, ref); got != tc.want {
			t.Errorf("AgeAt(%s): got %d, want %d", tc.birthday, got, tc.want)
		}
	}
}

func TestTierBoundariesMinInclusiveMaxExclusive(t *testing.T) {
	tiers := defaultTiers()

	tier, ok := tierFor(tiers, 6)
	if !ok || !tier.AllDaysPrice.Equal(dec("160")) {
		t.Errorf("age 6 should fall in the 6-12 band")
	}
	tier, ok = tierFor(tiers, 11)
	if !ok || !tier.AllDaysPrice.Equal(dec("160")) {
		t.Errorf("age 11 should fall in the 6-12 band")
	}
	tier, ok = tierFor(tiers, 12)
	if !ok || !tier.AllDaysPrice.Equal(dec("240")) {
		t.Errorf("age 12 should fall in the 12-18 band")
	}
	if _, ok := tierFor(tiers[:1], 6); ok {
		t.Errorf("age 6 is outside a 0-6 band")
	}
}
