package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseTiers(t *testing.T) {
	tiers, err := ParseTiers("0-6:80:10, 6-12:160:20,12-18:240:30,18-999:325:40")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(tiers) != 4 {
		t.Fatalf("want 4 tiers, got %d", len(tiers))
	}
	if tiers[1].MinAge != 6 || tiers[1].MaxAge != 12 {
		t.Errorf("second band: got %d-%d", tiers[1].MinAge, tiers[1].MaxAge)
	}
	if !tiers[3].AllDaysPrice.Equal(decimal.NewFromInt(325)) {
		t.Errorf("adult price: got %s", tiers[3].AllDaysPrice)
	}
	if !tiers[0].UpfrontFee.Equal(decimal.NewFromInt(10)) {
		t.Errorf("youngest upfront fee: got %s", tiers[0].UpfrontFee)
	}
}

func TestParseTiersRejectsGarbage(t *testing.T) {
	for _, s := range []string{
		"",
		"0-6:80",
		"six-12:160:20",
		"0-6:eighty:10",
	} {
		if _, err := ParseTiers(s); err == nil {
			t.Errorf("ParseTiers(%q) should fail", s)
		}
	}
}
