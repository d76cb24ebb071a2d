// Package pricing computes what a signup owes: tiered per-participant
// pricing by age, pro-ration for partial attendance and a progressive
// discount for the younger children of a household.
package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tier is one age band of the price table: MinAge inclusive, MaxAge
// exclusive. UpfrontFee is charged per participant regardless of the number
// of days; AllDaysPrice covers the full period and is pro-rated for
// partial attendance.
type Tier struct {
	MinAge       int
	MaxAge       int
	AllDaysPrice decimal.Decimal
	UpfrontFee   decimal.Decimal
}

// Attendee is the slice of a participant the price depends on.
type Attendee struct {
	FirstName    string
	LastName     string
	Birthday     time.Time
	Complete     bool // attends every event day
	DaysAttended int
}

// ConfigurationError: the tier table has a gap. This is a deployment
// problem, not a user mistake, and is allowed to propagate as a hard
// failure.
type ConfigurationError struct {
	Age int
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("no price tier configured for age %d", e.Age)
}

// AgeAt returns the age in full years at the reference date.
func AgeAt(birthday, ref time.Time) int {
	age := ref.Year() - birthday.Year()
	if ref.Month() < birthday.Month() ||
		(ref.Month() == birthday.Month() && ref.Day() < birthday.Day()) {
		age--
	}
	return age
}

func tierFor(tiers []Tier, age int) (Tier, bool) {
	for _, t := range tiers {
		if t.MinAge <= age && age < t.MaxAge {
			return t, true
		}
	}
	return Tier{}, false
}

var (
	quarter = decimal.NewFromFloat(0.25)
	half    = decimal.NewFromFloat(0.5)
	one     = decimal.NewFromInt(1)
)

// Quote prices a whole signup and explains the arithmetic line by line.
//
// Participants are priced oldest first; the discount for under-18s grows
// with the number of children already priced in the same signup, capped at
// 50%. Each child's price is rounded to the cent before it enters the
// total.
func Quote(attendees []Attendee, tiers []Tier, totalDays int, eventEnd time.Time) (decimal.Decimal, string, error) {
	ordered := make([]Attendee, len(attendees))
	copy(ordered, attendees)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Birthday.Before(ordered[j].Birthday)
	})

	var b strings.Builder
	childNb := 0
	total := decimal.Zero

	for _, a := range ordered {
		age := AgeAt(a.Birthday, eventEnd)
		tier, ok := tierFor(tiers, age)
		if !ok {
			return decimal.Zero, "", ConfigurationError{Age: age}
		}

		fmt.Fprintf(&b, "price for %s %s: ", a.FirstName, a.LastName)

		var price decimal.Decimal
		if a.Complete {
			price = tier.UpfrontFee.Add(tier.AllDaysPrice)
			fmt.Fprintf(&b, "(full) %s + %s ", tier.UpfrontFee, tier.AllDaysPrice)
		} else {
			days := decimal.NewFromInt(int64(a.DaysAttended))
			prorated := tier.AllDaysPrice.Mul(days).Div(decimal.NewFromInt(int64(totalDays)))
			price = tier.UpfrontFee.Add(prorated)
			fmt.Fprintf(&b, "(partial) %s + %s / %d * %d ",
				tier.UpfrontFee, tier.AllDaysPrice, totalDays, a.DaysAttended)
		}

		if age < 18 {
			reduction := quarter.Mul(decimal.NewFromInt(int64(childNb)))
			if reduction.GreaterThan(half) {
				reduction = half
			}
			price = price.Mul(one.Sub(reduction))
			childNb++
			fmt.Fprintf(&b, "child %d discount %s%% ", childNb, reduction.Mul(decimal.NewFromInt(100)).StringFixed(0))
		}

		price = price.Round(2)
		total = total.Add(price)
		fmt.Fprintf(&b, "        = %s€\n", price.StringFixed(2))
	}

	total = total.Round(2)
	fmt.Fprintf(&b, "total: %s€", total.StringFixed(2))
	return total, b.String(), nil
}
