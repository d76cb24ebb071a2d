package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bill: what a signup owes. Amount is set from the pricing engine at
// validation time and adjusted by delta on recalculation so that payments
// already received keep their meaning. Balance is never stored: it is
// amount minus the sum of attached validations (see signup.BillBalance).
type Bill struct {
	ID       uint `gorm:"primaryKey"`
	SignupID uint `gorm:"uniqueIndex;not null"`
	Signup   Signup
	Amount   decimal.Decimal `gorm:"type:numeric(11,2);not null;default:0"`

	// Last pricing run, kept for audit: the itemized explanation and the
	// total it produced. Amount may diverge after a manual override.
	Calculation      string          `gorm:"type:text"`
	CalculatedAmount decimal.Decimal `gorm:"type:numeric(11,2);default:0"`

	CreatedAt time.Time
	// PayedAt doubles as the "confirmation already sent" guard.
	PayedAt       *time.Time
	AmountPayedAt decimal.Decimal `gorm:"type:numeric(11,2);default:0"` // amount received when confirmed
}

func (b Bill) AmountDue() decimal.Decimal { return b.Amount }

func (b Bill) Label() string { return fmt.Sprintf("bill #%d (signup %d)", b.ID, b.SignupID) }
