package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseReport: a member's claim for money spent on behalf of the
// association. Inverted from Bill: its total is derived from the
// validations pointing at it, one per expense line. Lines start unattached
// and are bulk-reassigned to a bank operation once the reimbursement shows
// up on a statement.
type ExpenseReport struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"size:255"` // "YYYY-NNNN", assigned on creation
	BeneficiaryID uint   `gorm:"not null"`
	Beneficiary   User
	IBAN          string `gorm:"size:34"`
	SubmittedDate *time.Time
	Signed        bool `gorm:"default:false"`
	Validated     bool `gorm:"default:false"`
	Comments      string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Sum of this report's validation amounts, filled by the resolver and
	// the list queries. Not a column.
	Total decimal.Decimal `gorm:"-"`
}

func (e ExpenseReport) AmountDue() decimal.Decimal { return e.Total }

func (e ExpenseReport) Label() string { return fmt.Sprintf("expense report %s", e.Title) }
