package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ValidationType string

const (
	// income
	ValidationTypeSignup    ValidationType = "signup"
	ValidationTypeDonation  ValidationType = "donation"
	ValidationTypeInterests ValidationType = "interests"
	// expenditure
	ValidationTypeBankFees ValidationType = "bank_fees"
	ValidationTypeExpense  ValidationType = "expense"
	ValidationTypeOther    ValidationType = "other"
)

// OperationValidation links (part of) an operation's amount to the event that
// justifies it. An operation is fully reconciled when its validations sum to
// its amount. OperationID is nullable: an unattached validation describes an
// expected payment (e.g. an expense line) not yet matched to a transaction.
type OperationValidation struct {
	ID          uint  `gorm:"primaryKey"`
	OperationID *uint `gorm:"index"`
	Operation   *Operation
	Amount      decimal.Decimal `gorm:"type:numeric(11,2);not null"`
	EventKind   EventKind       `gorm:"size:20;not null;index:idx_validations_event"`
	EventID     uint            `gorm:"not null;index:idx_validations_event"`
	Type        ValidationType  `gorm:"size:20;column:validation_type"`
	CreatedByID *uint
	CreatedBy   *User
	CreatedAt   time.Time
}
