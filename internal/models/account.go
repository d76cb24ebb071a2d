package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account: a bank account, created on first import of a statement. Never deleted.
type Account struct {
	ID             uint            `gorm:"primaryKey"`
	Name           string          `gorm:"size:100;not null"`
	IBAN           string          `gorm:"size:34;uniqueIndex;not null"`
	CurrentBalance decimal.Decimal `gorm:"type:numeric(11,2);default:0"` // informational only
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Operation: a single bank transaction as delivered by a statement import.
// Immutable after import; the reconciliation engine only reads it.
// (account, year, number) is the bank's natural key.
type Operation struct {
	ID               uint    `gorm:"primaryKey"`
	AccountID        uint    `gorm:"not null;uniqueIndex:idx_operations_natural_key"`
	Account          Account
	Year             int       `gorm:"not null;uniqueIndex:idx_operations_natural_key"`
	Number           int       `gorm:"not null;uniqueIndex:idx_operations_natural_key"`
	Date             time.Time `gorm:"index;not null"`
	Description      string    `gorm:"size:255"`
	Amount           decimal.Decimal `gorm:"type:numeric(11,2);not null"` // signed
	Currency         string          `gorm:"size:3;default:EUR"`
	EffectiveDate    time.Time
	CounterpartyIBAN string `gorm:"size:255"`
	CounterpartyName string `gorm:"size:255"`
	Communication    string `gorm:"size:255"` // free-text from the payer
	Reference        string `gorm:"size:255"` // bank's external reference
	CreatedAt        time.Time
}

// Operations can justify each other (erroneous transfer plus its refund).
func (o Operation) AmountDue() decimal.Decimal { return o.Amount }

func (o Operation) Label() string {
	return fmt.Sprintf("%d/%d - %s€ - %s", o.Year, o.Number, o.Amount.StringFixed(2), o.CounterpartyName)
}
