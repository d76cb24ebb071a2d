package models

import "github.com/shopspring/decimal"

// EventKind tags the entity a validation points at. A tagged (kind, id) pair
// replaces runtime type inspection: resolving a ref goes through a registry
// keyed by kind (see reconciliation.ResolveEvent).
type EventKind string

const (
	EventKindBill          EventKind = "bill"
	EventKindExpenseReport EventKind = "expense_report"
	EventKindSignup        EventKind = "signup"
	EventKindOperation     EventKind = "operation"
)

// EventRef is a typed reference to a justifiable event.
type EventRef struct {
	Kind EventKind `json:"kind"`
	ID   uint      `json:"id"`
}

// JustifiableEvent is anything a validation can justify a payment against.
type JustifiableEvent interface {
	AmountDue() decimal.Decimal
	Label() string
}
