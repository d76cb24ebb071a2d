// Package apperrors holds the error taxonomy shared by the reconciliation
// and signup services. All of these are precondition failures: they are
// raised before any mutation and leave state untouched.
package apperrors

// SelectionError: a bulk action received the wrong number of selected
// entities (e.g. not exactly two operations to cancel each other out).
type SelectionError struct {
	Msg string
}

func (e SelectionError) Error() string { return e.Msg }

// AmountMismatchError: amounts that must cancel or sum exactly do not.
type AmountMismatchError struct {
	Msg string
}

func (e AmountMismatchError) Error() string { return e.Msg }

// StatePreconditionError: the entity is not in the state the action
// requires (unvalidated expense report, cancelled signup, ...).
type StatePreconditionError struct {
	Msg string
}

func (e StatePreconditionError) Error() string { return e.Msg }
