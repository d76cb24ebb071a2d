package reconciliation

import (
	"errors"
	"testing"

	"assoc-backend/internal/apperrors"
	"assoc-backend/internal/models"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func vals(amounts ...string) []models.OperationValidation {
	out := make([]models.OperationValidation, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, models.OperationValidation{Amount: dec(a)})
	}
	return out
}

func TestJustifiedAmountNoValidations(t *testing.T) {
	op := models.Operation{Amount: dec("100.00")}
	if got := JustifiedAmount(op, nil); got != nil {
		t.Fatalf("no validations should give nil, got %s", got)
	}
}

func TestJustifiedAmountExactMatch(t *testing.T) {
	op := models.Operation{Amount: dec("100.00")}
	got := JustifiedAmount(op, vals("60.00", "40.00"))
	if got == nil || !got.IsZero() {
		t.Fatalf("exact sum should give 0, got %v", got)
	}
}

func TestJustifiedAmountUnderAndOver(t *testing.T) {
	op := models.Operation{Amount: dec("100.00")}

	if got := JustifiedAmount(op, vals("60.00")); got == nil || !got.Equal(dec("-40.00")) {
		t.Fatalf("under-justified should give -40.00, got %v", got)
	}
	if got := JustifiedAmount(op, vals("60.00", "60.00")); got == nil || !got.Equal(dec("20.00")) {
		t.Fatalf("over-justified should give 20.00, got %v", got)
	}
}

func TestJustifiedAmountRoundsToCents(t *testing.T) {
	op := models.Operation{Amount: dec("10.00")}
	got := JustifiedAmount(op, vals("3.333", "3.333", "3.334"))
	if got == nil || !got.IsZero() {
		t.Fatalf("sub-cent residue should round away, got %v", got)
	}
}

func TestJustifiedAmountNegativeOperation(t *testing.T) {
	op := models.Operation{Amount: dec("-75.50")}
	got := JustifiedAmount(op, vals("-75.50"))
	if got == nil || !got.IsZero() {
		t.Fatalf("a debit justified by a matching debit validation should give 0, got %v", got)
	}
}

func TestOutstandingSum(t *testing.T) {
	if got := OutstandingSum(nil); !got.IsZero() {
		t.Fatalf("empty set should sum to 0, got %s", got)
	}
	if got := OutstandingSum(vals("12.10", "7.905")); !got.Equal(dec("20.01")) {
		t.Fatalf("sum should round to 20.01, got %s", got)
	}
}

func TestCheckExpenseReportMatch(t *testing.T) {
	if err := CheckExpenseReportMatch(vals("60.00", "40.00"), dec("100.00")); err != nil {
		t.Fatalf("exact sum should pass: %v", err)
	}
	// Sub-cent residue disappears at the rounding boundary.
	if err := CheckExpenseReportMatch(vals("33.333", "33.333", "33.334"), dec("100.00")); err != nil {
		t.Fatalf("sum rounding to the amount should pass: %v", err)
	}

	err := CheckExpenseReportMatch(vals("60.00", "39.99"), dec("100.00"))
	var mismatch apperrors.AmountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("99.99 against 100.00 must be an AmountMismatchError, got %v", err)
	}
	if !errors.As(CheckExpenseReportMatch(nil, dec("100.00")), &mismatch) {
		t.Fatal("a report without outstanding lines must not match a nonzero operation")
	}
}

func TestCheckCancelPair(t *testing.T) {
	a := models.Operation{Amount: dec("250.00")}
	b := models.Operation{Amount: dec("-250.00")}
	if err := CheckCancelPair(a, b); err != nil {
		t.Fatalf("exact negatives should pass: %v", err)
	}
	if err := CheckCancelPair(b, a); err != nil {
		t.Fatalf("order must not matter: %v", err)
	}

	c := models.Operation{Amount: dec("-250.01")}
	if err := CheckCancelPair(a, c); err == nil {
		t.Fatal("a one-cent difference must be rejected")
	}

	if err := CheckCancelPair(a, a); err == nil {
		t.Fatal("two identical credits must be rejected")
	}
}
