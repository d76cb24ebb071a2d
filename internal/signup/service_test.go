package signup

import (
	"errors"
	"testing"
	"time"

	"assoc-backend/internal/apperrors"
	"assoc-backend/internal/models"
	"assoc-backend/internal/notification"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPaidSumCountsBillAndSignupAllocations(t *testing.T) {
	bill := models.Bill{ID: 7, SignupID: 3, Amount: dec("100.00")}

	validations := []models.OperationValidation{
		{Amount: dec("60.00"), EventKind: models.EventKindBill, EventID: 7},
		{Amount: dec("40.00"), EventKind: models.EventKindSignup, EventID: 3},
	}

	paid := paidSum(bill, validations)
	if !paid.Equal(dec("100.00")) {
		t.Fatalf("allocations against the signup must settle its bill: paid %s, want 100.00", paid)
	}
	if !bill.Amount.Sub(paid).IsZero() {
		t.Fatal("balance should reach zero")
	}
}

func TestPaidSumIgnoresOtherDebts(t *testing.T) {
	bill := models.Bill{ID: 7, SignupID: 3, Amount: dec("100.00")}

	validations := []models.OperationValidation{
		{Amount: dec("50.00"), EventKind: models.EventKindBill, EventID: 8},          // someone else's bill
		{Amount: dec("50.00"), EventKind: models.EventKindSignup, EventID: 4},        // someone else's signup
		{Amount: dec("50.00"), EventKind: models.EventKindExpenseReport, EventID: 7}, // same id, wrong kind
	}

	if paid := paidSum(bill, validations); !paid.IsZero() {
		t.Fatalf("unrelated validations must not count as payment, got %s", paid)
	}
}

func TestAdmissionPrecondition(t *testing.T) {
	now := time.Now()

	pending := &models.Signup{}
	if err := admissionPrecondition(pending); err != nil {
		t.Fatalf("pending signup should pass: %v", err)
	}

	held := &models.Signup{ValidatedAt: &now, OnHold: true}
	if err := admissionPrecondition(held); err != nil {
		t.Fatalf("held signup may be re-validated: %v", err)
	}

	admitted := &models.Signup{ValidatedAt: &now}
	err := admissionPrecondition(admitted)
	var precond apperrors.StatePreconditionError
	if !errors.As(err, &precond) {
		t.Fatalf("re-validating an admitted signup must be refused, got %v", err)
	}

	cancelled := &models.Signup{ValidatedAt: &now, CancelledAt: &now}
	if !errors.As(admissionPrecondition(cancelled), &precond) {
		t.Fatal("cancelled signup must be refused")
	}
}

type mailRecorder struct {
	subjects []string
}

func (r *mailRecorder) Send(to []string, subject, body string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

type mailDiscard struct{}

func (mailDiscard) Send(to []string, subject, body string) error { return nil }

func TestAdmissionSendsExactlyOneMail(t *testing.T) {
	recorder := &mailRecorder{}
	notification.SetSender(recorder)
	defer notification.SetSender(mailDiscard{})

	admissionMail(false, "owner@example.org", "365.00", "20/05/2026")
	if len(recorder.subjects) != 1 {
		t.Fatalf("fresh admission should send one mail, got %d", len(recorder.subjects))
	}

	recorder.subjects = nil
	admissionMail(true, "owner@example.org", "365.00", "20/05/2026")
	if len(recorder.subjects) != 1 {
		t.Fatalf("waitlist release should send one mail, got %d", len(recorder.subjects))
	}
	if recorder.subjects[0] != "Vous avez une place" {
		t.Errorf("waitlist release should send the release mail, got %q", recorder.subjects[0])
	}
}
