// Package reconciliation links bank operations to the events that justify
// them and keeps the justified/outstanding bookkeeping honest.
package reconciliation

import (
	"fmt"

	"assoc-backend/internal/apperrors"
	"assoc-backend/internal/config"
	"assoc-backend/internal/database"
	"assoc-backend/internal/models"
	"assoc-backend/internal/signup"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JustifiedAmount is sum(validations) - operation amount, rounded to two
// decimals. Zero means fully justified. nil means the operation has no
// validations at all, which is "unknown", not "not justified".
func JustifiedAmount(op models.Operation, validations []models.OperationValidation) *decimal.Decimal {
	if len(validations) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, v := range validations {
		sum = sum.Add(v.Amount)
	}
	diff := sum.Sub(op.Amount).Round(2)
	return &diff
}

// OutstandingSum adds up validation amounts, rounded to two decimals at
// the aggregation boundary.
func OutstandingSum(validations []models.OperationValidation) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range validations {
		sum = sum.Add(v.Amount)
	}
	return sum.Round(2)
}

// CheckExpenseReportMatch verifies a report's outstanding lines cancel
// the operation exactly. Pure precondition, no state touched.
func CheckExpenseReportMatch(outstanding []models.OperationValidation, opAmount decimal.Decimal) error {
	if !OutstandingSum(outstanding).Equal(opAmount.Round(2)) {
		return apperrors.AmountMismatchError{Msg: "Expense report and operation should cancel each other out"}
	}
	return nil
}

// CheckCancelPair verifies two operations are exact negatives of each
// other. Pure precondition, no state touched.
func CheckCancelPair(a, b models.Operation) error {
	if !a.Amount.Equal(b.Amount.Neg()) {
		return apperrors.AmountMismatchError{Msg: "Select only operations that cancel each other out"}
	}
	return nil
}

// Allocate creates one validation: (part of) an operation's amount
// justified by the given event. The engine does not clamp the amount to
// the operation's remaining balance; an over-allocation shows up as a
// nonzero justified amount in the operation list.
func Allocate(cfg *config.Config, operationID *uint, ref models.EventRef, amount decimal.Decimal, vtype models.ValidationType, actorID uint) (*models.OperationValidation, error) {
	var validation *models.OperationValidation

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if operationID != nil {
			var op models.Operation
			if err := tx.First(&op, "id = ?", *operationID).Error; err != nil {
				return fmt.Errorf("operation not found: %w", err)
			}
		}
		if _, err := ResolveEvent(tx, ref); err != nil {
			return fmt.Errorf("event not found: %w", err)
		}
		if err := checkEventAcceptsPayments(tx, ref); err != nil {
			return err
		}

		v := models.OperationValidation{
			OperationID: operationID,
			Amount:      amount.Round(2),
			EventKind:   ref.Kind,
			EventID:     ref.ID,
			Type:        vtype,
			CreatedByID: &actorID,
		}
		if err := tx.Create(&v).Error; err != nil {
			return err
		}
		validation = &v

		return settleIfBill(cfg, tx, ref)
	})
	if err != nil {
		return nil, err
	}
	return validation, nil
}

// LinkOperationsToBill creates, for each selected operation, a validation
// of the operation's full amount against the chosen bill.
func LinkOperationsToBill(cfg *config.Config, operationIDs []uint, billID uint, actorID uint) error {
	if len(operationIDs) == 0 {
		return apperrors.SelectionError{Msg: "Select at least one operation"}
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var bill models.Bill
		if err := tx.First(&bill, "id = ?", billID).Error; err != nil {
			return fmt.Errorf("bill not found: %w", err)
		}
		ref := models.EventRef{Kind: models.EventKindBill, ID: bill.ID}
		if err := checkEventAcceptsPayments(tx, ref); err != nil {
			return err
		}
		if err := createFullAmountValidations(tx, operationIDs, ref, models.ValidationTypeSignup, actorID); err != nil {
			return err
		}
		return signup.SettleBill(cfg, tx, bill.ID)
	})
}

// LinkOperationsToSignup resolves the signup's bill and links against it.
func LinkOperationsToSignup(cfg *config.Config, operationIDs []uint, signupID uint, actorID uint) error {
	var bill models.Bill
	if err := database.DB.First(&bill, "signup_id = ?", signupID).Error; err != nil {
		return apperrors.StatePreconditionError{Msg: "Signup has no bill yet (not admitted?)"}
	}
	return LinkOperationsToBill(cfg, operationIDs, bill.ID, actorID)
}

// LinkOperationToExpenseReport bulk-reassigns all of a validated expense
// report's unattached validations to the operation. All or nothing: a sum
// mismatch fails before anything is modified.
func LinkOperationToExpenseReport(operationID, reportID uint, actorID uint) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var op models.Operation
		if err := tx.First(&op, "id = ?", operationID).Error; err != nil {
			return fmt.Errorf("operation not found: %w", err)
		}

		var report models.ExpenseReport
		if err := tx.First(&report, "id = ?", reportID).Error; err != nil {
			return fmt.Errorf("expense report not found: %w", err)
		}
		if !report.Validated {
			return apperrors.StatePreconditionError{Msg: "Expense report must be validated before linking"}
		}

		var outstanding []models.OperationValidation
		if err := tx.
			Where("event_kind = ? AND event_id = ? AND operation_id IS NULL",
				models.EventKindExpenseReport, reportID).
			Find(&outstanding).Error; err != nil {
			return err
		}

		if err := CheckExpenseReportMatch(outstanding, op.Amount); err != nil {
			return err
		}

		ids := make([]uint, 0, len(outstanding))
		for _, v := range outstanding {
			ids = append(ids, v.ID)
		}
		return tx.Model(&models.OperationValidation{}).
			Where("id IN ?", ids).
			Update("operation_id", operationID).Error
	})
}

// CancelEachOtherOut takes exactly two operations whose amounts are exact
// negatives and creates two validations, each naming the other operation
// as its event, closing both.
func CancelEachOtherOut(operationIDs []uint, actorID uint) error {
	if len(operationIDs) != 2 {
		return apperrors.SelectionError{Msg: "Select exactly two operations"}
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var ops []models.Operation
		if err := tx.Find(&ops, "id IN ?", operationIDs).Error; err != nil {
			return err
		}
		if len(ops) != 2 {
			return apperrors.SelectionError{Msg: "Select exactly two operations"}
		}
		first, second := ops[0], ops[1]
		if err := CheckCancelPair(first, second); err != nil {
			return err
		}

		pair := []models.OperationValidation{
			{
				OperationID: &first.ID,
				Amount:      first.Amount,
				EventKind:   models.EventKindOperation,
				EventID:     second.ID,
				Type:        models.ValidationTypeOther,
				CreatedByID: &actorID,
			},
			{
				OperationID: &second.ID,
				Amount:      second.Amount,
				EventKind:   models.EventKindOperation,
				EventID:     first.ID,
				Type:        models.ValidationTypeOther,
				CreatedByID: &actorID,
			},
		}
		return tx.Create(&pair).Error
	})
}

// MarkAsFee creates a self-justifying validation for each operation:
// bank fees for debits, interest income for credits.
func MarkAsFee(operationIDs []uint, actorID uint) error {
	if len(operationIDs) == 0 {
		return apperrors.SelectionError{Msg: "Select at least one operation"}
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var ops []models.Operation
		if err := tx.Find(&ops, "id IN ?", operationIDs).Error; err != nil {
			return err
		}
		if len(ops) != len(operationIDs) {
			return apperrors.SelectionError{Msg: "Some selected operations were not found"}
		}
		for _, op := range ops {
			vtype := models.ValidationTypeInterests
			if op.Amount.IsNegative() {
				vtype = models.ValidationTypeBankFees
			}
			v := models.OperationValidation{
				OperationID: &op.ID,
				Amount:      op.Amount,
				EventKind:   models.EventKindOperation,
				EventID:     op.ID,
				Type:        vtype,
				CreatedByID: &actorID,
			}
			if err := tx.Create(&v).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func createFullAmountValidations(tx *gorm.DB, operationIDs []uint, ref models.EventRef, vtype models.ValidationType, actorID uint) error {
	var ops []models.Operation
	if err := tx.Find(&ops, "id IN ?", operationIDs).Error; err != nil {
		return err
	}
	if len(ops) != len(operationIDs) {
		return apperrors.SelectionError{Msg: "Some selected operations were not found"}
	}
	for _, op := range ops {
		v := models.OperationValidation{
			OperationID: &op.ID,
			Amount:      op.Amount,
			EventKind:   ref.Kind,
			EventID:     ref.ID,
			Type:        vtype,
			CreatedByID: &actorID,
		}
		if err := tx.Create(&v).Error; err != nil {
			return err
		}
	}
	return nil
}

// checkEventAcceptsPayments blocks new validations against a cancelled
// signup's bill. The bill itself is kept for audit.
func checkEventAcceptsPayments(tx *gorm.DB, ref models.EventRef) error {
	var signupID uint
	switch ref.Kind {
	case models.EventKindBill:
		var bill models.Bill
		if err := tx.First(&bill, "id = ?", ref.ID).Error; err != nil {
			return err
		}
		signupID = bill.SignupID
	case models.EventKindSignup:
		signupID = ref.ID
	default:
		return nil
	}

	var s models.Signup
	if err := tx.First(&s, "id = ?", signupID).Error; err != nil {
		return err
	}
	if s.CancelledAt != nil {
		return apperrors.StatePreconditionError{Msg: "Signup is cancelled, its bill no longer accepts payments"}
	}
	return nil
}

func settleIfBill(cfg *config.Config, tx *gorm.DB, ref models.EventRef) error {
	switch ref.Kind {
	case models.EventKindBill:
		return signup.SettleBill(cfg, tx, ref.ID)
	case models.EventKindSignup:
		var bill models.Bill
		if err := tx.First(&bill, "signup_id = ?", ref.ID).Error; err != nil {
			return nil // no bill yet, nothing to settle
		}
		return signup.SettleBill(cfg, tx, bill.ID)
	}
	return nil
}
