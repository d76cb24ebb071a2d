package reconciliation

import (
	"fmt"

	"assoc-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type eventLoader func(tx *gorm.DB, id uint) (models.JustifiableEvent, error)

// eventRegistry maps a validation's event kind to its loader. Adding a new
// justifiable entity means one entry here, no type switches elsewhere.
var eventRegistry = map[models.EventKind]eventLoader{
	models.EventKindBill:          loadBill,
	models.EventKindExpenseReport: loadExpenseReport,
	models.EventKindSignup:        loadSignup,
	models.EventKindOperation:     loadOperation,
}

// ResolveEvent loads the entity a validation points at, with its amount-due
// aggregate filled in.
func ResolveEvent(tx *gorm.DB, ref models.EventRef) (models.JustifiableEvent, error) {
	loader, ok := eventRegistry[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", ref.Kind)
	}
	return loader(tx, ref.ID)
}

func loadBill(tx *gorm.DB, id uint) (models.JustifiableEvent, error) {
	var bill models.Bill
	if err := tx.First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return bill, nil
}

func loadExpenseReport(tx *gorm.DB, id uint) (models.JustifiableEvent, error) {
	var report models.ExpenseReport
	if err := tx.First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	total, err := expenseReportTotal(tx, id)
	if err != nil {
		return nil, err
	}
	report.Total = total
	return report, nil
}

func loadSignup(tx *gorm.DB, id uint) (models.JustifiableEvent, error) {
	var signup models.Signup
	if err := tx.First(&signup, "id = ?", id).Error; err != nil {
		return nil, err
	}
	var bill models.Bill
	if err := tx.First(&bill, "signup_id = ?", id).Error; err == nil {
		signup.BillAmount = bill.Amount
	}
	return signup, nil
}

func loadOperation(tx *gorm.DB, id uint) (models.JustifiableEvent, error) {
	var op models.Operation
	if err := tx.First(&op, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return op, nil
}

// expenseReportTotal sums every validation pointing at the report,
// attached or not. The report's total is derived from its lines.
func expenseReportTotal(tx *gorm.DB, reportID uint) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.Model(&models.OperationValidation{}).
		Select("SUM(amount)").
		Where("event_kind = ? AND event_id = ?", models.EventKindExpenseReport, reportID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}
