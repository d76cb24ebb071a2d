// Package expense manages expense reports: submission, validation by a
// treasurer, merging of duplicates and the outstanding total the
// dashboard shows.
package expense

import (
	"fmt"
	"sort"
	"strings"

	"assoc-backend/internal/apperrors"
	"assoc-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NextTitle builds the "YYYY-NNNN" title from the year and the highest
// sequence already used. Sequences restart every year.
func NextTitle(year int, lastSeq int) string {
	return fmt.Sprintf("%d-%04d", year, lastSeq+1)
}

// lastSequence extracts the numeric suffix of the highest existing title
// for the year. Titles that do not follow the pattern are ignored.
func lastSequence(tx *gorm.DB, year int) (int, error) {
	var titles []string
	err := tx.Model(&models.ExpenseReport{}).
		Where("title LIKE ?", fmt.Sprintf("%d-%%", year)).
		Pluck("title", &titles).Error
	if err != nil {
		return 0, err
	}

	last := 0
	prefix := fmt.Sprintf("%d-", year)
	for _, title := range titles {
		var seq int
		if _, err := fmt.Sscan(strings.TrimPrefix(title, prefix), &seq); err == nil && seq > last {
			last = seq
		}
	}
	return last, nil
}

// Create registers a report with the next free title for the year.
func Create(tx *gorm.DB, year int, report *models.ExpenseReport) error {
	last, err := lastSequence(tx, year)
	if err != nil {
		return err
	}
	report.Title = NextTitle(year, last)
	return tx.Create(report).Error
}

// Validate marks the report ready for reimbursement. Only validated
// reports can be linked to a bank operation.
func Validate(tx *gorm.DB, reportID uint) error {
	var report models.ExpenseReport
	if err := tx.First(&report, "id = ?", reportID).Error; err != nil {
		return fmt.Errorf("expense report not found: %w", err)
	}
	if report.Validated {
		return apperrors.StatePreconditionError{Msg: "Expense report is already validated"}
	}
	report.Validated = true
	return tx.Save(&report).Error
}

// Merge folds several reports of the same beneficiary into the oldest
// one: its title survives, validations are moved over, comments are
// concatenated, the rest is deleted.
func Merge(tx *gorm.DB, reportIDs []uint) (*models.ExpenseReport, error) {
	if len(reportIDs) < 2 {
		return nil, apperrors.SelectionError{Msg: "Select at least two expense reports to merge"}
	}

	var reports []models.ExpenseReport
	if err := tx.Find(&reports, "id IN ?", reportIDs).Error; err != nil {
		return nil, err
	}
	if len(reports) != len(reportIDs) {
		return nil, apperrors.SelectionError{Msg: "Some selected expense reports were not found"}
	}

	beneficiary := reports[0].BeneficiaryID
	for _, r := range reports {
		if r.BeneficiaryID != beneficiary {
			return nil, apperrors.SelectionError{Msg: "Only expense reports of the same beneficiary can be merged"}
		}
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })
	target, rest := reports[0], reports[1:]

	comments := []string{target.Comments}
	for _, r := range rest {
		if r.Comments != "" {
			comments = append(comments, fmt.Sprintf("[%s] %s", r.Title, r.Comments))
		}
		err := tx.Model(&models.OperationValidation{}).
			Where("event_kind = ? AND event_id = ?", models.EventKindExpenseReport, r.ID).
			Update("event_id", target.ID).Error
		if err != nil {
			return nil, err
		}
		if err := tx.Delete(&models.ExpenseReport{}, "id = ?", r.ID).Error; err != nil {
			return nil, err
		}
	}

	target.Comments = strings.TrimSpace(strings.Join(comments, "\n"))
	if err := tx.Save(&target).Error; err != nil {
		return nil, err
	}
	return &target, nil
}

// Total sums every validation pointing at the report.
func Total(tx *gorm.DB, reportID uint) (decimal.Decimal, error) {
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

// OutstandingTotal sums the unattached validations of validated reports:
// money the association still owes its volunteers.
func OutstandingTotal(tx *gorm.DB) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.Model(&models.OperationValidation{}).
		Select("SUM(operation_validations.amount)").
		Joins("JOIN expense_reports ON expense_reports.id = operation_validations.event_id").
		Where("operation_validations.event_kind = ? AND operation_validations.operation_id IS NULL AND expense_reports.validated = true",
			models.EventKindExpenseReport).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}
