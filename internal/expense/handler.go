package expense

import (
	"fmt"
	"time"

	"assoc-backend/internal/apperrors"
	"assoc-backend/internal/audit"
	"assoc-backend/internal/auth"
	"assoc-backend/internal/config"
	"assoc-backend/internal/database"
	"assoc-backend/internal/models"
	"assoc-backend/internal/notification"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type createReportRequest struct {
	BeneficiaryID uint     `json:"beneficiary_id"`
	IBAN          string   `json:"iban"`
	Comments      string   `json:"comments"`
	Signed        bool     `json:"signed"`
	Lines         []string `json:"lines"`   // one label per expense line
	Amounts       []string `json:"amounts"` // matching amounts
}

type reportResponse struct {
	models.ExpenseReport
	TotalAmount string `json:"total"`
}

// POST /api/expense-reports submits a report with its expense lines. Each
// line becomes an unattached validation pointing at the report.
func CreateReportHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createReportRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.BeneficiaryID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "beneficiary_id is required")
		}
		if len(req.Amounts) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "At least one expense line is required")
		}

		amounts := make([]decimal.Decimal, 0, len(req.Amounts))
		for _, a := range req.Amounts {
			d, err := decimal.NewFromString(a)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("amount %q is invalid", a))
			}
			amounts = append(amounts, d)
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		now := time.Now()
		report := models.ExpenseReport{
			BeneficiaryID: req.BeneficiaryID,
			IBAN:          req.IBAN,
			Comments:      req.Comments,
			Signed:        req.Signed,
			SubmittedDate: &now,
		}

		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := Create(tx, cfg.SeasonYear, &report); err != nil {
				return err
			}
			for _, amount := range amounts {
				v := models.OperationValidation{
					Amount:      amount.Round(2),
					EventKind:   models.EventKindExpenseReport,
					EventID:     report.ID,
					Type:        models.ValidationTypeExpense,
					CreatedByID: &userID,
				}
				if err := tx.Create(&v).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if txErr != nil {
			return statusFor(txErr)
		}

		total, _ := Total(database.DB, report.ID)
		report.Total = total

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "expense_report", EntityID: report.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Expense report %s submitted, total %s", report.Title, total.StringFixed(2)),
			After:       report,
		})
		notifyTreasurers(report, total)

		return c.Status(fiber.StatusCreated).JSON(reportResponse{
			ExpenseReport: report,
			TotalAmount:   total.StringFixed(2),
		})
	}
}

// GET /api/expense-reports?validated=true|false
func ListReportsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Preload("Beneficiary").Model(&models.ExpenseReport{})
		if v := c.Query("validated"); v == "true" || v == "false" {
			dbq = dbq.Where("validated = ?", v == "true")
		}

		var reports []models.ExpenseReport
		if err := dbq.Order("id desc").Find(&reports).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list expense reports")
		}

		out := make([]reportResponse, 0, len(reports))
		for _, r := range reports {
			total, err := Total(database.DB, r.ID)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not total expense reports")
			}
			r.Total = total
			out = append(out, reportResponse{ExpenseReport: r, TotalAmount: total.StringFixed(2)})
		}
		return c.JSON(out)
	}
}

// GET /api/expense-reports/:id
func GetReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id is invalid")
		}

		var report models.ExpenseReport
		if err := database.DB.Preload("Beneficiary").First(&report, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Expense report not found")
		}

		total, err := Total(database.DB, id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not total expense report")
		}
		report.Total = total

		var lines []models.OperationValidation
		database.DB.Find(&lines, "event_kind = ? AND event_id = ?", models.EventKindExpenseReport, id)

		return c.JSON(fiber.Map{
			"report": reportResponse{ExpenseReport: report, TotalAmount: total.StringFixed(2)},
			"lines":  lines,
		})
	}
}

// POST /api/expense-reports/:id/validate
func ValidateReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id is invalid")
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		if err := Validate(database.DB, id); err != nil {
			return statusFor(err)
		}

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "expense_report", EntityID: id,
			Action:      models.AuditActionUpdate,
			Description: "Expense report validated",
		})
		return c.JSON(fiber.Map{"status": "validated"})
	}
}

// POST /api/expense-reports/actions/merge
func MergeReportsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			ReportIDs []uint `json:"report_ids"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		var merged *models.ExpenseReport
		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			merged, err = Merge(tx, req.ReportIDs)
			return err
		})
		if txErr != nil {
			return statusFor(txErr)
		}

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "expense_report", EntityID: merged.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%d expense reports merged into %s", len(req.ReportIDs), merged.Title),
			After:       req.ReportIDs,
		})
		return c.JSON(merged)
	}
}

// GET /api/expense-reports/outstanding-total
func OutstandingTotalHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		total, err := OutstandingTotal(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not compute outstanding total")
		}
		return c.JSON(fiber.Map{"outstanding_total": total.StringFixed(2)})
	}
}

func notifyTreasurers(report models.ExpenseReport, total decimal.Decimal) {
	var treasurers []models.User
	if err := database.DB.Find(&treasurers, "role = ?", models.RoleTreasurer).Error; err != nil {
		return
	}
	emails := make([]string, 0, len(treasurers))
	for _, t := range treasurers {
		emails = append(emails, t.Email)
	}

	var beneficiary models.User
	database.DB.First(&beneficiary, "id = ?", report.BeneficiaryID)
	notification.ExpenseReportSubmitted(emails, report.Title, beneficiary.Name, total.StringFixed(2))
}

func statusFor(err error) error {
	switch err.(type) {
	case apperrors.SelectionError, apperrors.AmountMismatchError:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case apperrors.StatePreconditionError:
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if ferr, ok := err.(*fiber.Error); ok {
		return ferr
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
