package reconciliation

import (
	"fmt"

	"assoc-backend/internal/apperrors"
	"assoc-backend/internal/audit"
	"assoc-backend/internal/auth"
	"assoc-backend/internal/config"
	"assoc-backend/internal/database"
	"assoc-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type operationResponse struct {
	models.Operation
	// JustifiedAmount: "0.00" when fully justified, the signed difference
	// otherwise, null when the operation has no validations yet.
	JustifiedAmount *string                      `json:"justified_amount"`
	Validations     []models.OperationValidation `json:"validations"`
}

type bulkActionRequest struct {
	OperationIDs []uint `json:"operation_ids"`
}

type allocateRequest struct {
	OperationID *uint            `json:"operation_id"`
	EventKind   models.EventKind `json:"event_kind"`
	EventID     uint             `json:"event_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Type        string           `json:"type"`
}

// GET /api/operations?year=&account_id=&justified=yes|no|unknown
func ListOperationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Operation{})

		if year := c.QueryInt("year", 0); year != 0 {
			dbq = dbq.Where("year = ?", year)
		}
		if accountID := c.QueryInt("account_id", 0); accountID != 0 {
			dbq = dbq.Where("account_id = ?", accountID)
		}

		var ops []models.Operation
		if err := dbq.Order("year desc, number desc").Find(&ops).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list operations")
		}

		validationsByOp, err := validationsByOperation(ops)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load validations")
		}

		justifiedFilter := c.Query("justified")
		out := make([]operationResponse, 0, len(ops))
		for _, op := range ops {
			vals := validationsByOp[op.ID]
			justified := JustifiedAmount(op, vals)

			switch justifiedFilter {
			case "yes":
				if justified == nil || !justified.IsZero() {
					continue
				}
			case "no":
				if justified == nil || justified.IsZero() {
					continue
				}
			case "unknown":
				if justified != nil {
					continue
				}
			case "":
			default:
				return fiber.NewError(fiber.StatusBadRequest, "justified must be yes, no or unknown")
			}

			resp := operationResponse{Operation: op, Validations: vals}
			if justified != nil {
				str := justified.StringFixed(2)
				resp.JustifiedAmount = &str
			}
			out = append(out, resp)
		}
		return c.JSON(out)
	}
}

// GET /api/operations/:id
func GetOperationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id is invalid")
		}

		var op models.Operation
		if err := database.DB.Preload("Account").First(&op, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Operation not found")
		}

		var vals []models.OperationValidation
		if err := database.DB.Find(&vals, "operation_id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load validations")
		}

		resp := operationResponse{Operation: op, Validations: vals}
		if justified := JustifiedAmount(op, vals); justified != nil {
			str := justified.StringFixed(2)
			resp.JustifiedAmount = &str
		}
		return c.JSON(resp)
	}
}

// POST /api/operations/actions/cancel-out
func CancelOutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bulkActionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		if err := CancelEachOtherOut(req.OperationIDs, userID); err != nil {
			return statusFor(err)
		}

		for _, id := range req.OperationIDs {
			audit.WriteLog(audit.LogOptions{
				UserID: userID, UserName: userName,
				EntityType: "operation", EntityID: id,
				Action:      models.AuditActionUpdate,
				Description: "Cancelled out against its counterpart",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// POST /api/operations/actions/mark-as-fee
func MarkAsFeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bulkActionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		if err := MarkAsFee(req.OperationIDs, userID); err != nil {
			return statusFor(err)
		}

		for _, id := range req.OperationIDs {
			audit.WriteLog(audit.LogOptions{
				UserID: userID, UserName: userName,
				EntityType: "operation", EntityID: id,
				Action:      models.AuditActionUpdate,
				Description: "Marked as bank fee / interests",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// POST /api/operations/actions/link-to-bill
func LinkToBillHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			bulkActionRequest
			BillID uint `json:"bill_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.BillID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "bill_id is required")
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		if err := LinkOperationsToBill(cfg, req.OperationIDs, req.BillID, userID); err != nil {
			return statusFor(err)
		}

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "bill", EntityID: req.BillID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%d operation(s) linked to bill", len(req.OperationIDs)),
			After:       req.OperationIDs,
		})
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// POST /api/operations/actions/link-to-signup
func LinkToSignupHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			bulkActionRequest
			SignupID uint `json:"signup_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.SignupID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "signup_id is required")
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		if err := LinkOperationsToSignup(cfg, req.OperationIDs, req.SignupID, userID); err != nil {
			return statusFor(err)
		}

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "signup", EntityID: req.SignupID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%d operation(s) linked to signup", len(req.OperationIDs)),
			After:       req.OperationIDs,
		})
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// POST /api/operations/:id/link-to-expense-report
func LinkToExpenseReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var opID uint
		if _, err := fmt.Sscan(c.Params("id"), &opID); err != nil || opID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id is invalid")
		}

		var req struct {
			ExpenseReportID uint `json:"expense_report_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.ExpenseReportID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "expense_report_id is required")
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		if err := LinkOperationToExpenseReport(opID, req.ExpenseReportID, userID); err != nil {
			return statusFor(err)
		}

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "operation", EntityID: opID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Linked to expense report %d", req.ExpenseReportID),
		})
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// POST /api/validations creates a manual validation.
func CreateValidationHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req allocateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.EventKind == "" || req.EventID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "event_kind and event_id are required")
		}
		vtype := models.ValidationType(req.Type)
		if req.Type == "" {
			vtype = models.ValidationTypeOther
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		ref := models.EventRef{Kind: req.EventKind, ID: req.EventID}
		v, err := Allocate(cfg, req.OperationID, ref, req.Amount, vtype, userID)
		if err != nil {
			return statusFor(err)
		}

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "operation_validation", EntityID: v.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Validation of %s against %s %d", v.Amount.StringFixed(2), v.EventKind, v.EventID),
			After:       v,
		})
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// GET /api/validations?operation_id=&event_kind=&event_id=
func ListValidationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.OperationValidation{})

		if opID := c.QueryInt("operation_id", 0); opID != 0 {
			dbq = dbq.Where("operation_id = ?", opID)
		}
		if kind := c.Query("event_kind"); kind != "" {
			dbq = dbq.Where("event_kind = ?", kind)
		}
		if eventID := c.QueryInt("event_id", 0); eventID != 0 {
			dbq = dbq.Where("event_id = ?", eventID)
		}

		var vals []models.OperationValidation
		if err := dbq.Order("id desc").Find(&vals).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list validations")
		}
		return c.JSON(vals)
	}
}

func validationsByOperation(ops []models.Operation) (map[uint][]models.OperationValidation, error) {
	if len(ops) == 0 {
		return map[uint][]models.OperationValidation{}, nil
	}
	ids := make([]uint, 0, len(ops))
	for _, op := range ops {
		ids = append(ids, op.ID)
	}

	var vals []models.OperationValidation
	if err := database.DB.Find(&vals, "operation_id IN ?", ids).Error; err != nil {
		return nil, err
	}

	byOp := make(map[uint][]models.OperationValidation, len(ops))
	for _, v := range vals {
		if v.OperationID != nil {
			byOp[*v.OperationID] = append(byOp[*v.OperationID], v)
		}
	}
	return byOp, nil
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
