// Package dashboard aggregates the numbers the treasurer checks daily.
package dashboard

import (
	"assoc-backend/internal/config"
	"assoc-backend/internal/database"
	"assoc-backend/internal/expense"
	"assoc-backend/internal/models"
	"assoc-backend/internal/reconciliation"
	"assoc-backend/internal/signup"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type summary struct {
	SeasonYear int `json:"season_year"`

	OperationsTotal       int `json:"operations_total"`
	OperationsUnjustified int `json:"operations_unjustified"`
	OperationsUnknown     int `json:"operations_unknown"` // no validations yet

	SignupsPending   int `json:"signups_pending"`
	SignupsAdmitted  int `json:"signups_admitted"`
	WaitingListSize  int `json:"waiting_list_size"`
	ParticipantsUsed int `json:"participants_used"`
	ParticipantsCap  int `json:"participants_cap"`
	EBikesUsed       int `json:"e_bikes_used"`
	EBikesCap        int `json:"e_bikes_cap"`

	BillsUnpaid      int    `json:"bills_unpaid"`
	BillsOutstanding string `json:"bills_outstanding"`
	ExpensesToRefund string `json:"expenses_to_refund"`
	AccountsBalance  string `json:"accounts_balance"`
}

// GET /api/dashboard
func SummaryHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out := summary{
			SeasonYear:      cfg.SeasonYear,
			ParticipantsCap: cfg.MaxParticipants,
			EBikesCap:       cfg.MaxEBikeParticipants,
		}

		var ops []models.Operation
		if err := database.DB.Find(&ops).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load operations")
		}
		out.OperationsTotal = len(ops)

		var validations []models.OperationValidation
		if err := database.DB.Find(&validations, "operation_id IS NOT NULL").Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load validations")
		}
		byOp := map[uint][]models.OperationValidation{}
		for _, v := range validations {
			byOp[*v.OperationID] = append(byOp[*v.OperationID], v)
		}
		for _, op := range ops {
			justified := reconciliation.JustifiedAmount(op, byOp[op.ID])
			switch {
			case justified == nil:
				out.OperationsUnknown++
			case !justified.IsZero():
				out.OperationsUnjustified++
			}
		}

		var signups []models.Signup
		err := database.DB.Preload("Participants").
			Where("year = ? AND cancelled_at IS NULL", cfg.SeasonYear).
			Find(&signups).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load signups")
		}
		for _, s := range signups {
			switch {
			case s.ValidatedAt == nil:
				out.SignupsPending++
			case s.OnHold:
				out.WaitingListSize++
			default:
				out.SignupsAdmitted++
				out.ParticipantsUsed += len(s.Participants)
				out.EBikesUsed += s.EBikeCount()
			}
		}

		var bills []models.Bill
		err = database.DB.
			Joins("JOIN signups ON signups.id = bills.signup_id").
			Where("signups.year = ? AND signups.cancelled_at IS NULL", cfg.SeasonYear).
			Find(&bills).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load bills")
		}
		outstanding := decimal.Zero
		for _, bill := range bills {
			balance, berr := signup.BillBalance(database.DB, bill)
			if berr != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not compute bill balances")
			}
			if balance.IsPositive() {
				out.BillsUnpaid++
				outstanding = outstanding.Add(balance)
			}
		}
		out.BillsOutstanding = outstanding.StringFixed(2)

		expensesDue, err := expense.OutstandingTotal(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not compute expense totals")
		}
		out.ExpensesToRefund = expensesDue.StringFixed(2)

		var accounts []models.Account
		if err := database.DB.Find(&accounts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load accounts")
		}
		balance := decimal.Zero
		for _, a := range accounts {
			balance = balance.Add(a.CurrentBalance)
		}
		out.AccountsBalance = balance.StringFixed(2)

		return c.JSON(out)
	}
}
