package admin

import (
	"fmt"

	"assoc-backend/internal/database"
	"assoc-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AccountResponse struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	IBAN           string `json:"iban"`
	CurrentBalance string `json:"current_balance"`
	Operations     int64  `json:"operations"`
}

// GET /api/admin/accounts
func ListAccountsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accounts []models.Account
		if err := database.DB.Order("id").Find(&accounts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list accounts")
		}

		res := make([]AccountResponse, 0, len(accounts))
		for _, a := range accounts {
			var count int64
			database.DB.Model(&models.Operation{}).Where("account_id = ?", a.ID).Count(&count)
			res = append(res, AccountResponse{
				ID:             a.ID,
				Name:           a.Name,
				IBAN:           a.IBAN,
				CurrentBalance: a.CurrentBalance.StringFixed(2),
				Operations:     count,
			})
		}
		return c.JSON(res)
	}
}

// PUT /api/admin/accounts/:id/balance records the balance shown on the
// latest paper statement. Informational only, nothing reconciles against it.
func UpdateAccountBalanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id is invalid")
		}

		var body struct {
			CurrentBalance string `json:"current_balance"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		balance, err := decimal.NewFromString(body.CurrentBalance)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "current_balance is invalid")
		}

		var account models.Account
		if err := database.DB.First(&account, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Account not found")
		}

		account.CurrentBalance = balance.Round(2)
		if err := database.DB.Save(&account).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update the account")
		}
		return c.JSON(fiber.Map{"status": "updated"})
	}
}
