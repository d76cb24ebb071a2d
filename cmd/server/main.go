package main

import (
	"strings"

	"assoc-backend/internal/admin"
	"assoc-backend/internal/audit"
	"assoc-backend/internal/auth"
	"assoc-backend/internal/config"
	"assoc-backend/internal/dashboard"
	"assoc-backend/internal/database"
	"assoc-backend/internal/expense"
	"assoc-backend/internal/importer"
	"assoc-backend/internal/mailinglist"
	"assoc-backend/internal/models"
	"assoc-backend/internal/notification"
	"assoc-backend/internal/reconciliation"
	"assoc-backend/internal/signup"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)
	notification.Init(cfg)
	listConnector := mailinglist.NewConnector(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Errorf("unexpected error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin-only
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/users", admin.CreateUserHandler())
	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Get("/accounts", admin.ListAccountsHandler())
	adminRoutes.Put("/accounts/:id/balance", admin.UpdateAccountBalanceHandler())

	// Statement import and reconciliation
	protected.Post("/operations/import", importer.ImportStatementHandler())
	protected.Get("/operations", reconciliation.ListOperationsHandler())
	protected.Get("/operations/:id", reconciliation.GetOperationHandler())
	protected.Post("/operations/actions/cancel-out", reconciliation.CancelOutHandler())
	protected.Post("/operations/actions/mark-as-fee", reconciliation.MarkAsFeeHandler())
	protected.Post("/operations/actions/link-to-bill", reconciliation.LinkToBillHandler(cfg))
	protected.Post("/operations/actions/link-to-signup", reconciliation.LinkToSignupHandler(cfg))
	protected.Post("/operations/:id/link-to-expense-report", reconciliation.LinkToExpenseReportHandler())

	protected.Post("/validations", reconciliation.CreateValidationHandler(cfg))
	protected.Get("/validations", reconciliation.ListValidationsHandler())

	// Signups and admission
	protected.Post("/signups", signup.CreateSignupHandler(cfg))
	protected.Get("/signups", signup.ListSignupsHandler(cfg))
	protected.Get("/signups/:id", signup.GetSignupHandler(cfg))
	protected.Put("/signups/:id/participants", signup.UpdateParticipantsHandler(cfg))
	protected.Post("/signups/:id/validate", signup.ValidateSignupHandler(cfg))
	protected.Post("/signups/:id/cancel", signup.CancelSignupHandler(cfg))
	protected.Post("/signups/:id/recheck", signup.RecheckSignupHandler(cfg))
	protected.Post("/signups/:id/unblock", signup.UnblockSignupHandler(cfg))
	protected.Post("/signups/:id/recalculate", signup.RecalculateBillHandler(cfg))
	protected.Get("/signups/:id/waiting-rank", signup.WaitingRankHandler(cfg))
	protected.Post("/signups/reminders", signup.SendRemindersHandler(cfg))

	// Expense reports
	protected.Post("/expense-reports", expense.CreateReportHandler(cfg))
	protected.Get("/expense-reports", expense.ListReportsHandler())
	protected.Get("/expense-reports/outstanding-total", expense.OutstandingTotalHandler())
	protected.Get("/expense-reports/:id", expense.GetReportHandler())
	protected.Post("/expense-reports/:id/validate", expense.ValidateReportHandler())
	protected.Post("/expense-reports/actions/merge", expense.MergeReportsHandler())

	// Mailing list
	protected.Get("/mailing-list/preview", mailinglist.PreviewHandler(cfg, listConnector))
	protected.Post("/mailing-list/sync", mailinglist.SyncHandler(cfg, listConnector))

	// Dashboard
	protected.Get("/dashboard", dashboard.SummaryHandler(cfg))

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())
	protected.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler())

	log.Infof("server listening on port %s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
