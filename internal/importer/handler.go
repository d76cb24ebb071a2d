package importer

import (
	"bytes"
	"fmt"
	"io"

	"assoc-backend/internal/audit"
	"assoc-backend/internal/auth"
	"assoc-backend/internal/database"
	"assoc-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// POST /api/operations/import?format=bpost|fortis
// The statement file goes in the "file" multipart field.
func ImportStatementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := c.Query("format")
		var parse func(io.Reader) ([]ParsedOperation, error)
		switch format {
		case "bpost":
			parse = ParseBPost
		case "fortis":
			parse = ParseFortis
		default:
			return fiber.NewError(fiber.StatusBadRequest, "format must be bpost or fortis")
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read the uploaded file")
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read the uploaded file")
		}

		parsed, err := parse(bytes.NewReader(content))
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		var result *ImportResult
		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = Import(tx, parsed)
			return err
		})
		if txErr != nil {
			return fiber.NewError(fiber.StatusInternalServerError, txErr.Error())
		}

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType:  "statement_import",
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s statement %s: %d created, %d skipped", format, fileHeader.Filename, result.Created, result.Skipped),
			After:       result,
		})
		return c.JSON(result)
	}
}
