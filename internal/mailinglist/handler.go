package mailinglist

import (
	"fmt"

	"assoc-backend/internal/audit"
	"assoc-backend/internal/auth"
	"assoc-backend/internal/config"
	"assoc-backend/internal/database"
	"assoc-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// wantedEmails collects every address that belongs on the list: owners
// and participants of admitted signups for the season.
func wantedEmails(cfg *config.Config) ([]string, error) {
	var signups []models.Signup
	err := database.DB.Preload("Participants").Preload("Owner").
		Where("year = ? AND validated_at IS NOT NULL AND cancelled_at IS NULL AND on_hold = false", cfg.SeasonYear).
		Find(&signups).Error
	if err != nil {
		return nil, err
	}

	var emails []string
	for _, s := range signups {
		emails = append(emails, s.Owner.Email)
		for _, p := range s.Participants {
			if p.Email != "" {
				emails = append(emails, p.Email)
			}
		}
	}
	return emails, nil
}

func computeDiff(cfg *config.Config, connector Connector) (Diff, error) {
	if cfg.ListAPIBaseURL == "" {
		return Diff{}, fiber.NewError(fiber.StatusServiceUnavailable, "Mailing-list sync is not configured")
	}
	wanted, err := wantedEmails(cfg)
	if err != nil {
		return Diff{}, fiber.NewError(fiber.StatusInternalServerError, "Could not collect addresses")
	}
	subscribed, err := connector.Subscribers(cfg.MailingListName)
	if err != nil {
		return Diff{}, fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return Compute(wanted, subscribed), nil
}

// GET /api/mailing-list/preview
func PreviewHandler(cfg *config.Config, connector Connector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		diff, err := computeDiff(cfg, connector)
		if err != nil {
			return err
		}
		return c.JSON(diff)
	}
}

// POST /api/mailing-list/sync?mode=both|add|remove
func SyncHandler(cfg *config.Config, connector Connector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode := c.Query("mode", "both")
		if mode != "both" && mode != "add" && mode != "remove" {
			return fiber.NewError(fiber.StatusBadRequest, "mode must be both, add or remove")
		}

		diff, err := computeDiff(cfg, connector)
		if err != nil {
			return err
		}

		added, removed, failed := 0, 0, 0
		if mode == "both" || mode == "add" {
			for _, email := range diff.ToAdd {
				if err := connector.Subscribe(cfg.MailingListName, email); err != nil {
					log.Warnf("could not subscribe %s: %v", email, err)
					failed++
					continue
				}
				added++
			}
		}
		if mode == "both" || mode == "remove" {
			for _, email := range diff.ToRemove {
				if err := connector.Unsubscribe(cfg.MailingListName, email); err != nil {
					log.Warnf("could not unsubscribe %s: %v", email, err)
					failed++
					continue
				}
				removed++
			}
		}

		userID, userName, _ := auth.Actor(c)
		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType:  "mailing_list",
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("List %s synced (%s): %d added, %d removed, %d failed", cfg.MailingListName, mode, added, removed, failed),
		})
		return c.JSON(fiber.Map{"added": added, "removed": removed, "failed": failed})
	}
}
