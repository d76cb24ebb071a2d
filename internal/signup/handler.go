package signup

import (
	"fmt"
	"time"

	"assoc-backend/internal/apperrors"
	"assoc-backend/internal/audit"
	"assoc-backend/internal/auth"
	"assoc-backend/internal/config"
	"assoc-backend/internal/database"
	"assoc-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type participantRequest struct {
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Birthday        time.Time `json:"birthday"`
	City            string    `json:"city"`
	Country         string    `json:"country"`
	EBike           bool      `json:"e_bike"`
	Days            []bool    `json:"days"`
	ExtraActivities string    `json:"extra_activities"`
}

type createSignupRequest struct {
	OwnerID      uint                 `json:"owner_id"`
	Year         int                  `json:"year"`
	Participants []participantRequest `json:"participants"`
}

type signupResponse struct {
	models.Signup
	BillBalance *string `json:"bill_balance"`
	WaitRank    int     `json:"waiting_rank,omitempty"`
}

// POST /api/signups
func CreateSignupHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createSignupRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.OwnerID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "owner_id is required")
		}
		if len(req.Participants) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "At least one participant is required")
		}
		if req.Year == 0 {
			req.Year = cfg.SeasonYear
		}

		s := models.Signup{OwnerID: req.OwnerID, Year: req.Year}
		for _, p := range req.Participants {
			participant, err := toParticipant(p)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			s.Participants = append(s.Participants, participant)
		}

		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Could not create signup (one per owner per year)")
		}

		userID, userName, _ := auth.Actor(c)
		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "signup", EntityID: s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Signup created for owner %d, %d participants", s.OwnerID, len(s.Participants)),
			After:       s,
		})
		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// GET /api/signups?year=&status=pending|validated|on_hold|cancelled
func ListSignupsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Preload("Participants").Preload("Owner").Preload("Bill").
			Model(&models.Signup{})

		year := c.QueryInt("year", cfg.SeasonYear)
		dbq = dbq.Where("year = ?", year)

		switch c.Query("status") {
		case "pending":
			dbq = dbq.Where("validated_at IS NULL AND cancelled_at IS NULL")
		case "validated":
			dbq = dbq.Where("validated_at IS NOT NULL AND cancelled_at IS NULL AND on_hold = false")
		case "on_hold":
			dbq = dbq.Where("validated_at IS NOT NULL AND cancelled_at IS NULL AND on_hold = true")
		case "cancelled":
			dbq = dbq.Where("cancelled_at IS NOT NULL")
		case "":
		default:
			return fiber.NewError(fiber.StatusBadRequest, "status is invalid")
		}

		// Bills whose amount was overridden away from the pricing run.
		divergentOnly := c.QueryBool("divergent", false)

		var signups []models.Signup
		if err := dbq.Order("id").Find(&signups).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list signups")
		}

		out := make([]signupResponse, 0, len(signups))
		for _, s := range signups {
			if divergentOnly && (s.Bill == nil || s.Bill.Amount.Equal(s.Bill.CalculatedAmount)) {
				continue
			}
			resp := signupResponse{Signup: s}
			if s.Bill != nil {
				if balance, err := BillBalance(database.DB, *s.Bill); err == nil {
					str := balance.StringFixed(2)
					resp.BillBalance = &str
				}
			}
			out = append(out, resp)
		}
		return c.JSON(out)
	}
}

// GET /api/signups/:id
func GetSignupHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := signupFromParams(c)
		if err != nil {
			return err
		}

		resp := signupResponse{Signup: *s}
		if s.Bill != nil {
			if balance, berr := BillBalance(database.DB, *s.Bill); berr == nil {
				str := balance.StringFixed(2)
				resp.BillBalance = &str
			}
		}
		if s.OnHold {
			entries, werr := heldEntries(database.DB, s.Year)
			if werr == nil {
				resp.WaitRank = WaitlistRank(entries, cfg.PartialSignupOpensAt, s.ID)
			}
		}
		return c.JSON(resp)
	}
}

// PUT /api/signups/:id/participants replaces the participant list and
// reprices the bill.
func UpdateParticipantsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := signupFromParams(c)
		if err != nil {
			return err
		}
		if s.CancelledAt != nil {
			return fiber.NewError(fiber.StatusConflict, "Signup is cancelled")
		}

		var req struct {
			Participants []participantRequest `json:"participants"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if len(req.Participants) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "At least one participant is required")
		}

		before := s.Participants
		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.Participant{}, "signup_id = ?", s.ID).Error; err != nil {
				return err
			}
			for _, p := range req.Participants {
				participant, perr := toParticipant(p)
				if perr != nil {
					return fiber.NewError(fiber.StatusBadRequest, perr.Error())
				}
				participant.SignupID = s.ID
				if err := tx.Create(&participant).Error; err != nil {
					return err
				}
			}
			return UpdateBillForSignup(cfg, tx, s.ID)
		})
		if txErr != nil {
			return statusFor(txErr)
		}

		userID, userName, _ := auth.Actor(c)
		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "signup", EntityID: s.ID,
			Action:      models.AuditActionUpdate,
			Description: "Participants updated",
			Before:      before, After: req.Participants,
		})
		return c.JSON(fiber.Map{"status": "updated"})
	}
}

// POST /api/signups/:id/validate
func ValidateSignupHandler(cfg *config.Config) fiber.Handler {
	return transitionHandler(cfg, "Signup validated", func(cfg *config.Config, id, actorID uint) error {
		return Validate(cfg, id, actorID)
	})
}

// POST /api/signups/:id/cancel
func CancelSignupHandler(cfg *config.Config) fiber.Handler {
	return transitionHandler(cfg, "Signup cancelled", func(cfg *config.Config, id, actorID uint) error {
		return Cancel(cfg, id, actorID)
	})
}

// POST /api/signups/:id/recheck
func RecheckSignupHandler(cfg *config.Config) fiber.Handler {
	return transitionHandler(cfg, "Admission gates rechecked", func(cfg *config.Config, id, actorID uint) error {
		return Recheck(cfg, id)
	})
}

// POST /api/signups/:id/unblock
func UnblockSignupHandler(cfg *config.Config) fiber.Handler {
	return transitionHandler(cfg, "Signup unblocked from waiting list", func(cfg *config.Config, id, actorID uint) error {
		return Unblock(cfg, id, actorID)
	})
}

// POST /api/signups/:id/recalculate reprices the bill without touching
// participants, for when the tier configuration changed.
func RecalculateBillHandler(cfg *config.Config) fiber.Handler {
	return transitionHandler(cfg, "Bill recalculated", func(cfg *config.Config, id, actorID uint) error {
		return database.DB.Transaction(func(tx *gorm.DB) error {
			return UpdateBillForSignup(cfg, tx, id)
		})
	})
}

// POST /api/signups/reminders
func SendRemindersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sent, err := SendPaymentReminders(cfg)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not send reminders")
		}
		return c.JSON(fiber.Map{"sent": sent})
	}
}

// GET /api/signups/:id/waiting-rank
func WaitingRankHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := signupFromParams(c)
		if err != nil {
			return err
		}
		entries, err := heldEntries(database.DB, s.Year)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load waiting list")
		}
		return c.JSON(fiber.Map{
			"signup_id": s.ID,
			"rank":      WaitlistRank(entries, cfg.PartialSignupOpensAt, s.ID),
		})
	}
}

func transitionHandler(cfg *config.Config, description string, fn func(cfg *config.Config, id, actorID uint) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id is invalid")
		}

		userID, userName, err := auth.Actor(c)
		if err != nil {
			return err
		}

		if err := fn(cfg, id, userID); err != nil {
			return statusFor(err)
		}

		audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "signup", EntityID: id,
			Action:      models.AuditActionUpdate,
			Description: description,
		})
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// statusFor maps service errors onto HTTP statuses. Precondition failures
// are the caller's fault, everything else is ours.
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

func signupFromParams(c *fiber.Ctx) (*models.Signup, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "id is invalid")
	}
	var s models.Signup
	err := database.DB.Preload("Participants").Preload("Owner").Preload("Bill").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Signup not found")
	}
	return &s, nil
}

func toParticipant(req participantRequest) (models.Participant, error) {
	if req.FirstName == "" || req.LastName == "" {
		return models.Participant{}, fmt.Errorf("participant first and last name are required")
	}
	if req.Birthday.IsZero() {
		return models.Participant{}, fmt.Errorf("participant birthday is required")
	}

	p := models.Participant{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Birthday:        req.Birthday,
		City:            req.City,
		Country:         req.Country,
		EBike:           req.EBike,
		ExtraActivities: req.ExtraActivities,
		Day1:            true, Day2: true, Day3: true,
		Day4: true, Day5: true, Day6: true,
		Day7: true, Day8: true, Day9: true,
	}
	if len(req.Days) > 0 {
		if len(req.Days) != 9 {
			return models.Participant{}, fmt.Errorf("days must list all 9 event days")
		}
		p.Day1, p.Day2, p.Day3 = req.Days[0], req.Days[1], req.Days[2]
		p.Day4, p.Day5, p.Day6 = req.Days[3], req.Days[4], req.Days[5]
		p.Day7, p.Day8, p.Day9 = req.Days[6], req.Days[7], req.Days[8]
	}
	return p, nil
}
