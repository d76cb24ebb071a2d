// Package signup drives the admission state machine: validation, the
// three admission gates, the waiting list and the bill attached to every
// admitted signup.
package signup

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"assoc-backend/internal/apperrors"
	"assoc-backend/internal/config"
	"assoc-backend/internal/database"
	"assoc-backend/internal/models"
	"assoc-backend/internal/notification"
	"assoc-backend/internal/pricing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// serializable guards the admit decision: two concurrent validations must
// not both read the same free capacity and both admit.
var serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

// admissionPrecondition rejects validation of signups the state machine
// has already moved past: cancelled ones, and admitted ones, whose place
// must not be gambled again against current capacity. Held signups go
// through Recheck or Unblock instead of a second validation.
func admissionPrecondition(s *models.Signup) error {
	if s.CancelledAt != nil {
		return apperrors.StatePreconditionError{Msg: "Signup is cancelled"}
	}
	if s.ValidatedAt != nil && !s.OnHold {
		return apperrors.StatePreconditionError{Msg: "Signup is already admitted"}
	}
	return nil
}

// Validate confirms a pending signup and runs it through the admission
// gates. Admitted signups get a bill, held signups a waiting-list mail.
func Validate(cfg *config.Config, signupID uint, actorID uint) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var s models.Signup
		if err := tx.Preload("Participants").Preload("Owner").
			First(&s, "id = ?", signupID).Error; err != nil {
			return fmt.Errorf("signup not found: %w", err)
		}
		if err := admissionPrecondition(&s); err != nil {
			return err
		}
		if s.ValidatedAt == nil {
			now := time.Now()
			s.ValidatedAt = &now
		}
		return runGates(cfg, tx, &s)
	}, serializable)
}

// Recheck re-runs the gates for a held signup, typically after a
// cancellation freed capacity or after the partial-signup date passed.
func Recheck(cfg *config.Config, signupID uint) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var s models.Signup
		if err := tx.Preload("Participants").Preload("Owner").
			First(&s, "id = ?", signupID).Error; err != nil {
			return fmt.Errorf("signup not found: %w", err)
		}
		if s.CancelledAt != nil {
			return apperrors.StatePreconditionError{Msg: "Signup is cancelled"}
		}
		if s.ValidatedAt == nil {
			return apperrors.StatePreconditionError{Msg: "Signup is not validated yet"}
		}
		if !s.OnHold {
			return nil
		}
		return runGates(cfg, tx, &s)
	}, serializable)
}

// Unblock is the treasurer's override: admit a held signup regardless of
// what the gates say. Capacity may end up over-allocated, which is the
// treasurer's call to make.
func Unblock(cfg *config.Config, signupID uint, actorID uint) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var s models.Signup
		if err := tx.Preload("Participants").Preload("Owner").
			First(&s, "id = ?", signupID).Error; err != nil {
			return fmt.Errorf("signup not found: %w", err)
		}
		if s.CancelledAt != nil {
			return apperrors.StatePreconditionError{Msg: "Signup is cancelled"}
		}
		if !s.OnHold {
			return apperrors.StatePreconditionError{Msg: "Signup is not on hold"}
		}
		return admit(cfg, tx, &s, true)
	}, serializable)
}

// Cancel closes a signup. Participants are deleted, the bill stops
// accepting payments but is kept for the books, and the freed capacity is
// offered to the waiting list.
func Cancel(cfg *config.Config, signupID uint, actorID uint) error {
	var freed bool
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var s models.Signup
		if err := tx.First(&s, "id = ?", signupID).Error; err != nil {
			return fmt.Errorf("signup not found: %w", err)
		}
		if s.CancelledAt != nil {
			return apperrors.StatePreconditionError{Msg: "Signup is already cancelled"}
		}
		now := time.Now()
		s.CancelledAt = &now
		freed = s.ValidatedAt != nil && !s.OnHold
		if err := tx.Delete(&models.Participant{}, "signup_id = ?", s.ID).Error; err != nil {
			return err
		}
		return tx.Save(&s).Error
	})
	if err != nil {
		return err
	}
	if freed {
		ProcessWaitlist(cfg)
	}
	return nil
}

// ProcessWaitlist walks the waiting list in rank order and admits every
// signup the gates now let through. It stops at the first signup still
// held so ranks are respected: a smaller household further down the list
// does not jump the queue.
func ProcessWaitlist(cfg *config.Config) {
	for {
		admitted, err := admitNextFromWaitlist(cfg)
		if err != nil {
			log.Warnf("waitlist processing stopped: %v", err)
			return
		}
		if !admitted {
			return
		}
	}
}

func admitNextFromWaitlist(cfg *config.Config) (bool, error) {
	var admitted bool
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		entries, err := heldEntries(tx, cfg.SeasonYear)
		if err != nil {
			return err
		}
		sorted := SortWaitlist(entries, cfg.PartialSignupOpensAt)
		if len(sorted) == 0 {
			return nil
		}

		var s models.Signup
		if err := tx.Preload("Participants").Preload("Owner").
			First(&s, "id = ?", sorted[0].SignupID).Error; err != nil {
			return err
		}
		holds, err := evaluateFor(cfg, tx, &s)
		if err != nil {
			return err
		}
		if holds.Any() {
			return nil
		}
		if err := admit(cfg, tx, &s, true); err != nil {
			return err
		}
		admitted = true
		return nil
	}, serializable)
	return admitted, err
}

// runGates evaluates the gates and either admits or holds the signup.
func runGates(cfg *config.Config, tx *gorm.DB, s *models.Signup) error {
	holds, err := evaluateFor(cfg, tx, s)
	if err != nil {
		return err
	}
	if !holds.Any() {
		return admit(cfg, tx, s, false)
	}

	s.OnHold = true
	s.OnHoldPartial = holds.Partial
	s.OnHoldEBike = holds.EBike
	if err := tx.Save(s).Error; err != nil {
		return err
	}

	entries, err := heldEntries(tx, cfg.SeasonYear)
	if err != nil {
		return err
	}
	rank := WaitlistRank(entries, cfg.PartialSignupOpensAt, s.ID)
	notification.WaitingList(s.Owner.Email, rank)
	return nil
}

func evaluateFor(cfg *config.Config, tx *gorm.DB, s *models.Signup) (Holds, error) {
	participants, ebikes, err := occupation(tx, cfg.SeasonYear, s.ID)
	if err != nil {
		return Holds{}, err
	}
	return EvaluateGates(GateInput{
		Now:                  time.Now(),
		PartialOpensAt:       cfg.PartialSignupOpensAt,
		Complete:             s.Complete(),
		ParticipantCount:     len(s.Participants),
		EBikeCount:           s.EBikeCount(),
		AdmittedParticipants: participants,
		AdmittedEBikes:       ebikes,
		MaxParticipants:      cfg.MaxParticipants,
		MaxEBikes:            cfg.MaxEBikeParticipants,
	}), nil
}

// admit clears the hold flags and creates the bill. fromWaitlist switches
// the confirmation mail.
func admit(cfg *config.Config, tx *gorm.DB, s *models.Signup, fromWaitlist bool) error {
	wasHeld := s.OnHold
	s.OnHold = false
	s.OnHoldPartial = false
	s.OnHoldEBike = false
	if err := tx.Save(s).Error; err != nil {
		return err
	}

	bill, err := upsertBill(cfg, tx, s)
	if err != nil {
		return err
	}
	// A zero-total bill settles on the spot.
	if err := SettleBill(cfg, tx, bill.ID); err != nil {
		return err
	}

	admissionMail(fromWaitlist || wasHeld, s.Owner.Email,
		bill.Amount.StringFixed(2), cfg.PartialSignupOpensAt.Format("02/01/2006"))
	return nil
}

// admissionMail sends exactly one confirmation per admission: the
// waitlist-release variant when the signup had been held, the plain
// validation mail otherwise. Both carry the amount due.
func admissionMail(wasHeld bool, email, amount, partialOpen string) {
	if wasHeld {
		notification.WaitingListUnblocked(email, amount)
		return
	}
	notification.SignupValidated(email, amount, partialOpen)
}

// upsertBill prices the signup and creates or refreshes its bill.
func upsertBill(cfg *config.Config, tx *gorm.DB, s *models.Signup) (*models.Bill, error) {
	amount, explanation, err := quoteSignup(cfg, s)
	if err != nil {
		return nil, err
	}

	var bill models.Bill
	err = tx.First(&bill, "signup_id = ?", s.ID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		bill = models.Bill{
			SignupID:         s.ID,
			Amount:           amount,
			Calculation:      explanation,
			CalculatedAmount: amount,
		}
		if err := tx.Create(&bill).Error; err != nil {
			return nil, err
		}
		return &bill, nil
	case err != nil:
		return nil, err
	}

	// Bill already exists: apply the delta so payments keep their meaning.
	delta := amount.Sub(bill.CalculatedAmount)
	bill.Amount = bill.Amount.Add(delta).Round(2)
	bill.Calculation = explanation
	bill.CalculatedAmount = amount
	if err := tx.Save(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// UpdateBillForSignup reprices after a participant change. The bill moves
// by the difference between the new and the previous calculated amount,
// never to the new amount directly, so payments already received stay
// accounted for. A no-op for signups without a bill.
func UpdateBillForSignup(cfg *config.Config, tx *gorm.DB, signupID uint) error {
	var s models.Signup
	if err := tx.Preload("Participants").Preload("Owner").
		First(&s, "id = ?", signupID).Error; err != nil {
		return err
	}

	var bill models.Bill
	if err := tx.First(&bill, "signup_id = ?", signupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	amount, explanation, err := quoteSignup(cfg, &s)
	if err != nil {
		return err
	}

	delta := amount.Sub(bill.CalculatedAmount)
	bill.Calculation = explanation
	bill.CalculatedAmount = amount
	if !delta.IsZero() {
		bill.Amount = bill.Amount.Add(delta).Round(2)
	}
	if err := tx.Save(&bill).Error; err != nil {
		return err
	}

	if !delta.IsZero() {
		notification.BillModified(s.Owner.Email, bill.Amount.StringFixed(2))
	}
	return SettleBill(cfg, tx, bill.ID)
}

// SettleBill recomputes the bill's balance from its payments and records
// the payed date the first time the balance reaches zero. PayedAt is
// never cleared afterwards: a later price increase reopens the balance
// but not the payment confirmation.
func SettleBill(cfg *config.Config, tx *gorm.DB, billID uint) error {
	var bill models.Bill
	if err := tx.Preload("Signup.Owner").First(&bill, "id = ?", billID).Error; err != nil {
		return err
	}

	paid, err := billPaidSum(tx, bill)
	if err != nil {
		return err
	}
	balance := bill.Amount.Sub(paid)

	if balance.IsPositive() || bill.PayedAt != nil {
		return nil
	}

	now := time.Now()
	bill.PayedAt = &now
	bill.AmountPayedAt = paid
	if err := tx.Save(&bill).Error; err != nil {
		return err
	}

	// Nobody needs a payment confirmation once the event is over.
	if now.Before(cfg.EventLastDay.AddDate(0, 0, 1)) {
		notification.PaymentConfirmation(bill.Signup.Owner.Email)
	}
	return nil
}

// SendPaymentReminders mails every admitted signup that still owes money.
func SendPaymentReminders(cfg *config.Config) (int, error) {
	var bills []models.Bill
	err := database.DB.Preload("Signup.Owner").
		Joins("JOIN signups ON signups.id = bills.signup_id").
		Where("signups.year = ? AND signups.cancelled_at IS NULL AND signups.on_hold = false", cfg.SeasonYear).
		Find(&bills).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, bill := range bills {
		paid, err := billPaidSum(database.DB, bill)
		if err != nil {
			return sent, err
		}
		balance := bill.Amount.Sub(paid)
		if !balance.IsPositive() {
			continue
		}
		notification.PaymentReminder(bill.Signup.Owner.Email, balance.StringFixed(2))
		sent++
	}
	return sent, nil
}

// BillBalance is amount minus the sum of payments, computed on demand.
func BillBalance(tx *gorm.DB, bill models.Bill) (decimal.Decimal, error) {
	paid, err := billPaidSum(tx, bill)
	if err != nil {
		return decimal.Zero, err
	}
	return bill.Amount.Sub(paid).Round(2), nil
}

// paysBill reports whether a validation counts as a payment on the bill.
// Treasurers allocate either against the bill or against its signup
// directly; both settle the same debt.
func paysBill(v models.OperationValidation, bill models.Bill) bool {
	switch v.EventKind {
	case models.EventKindBill:
		return v.EventID == bill.ID
	case models.EventKindSignup:
		return v.EventID == bill.SignupID
	}
	return false
}

func paidSum(bill models.Bill, validations []models.OperationValidation) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range validations {
		if paysBill(v, bill) {
			sum = sum.Add(v.Amount)
		}
	}
	return sum
}

func billPaidSum(tx *gorm.DB, bill models.Bill) (decimal.Decimal, error) {
	var payments []models.OperationValidation
	err := tx.
		Where("(event_kind = ? AND event_id = ?) OR (event_kind = ? AND event_id = ?)",
			models.EventKindBill, bill.ID, models.EventKindSignup, bill.SignupID).
		Find(&payments).Error
	if err != nil {
		return decimal.Zero, err
	}
	return paidSum(bill, payments), nil
}

// quoteSignup runs the pricing engine over the signup's participants.
func quoteSignup(cfg *config.Config, s *models.Signup) (decimal.Decimal, string, error) {
	attendees := make([]pricing.Attendee, 0, len(s.Participants))
	for _, p := range s.Participants {
		attendees = append(attendees, pricing.Attendee{
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			Birthday:     p.Birthday,
			Complete:     p.Complete(),
			DaysAttended: p.DaysAttended(),
		})
	}
	return pricing.Quote(attendees, cfg.PriceTiers, cfg.TotalEventDays, cfg.EventLastDay)
}

// occupation counts admitted participants and e-bikes for the season,
// excluding the signup under evaluation so rechecks do not count it twice.
func occupation(tx *gorm.DB, year int, excludeSignupID uint) (int, int, error) {
	var participants []models.Participant
	err := tx.
		Joins("JOIN signups ON signups.id = participants.signup_id").
		Where("signups.year = ? AND signups.validated_at IS NOT NULL AND signups.cancelled_at IS NULL AND signups.on_hold = false AND signups.id <> ?",
			year, excludeSignupID).
		Find(&participants).Error
	if err != nil {
		return 0, 0, err
	}
	total, ebikes := len(participants), 0
	for _, p := range participants {
		if p.EBike {
			ebikes++
		}
	}
	return total, ebikes, nil
}

// heldEntries loads the season's waiting list, unsorted.
func heldEntries(tx *gorm.DB, year int) ([]WaitlistEntry, error) {
	var signups []models.Signup
	err := tx.Preload("Participants").
		Where("year = ? AND validated_at IS NOT NULL AND cancelled_at IS NULL AND on_hold = true", year).
		Find(&signups).Error
	if err != nil {
		return nil, err
	}
	entries := make([]WaitlistEntry, 0, len(signups))
	for _, s := range signups {
		entries = append(entries, WaitlistEntry{
			SignupID:    s.ID,
			ValidatedAt: s.ValidatedAt,
			Partial:     !s.Complete(),
		})
	}
	return entries, nil
}
