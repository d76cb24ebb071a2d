package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Signup: one household's registration for a season. One per owner per
// year. Lifecycle: pending (validated_at null) -> validated -> possibly on
// hold (one flag per hold reason, OnHold is the OR of them) -> payed via
// its bill, or cancelled at any point.
type Signup struct {
	ID          uint `gorm:"primaryKey"`
	OwnerID     uint `gorm:"not null;uniqueIndex:idx_signups_owner_year"`
	Owner       User
	Year        int `gorm:"not null;uniqueIndex:idx_signups_owner_year"`
	CreatedAt   time.Time
	ValidatedAt *time.Time
	CancelledAt *time.Time

	OnHold        bool `gorm:"default:false"`
	OnHoldEBike   bool `gorm:"default:false"`
	OnHoldPartial bool `gorm:"default:false"`

	Participants []Participant
	Bill         *Bill

	// Filled by the resolver when the signup is the target of a validation.
	BillAmount decimal.Decimal `gorm:"-"`
}

func (s Signup) AmountDue() decimal.Decimal { return s.BillAmount }

func (s Signup) Label() string { return fmt.Sprintf("signup #%d", s.ID) }

// Complete reports whether every participant attends every event day.
func (s Signup) Complete() bool {
	for _, p := range s.Participants {
		if !p.Complete() {
			return false
		}
	}
	return true
}

// EBikeCount counts participants riding an electric bike.
func (s Signup) EBikeCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.EBike {
			n++
		}
	}
	return n
}

// Participant: one person within a signup. Day1..Day9 mirror the event
// days of the season; EBike drives the scarce-equipment cap.
type Participant struct {
	ID        uint `gorm:"primaryKey"`
	SignupID  uint `gorm:"index;not null"`
	FirstName string `gorm:"size:150;not null"`
	LastName  string `gorm:"size:150;not null"`
	Email     string `gorm:"size:255"`
	Phone     string `gorm:"size:30"`
	Birthday  time.Time `gorm:"not null"`
	City      string    `gorm:"size:150"`
	Country   string    `gorm:"size:150;default:Belgique"`
	EBike     bool      `gorm:"default:false"`

	Day1 bool `gorm:"default:true"`
	Day2 bool `gorm:"default:true"`
	Day3 bool `gorm:"default:true"`
	Day4 bool `gorm:"default:true"`
	Day5 bool `gorm:"default:true"`
	Day6 bool `gorm:"default:true"`
	Day7 bool `gorm:"default:true"`
	Day8 bool `gorm:"default:true"`
	Day9 bool `gorm:"default:true"`

	ExtraActivities string `gorm:"size:300"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p Participant) days() [9]bool {
	return [9]bool{p.Day1, p.Day2, p.Day3, p.Day4, p.Day5, p.Day6, p.Day7, p.Day8, p.Day9}
}

func (p Participant) Complete() bool {
	for _, d := range p.days() {
		if !d {
			return false
		}
	}
	return true
}

func (p Participant) DaysAttended() int {
	n := 0
	for _, d := range p.days() {
		if d {
			n++
		}
	}
	return n
}
