package signup

import "time"

// GateInput is everything the admission gates look at, snapshotted so the
// decision is a pure function of its input.
type GateInput struct {
	Now            time.Time
	PartialOpensAt time.Time

	// About the signup being admitted.
	Complete         bool
	ParticipantCount int
	EBikeCount       int

	// Season-wide occupation, counting validated, not-held, not-cancelled
	// signups only.
	AdmittedParticipants int
	AdmittedEBikes       int

	MaxParticipants int
	MaxEBikes       int
}

// Holds carries one flag per gate. The gates are independent: all three
// are evaluated even when an earlier one already holds the signup, so the
// flags describe every reason at once.
type Holds struct {
	Partial bool
	EBike   bool
	Total   bool
}

func (h Holds) Any() bool { return h.Partial || h.EBike || h.Total }

// EvaluateGates decides whether a signup is admitted now or put on hold.
func EvaluateGates(in GateInput) Holds {
	var h Holds
	if !in.Complete && in.Now.Before(in.PartialOpensAt) {
		h.Partial = true
	}
	if in.EBikeCount > 0 && in.AdmittedEBikes+in.EBikeCount > in.MaxEBikes {
		h.EBike = true
	}
	if in.AdmittedParticipants+in.ParticipantCount > in.MaxParticipants {
		h.Total = true
	}
	return h
}
