package signup

import (
	"testing"
	"time"
)

var (
	opensAt    = time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)
	beforeOpen = opensAt.Add(-24 * time.Hour)
	afterOpen  = opensAt.Add(24 * time.Hour)
)

func baseInput() GateInput {
	return GateInput{
		Now:                  afterOpen,
		PartialOpensAt:       opensAt,
		Complete:             true,
		ParticipantCount:     2,
		EBikeCount:           0,
		AdmittedParticipants: 0,
		AdmittedEBikes:       0,
		MaxParticipants:      135,
		MaxEBikes:            20,
	}
}

func TestEvaluateGatesAdmitsWhenAllPass(t *testing.T) {
	if h := EvaluateGates(baseInput()); h.Any() {
		t.Fatalf("expected no holds, got %+v", h)
	}
}

func TestEvaluateGatesPartialBeforeOpening(t *testing.T) {
	in := baseInput()
	in.Complete = false
	in.Now = beforeOpen

	h := EvaluateGates(in)
	if !h.Partial {
		t.Fatal("partial signup before opening date should be held")
	}
	if h.EBike || h.Total {
		t.Fatalf("only the partial gate should hold, got %+v", h)
	}
}

func TestEvaluateGatesPartialAfterOpening(t *testing.T) {
	in := baseInput()
	in.Complete = false
	in.Now = afterOpen

	if h := EvaluateGates(in); h.Partial {
		t.Fatal("partial signup after opening date should pass")
	}
}

func TestEvaluateGatesEBikeCap(t *testing.T) {
	in := baseInput()
	in.EBikeCount = 2
	in.AdmittedEBikes = 19

	h := EvaluateGates(in)
	if !h.EBike {
		t.Fatal("19 admitted + 2 requested over a cap of 20 should hold")
	}

	in.AdmittedEBikes = 18
	if h := EvaluateGates(in); h.EBike {
		t.Fatal("18 admitted + 2 requested fits exactly in a cap of 20")
	}
}

func TestEvaluateGatesEBikeCapIgnoresSignupsWithoutEBikes(t *testing.T) {
	in := baseInput()
	in.EBikeCount = 0
	in.AdmittedEBikes = 25 // over cap already, via treasurer overrides

	if h := EvaluateGates(in); h.EBike {
		t.Fatal("a signup without e-bikes must not be held by the e-bike cap")
	}
}

func TestEvaluateGatesTotalCap(t *testing.T) {
	in := baseInput()
	in.ParticipantCount = 3
	in.AdmittedParticipants = 133

	h := EvaluateGates(in)
	if !h.Total {
		t.Fatal("133 admitted + 3 requested over a cap of 135 should hold")
	}

	in.AdmittedParticipants = 132
	if h := EvaluateGates(in); h.Total {
		t.Fatal("132 admitted + 3 requested fits exactly in a cap of 135")
	}
}

func TestEvaluateGatesReportsEveryReason(t *testing.T) {
	in := baseInput()
	in.Complete = false
	in.Now = beforeOpen
	in.EBikeCount = 1
	in.AdmittedEBikes = 20
	in.ParticipantCount = 1
	in.AdmittedParticipants = 135

	h := EvaluateGates(in)
	if !h.Partial || !h.EBike || !h.Total {
		t.Fatalf("all three gates should report, got %+v", h)
	}
}
