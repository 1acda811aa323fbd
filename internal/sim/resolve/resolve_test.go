package resolve

import (
	"errors"
	"math"
	"testing"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

func baseState() game.GameState {
	return game.GameState{
		Difficulty:    game.IndieBootstrap,
		Week:          3,
		Bank:          50000,
		Burn:          8000,
		FocusSlots:    3,
		Morale:        80,
		Reputation:    50,
		Velocity:      1,
		FounderEquity: 100,
		Roster:        game.NewRoster("Founder", 0),
	}
}

func TestApply_InOrderAddThenMul(t *testing.T) {
	s := baseState()
	err := Apply(&s, []game.Effect{
		game.Add(game.StatMorale, 10, ""),
		game.Mul(game.StatMorale, 0.5, ""),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.Morale != 45 {
		t.Fatalf("expected (80+10)*0.5=45, got %v", s.Morale)
	}

	s = baseState()
	_ = Apply(&s, []game.Effect{
		game.Mul(game.StatMorale, 0.5, ""),
		game.Add(game.StatMorale, 10, ""),
	})
	if s.Morale != 50 {
		t.Fatalf("expected 80*0.5+10=50, got %v", s.Morale)
	}
}

func TestApply_ClampsOnlyAtFinalize(t *testing.T) {
	s := baseState()
	_ = Apply(&s, []game.Effect{
		game.Add(game.StatMorale, 40, ""),
		game.Add(game.StatMorale, -30, ""),
	})
	Finalize(&s, 2)
	if s.Morale != 90 {
		t.Fatalf("intermediate overshoot should not be clamped, got %v", s.Morale)
	}

	s = baseState()
	_ = Apply(&s, []game.Effect{game.Add(game.StatMorale, 500, ""), game.Mul(game.StatVelocity, 100, "")})
	Finalize(&s, 2)
	if s.Morale != 100 || s.Velocity != MaxVelocity {
		t.Fatalf("clamp failed: morale=%v velocity=%v", s.Morale, s.Velocity)
	}
}

func TestApply_DelayedEffectsLandOnDueWeek(t *testing.T) {
	s := baseState()
	e := game.Add(game.StatVelocity, 0.1, "refactor_code")
	e.DelayWeeks = 2
	if err := Apply(&s, []game.Effect{e}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.Velocity != 1 || len(s.PendingEffects) != 1 || s.PendingEffects[0].DueWeek != 5 {
		t.Fatalf("effect should be parked: %+v", s.PendingEffects)
	}
	s.Week = 4
	if due := ApplyDue(&s); len(due) != 0 {
		t.Fatalf("nothing due in week 4: %+v", due)
	}
	s.Week = 5
	if due := ApplyDue(&s); len(due) != 1 {
		t.Fatalf("expected one due effect, got %+v", due)
	}
	if math.Abs(s.Velocity-1.1) > 1e-9 || len(s.PendingEffects) != 0 {
		t.Fatalf("due effect not applied: v=%v pending=%+v", s.Velocity, s.PendingEffects)
	}
}

func TestApply_RejectsBeforeMutating(t *testing.T) {
	s := baseState()
	err := Apply(&s, []game.Effect{
		game.Add(game.StatMorale, 5, ""),
		game.Add(game.StatRunway, 5, ""),
	})
	var ise *game.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if s.Morale != 80 {
		t.Fatalf("state mutated on rejected bundle: %v", s.Morale)
	}
}

func equitySum(s game.GameState) float64 {
	return s.FounderEquity + s.OptionPool + s.InvestorShare
}

func TestEquity_DilutionAndPoolKeepSum(t *testing.T) {
	s := baseState()
	_ = Apply(&s, []game.Effect{
		game.Add(game.StatOptionPool, 10, ""),
		game.Add(game.StatDilution, 20, ""),
		game.Add(game.StatDilution, 15, ""),
	})
	Finalize(&s, 2)
	if math.Abs(equitySum(s)-100) > 1e-6 {
		t.Fatalf("equity sum %v", equitySum(s))
	}
	// 90 * 0.8 * 0.85 = 61.2
	if math.Abs(s.FounderEquity-61.2) > 1e-9 {
		t.Fatalf("founder equity %v", s.FounderEquity)
	}
	if math.Abs(s.OptionPool-6.8) > 1e-9 {
		t.Fatalf("option pool %v", s.OptionPool)
	}
}

func TestFocusSlots_Floor(t *testing.T) {
	s := baseState()
	_ = Apply(&s, []game.Effect{game.Add(game.StatFocusSlots, -5, "")})
	Finalize(&s, 2)
	if s.FocusSlots != 2 {
		t.Fatalf("focus slots should floor at 2, got %d", s.FocusSlots)
	}
}

func TestDerive_RunwayAndMomentum(t *testing.T) {
	s := baseState()
	s.WAUGrowthRate = 10
	Finalize(&s, 2)
	if s.RunwayMonths != 50000.0/8000.0 {
		t.Fatalf("runway %v", s.RunwayMonths)
	}
	if math.Abs(s.Momentum-1.1*1*0.8) > 1e-9 {
		t.Fatalf("momentum %v", s.Momentum)
	}
	s.Bank = -10
	Derive(&s)
	if s.RunwayMonths != 0 {
		t.Fatalf("negative bank should give zero runway, got %v", s.RunwayMonths)
	}
}

func TestScaleHarmful(t *testing.T) {
	effs := ScaleHarmful([]game.Effect{
		game.Add(game.StatMorale, -10, ""),
		game.Add(game.StatMorale, 10, ""),
		game.Add(game.StatTechDebt, 10, ""),
		game.Mul(game.StatVelocity, 0.9, ""),
	}, 1.5)
	want := []float64{-15, 10, 15, 0.85}
	for i, e := range effs {
		if math.Abs(e.Value-want[i]) > 1e-9 {
			t.Fatalf("effect %d: got %v want %v", i, e.Value, want[i])
		}
	}
}
