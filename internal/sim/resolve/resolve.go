// Package resolve applies ordered effect bundles to a game state.
//
// Apply never clamps. Every stage of a turn runs against raw values and
// Finalize runs once at the end.
package resolve

import (
	"fmt"
	"math"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

const (
	MaxFocusSlots = 8
	MinVelocity   = 0.1
	MaxVelocity   = 3.0
)

// Validate rejects effects that cannot be applied. It runs before any
// mutation so a bad bundle leaves the state untouched.
func Validate(effs []game.Effect) error {
	for _, e := range effs {
		if !e.Stat.Writable() {
			return &game.InvalidStateError{Reason: fmt.Sprintf("effect on non-writable stat %q", e.Stat)}
		}
		switch e.Op {
		case "", game.OpAdd, game.OpMul:
		default:
			return &game.InvalidStateError{Reason: fmt.Sprintf("effect op %q", e.Op)}
		}
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			return &game.InvalidStateError{Reason: fmt.Sprintf("effect on %s is not finite", e.Stat)}
		}
		if e.DelayWeeks < 0 {
			return &game.InvalidStateError{Reason: "negative effect delay"}
		}
	}
	return nil
}

// Apply validates effs and then applies them in order. Delayed effects are
// parked until their week.
func Apply(s *game.GameState, effs []game.Effect) error {
	if err := Validate(effs); err != nil {
		return err
	}
	for _, e := range effs {
		if e.DelayWeeks > 0 {
			due := s.Week + e.DelayWeeks
			e.DelayWeeks = 0
			s.PendingEffects = append(s.PendingEffects, game.PendingEffect{DueWeek: due, Effect: e})
			continue
		}
		applyOne(s, e)
	}
	return nil
}

// ApplyDue applies every parked effect whose week has come, oldest first,
// and returns them.
func ApplyDue(s *game.GameState) []game.Effect {
	if len(s.PendingEffects) == 0 {
		return nil
	}
	var due []game.Effect
	keep := s.PendingEffects[:0:0]
	for _, p := range s.PendingEffects {
		if p.DueWeek <= s.Week {
			due = append(due, p.Effect)
			continue
		}
		keep = append(keep, p)
	}
	s.PendingEffects = keep
	for _, e := range due {
		applyOne(s, e)
	}
	return due
}

func applyOne(s *game.GameState, e game.Effect) {
	switch e.Stat {
	case game.StatFocusSlots:
		s.FocusSlots = int(math.Round(combine(float64(s.FocusSlots), e)))
	case game.StatIncidents:
		s.Incidents = int(math.Round(combine(float64(s.Incidents), e)))
	case game.StatDilution:
		d := e.Value
		if e.Multiplicative() {
			d = s.InvestorShare * (e.Value - 1)
		}
		Dilute(s, d)
	case game.StatOptionPool:
		d := e.Value
		if e.Multiplicative() {
			d = s.OptionPool * (e.Value - 1)
		}
		GrowOptionPool(s, d)
	default:
		if p := s.Ref(e.Stat); p != nil {
			*p = combine(*p, e)
		}
	}
}

func combine(v float64, e game.Effect) float64 {
	if e.Multiplicative() {
		return v * e.Value
	}
	return v + e.Value
}

// Dilute sells pct percent of the company to investors. Founder and option
// pool shrink by the same factor so the three still sum to 100.
func Dilute(s *game.GameState, pct float64) {
	if pct <= 0 {
		return
	}
	if pct > 100 {
		pct = 100
	}
	k := 1 - pct/100
	f := s.FounderEquity * k
	o := s.OptionPool * k
	s.InvestorShare += (s.FounderEquity - f) + (s.OptionPool - o)
	s.FounderEquity, s.OptionPool = f, o
}

// GrowOptionPool moves pct points from the founder into the pool, or back
// when pct is negative.
func GrowOptionPool(s *game.GameState, pct float64) {
	if pct > s.FounderEquity {
		pct = s.FounderEquity
	}
	if -pct > s.OptionPool {
		pct = -s.OptionPool
	}
	s.FounderEquity -= pct
	s.OptionPool += pct
}

// Harmful reports whether e makes things worse for the player.
func Harmful(e game.Effect) bool {
	up := e.Value > 0
	if e.Multiplicative() {
		up = e.Value > 1
	}
	switch e.Stat {
	case game.StatBurn, game.StatChurn, game.StatTechDebt, game.StatCompliance,
		game.StatIncidents, game.StatDilution:
		return up
	default:
		return !up && e.Value != 0
	}
}

// ScaleHarmful scales only the harmful effects in effs by k.
func ScaleHarmful(effs []game.Effect, k float64) []game.Effect {
	out := make([]game.Effect, len(effs))
	for i, e := range effs {
		if Harmful(e) {
			e = game.Scaled([]game.Effect{e}, k)[0]
		}
		out[i] = e
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Clamp pulls every metric back into its declared range.
func Clamp(s *game.GameState, focusFloor int) {
	if math.IsNaN(s.Bank) {
		s.Bank = 0
	}
	s.Burn = clamp(s.Burn, 1, math.MaxFloat64)
	s.MRR = clamp(s.MRR, 0, math.MaxFloat64)
	s.WAU = clamp(s.WAU, 0, math.MaxFloat64)
	s.WAUGrowthRate = clamp(s.WAUGrowthRate, -100, 100)
	s.ChurnRate = clamp(s.ChurnRate, 0, 100)
	s.Morale = clamp(s.Morale, 0, 100)
	s.Reputation = clamp(s.Reputation, 0, 100)
	s.NPS = clamp(s.NPS, -100, 100)
	s.TechDebt = clamp(s.TechDebt, 0, 100)
	s.ComplianceRisk = clamp(s.ComplianceRisk, 0, 100)
	s.Velocity = clamp(s.Velocity, MinVelocity, MaxVelocity)

	if focusFloor < 1 {
		focusFloor = 1
	}
	if s.FocusSlots < focusFloor {
		s.FocusSlots = focusFloor
	}
	if s.FocusSlots > MaxFocusSlots {
		s.FocusSlots = MaxFocusSlots
	}
	if s.Incidents < 0 {
		s.Incidents = 0
	}
	normalizeEquity(s)
}

func normalizeEquity(s *game.GameState) {
	s.FounderEquity = clamp(s.FounderEquity, 0, 100)
	s.OptionPool = clamp(s.OptionPool, 0, 100)
	s.InvestorShare = clamp(s.InvestorShare, 0, 100)
	sum := s.FounderEquity + s.OptionPool + s.InvestorShare
	if sum <= 0 {
		s.FounderEquity, s.OptionPool, s.InvestorShare = 100, 0, 0
		return
	}
	if math.Abs(sum-100) > 1e-9 {
		k := 100 / sum
		s.FounderEquity *= k
		s.OptionPool *= k
		s.InvestorShare = 100 - s.FounderEquity - s.OptionPool
	}
}

// Derive recomputes runway and momentum from the clamped metrics.
func Derive(s *game.GameState) {
	if s.Bank <= 0 {
		s.RunwayMonths = 0
	} else {
		s.RunwayMonths = s.Bank / s.Burn
	}
	s.Momentum = (1 + s.WAUGrowthRate/100) * s.Velocity * s.Morale / 100
}

// Finalize is Clamp followed by Derive.
func Finalize(s *game.GameState, focusFloor int) {
	Clamp(s, focusFloor)
	Derive(s)
}
