// Package actions turns submitted weekly actions into state changes.
package actions

import (
	"fmt"
	"math"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/customers"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/market"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/resolve"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

// Context carries everything action resolution reads besides the state.
type Context struct {
	Tune       tuning.Tuning
	Difficulty tuning.Difficulty
	Catalogs   *catalogs.Catalogs
	Src        rng.Source
}

// Outcome describes what one action did.
type Outcome struct {
	Kind    game.ActionKind `json:"kind"`
	Summary string          `json:"summary"`
	Effects []game.Effect   `json:"effects,omitempty"`
}

// Available lists the actions s may submit this week, in catalog order: in
// scope for the difficulty, unlocked, and affordable in focus slots. Fire
// is left out while nobody but the founder is on the roster.
func Available(s *game.GameState, cat catalogs.ActionCatalog) []game.ActionDef {
	var out []game.ActionDef
	for _, d := range cat.Defs {
		if !d.AllowedIn(s.Difficulty) || !s.IsUnlocked(d.Kind) || d.FocusCost > s.FocusSlots {
			continue
		}
		if d.Kind == game.ActFire {
			if _, ok := s.Roster.LatestHire(); !ok {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// Validate rejects a turn before anything is applied. Checks run in a fixed
// order so the same bad input always reports the same error.
func Validate(s *game.GameState, acts []game.Action, cat catalogs.ActionCatalog) error {
	seen := map[game.ActionKind]bool{}
	cost := 0
	for _, a := range acts {
		if !a.Kind.Valid() {
			return &game.InvalidActionError{Kind: a.Kind, Reason: "unknown action"}
		}
		def, ok := cat.Def(a.Kind)
		if !ok {
			return &game.InvalidActionError{Kind: a.Kind, Reason: "not in catalog"}
		}
		if !def.AllowedIn(s.Difficulty) {
			return &game.InvalidActionError{Kind: a.Kind, Reason: "not available in " + string(s.Difficulty)}
		}
		if !s.IsUnlocked(a.Kind) {
			return &game.InvalidActionError{Kind: a.Kind, Reason: "locked"}
		}
		if seen[a.Kind] {
			return &game.InvalidActionError{Kind: a.Kind, Reason: "submitted twice"}
		}
		seen[a.Kind] = true
		if err := validateParams(s, a, def); err != nil {
			return err
		}
		cost += def.FocusCost
	}
	if cost > s.FocusSlots {
		return &game.CapacityExceededError{Needed: cost, Available: s.FocusSlots}
	}
	return nil
}

func validateParams(s *game.GameState, a game.Action, def game.ActionDef) error {
	bad := func(format string, args ...any) error {
		return &game.InvalidActionError{Kind: a.Kind, Reason: fmt.Sprintf(format, args...)}
	}
	switch a.Kind {
	case game.ActShipFeature:
		q := quality(a)
		if _, ok := def.Variants[string(q)]; !ok {
			return bad("unknown quality %q", a.Quality)
		}
	case game.ActFounderLedSales:
		if a.Calls < 0 {
			return bad("negative call count")
		}
	case game.ActFundraise:
		if a.Target < 0 || math.IsNaN(a.Target) {
			return bad("bad raise target %v", a.Target)
		}
	case game.ActPaidAds:
		if a.Budget < 0 || math.IsNaN(a.Budget) {
			return bad("bad ads budget %v", a.Budget)
		}
	case game.ActFire:
		if _, ok := fireTarget(s, a); !ok {
			return bad("nobody to let go")
		}
	}
	return nil
}

func quality(a game.Action) game.Quality {
	if a.Quality == "" {
		return game.QualityBalanced
	}
	return a.Quality
}

func fireTarget(s *game.GameState, a game.Action) (int, bool) {
	if a.MemberID == game.FounderID {
		return s.Roster.LatestHire()
	}
	if !s.Roster.IsActive(a.MemberID) {
		return 0, false
	}
	return a.MemberID, true
}

// Resolve applies one validated action to the working state s.
func Resolve(s *game.GameState, a game.Action, ctx Context) (Outcome, error) {
	def, ok := ctx.Catalogs.Actions.Def(a.Kind)
	if !ok {
		return Outcome{}, &game.InvalidActionError{Kind: a.Kind, Reason: "not in catalog"}
	}
	src := "action:" + string(a.Kind)
	out := Outcome{Kind: a.Kind}
	effs := append([]game.Effect(nil), def.Effects...)

	bal := ctx.Tune.Balance
	switch a.Kind {
	case game.ActShipFeature:
		q := quality(a)
		effs = append(effs, def.Variants[string(q)]...)
		effs = scaleGains(effs, game.StatWAUGrowth, s.Velocity)
		out.Summary = fmt.Sprintf("shipped a %s feature", q)

	case game.ActFounderLedSales:
		calls := a.Calls
		if calls <= 0 {
			calls = 1
		}
		if bal.MaxCalls > 0 && calls > bal.MaxCalls {
			calls = bal.MaxCalls
		}
		conv := bal.SalesConversion + s.Reputation/200
		var booked float64
		deals := 0
		for i := 0; i < calls; i++ {
			won := rng.Chance(ctx.Src, conv)
			size := bal.DealSize * rng.Range(ctx.Src, 0.8, 1.2)
			if !won {
				continue
			}
			size = math.Round(size)
			customers.AddAccount(&s.Customers, ctx.Catalogs.Segments, size, s.Week, ctx.Src)
			booked += size
			deals++
		}
		effs = append(effs,
			game.Add(game.StatMRR, booked, ""),
			game.Add(game.StatMorale, -0.5*float64(calls), ""))
		out.Summary = fmt.Sprintf("%d calls, %d deals, +$%.0f MRR", calls, deals, booked)

	case game.ActHire:
		salary := bal.HireSalary * market.Effectiveness(s.Market, game.ModHiringCost, ctx.Tune.Market)
		role := a.Role
		if role == "" {
			role = "engineer"
		}
		id := s.Roster.Hire(fmt.Sprintf("%s #%d", role, len(s.Roster.Members)), role, salary, s.Week)
		effs = append(effs,
			game.Add(game.StatBurn, salary, ""),
			game.Add(game.StatVelocity, bal.HireVelocity, ""),
			game.Add(game.StatMorale, bal.HireMorale, ""))
		out.Summary = fmt.Sprintf("hired %s (member %d) at $%.0f/mo", role, id, salary)

	case game.ActFundraise:
		target := a.Target
		if target == 0 {
			target = bal.DefaultRaiseTarget
		}
		p := math.Min(bal.FundraiseCap, bal.FundraiseBase+s.Reputation/200+s.Momentum/100)
		p *= market.Effectiveness(s.Market, game.ModFundraising, ctx.Tune.Market)
		if rng.Chance(ctx.Src, p) {
			dilution := math.Min(bal.MaxDilution, target/5_000_000*bal.DilutionPer5M)
			effs = append(effs,
				game.Add(game.StatBank, target, ""),
				game.Add(game.StatDilution, dilution, ""),
				game.Add(game.StatMorale, 5, ""))
			out.Summary = fmt.Sprintf("raised $%.0f for %.1f%% dilution", target, dilution)
		} else {
			effs = append(effs,
				game.Add(game.StatMorale, -bal.FailedRaiseMorale, ""),
				game.Add(game.StatReputation, -1, ""))
			out.Summary = fmt.Sprintf("failed to raise $%.0f", target)
		}

	case game.ActFire:
		id, ok := fireTarget(s, a)
		if !ok {
			return Outcome{}, &game.InvalidActionError{Kind: a.Kind, Reason: "nobody to let go"}
		}
		m, _ := s.Roster.Depart(id, s.Week)
		effs = append(effs,
			game.Add(game.StatBurn, -m.Salary, ""),
			game.Add(game.StatMorale, -bal.FireMorale, ""),
			game.Add(game.StatReputation, -bal.FireReputation, ""))
		out.Summary = fmt.Sprintf("let %s go", m.Name)

	case game.ActPaidAds:
		budget := a.Budget
		if budget == 0 {
			budget = bal.DefaultAdsBudget
		}
		users := budget * bal.AdsUsersPerDollar * s.Market.Demand
		effs = append(effs,
			game.Add(game.StatBank, -budget, ""),
			game.Add(game.StatWAU, users, ""))
		out.Summary = fmt.Sprintf("spent $%.0f on ads", budget)

	case game.ActTakeBreak:
		s.LastBreakWeek = s.Week
		out.Summary = "took a break"

	case game.ActRefactorCode, game.ActRunExperiment, game.ActContentLaunch, game.ActDevRel,
		game.ActCoach, game.ActComplianceWork, game.ActIncidentResponse, game.ActProcessImprovement:
		out.Summary = def.Label

	default:
		return Outcome{}, &game.InvalidActionError{Kind: a.Kind, Reason: "no resolver"}
	}

	effs = marketScaled(s, a.Kind, effs, ctx)
	if w := ctx.Difficulty.ReputationWeight; w > 0 {
		effs = scaleStat(effs, game.StatReputation, w)
	}
	effs = game.WithSource(effs, src)
	if err := resolve.Apply(s, effs); err != nil {
		return Outcome{}, err
	}
	out.Effects = effs
	return out, nil
}

// marketScaled applies the market condition (and, for growth, the
// difficulty's growth modifier) to the stat the action mainly moves.
func marketScaled(s *game.GameState, kind game.ActionKind, effs []game.Effect, ctx Context) []game.Effect {
	target, ok := market.Target(kind)
	if !ok {
		return effs
	}
	k := market.Effectiveness(s.Market, target, ctx.Tune.Market)
	switch target {
	case game.ModWAUGrowth:
		g := ctx.Difficulty.GrowthModifier
		if g <= 0 {
			g = 1
		}
		return scaleGains(effs, game.StatWAUGrowth, k*g)
	case game.ModMorale:
		return scaleGains(effs, game.StatMorale, k)
	case game.ModVelocity:
		return scaleGains(effs, game.StatVelocity, k)
	case game.ModCompliance:
		// A harsher regime makes the same work count for less.
		return scaleStat(effs, game.StatCompliance, 1/k)
	default:
		// Hiring cost and fundraising odds are read directly during
		// resolution.
		return effs
	}
}

// scaleGains scales the beneficial part of every effect on stat by k.
// Additive gains scale their value; multiplicative ones their distance
// from 1.
func scaleGains(effs []game.Effect, stat game.Stat, k float64) []game.Effect {
	out := make([]game.Effect, len(effs))
	for i, e := range effs {
		if e.Stat == stat && !resolve.Harmful(e) {
			e = scaleOne(e, k)
		}
		out[i] = e
	}
	return out
}

func scaleStat(effs []game.Effect, stat game.Stat, k float64) []game.Effect {
	out := make([]game.Effect, len(effs))
	for i, e := range effs {
		if e.Stat == stat {
			e = scaleOne(e, k)
		}
		out[i] = e
	}
	return out
}

func scaleOne(e game.Effect, k float64) game.Effect {
	if e.Multiplicative() {
		e.Value = 1 + (e.Value-1)*k
	} else {
		e.Value *= k
	}
	return e
}

// Kinds lists the kinds of acts in submission order.
func Kinds(acts []game.Action) []game.ActionKind {
	out := make([]game.ActionKind, len(acts))
	for i, a := range acts {
		out[i] = a.Kind
	}
	return out
}
