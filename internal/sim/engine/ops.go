package engine

import (
	"github.com/acailic/founders-dilemma-sub001/internal/sim/actions"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/analytics"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/customers"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/events"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/market"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/progress"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/resolve"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/synergy"
)

// Boundary operations. Each takes its snapshots by value and returns a new
// one; a rejected call returns the zero state and an error.

func (e *Engine) TakeTurn(s game.GameState, acts []game.Action) (game.GameState, error) {
	rep, err := e.Step(s, acts)
	if err != nil {
		return game.GameState{}, err
	}
	return rep.State, nil
}

func (e *Engine) CheckGameStatus(s game.GameState) game.GameStatus {
	return e.status(&s)
}

// GetAvailableActions lists the kinds s may submit, in catalog order.
func (e *Engine) GetAvailableActions(s game.GameState) []game.ActionKind {
	defs := actions.Available(&s, e.cats.Actions)
	out := make([]game.ActionKind, len(defs))
	for i, d := range defs {
		out[i] = d.Kind
	}
	return out
}

// AvailableActionDefs is GetAvailableActions with the catalog entries.
func (e *Engine) AvailableActionDefs(s game.GameState) []game.ActionDef {
	return actions.Available(&s, e.cats.Actions)
}

func (e *Engine) GetMarketStatus(s game.GameState) market.Snapshot {
	return market.Status(&s)
}

func (e *Engine) GenerateInsights(prev, cur game.GameState) []analytics.Insight {
	return analytics.Insights(&prev, &cur)
}

func (e *Engine) GenerateWarnings(s game.GameState) []analytics.Warning {
	return analytics.Warnings(&s)
}

// ProcessCompoundingEffects runs effs through the resolver and clamps once.
func (e *Engine) ProcessCompoundingEffects(s game.GameState, effs []game.Effect) (game.GameState, error) {
	if err := s.Validate(); err != nil {
		return game.GameState{}, err
	}
	out := s.Clone()
	if err := resolve.Apply(&out, effs); err != nil {
		return game.GameState{}, err
	}
	resolve.Finalize(&out, e.floor())
	return out, nil
}

// CheckForEvents rolls this week's events for s without applying them.
// Events already in active are skipped.
func (e *Engine) CheckForEvents(s game.GameState, active []game.Event) ([]game.Event, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sev := e.tune.Difficulty(s.Difficulty).EventSeverity
	return events.Check(&s, active, e.cats.Events, e.tune.Events, sev, e.src(&s, rng.SaltEvents)), nil
}

// ApplyEventChoice resolves ev with choiceID against s. ev is typically one
// CheckForEvents returned or one of s.ActiveEvents; it leaves the active set
// if it is there.
func (e *Engine) ApplyEventChoice(s game.GameState, ev game.Event, choiceID string) (game.GameState, error) {
	if err := s.Validate(); err != nil {
		return game.GameState{}, err
	}
	out := s.Clone()
	if _, err := events.Resolve(&out, ev, choiceID); err != nil {
		return game.GameState{}, err
	}
	resolve.Finalize(&out, e.floor())
	return out, nil
}

// ActiveEvent finds an unresolved dilemma of s by id.
func (e *Engine) ActiveEvent(s game.GameState, eventID string) (game.Event, error) {
	ev, ok := events.Active(&s, eventID)
	if !ok {
		return game.Event{}, &game.InvalidStateError{Reason: "event " + eventID + " is not active"}
	}
	return ev, nil
}

// CheckActionSynergies matches acts against rules. Nil recent falls back
// to the state's own window and nil rules to the catalog.
func (e *Engine) CheckActionSynergies(s game.GameState, acts []game.ActionKind, recent [][]game.ActionKind, rules []game.SynergyRule) []game.SynergyMatch {
	if recent == nil {
		recent = s.RecentActions
	}
	if rules == nil {
		rules = e.cats.Synergies.Rules
	}
	return synergy.Detect(acts, recent, rules, e.tune.Synergy.Window)
}

// UpdateMarketConditions advances the market one step for s.Week. conds
// replaces the catalog of candidate conditions when non-nil.
func (e *Engine) UpdateMarketConditions(s game.GameState, conds []game.MarketCondition) (game.GameState, error) {
	if err := s.Validate(); err != nil {
		return game.GameState{}, err
	}
	cat := e.cats.Market
	if conds != nil {
		var err error
		if cat, err = catalogs.NewMarketCatalog(conds); err != nil {
			return game.GameState{}, &game.InvalidStateError{Reason: "market condition " + err.Error()}
		}
	}
	out := s.Clone()
	market.Update(&out.Market, e.tune.Market, cat, e.src(&out, rng.SaltMarket))
	return out, nil
}

// CheckProgressionMilestones returns milestones newly achieved by s.
func (e *Engine) CheckProgressionMilestones(s game.GameState, ms []game.Milestone) []game.Milestone {
	if ms == nil {
		ms = e.cats.Milestones.Defs
	}
	return progress.Check(&s, ms, e.tune.EscapeVelocity)
}

func (e *Engine) UpdateCustomerSegments(s game.GameState, segs []game.SegmentDef) (game.GameState, error) {
	if err := s.Validate(); err != nil {
		return game.GameState{}, err
	}
	cat := e.cats.Segments
	if segs != nil {
		cat = catalogs.NewSegmentCatalog(segs)
	}
	out := s.Clone()
	customers.Update(&out, cat, e.src(&out, rng.SaltCustomers))
	resolve.Finalize(&out, e.floor())
	return out, nil
}

// UpdateCompetitors lets every rival act once. comps replaces the state's
// rival field when non-nil.
func (e *Engine) UpdateCompetitors(s game.GameState, comps []game.Competitor) (game.GameState, error) {
	if err := s.Validate(); err != nil {
		return game.GameState{}, err
	}
	out := s.Clone()
	if comps != nil {
		tmp := game.GameState{Competitors: comps}
		out.Competitors = tmp.Clone().Competitors
	}
	rep := market.UpdateCompetitors(&out, e.tune.Market, e.src(&out, rng.SaltCompetitors))
	if err := resolve.Apply(&out, rep.Effects); err != nil {
		return game.GameState{}, err
	}
	resolve.Finalize(&out, e.floor())
	return out, nil
}
