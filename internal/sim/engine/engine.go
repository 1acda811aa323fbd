// Package engine runs the weekly turn pipeline and exposes every boundary
// operation as a pure function over GameState values.
package engine

import (
	"fmt"

	"github.com/google/uuid"

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
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

// Engine holds the read-only tables a game is played against. It has no
// per-game state and is safe to share between goroutines.
type Engine struct {
	tune tuning.Tuning
	cats *catalogs.Catalogs
	rand rng.Factory
}

// New builds an engine. A nil factory uses rng.Hashed.
func New(tune tuning.Tuning, cats *catalogs.Catalogs, rand rng.Factory) *Engine {
	if rand == nil {
		rand = rng.Hashed
	}
	return &Engine{tune: tune, cats: cats, rand: rand}
}

// Default builds an engine on the built-in tuning and embedded catalogs.
func Default() (*Engine, error) {
	cats, err := catalogs.Default()
	if err != nil {
		return nil, err
	}
	return New(tuning.Defaults(), cats, nil), nil
}

func (e *Engine) Tuning() tuning.Tuning        { return e.tune }
func (e *Engine) Catalogs() *catalogs.Catalogs { return e.cats }

func (e *Engine) src(s *game.GameState, salt uint64) rng.Source {
	return e.rand(s.Seed, s.Week, salt)
}

func (e *Engine) floor() int { return e.tune.Balance.FocusFloor }

type Options struct {
	Seed      int64  `json:"seed"`
	GameID    string `json:"game_id,omitempty"`
	StartedAt int64  `json:"started_at,omitempty"`
	Founder   string `json:"founder,omitempty"`
}

// GameID derives a stable id from the game's identity when the caller did
// not supply one.
func GameID(d game.Difficulty, seed, startedAt int64) string {
	name := fmt.Sprintf("founders-dilemma/%s/%d/%d", d, seed, startedAt)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// NewGame builds week 0 for difficulty d.
func (e *Engine) NewGame(d game.Difficulty, opts Options) (game.GameState, error) {
	if !d.Valid() {
		return game.GameState{}, &game.InvalidStateError{Reason: fmt.Sprintf("unknown difficulty %q", d)}
	}
	p := e.tune.Difficulty(d)
	st := e.tune.Start
	id := opts.GameID
	if id == "" {
		id = GameID(d, opts.Seed, opts.StartedAt)
	}
	founder := opts.Founder
	if founder == "" {
		founder = "Founder"
	}

	s := game.GameState{
		GameID:         id,
		Difficulty:     d,
		StartedAt:      opts.StartedAt,
		Seed:           opts.Seed,
		Bank:           p.Bank,
		Burn:           p.Burn,
		WAU:            st.WAU,
		ChurnRate:      st.Churn,
		Morale:         st.Morale,
		Reputation:     p.StartReputation,
		NPS:            st.NPS,
		TechDebt:       st.TechDebt,
		ComplianceRisk: p.StartCompliance,
		Velocity:       st.Velocity,
		FocusSlots:     p.FocusSlots,
		FounderEquity:  100,
		Roster:         game.NewRoster(founder, 0),
		Market:         game.MarketState{Demand: 1},
	}
	for _, def := range e.cats.Actions.Defs {
		if def.StartsUnlocked && def.AllowedIn(d) {
			s.Unlock(def.Kind)
		}
	}
	s.Competitors = market.NewCompetitors(e.tune.Market.Competitors, p, e.cats.Competitors, e.rand(opts.Seed, 0, rng.SaltNewGame))
	market.Refresh(&s)
	s.Customers.Shares = customers.Shares(&s, e.cats.Segments)

	resolve.Finalize(&s, e.floor())
	s.EscapeVelocity = progress.Criteria(&s, e.tune.EscapeVelocity)
	s.AppendHistory()
	return s, nil
}

// TurnReport is everything one week produced. State is the new snapshot.
type TurnReport struct {
	Week           int                     `json:"week"`
	State          game.GameState          `json:"state"`
	Expired        []events.Expired        `json:"expired,omitempty"`
	Actions        []actions.Outcome       `json:"actions,omitempty"`
	Passive        []game.Effect           `json:"passive,omitempty"`
	Synergies      []game.SynergyMatch     `json:"synergies,omitempty"`
	ComboScore     float64                 `json:"combo_score"`
	Practices      []progress.Bonus        `json:"practices,omitempty"`
	Market         market.Report           `json:"market"`
	Competitors    market.CompetitorReport `json:"competitors"`
	Customers      customers.Report        `json:"customers"`
	Events         []game.Event            `json:"events,omitempty"`
	Milestones     []game.Milestone        `json:"milestones,omitempty"`
	Unlocked       []game.ActionKind       `json:"unlocked,omitempty"`
	Specialization string                  `json:"specialization,omitempty"`
	Status         game.GameStatus         `json:"status"`
	Insights       []analytics.Insight     `json:"insights,omitempty"`
	Warnings       []analytics.Warning     `json:"warnings,omitempty"`
}

// checkPlayable rejects snapshots no turn may run on.
func (e *Engine) checkPlayable(s *game.GameState) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if st := e.status(s); st.GameOver {
		return &game.InvalidStateError{Reason: "game is over: " + st.Legacy()}
	}
	return nil
}

// Step advances in by one week. in is never modified; on error no report
// is produced.
func (e *Engine) Step(in game.GameState, acts []game.Action) (TurnReport, error) {
	if err := e.checkPlayable(&in); err != nil {
		return TurnReport{}, err
	}
	if err := actions.Validate(&in, acts, e.cats.Actions); err != nil {
		return TurnReport{}, err
	}

	s := in.Clone()
	diff := e.tune.Difficulty(s.Difficulty)
	var rep TurnReport
	var err error

	// 1. calendar
	s.Week++
	rep.Week = s.Week
	events.TickCooldowns(&s)
	if rep.Expired, err = events.Expire(&s); err != nil {
		return TurnReport{}, err
	}

	// 2. actions, in submission order
	ctx := actions.Context{Tune: e.tune, Difficulty: diff, Catalogs: e.cats, Src: e.src(&s, rng.SaltActions)}
	for _, a := range acts {
		out, err := actions.Resolve(&s, a, ctx)
		if err != nil {
			return TurnReport{}, err
		}
		rep.Actions = append(rep.Actions, out)
	}

	// 3. passive forces
	if rep.Passive, err = e.passive(&s, diff, e.src(&s, rng.SaltPassive)); err != nil {
		return TurnReport{}, err
	}

	// 4. synergies and the specialization path earned on earlier turns
	kinds := actions.Kinds(acts)
	rep.Synergies = synergy.DetectFresh(kinds, s.RecentActions, e.cats.Synergies.Rules, e.tune.Synergy.Window)
	rep.ComboScore = synergy.ComboScore(rep.Synergies)
	bonus := synergy.Effects(rep.Synergies)
	if p, ok := synergy.PathByID(s.Specialization); ok {
		bonus = append(bonus, p.Effects...)
	}
	if err := resolve.Apply(&s, bonus); err != nil {
		return TurnReport{}, err
	}

	// 5. practices
	rep.Practices = progress.UpdatePractices(&s)
	if err := resolve.Apply(&s, progress.BonusEffects(rep.Practices)); err != nil {
		return TurnReport{}, err
	}

	// 6-8. the world moves on
	rep.Market = market.Update(&s.Market, e.tune.Market, e.cats.Market, e.src(&s, rng.SaltMarket))
	rep.Competitors = market.UpdateCompetitors(&s, e.tune.Market, e.src(&s, rng.SaltCompetitors))
	if err := resolve.Apply(&s, rep.Competitors.Effects); err != nil {
		return TurnReport{}, err
	}
	rep.Customers = customers.Update(&s, e.cats.Segments, e.src(&s, rng.SaltCustomers))

	// 9. events
	rep.Events = events.Check(&s, nil, e.cats.Events, e.tune.Events, diff.EventSeverity, e.src(&s, rng.SaltEvents))
	for _, ev := range rep.Events {
		if err := events.Raise(&s, ev); err != nil {
			return TurnReport{}, err
		}
	}

	// 10. clamp once
	resolve.Finalize(&s, e.floor())

	// 11. milestones on the clamped state; rewards need another pass
	rep.Milestones = progress.Check(&s, e.cats.Milestones.Defs, e.tune.EscapeVelocity)
	if len(rep.Milestones) > 0 {
		if rep.Unlocked, err = progress.Achieve(&s, rep.Milestones); err != nil {
			return TurnReport{}, err
		}
		resolve.Finalize(&s, e.floor())
	}
	s.PushRecentActions(kinds, e.tune.Balance.RecentActionsHistory)
	s.Specialization = ""
	if p, ok := synergy.Specialize(s.RecentActions, e.cats.Actions, e.tune.Synergy); ok {
		s.Specialization = p.ID
	}
	rep.Specialization = s.Specialization

	// 12. the streak reads the final metrics
	progress.UpdateStreak(&s, e.tune.EscapeVelocity)
	s.AppendHistory()

	rep.Status = e.status(&s)
	rep.Insights = analytics.Insights(&in, &s)
	rep.Warnings = analytics.Warnings(&s)
	rep.State = s
	return rep, nil
}

// status checks defeat conditions in priority order before victory.
func (e *Engine) status(s *game.GameState) game.GameStatus {
	defeat := func(r game.DefeatReason) game.GameStatus {
		return game.GameStatus{GameOver: true, Reason: r, Message: game.DefeatMessage(r)}
	}
	switch {
	case s.Bank <= 0:
		return defeat(game.DefeatOutOfMoney)
	case s.Morale <= 0:
		return defeat(game.DefeatBurnout)
	case s.Reputation <= 0:
		return defeat(game.DefeatReputation)
	case s.EscapeVelocity.StreakWeeks >= e.tune.EscapeVelocity.StreakToWin:
		return game.GameStatus{GameOver: true, Victory: true, Message: "escape velocity reached"}
	}
	return game.GameStatus{Message: "in progress"}
}
