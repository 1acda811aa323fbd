// Package progress tracks milestones, action unlocks, sustained practices
// and the escape-velocity streak.
package progress

import (
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/resolve"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

// Criteria evaluates the four escape-velocity criteria against s. The
// streak is carried over unchanged.
func Criteria(s *game.GameState, tune tuning.EscapeVelocity) game.EscapeVelocityProgress {
	return game.EscapeVelocityProgress{
		RevenueCoversBurn: s.MRR >= s.Burn,
		GrowthSustained:   s.WAUGrowthRate >= tune.GrowthThreshold,
		CustomerLove:      s.NPS >= tune.NPSThreshold,
		FounderHealthy:    s.Morale > tune.MoraleThreshold,
		StreakWeeks:       s.EscapeVelocity.StreakWeeks,
	}
}

// UpdateStreak re-evaluates the criteria on the final metrics of the turn
// and extends or resets the streak. It must run after every other mutation.
func UpdateStreak(s *game.GameState, tune tuning.EscapeVelocity) {
	p := Criteria(s, tune)
	if p.AllMet() {
		p.StreakWeeks++
	} else {
		p.StreakWeeks = 0
	}
	s.EscapeVelocity = p
}

// Holds reports whether m is satisfied by s right now.
func Holds(s *game.GameState, m game.Milestone, tune tuning.EscapeVelocity) bool {
	switch m.Kind {
	case game.MilestoneCriterion:
		return Criteria(s, tune).Holds(m.Criterion) && game.AllHold(s, m.When)
	case game.MilestoneAchievement, game.MilestoneUnlock:
		return len(m.When) > 0 && game.AllHold(s, m.When)
	default:
		return false
	}
}

// Check returns milestones newly satisfied by s, in catalog order. Already
// achieved ones are never returned again.
func Check(s *game.GameState, defs []game.Milestone, tune tuning.EscapeVelocity) []game.Milestone {
	var out []game.Milestone
	for _, m := range defs {
		if s.HasAchieved(m.ID) || !Holds(s, m, tune) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Achieve records ms, opens their unlocks and applies their rewards. It
// returns the actions that were newly unlocked.
func Achieve(s *game.GameState, ms []game.Milestone) ([]game.ActionKind, error) {
	var unlocked []game.ActionKind
	var rewards []game.Effect
	for _, m := range ms {
		if s.HasAchieved(m.ID) {
			continue
		}
		s.MarkAchieved(m.ID)
		for _, k := range m.Unlocks {
			if s.Unlock(k) {
				unlocked = append(unlocked, k)
			}
		}
		rewards = append(rewards, game.WithSource(m.Reward, "milestone:"+m.ID)...)
	}
	if err := resolve.Apply(s, rewards); err != nil {
		return unlocked, err
	}
	return unlocked, nil
}

// Practice is a habit that pays off once it has been kept up long enough.
type Practice struct {
	ID    string
	Label string
	When  []game.Condition
	Weeks int
	bonus func(strength float64) []game.Effect
}

var Practices = []Practice{
	{
		ID: "engineering_excellence", Label: "Engineering Excellence", Weeks: 4,
		When: []game.Condition{{Stat: game.StatTechDebt, Cmp: game.CmpLT, Value: 25}, {Stat: game.StatVelocity, Cmp: game.CmpGT, Value: 0.8}},
		bonus: func(k float64) []game.Effect {
			return []game.Effect{game.Mul(game.StatVelocity, 1+0.05*k, ""), game.Add(game.StatMorale, 2*k, "")}
		},
	},
	{
		ID: "customer_love", Label: "Customer Love", Weeks: 6,
		When: []game.Condition{{Stat: game.StatNPS, Cmp: game.CmpGT, Value: 60}, {Stat: game.StatWAU, Cmp: game.CmpGT, Value: 200}},
		bonus: func(k float64) []game.Effect {
			return []game.Effect{game.Add(game.StatChurn, -0.5*k, ""), game.Add(game.StatNPS, 2*k, "")}
		},
	},
	{
		ID: "strong_culture", Label: "Strong Culture", Weeks: 8,
		When: []game.Condition{{Stat: game.StatMorale, Cmp: game.CmpGT, Value: 75}},
		bonus: func(k float64) []game.Effect {
			return []game.Effect{game.Mul(game.StatVelocity, 1+0.03*k, ""), game.Add(game.StatReputation, k, "")}
		},
	},
	{
		ID: "financial_discipline", Label: "Financial Discipline", Weeks: 8,
		When: []game.Condition{{Stat: game.StatRunway, Cmp: game.CmpGT, Value: 12}},
		bonus: func(k float64) []game.Effect {
			return []game.Effect{game.Mul(game.StatBurn, 1-0.02*k, "")}
		},
	},
	{
		ID: "momentum_master", Label: "Momentum Master", Weeks: 6,
		When: []game.Condition{{Stat: game.StatWAUGrowth, Cmp: game.CmpGT, Value: 8}, {Stat: game.StatChurn, Cmp: game.CmpLT, Value: 8}},
		bonus: func(k float64) []game.Effect {
			return []game.Effect{game.Add(game.StatWAUGrowth, k, "")}
		},
	},
	{
		ID: "sustainable_pace", Label: "Sustainable Pace", Weeks: 10,
		When: []game.Condition{{Stat: game.StatMorale, Cmp: game.CmpGT, Value: 65}, {Stat: game.StatVelocity, Cmp: game.CmpGT, Value: 0.7}},
		bonus: func(k float64) []game.Effect {
			return []game.Effect{game.Add(game.StatMorale, 2*k, ""), game.Add(game.StatTechDebt, -k, "")}
		},
	},
}

// Bonus is one practice paying off this week.
type Bonus struct {
	Practice string        `json:"practice"`
	Label    string        `json:"label"`
	Weeks    int           `json:"weeks"`
	Strength float64       `json:"strength"`
	Effects  []game.Effect `json:"effects"`
}

// UpdatePractices extends or resets each practice's streak and returns the
// bonuses earned this week. Strength grows with the streak, capped at 2.
func UpdatePractices(s *game.GameState) []Bonus {
	var out []Bonus
	for _, p := range Practices {
		if !game.AllHold(s, p.When) {
			delete(s.Practices, p.ID)
			continue
		}
		if s.Practices == nil {
			s.Practices = map[string]int{}
		}
		s.Practices[p.ID]++
		n := s.Practices[p.ID]
		if n < p.Weeks {
			continue
		}
		k := float64(n) / float64(p.Weeks)
		if k > 2 {
			k = 2
		}
		out = append(out, Bonus{
			Practice: p.ID,
			Label:    p.Label,
			Weeks:    n,
			Strength: k,
			Effects:  game.WithSource(p.bonus(k), "practice:"+p.ID),
		})
	}
	return out
}

// BonusEffects flattens practice bonuses in practice order.
func BonusEffects(bs []Bonus) []game.Effect {
	var out []game.Effect
	for _, b := range bs {
		out = append(out, b.Effects...)
	}
	return out
}
