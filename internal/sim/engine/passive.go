package engine

import (
	"math"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/market"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/resolve"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

// overworkWeeks is how long the team goes without a break before morale
// starts sliding twice as fast.
const overworkWeeks = 8

// passive applies the forces that act every week whatever the player did:
// delayed effects coming due, cash flow, user growth and churn, drift of
// NPS, churn, morale and velocity toward their natural levels, compliance
// creep and production incidents. Every quantity is read from the state as
// the actions left it and applied in one batch.
func (e *Engine) passive(s *game.GameState, diff tuning.Difficulty, src rng.Source) ([]game.Effect, error) {
	applied := resolve.ApplyDue(s)

	b := e.tune.Balance
	mt := e.tune.Market
	var effs []game.Effect
	add := func(stat game.Stat, v float64, why string) {
		if v != 0 && !math.IsNaN(v) {
			effs = append(effs, game.Add(stat, v, "passive:"+why))
		}
	}

	burn := s.Burn * market.Effectiveness(s.Market, game.ModBurn, mt)
	add(game.StatBank, (s.MRR-burn)*b.CashflowPerTurn, "cashflow")

	net := s.WAUGrowthRate*s.Market.Demand - s.ChurnRate
	add(game.StatWAU, s.WAU*net/100, "growth")
	add(game.StatWAUGrowth, -s.WAUGrowthRate*b.GrowthDecay, "growth_decay")
	if selfServe := s.MRR - s.Customers.AccountMRR(); selfServe > 0 {
		add(game.StatMRR, -selfServe*s.ChurnRate/100, "churn")
	}

	npsTarget := b.NPSTarget - s.TechDebt/2 - math.Max(0, s.ChurnRate-b.BaseChurn)*2
	add(game.StatNPS, (npsTarget-s.NPS)*b.NPSDrift, "nps_drift")

	churnTarget := b.BaseChurn + (s.TechDebt-50)/25 - s.NPS/20 + 0.5*float64(s.Incidents)
	churnTarget *= market.Effectiveness(s.Market, game.ModChurn, mt)
	churnTarget = math.Max(b.ChurnFloor, math.Min(b.ChurnCeiling, churnTarget))
	add(game.StatChurn, (churnTarget-s.ChurnRate)*0.25, "churn_drift")

	decay := b.MoraleDecay
	if s.Week-s.LastBreakWeek > overworkWeeks {
		decay *= 2
	}
	decay /= market.Effectiveness(s.Market, game.ModMorale, mt)
	add(game.StatMorale, -decay, "morale_decay")
	if s.TechDebt > 70 {
		add(game.StatMorale, -(s.TechDebt-70)/10, "tech_debt")
	}

	team := float64(s.Roster.Size())
	velTarget := 1 + b.HireVelocity*(team-1)
	velTarget *= 1 - math.Max(0, s.TechDebt-40)/100
	velTarget *= 1 - math.Max(0, 50-s.Morale)/100
	velTarget *= market.Effectiveness(s.Market, game.ModVelocity, mt)
	add(game.StatVelocity, (velTarget-s.Velocity)*b.VelocityDrift, "velocity_drift")
	if s.Velocity > b.OverworkVelocity {
		add(game.StatTechDebt, b.OverworkDebt*(s.Velocity-b.OverworkVelocity)*10, "overwork")
	}

	burden := diff.ComplianceBurden
	add(game.StatCompliance, b.ComplianceRise*burden*market.Effectiveness(s.Market, game.ModCompliance, mt), "compliance")

	// One roll every week keeps the passive stream aligned across turns.
	roll := src.Float64()
	if s.TechDebt > 50 && b.IncidentDebt > 50 {
		p := b.IncidentChance * (s.TechDebt - 50) / (b.IncidentDebt - 50)
		if roll < p {
			effs = append(effs, game.Add(game.StatIncidents, 1, "passive:incident"))
			add(game.StatChurn, b.IncidentChurn, "incident")
			add(game.StatReputation, -b.IncidentReputation, "incident")
		}
	}
	if s.Incidents > 0 {
		add(game.StatReputation, -0.5*float64(s.Incidents), "open_incidents")
	}

	if err := resolve.Apply(s, effs); err != nil {
		return nil, err
	}
	return append(applied, effs...), nil
}
