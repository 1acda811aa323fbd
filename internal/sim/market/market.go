// Package market advances the exogenous side of a game: demand, market
// conditions and competitors. Every roll is drawn from a Source keyed by
// seed and week only, so the market does not depend on what the player did.
package market

import (
	"math"
	"sort"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

type Report struct {
	Demand  float64  `json:"demand"`
	Started []string `json:"started,omitempty"`
	Ended   []string `json:"ended,omitempty"`
}

// Update moves demand one step, ticks active conditions and may start a new
// one.
func Update(m *game.MarketState, tune tuning.Market, cat catalogs.MarketCatalog, src rng.Source) Report {
	var rep Report

	if m.Demand == 0 {
		m.Demand = 1
	}
	noise := rng.Range(src, -tune.DemandNoise, tune.DemandNoise)
	m.Demand += (1-m.Demand)*tune.DemandReversion + noise
	m.Demand = math.Max(tune.DemandMin, math.Min(tune.DemandMax, m.Demand))
	rep.Demand = m.Demand

	kept := m.Conditions[:0:0]
	for _, c := range m.Conditions {
		c.WeeksRemaining--
		if c.WeeksRemaining <= 0 {
			rep.Ended = append(rep.Ended, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	m.Conditions = kept

	// The roll is drawn every week so the stream position does not depend
	// on how many conditions are active.
	roll := src.Float64() < tune.NewConditionProbability
	pick := src.Uint64()
	dur := src.Uint64()
	if !roll || len(m.Conditions) >= tune.MaxActiveConditions {
		return rep
	}
	weights := map[string]float64{}
	for _, c := range cat.Conditions {
		if !active(m, c.ID) {
			weights[c.ID] = 1
		}
	}
	id := rng.SampleWeighted(weights, pick)
	if id == "" {
		return rep
	}
	c := cat.ByID[id]
	c.Modifiers = append([]game.Modifier(nil), c.Modifiers...)
	span := c.MaxWeeks - c.MinWeeks + 1
	c.WeeksRemaining = c.MinWeeks + int(dur%uint64(span))
	m.Conditions = append(m.Conditions, c)
	rep.Started = append(rep.Started, id)
	return rep
}

func active(m *game.MarketState, id string) bool {
	for _, c := range m.Conditions {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Effectiveness is the combined condition multiplier for t, bounded.
func Effectiveness(m game.MarketState, t game.ModTarget, tune tuning.Market) float64 {
	k := m.Multiplier(t)
	return math.Max(tune.EffectivenessMin, math.Min(tune.EffectivenessMax, k))
}

// Target maps an action to the market modifier that scales it. ok is false
// for actions the market does not touch.
func Target(kind game.ActionKind) (game.ModTarget, bool) {
	switch kind {
	case game.ActShipFeature, game.ActRunExperiment, game.ActContentLaunch,
		game.ActDevRel, game.ActPaidAds:
		return game.ModWAUGrowth, true
	case game.ActFundraise:
		return game.ModFundraising, true
	case game.ActHire:
		return game.ModHiringCost, true
	case game.ActCoach, game.ActTakeBreak:
		return game.ModMorale, true
	case game.ActComplianceWork:
		return game.ModCompliance, true
	case game.ActProcessImprovement, game.ActRefactorCode:
		return game.ModVelocity, true
	default:
		return "", false
	}
}

// Snapshot is the read-only view served by get_market_status.
type Snapshot struct {
	Demand              float64                    `json:"demand"`
	CompetitivePressure float64                    `json:"competitive_pressure"`
	Conditions          []game.MarketCondition     `json:"conditions"`
	Modifiers           map[game.ModTarget]float64 `json:"modifiers"`
	Competitors         []game.Competitor          `json:"competitors"`
	TopThreat           string                     `json:"top_threat,omitempty"`
	PlayerShare         float64                    `json:"player_share"`
}

var modTargets = []game.ModTarget{
	game.ModWAUGrowth, game.ModBurn, game.ModChurn, game.ModVelocity, game.ModMorale,
	game.ModReputation, game.ModCompliance, game.ModFundraising, game.ModHiringCost,
}

func Status(s *game.GameState) Snapshot {
	m := s.Market.Clone()
	snap := Snapshot{
		Demand:              m.Demand,
		CompetitivePressure: m.CompetitivePressure,
		Conditions:          m.Conditions,
		Modifiers:           map[game.ModTarget]float64{},
		PlayerShare:         PlayerShare(s),
	}
	for _, t := range modTargets {
		if k := m.Multiplier(t); k != 1 {
			snap.Modifiers[t] = k
		}
	}
	for _, c := range s.Competitors {
		c.Moves = append([]game.CompetitorMoveRecord(nil), c.Moves...)
		snap.Competitors = append(snap.Competitors, c)
	}
	sort.SliceStable(snap.Competitors, func(i, j int) bool {
		return snap.Competitors[i].Threat() > snap.Competitors[j].Threat()
	})
	if len(snap.Competitors) > 0 && snap.Competitors[0].Threat() > 0 {
		snap.TopThreat = snap.Competitors[0].ID
	}
	return snap
}
