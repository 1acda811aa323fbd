package market

import (
	"fmt"
	"math"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

const (
	maxMoveLog     = 8
	fundingPerHead = 150_000
	minTeam        = 1
	maxTeam        = 500
)

var stageLadder = []game.FundingStage{
	game.StageBootstrapped, game.StageSeed, game.StageSeriesA,
	game.StageSeriesB, game.StageSeriesC, game.StagePublic,
}

var moveWeights = map[string]float64{
	string(game.MoveFeatureLaunch): 0.25,
	string(game.MovePriceCut):      0.15,
	string(game.MoveFundingRound):  0.15,
	string(game.MoveMarketingPush): 0.15,
	string(game.MoveTalentPoach):   0.10,
	string(game.MovePartnership):   0.10,
	string(game.MovePivot):         0.05,
	string(game.MoveAcquired):      0.05,
}

// NewCompetitors seeds the rival field for a fresh game.
func NewCompetitors(n int, diff tuning.Difficulty, cat catalogs.CompetitorCatalog, src rng.Source) []game.Competitor {
	names := append([]string(nil), cat.Names...)
	if n > len(names) {
		n = len(names)
	}
	out := make([]game.Competitor, 0, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(src, len(names)-i)
		names[i], names[j] = names[j], names[i]

		funding := rng.Range(src, 500_000, 5_000_000)
		c := game.Competitor{
			ID:             fmt.Sprintf("rival-%d", i+1),
			Name:           names[i],
			Stage:          stageFor(funding),
			Funding:        funding,
			Pricing:        cat.Pricing[rng.Intn(src, len(cat.Pricing))],
			FeatureParity:  rng.Range(src, 30, 70),
			Aggressiveness: rng.Range(src, diff.RivalAggressionMin, diff.RivalAggressionMax),
		}
		c.TeamSize = teamFor(c.Funding)
		out = append(out, c)
	}
	return out
}

func stageFor(funding float64) game.FundingStage {
	switch {
	case funding < 750_000:
		return game.StageBootstrapped
	case funding < 1_500_000:
		return game.StageSeed
	case funding < 4_000_000:
		return game.StageSeriesA
	default:
		return game.StageSeriesB
	}
}

func nextStage(s game.FundingStage) game.FundingStage {
	for i, x := range stageLadder {
		if x == s && i+1 < len(stageLadder) {
			return stageLadder[i+1]
		}
	}
	return s
}

func teamFor(funding float64) int {
	t := int(funding / fundingPerHead)
	if t < minTeam {
		return minTeam
	}
	if t > maxTeam {
		return maxTeam
	}
	return t
}

// MoveRecord is one competitor move surfaced in the turn report.
type MoveRecord struct {
	Competitor string              `json:"competitor"`
	Move       game.CompetitorMove `json:"move"`
}

type CompetitorReport struct {
	Moves []MoveRecord `json:"moves,omitempty"`
	// Effects is the impact on the player. The caller applies it.
	Effects  []game.Effect `json:"effects,omitempty"`
	Pressure float64       `json:"pressure"`
}

// UpdateCompetitors lets every active rival act, drifts parity against the
// player's velocity and renormalizes shares. The player's velocity only
// feeds parity drift; the rolls themselves come from src.
func UpdateCompetitors(s *game.GameState, tune tuning.Market, src rng.Source) CompetitorReport {
	var rep CompetitorReport
	playerVel := math.Max(s.Velocity, 0.1)

	for i := range s.Competitors {
		c := &s.Competitors[i]
		// Three draws per rival per week, acted on or not.
		act := src.Float64() < c.Aggressiveness*tune.CompetitorActScale
		pick := src.Uint64()
		mag := src.Float64()
		if c.Acquired {
			continue
		}

		theirVel := float64(c.TeamSize)*0.1 + c.Funding/1_000_000*0.1
		drift := (theirVel/playerVel - 1) * 5
		c.FeatureParity = clamp(c.FeatureParity+clamp(drift, -5, 5), 0, 100)

		if !act {
			continue
		}
		move := game.CompetitorMove(rng.SampleWeighted(moveWeights, pick))
		if move == game.MoveAcquired && c.Stage != game.StageSeriesB && c.Stage != game.StageSeriesC {
			move = game.MoveFeatureLaunch
		}
		from := "competitor:" + c.ID
		switch move {
		case game.MoveFeatureLaunch:
			c.FeatureParity = clamp(c.FeatureParity+5+5*mag, 0, 100)
			rep.Effects = append(rep.Effects, game.Add(game.StatWAUGrowth, -0.5, from))
		case game.MovePriceCut:
			c.Pricing = game.PricingUndercut
			rep.Effects = append(rep.Effects, game.Add(game.StatChurn, 0.5, from))
		case game.MoveFundingRound:
			c.Funding *= 1.5 + mag
			c.Stage = nextStage(c.Stage)
			c.TeamSize = teamFor(c.Funding)
		case game.MoveMarketingPush:
			c.FeatureParity = clamp(c.FeatureParity+2, 0, 100)
			rep.Effects = append(rep.Effects, game.Add(game.StatWAUGrowth, -1, from))
		case game.MoveTalentPoach:
			rep.Effects = append(rep.Effects,
				game.Add(game.StatMorale, -3, from),
				game.Mul(game.StatVelocity, 0.98, from))
		case game.MovePartnership:
			c.FeatureParity = clamp(c.FeatureParity+3, 0, 100)
		case game.MovePivot:
			c.FeatureParity = clamp(c.FeatureParity-20, 0, 100)
			c.Pricing = game.PricingFreemium
		case game.MoveAcquired:
			c.Acquired = true
			c.MarketShare = 0
		default:
			continue
		}
		c.Moves = append(c.Moves, game.CompetitorMoveRecord{Week: s.Week, Move: move})
		if n := len(c.Moves); n > maxMoveLog {
			c.Moves = append([]game.CompetitorMoveRecord(nil), c.Moves[n-maxMoveLog:]...)
		}
		rep.Moves = append(rep.Moves, MoveRecord{Competitor: c.ID, Move: move})
	}

	rep.Pressure = Refresh(s)
	if rep.Pressure > 0.5 {
		rep.Effects = append(rep.Effects, game.Add(game.StatWAUGrowth, -(rep.Pressure-0.5)*2, "competitive_pressure"))
	}
	return rep
}

// Refresh renormalizes market shares and recomputes competitive pressure
// without letting anyone act.
func Refresh(s *game.GameState) float64 {
	renormalizeShares(s)
	var threat float64
	for _, c := range s.Competitors {
		threat += c.Threat()
	}
	s.Market.CompetitivePressure = clamp(threat, 0, 1)
	return s.Market.CompetitivePressure
}

func strength(c game.Competitor) float64 {
	if c.Acquired {
		return 0
	}
	return float64(c.TeamSize) * 100 * (0.5 + c.FeatureParity/100)
}

func renormalizeShares(s *game.GameState) {
	total := s.WAU
	for _, c := range s.Competitors {
		total += strength(c)
	}
	for i := range s.Competitors {
		if total <= 0 {
			s.Competitors[i].MarketShare = 0
			continue
		}
		s.Competitors[i].MarketShare = strength(s.Competitors[i]) / total
	}
}

// PlayerShare is the player's slice of the market, weighted by WAU against
// rival strength.
func PlayerShare(s *game.GameState) float64 {
	total := s.WAU
	for _, c := range s.Competitors {
		total += strength(c)
	}
	if total <= 0 {
		return 0
	}
	return s.WAU / total
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
