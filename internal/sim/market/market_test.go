package market

import (
	"reflect"
	"testing"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

func mustCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	c, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return c
}

func TestUpdate_DemandStaysBounded(t *testing.T) {
	cat := mustCatalogs(t)
	tune := tuning.Defaults().Market
	m := game.MarketState{Demand: 1}
	for week := 1; week <= 200; week++ {
		Update(&m, tune, cat.Market, rng.New(42, week, rng.SaltMarket))
		if m.Demand < tune.DemandMin || m.Demand > tune.DemandMax {
			t.Fatalf("week %d: demand %v out of bounds", week, m.Demand)
		}
		if len(m.Conditions) > tune.MaxActiveConditions {
			t.Fatalf("week %d: %d active conditions", week, len(m.Conditions))
		}
		seen := map[string]bool{}
		for _, c := range m.Conditions {
			if seen[c.ID] {
				t.Fatalf("week %d: condition %s active twice", week, c.ID)
			}
			seen[c.ID] = true
			if c.WeeksRemaining <= 0 || c.WeeksRemaining > c.MaxWeeks {
				t.Fatalf("week %d: bad duration %+v", week, c)
			}
		}
	}
}

func TestUpdate_SameSeedSameMarket(t *testing.T) {
	cat := mustCatalogs(t)
	tune := tuning.Defaults().Market
	a := game.MarketState{Demand: 1}
	b := game.MarketState{Demand: 1}
	for week := 1; week <= 40; week++ {
		ra := Update(&a, tune, cat.Market, rng.New(7, week, rng.SaltMarket))
		rb := Update(&b, tune, cat.Market, rng.New(7, week, rng.SaltMarket))
		if !reflect.DeepEqual(ra, rb) {
			t.Fatalf("week %d: reports diverged %+v vs %+v", week, ra, rb)
		}
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("markets diverged")
	}
}

func TestUpdate_ForcedCondition(t *testing.T) {
	cat := mustCatalogs(t)
	tune := tuning.Defaults().Market
	m := game.MarketState{Demand: 1}
	rep := Update(&m, tune, cat.Market, rng.Fixed(0))
	if len(rep.Started) != 1 || len(m.Conditions) != 1 {
		t.Fatalf("roll of 0 should start a condition: %+v", rep)
	}
	c := m.Conditions[0]
	if c.WeeksRemaining != c.MinWeeks {
		t.Fatalf("fixed roll should give min duration, got %d", c.WeeksRemaining)
	}
	rep = Update(&m, tune, cat.Market, rng.Fixed(0.999))
	if len(rep.Started) != 0 {
		t.Fatalf("high roll should not start a condition")
	}
}

func TestEffectiveness_Clamped(t *testing.T) {
	tune := tuning.Defaults().Market
	m := game.MarketState{Conditions: []game.MarketCondition{
		{ID: "a", Modifiers: []game.Modifier{{Target: game.ModWAUGrowth, Multiplier: 1.8}}},
		{ID: "b", Modifiers: []game.Modifier{{Target: game.ModWAUGrowth, Multiplier: 1.5}}},
		{ID: "c", Modifiers: []game.Modifier{{Target: game.ModFundraising, Multiplier: 0.2}}},
	}}
	if got := Effectiveness(m, game.ModWAUGrowth, tune); got != tune.EffectivenessMax {
		t.Fatalf("growth effectiveness %v", got)
	}
	if got := Effectiveness(m, game.ModFundraising, tune); got != tune.EffectivenessMin {
		t.Fatalf("fundraising effectiveness %v", got)
	}
	if got := Effectiveness(m, game.ModBurn, tune); got != 1 {
		t.Fatalf("untouched target should be 1, got %v", got)
	}
}

func competitorState(t *testing.T, velocity, wau float64) game.GameState {
	cat := mustCatalogs(t)
	diff := tuning.Defaults().Difficulty(game.VCTrack)
	return game.GameState{
		Week:        5,
		Velocity:    velocity,
		WAU:         wau,
		Competitors: NewCompetitors(3, diff, cat.Competitors, rng.New(11, 0, rng.SaltNewGame)),
	}
}

func TestNewCompetitors_Distinct(t *testing.T) {
	s := competitorState(t, 1, 100)
	if len(s.Competitors) != 3 {
		t.Fatalf("expected 3 competitors, got %d", len(s.Competitors))
	}
	names := map[string]bool{}
	for _, c := range s.Competitors {
		if names[c.Name] {
			t.Fatalf("duplicate competitor name %s", c.Name)
		}
		names[c.Name] = true
		if c.Aggressiveness < 0.5 || c.Aggressiveness > 0.8 {
			t.Fatalf("vc aggressiveness out of range: %v", c.Aggressiveness)
		}
		if c.TeamSize < 1 || c.TeamSize > 500 {
			t.Fatalf("team size %d", c.TeamSize)
		}
	}
}

func TestUpdateCompetitors_MovesIndependentOfPlayer(t *testing.T) {
	slow := competitorState(t, 0.3, 100)
	fast := competitorState(t, 2.5, 5000)
	for week := 6; week < 30; week++ {
		slow.Week, fast.Week = week, week
		tune := tuning.Defaults().Market
		rs := UpdateCompetitors(&slow, tune, rng.New(11, week, rng.SaltCompetitors))
		rf := UpdateCompetitors(&fast, tune, rng.New(11, week, rng.SaltCompetitors))
		if !reflect.DeepEqual(rs.Moves, rf.Moves) {
			t.Fatalf("week %d: moves depend on player: %+v vs %+v", week, rs.Moves, rf.Moves)
		}
	}
	if PlayerShare(&fast) <= PlayerShare(&slow) {
		t.Fatalf("more users should mean more share")
	}
}

func TestUpdateCompetitors_AlwaysActsOnLowRoll(t *testing.T) {
	s := competitorState(t, 1, 100)
	rep := UpdateCompetitors(&s, tuning.Defaults().Market, rng.Fixed(0))
	if len(rep.Moves) != 3 {
		t.Fatalf("every rival should act on a zero roll, got %+v", rep.Moves)
	}
	for _, c := range s.Competitors {
		if len(c.Moves) != 1 || c.Moves[0].Week != 5 {
			t.Fatalf("move log not recorded: %+v", c.Moves)
		}
	}
	if s.Market.CompetitivePressure < 0 || s.Market.CompetitivePressure > 1 {
		t.Fatalf("pressure out of range: %v", s.Market.CompetitivePressure)
	}
}

func TestStatus_SortedByThreat(t *testing.T) {
	s := competitorState(t, 1, 100)
	UpdateCompetitors(&s, tuning.Defaults().Market, rng.Fixed(0.999))
	snap := Status(&s)
	for i := 1; i < len(snap.Competitors); i++ {
		if snap.Competitors[i-1].Threat() < snap.Competitors[i].Threat() {
			t.Fatalf("competitors not sorted by threat")
		}
	}
	if snap.TopThreat != snap.Competitors[0].ID {
		t.Fatalf("top threat %q", snap.TopThreat)
	}
	snap.Competitors[0].Name = "mutated"
	if s.Competitors[0].Name == "mutated" {
		t.Fatalf("status must not alias state")
	}
}

type countingSource struct {
	rng.Source
	n int
}

func (c *countingSource) Uint64() uint64   { c.n++; return c.Source.Uint64() }
func (c *countingSource) Float64() float64 { c.n++; return c.Source.Float64() }

func TestUpdateCompetitors_DrawCountIgnoresAggressiveness(t *testing.T) {
	tune := tuning.Defaults().Market
	counts := map[float64]int{}
	for _, aggr := range []float64{0, 0.5, 100} {
		s := competitorState(t, 1, 100)
		for i := range s.Competitors {
			s.Competitors[i].Aggressiveness = aggr
		}
		src := &countingSource{Source: rng.New(11, 5, rng.SaltCompetitors)}
		UpdateCompetitors(&s, tune, src)
		counts[aggr] = src.n
	}
	if counts[0] != 9 || counts[0.5] != 9 || counts[100] != 9 {
		t.Fatalf("want 3 draws per rival whatever the odds, got %v", counts)
	}
}

func TestUpdate_DrawCountIgnoresProbability(t *testing.T) {
	cat := mustCatalogs(t)
	counts := map[float64]int{}
	for _, p := range []float64{0, 0.15, 1} {
		tune := tuning.Defaults().Market
		tune.NewConditionProbability = p
		m := game.MarketState{Demand: 1}
		src := &countingSource{Source: rng.New(3, 7, rng.SaltMarket)}
		Update(&m, tune, cat.Market, src)
		counts[p] = src.n
	}
	if counts[0] != counts[0.15] || counts[0] != counts[1] {
		t.Fatalf("draws depend on the condition probability: %v", counts)
	}
}
