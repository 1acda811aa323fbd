package events

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

func testCatalog() catalogs.EventCatalog {
	defs := []game.EventDef{
		{ID: "debt_crisis", Kind: game.EventDilemma, BaseProbability: 0.3, MaxProbability: 0.9, CooldownWeeks: 8, ExpiresAfter: 2,
			Trigger:       []game.Condition{{Stat: game.StatTechDebt, Cmp: game.CmpGT, Value: 70, Scale: 15}},
			DefaultChoice: "patch",
			Choices: []game.Choice{
				{ID: "rewrite", Effects: []game.Effect{game.Add(game.StatTechDebt, -25, ""), game.Add(game.StatMorale, -4, "")}},
				{ID: "patch", Effects: []game.Effect{game.Add(game.StatTechDebt, -8, "")}},
				{ID: "ignore", Effects: []game.Effect{game.Add(game.StatMorale, -1, "")}, FollowUp: "rewrite_q", FollowUpDelay: 3},
			}},
		{ID: "outage", Kind: game.EventAutomatic, BaseProbability: 0.06, CooldownWeeks: 6,
			Effects: []game.Effect{game.Add(game.StatReputation, -3, ""), game.Add(game.StatIncidents, 1, "")}},
		{ID: "rewrite_q", Kind: game.EventDilemma, BaseProbability: 0, DefaultChoice: "keep",
			Choices: []game.Choice{{ID: "keep", Effects: []game.Effect{game.Mul(game.StatVelocity, 0.9, "")}}}},
		{ID: "audit", Kind: game.EventDilemma, BaseProbability: 1, Difficulties: []game.Difficulty{game.RegulatedFintech},
			Choices: []game.Choice{{ID: "ok", Effects: nil}}},
	}
	c := catalogs.EventCatalog{ByID: map[string]game.EventDef{}}
	for _, d := range defs {
		c.ByID[d.ID] = d
	}
	c.Defs = []game.EventDef{defs[3], defs[0], defs[1], defs[2]}
	return c
}

func testState() game.GameState {
	return game.GameState{
		Difficulty: game.IndieBootstrap,
		Week:       10,
		Morale:     70,
		Reputation: 50,
		TechDebt:   85,
		Velocity:   1,
	}
}

func TestProbability_ScalesWithExcess(t *testing.T) {
	tune := tuning.Defaults().Events
	def := testCatalog().ByID["debt_crisis"]
	s := testState()
	s.TechDebt = 71
	low := Probability(&s, def, tune)
	s.TechDebt = 100
	high := Probability(&s, def, tune)
	if !(high > low) {
		t.Fatalf("further past threshold should be likelier: %v vs %v", low, high)
	}
	// 0.3 * (1 + 30/15) = 0.9
	if math.Abs(high-0.9) > 1e-9 {
		t.Fatalf("unexpected probability %v", high)
	}
}

func TestCheck_SkipsActiveAndCoolingDown(t *testing.T) {
	cat := testCatalog()
	tune := tuning.Defaults().Events
	s := testState()

	got := Check(&s, nil, cat, tune, 1, rng.Fixed(0))
	if len(got) != 2 || got[0].ID != "debt_crisis" || got[1].ID != "outage" {
		t.Fatalf("expected debt_crisis and outage, got %+v", got)
	}

	got = Check(&s, []game.Event{{ID: "debt_crisis"}}, cat, tune, 1, rng.Fixed(0))
	if len(got) != 1 || got[0].ID != "outage" {
		t.Fatalf("active event must be skipped, got %+v", got)
	}

	s.EventCooldowns = map[string]int{"outage": 2}
	got = Check(&s, []game.Event{{ID: "debt_crisis"}}, cat, tune, 1, rng.Fixed(0))
	if len(got) != 0 {
		t.Fatalf("cooling down event must be skipped, got %+v", got)
	}
}

func TestCheck_RespectsWeeklyCap(t *testing.T) {
	cat := testCatalog()
	tune := tuning.Defaults().Events
	tune.MaxPerWeek = 1
	s := testState()
	if got := Check(&s, nil, cat, tune, 1, rng.Fixed(0)); len(got) != 1 {
		t.Fatalf("cap of 1 exceeded: %+v", got)
	}
}

func TestCheck_DeterministicPerSeed(t *testing.T) {
	cat := testCatalog()
	tune := tuning.Defaults().Events
	s := testState()
	a := Check(&s, nil, cat, tune, 1, rng.New(99, s.Week, rng.SaltEvents))
	b := Check(&s, nil, cat, tune, 1, rng.New(99, s.Week, rng.SaltEvents))
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed and week gave different events")
	}
}

func TestInstance_SeverityScalesHarm(t *testing.T) {
	def := testCatalog().ByID["debt_crisis"]
	ev := Instance(def, 10, 1.5, tuning.Defaults().Events)
	rw, _ := ev.Choice("rewrite")
	if rw.Effects[0].Value != -25 || rw.Effects[1].Value != -6 {
		t.Fatalf("only harmful effects scale: %+v", rw.Effects)
	}
	if ev.ExpiresWeek != 12 {
		t.Fatalf("expires week %d", ev.ExpiresWeek)
	}
}

func TestResolve_EventOutsideActiveSet(t *testing.T) {
	cat := testCatalog()
	tune := tuning.Defaults().Events
	s := testState()
	ev := Instance(cat.ByID["debt_crisis"], s.Week, 1, tune)

	before := s.Clone()
	var cnf *game.ChoiceNotFoundError
	if _, err := Resolve(&s, ev, "nope"); !errors.As(err, &cnf) {
		t.Fatalf("expected ChoiceNotFoundError, got %v", err)
	}
	if !reflect.DeepEqual(before, s) {
		t.Fatalf("state changed on unknown choice")
	}
	if _, err := Resolve(&s, ev, "ignore"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Morale != 69 || s.EventCooldowns["debt_crisis"] != 8 || len(s.ScheduledEvents) != 1 {
		t.Fatalf("choice not applied: morale=%v cooldowns=%v scheduled=%v", s.Morale, s.EventCooldowns, s.ScheduledEvents)
	}
}

func TestApplyChoice(t *testing.T) {
	cat := testCatalog()
	tune := tuning.Defaults().Events
	s := testState()
	if err := Raise(&s, Instance(cat.ByID["debt_crisis"], s.Week, 1, tune)); err != nil {
		t.Fatalf("raise: %v", err)
	}

	before := s.Clone()
	_, err := ApplyChoice(&s, "debt_crisis", "nope")
	var cnf *game.ChoiceNotFoundError
	if !errors.As(err, &cnf) {
		t.Fatalf("expected ChoiceNotFoundError, got %v", err)
	}
	if !reflect.DeepEqual(before, s) {
		t.Fatalf("state changed on unknown choice")
	}

	if _, err := ApplyChoice(&s, "outage", "x"); err == nil {
		t.Fatalf("inactive event must be rejected")
	}

	if _, err := ApplyChoice(&s, "debt_crisis", "ignore"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(s.ActiveEvents) != 0 || s.Morale != 69 {
		t.Fatalf("choice not applied: %+v morale=%v", s.ActiveEvents, s.Morale)
	}
	if s.EventCooldowns["debt_crisis"] != 8 {
		t.Fatalf("cooldown not set: %+v", s.EventCooldowns)
	}
	if len(s.ScheduledEvents) != 1 || s.ScheduledEvents[0] != (game.ScheduledEvent{ID: "rewrite_q", DueWeek: 13}) {
		t.Fatalf("follow-up not scheduled: %+v", s.ScheduledEvents)
	}

	s.Week = 13
	got := Check(&s, nil, cat, tune, 1, rng.Fixed(0.999))
	if len(got) != 1 || got[0].ID != "rewrite_q" {
		t.Fatalf("due follow-up should surface first: %+v", got)
	}
	if err := Raise(&s, got[0]); err != nil {
		t.Fatalf("raise follow-up: %v", err)
	}
	if len(s.ScheduledEvents) != 0 {
		t.Fatalf("follow-up should be consumed: %+v", s.ScheduledEvents)
	}
}

func TestRaise_AutomaticAppliesAndCoolsDown(t *testing.T) {
	cat := testCatalog()
	s := testState()
	if err := Raise(&s, Instance(cat.ByID["outage"], s.Week, 1, tuning.Defaults().Events)); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if s.Reputation != 47 || s.Incidents != 1 || s.EventCooldowns["outage"] != 6 {
		t.Fatalf("automatic event not applied: rep=%v incidents=%d cd=%v", s.Reputation, s.Incidents, s.EventCooldowns)
	}
	for i := 0; i < 6; i++ {
		TickCooldowns(&s)
	}
	if _, ok := s.EventCooldowns["outage"]; ok {
		t.Fatalf("cooldown should have run out")
	}
}

func TestExpire_AppliesDefault(t *testing.T) {
	cat := testCatalog()
	s := testState()
	_ = Raise(&s, Instance(cat.ByID["debt_crisis"], s.Week, 1, tuning.Defaults().Events))
	s.Week = 11
	if out, _ := Expire(&s); len(out) != 0 {
		t.Fatalf("nothing should expire yet: %+v", out)
	}
	s.Week = 12
	out, err := Expire(&s)
	if err != nil || len(out) != 1 || out[0].ChoiceID != "patch" {
		t.Fatalf("expected default patch, got %+v %v", out, err)
	}
	if s.TechDebt != 77 || len(s.ActiveEvents) != 0 {
		t.Fatalf("default choice not applied: debt=%v active=%d", s.TechDebt, len(s.ActiveEvents))
	}
}
