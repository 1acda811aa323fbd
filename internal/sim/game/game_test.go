package game

import (
	"errors"
	"testing"
)

func testState() GameState {
	return GameState{
		GameID:        "g1",
		Difficulty:    IndieBootstrap,
		Bank:          50000,
		Burn:          8000,
		FocusSlots:    3,
		Morale:        80,
		Reputation:    50,
		Velocity:      1,
		FounderEquity: 100,
		Roster:        NewRoster("Founder", 0),
		EventCooldowns: map[string]int{
			"server_outage": 2,
		},
		ActiveEvents: []Event{{ID: "e1", Kind: EventDilemma, Choices: []Choice{{ID: "a", Effects: []Effect{Add(StatMorale, 5, "")}}}}},
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := testState()
	c := s.Clone()
	c.EventCooldowns["server_outage"] = 9
	c.ActiveEvents[0].Choices[0].Effects[0].Value = 99
	c.Roster.Hire("Ana", "engineer", 10000, 1)
	c.Unlock(ActCoach)

	if s.EventCooldowns["server_outage"] != 2 {
		t.Fatalf("cooldown map shared")
	}
	if s.ActiveEvents[0].Choices[0].Effects[0].Value != 5 {
		t.Fatalf("event choice effects shared")
	}
	if s.Roster.Size() != 1 || len(s.UnlockedActions) != 0 {
		t.Fatalf("roster or unlocks shared: %+v %+v", s.Roster, s.UnlockedActions)
	}
}

func TestRoster_ArenaKeepsIDsStable(t *testing.T) {
	r := NewRoster("Founder", 0)
	a := r.Hire("Ana", "engineer", 10000, 1)
	b := r.Hire("Ben", "sales", 9000, 2)
	if a != 1 || b != 2 {
		t.Fatalf("unexpected ids: %d %d", a, b)
	}
	if _, ok := r.Depart(FounderID, 3); ok {
		t.Fatalf("founder must not depart")
	}
	m, ok := r.Depart(a, 3)
	if !ok || m.Name != "Ana" || m.DepartedWeek != 3 {
		t.Fatalf("unexpected depart: %+v ok=%v", m, ok)
	}
	if _, ok := r.Depart(a, 4); ok {
		t.Fatalf("departed member cannot depart twice")
	}
	if r.Size() != 2 || len(r.Departed) != 1 || r.Departed[0] != a {
		t.Fatalf("unexpected sets: active=%v departed=%v", r.Active, r.Departed)
	}
	if got, _ := r.Member(b); got.Name != "Ben" {
		t.Fatalf("id lookup drifted: %+v", got)
	}
	if id, ok := r.LatestHire(); !ok || id != b {
		t.Fatalf("latest hire: %d %v", id, ok)
	}
	if r.Payroll() != 9000 {
		t.Fatalf("payroll: %v", r.Payroll())
	}
}

func TestStatus_LegacyRoundTrip(t *testing.T) {
	cases := []GameStatus{
		{Message: "in progress"},
		{GameOver: true, Victory: true, Message: "escape velocity reached"},
		{GameOver: true, Reason: DefeatOutOfMoney, Message: DefeatMessage(DefeatOutOfMoney)},
		{GameOver: true, Reason: DefeatBurnout, Message: DefeatMessage(DefeatBurnout)},
	}
	for _, c := range cases {
		got, err := ParseLegacyStatus(c.Legacy())
		if err != nil {
			t.Fatalf("parse %q: %v", c.Legacy(), err)
		}
		if got != c {
			t.Fatalf("round trip mismatch: %+v vs %+v", got, c)
		}
	}
	if _, err := ParseLegacyStatus("defeat:boredom"); err == nil {
		t.Fatalf("expected unknown reason rejected")
	}
}

func TestCondition_Excess(t *testing.T) {
	c := Condition{Stat: StatTechDebt, Cmp: CmpGT, Value: 70, Scale: 10}
	if c.Excess(65) != 0 {
		t.Fatalf("below threshold should have no excess")
	}
	if got := c.Excess(90); got != 2 {
		t.Fatalf("unexpected excess: %v", got)
	}
	lt := Condition{Stat: StatMorale, Cmp: CmpLT, Value: 50, Scale: 25}
	if got := lt.Excess(25); got != 1 {
		t.Fatalf("unexpected lt excess: %v", got)
	}
}

func TestValidate(t *testing.T) {
	s := testState()
	if err := s.Validate(); err != nil {
		t.Fatalf("valid state rejected: %v", err)
	}
	s.Week = -1
	var ise *InvalidStateError
	if err := s.Validate(); !errors.As(err, &ise) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	s = testState()
	s.FounderEquity = 90
	if err := s.Validate(); err == nil {
		t.Fatalf("expected equity mismatch rejected")
	}
}

func TestValidate_RosterIndexSets(t *testing.T) {
	base := func() GameState {
		s := testState()
		s.Roster.Hire("Ana", "engineer", 10000, 1)
		s.Roster.Hire("Bo", "designer", 9000, 2)
		return s
	}
	s := base()
	if err := s.Validate(); err != nil {
		t.Fatalf("valid roster rejected: %v", err)
	}
	cases := map[string]func(*GameState){
		"duplicate active": func(s *GameState) { s.Roster.Active = []int{0, 1, 1} },
		"unsorted active":  func(s *GameState) { s.Roster.Active = []int{0, 2, 1} },
		"duplicate departed": func(s *GameState) {
			s.Roster.Active = []int{0}
			s.Roster.Departed = []int{1, 1}
		},
		"unsorted departed": func(s *GameState) {
			s.Roster.Active = []int{0}
			s.Roster.Departed = []int{2, 1}
		},
		"departed out of range": func(s *GameState) { s.Roster.Departed = []int{7} },
		"active and departed":   func(s *GameState) { s.Roster.Departed = []int{2} },
	}
	for name, mutate := range cases {
		s := base()
		mutate(&s)
		var ise *InvalidStateError
		if err := s.Validate(); !errors.As(err, &ise) {
			t.Fatalf("%s: expected InvalidStateError, got %v", name, err)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	for in, want := range map[string]Difficulty{
		"indie":          IndieBootstrap,
		"VCTrack":        VCTrack,
		"regulated":      RegulatedFintech,
		"infra_dev_tool": InfraDevTool,
	} {
		got, ok := ParseDifficulty(in)
		if !ok || got != want {
			t.Fatalf("ParseDifficulty(%q) = %v %v", in, got, ok)
		}
	}
	if _, ok := ParseDifficulty("hard"); ok {
		t.Fatalf("expected unknown difficulty rejected")
	}
}

func TestDigest_IgnoresNilVersusEmpty(t *testing.T) {
	a := GameState{GameID: "g", Bank: 100, Achieved: []string{}, EventCooldowns: map[string]int{}, History: []WeekSnapshot{}}
	b := GameState{GameID: "g", Bank: 100}
	da, err := a.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	db, _ := b.Digest()
	if da != db {
		t.Fatalf("nil and empty collections should digest the same")
	}
	b.Bank = 101
	if dc, _ := b.Digest(); dc == db {
		t.Fatalf("different bank, same digest")
	}
}
