package actions

import (
	"errors"
	"testing"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

func testCtx(t *testing.T, d game.Difficulty, src rng.Source) (Context, *catalogs.Catalogs) {
	t.Helper()
	cat, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune := tuning.Defaults()
	return Context{Tune: tune, Difficulty: tune.Difficulty(d), Catalogs: cat, Src: src}, cat
}

func indie() game.GameState {
	return game.GameState{
		Difficulty:    game.IndieBootstrap,
		Week:          1,
		Bank:          50000,
		Burn:          8000,
		WAU:           100,
		Morale:        80,
		Reputation:    50,
		TechDebt:      10,
		Velocity:      1,
		FocusSlots:    3,
		FounderEquity: 100,
		Market:        game.MarketState{Demand: 1},
		Roster:        game.NewRoster("Founder", 0),
		UnlockedActions: []game.ActionKind{
			game.ActFounderLedSales, game.ActFundraise, game.ActHire, game.ActShipFeature, game.ActTakeBreak,
		},
	}
}

func TestValidate(t *testing.T) {
	_, cat := testCtx(t, game.IndieBootstrap, rng.Fixed(0.5))
	s := indie()

	cases := []struct {
		name string
		acts []game.Action
		want any
	}{
		{"unknown", []game.Action{{Kind: "teleport"}}, &game.InvalidActionError{}},
		{"locked", []game.Action{{Kind: game.ActRefactorCode}}, &game.InvalidActionError{}},
		{"duplicate", []game.Action{{Kind: game.ActShipFeature}, {Kind: game.ActShipFeature}}, &game.InvalidActionError{}},
		{"bad quality", []game.Action{{Kind: game.ActShipFeature, Quality: "sloppy"}}, &game.InvalidActionError{}},
		{"capacity", []game.Action{{Kind: game.ActHire}, {Kind: game.ActFundraise}}, &game.CapacityExceededError{}},
	}
	for _, tc := range cases {
		err := Validate(&s, tc.acts, cat.Actions)
		switch tc.want.(type) {
		case *game.InvalidActionError:
			var e *game.InvalidActionError
			if !errors.As(err, &e) {
				t.Fatalf("%s: expected InvalidActionError, got %v", tc.name, err)
			}
		case *game.CapacityExceededError:
			var e *game.CapacityExceededError
			if !errors.As(err, &e) || e.Needed != 4 || e.Available != 3 {
				t.Fatalf("%s: expected CapacityExceededError 4/3, got %v", tc.name, err)
			}
		}
	}
	if err := Validate(&s, []game.Action{{Kind: game.ActShipFeature}, {Kind: game.ActHire}}, cat.Actions); err != nil {
		t.Fatalf("valid turn rejected: %v", err)
	}
}

func TestValidate_DevRelOutOfScopeForFintech(t *testing.T) {
	_, cat := testCtx(t, game.RegulatedFintech, rng.Fixed(0.5))
	s := indie()
	s.Difficulty = game.RegulatedFintech
	s.Unlock(game.ActDevRel)
	var e *game.InvalidActionError
	if err := Validate(&s, []game.Action{{Kind: game.ActDevRel}}, cat.Actions); !errors.As(err, &e) {
		t.Fatalf("dev_rel should be out of scope for fintech, got %v", err)
	}
	for _, d := range Available(&s, cat.Actions) {
		if d.Kind == game.ActDevRel {
			t.Fatalf("dev_rel offered to fintech")
		}
	}
}

func TestAvailable_FiltersByCostAndUnlocks(t *testing.T) {
	_, cat := testCtx(t, game.IndieBootstrap, rng.Fixed(0.5))
	s := indie()
	s.FocusSlots = 1
	for _, d := range Available(&s, cat.Actions) {
		if d.FocusCost > 1 {
			t.Fatalf("%s costs %d, more than the single slot", d.Kind, d.FocusCost)
		}
		if !s.IsUnlocked(d.Kind) {
			t.Fatalf("%s is locked", d.Kind)
		}
	}
}

func TestResolve_FireNeedsHire(t *testing.T) {
	_, cat := testCtx(t, game.IndieBootstrap, rng.Fixed(0.5))
	s := indie()
	s.Unlock(game.ActFire)
	var e *game.InvalidActionError
	if err := Validate(&s, []game.Action{{Kind: game.ActFire}}, cat.Actions); !errors.As(err, &e) {
		t.Fatalf("firing with no hires should be rejected, got %v", err)
	}
}

func TestAvailable_FireOnlyWithSomeoneToLetGo(t *testing.T) {
	ctx, cat := testCtx(t, game.IndieBootstrap, rng.Fixed(0.5))
	s := indie()
	s.Unlock(game.ActFire)
	offered := func() bool {
		for _, d := range Available(&s, cat.Actions) {
			if d.Kind == game.ActFire {
				return true
			}
		}
		return false
	}
	if offered() {
		t.Fatalf("fire offered with only the founder on the roster")
	}
	if _, err := Resolve(&s, game.Action{Kind: game.ActHire, Role: "designer"}, ctx); err != nil {
		t.Fatalf("hire: %v", err)
	}
	if !offered() {
		t.Fatalf("fire should be offered once someone is hired")
	}
	if err := Validate(&s, []game.Action{{Kind: game.ActFire}}, cat.Actions); err != nil {
		t.Fatalf("offered action rejected: %v", err)
	}
}

func TestResolve_HireThenFire(t *testing.T) {
	ctx, _ := testCtx(t, game.IndieBootstrap, rng.Fixed(0.5))
	s := indie()
	if _, err := Resolve(&s, game.Action{Kind: game.ActHire, Role: "designer"}, ctx); err != nil {
		t.Fatalf("hire: %v", err)
	}
	if s.Roster.Size() != 2 || s.Burn != 18000 {
		t.Fatalf("hire should add a member and salary: size=%d burn=%v", s.Roster.Size(), s.Burn)
	}
	if _, err := Resolve(&s, game.Action{Kind: game.ActFire}, ctx); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if s.Roster.Size() != 1 || s.Burn != 8000 || len(s.Roster.Departed) != 1 {
		t.Fatalf("fire should remove the hire: %+v burn=%v", s.Roster, s.Burn)
	}
	if s.Roster.Members[1].DepartedWeek != 1 {
		t.Fatalf("departure week not recorded")
	}
}

func TestResolve_SalesBookAccounts(t *testing.T) {
	ctx, _ := testCtx(t, game.IndieBootstrap, rng.Fixed(0))
	s := indie()
	out, err := Resolve(&s, game.Action{Kind: game.ActFounderLedSales, Calls: 3}, ctx)
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if len(s.Customers.Accounts) != 3 {
		t.Fatalf("every call should close on a zero roll, got %d accounts (%s)", len(s.Customers.Accounts), out.Summary)
	}
	if s.MRR != s.Customers.AccountMRR() || s.MRR != 1200 {
		t.Fatalf("mrr %v should equal booked accounts %v", s.MRR, s.Customers.AccountMRR())
	}
	if s.Morale != 78.5 {
		t.Fatalf("three calls cost 1.5 morale, got %v", s.Morale)
	}
}

func TestResolve_FundraiseDilutes(t *testing.T) {
	ctx, _ := testCtx(t, game.IndieBootstrap, rng.Fixed(0))
	s := indie()
	if _, err := Resolve(&s, game.Action{Kind: game.ActFundraise, Target: 2_500_000}, ctx); err != nil {
		t.Fatalf("fundraise: %v", err)
	}
	if s.Bank != 2_550_000 {
		t.Fatalf("bank %v", s.Bank)
	}
	if s.FounderEquity != 90 || s.InvestorShare != 10 {
		t.Fatalf("2.5M should dilute 10%%: founder=%v investors=%v", s.FounderEquity, s.InvestorShare)
	}

	ctx.Src = rng.Fixed(0.999)
	s = indie()
	if _, err := Resolve(&s, game.Action{Kind: game.ActFundraise}, ctx); err != nil {
		t.Fatalf("fundraise: %v", err)
	}
	if s.Bank != 50000 || s.Morale != 70 {
		t.Fatalf("failed raise should only cost morale: bank=%v morale=%v", s.Bank, s.Morale)
	}
}

func TestResolve_GrowthScalesWithDifficulty(t *testing.T) {
	indieCtx, _ := testCtx(t, game.IndieBootstrap, rng.Fixed(0.5))
	vcCtx, _ := testCtx(t, game.VCTrack, rng.Fixed(0.5))
	a := indie()
	b := indie()
	if _, err := Resolve(&a, game.Action{Kind: game.ActShipFeature}, indieCtx); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if _, err := Resolve(&b, game.Action{Kind: game.ActShipFeature}, vcCtx); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if a.WAUGrowthRate >= b.WAUGrowthRate {
		t.Fatalf("vc growth modifier should beat indie: %v vs %v", a.WAUGrowthRate, b.WAUGrowthRate)
	}
	if a.TechDebt != 12 {
		t.Fatalf("balanced ship adds 2 debt unscaled, got %v", a.TechDebt)
	}
}

func TestResolve_DelayedEffectParked(t *testing.T) {
	ctx, _ := testCtx(t, game.IndieBootstrap, rng.Fixed(0.5))
	s := indie()
	s.Unlock(game.ActRefactorCode)
	if _, err := Resolve(&s, game.Action{Kind: game.ActRefactorCode}, ctx); err != nil {
		t.Fatalf("refactor: %v", err)
	}
	if s.Velocity != 1 || len(s.PendingEffects) != 1 || s.PendingEffects[0].DueWeek != 2 {
		t.Fatalf("velocity bonus should land next week: v=%v pending=%+v", s.Velocity, s.PendingEffects)
	}
}
