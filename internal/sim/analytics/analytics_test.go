package analytics

import (
	"testing"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

func healthy() game.GameState {
	return game.GameState{
		RunwayMonths: 10,
		ChurnRate:    2,
		Morale:       80,
		TechDebt:     10,
		Velocity:     1,
		Reputation:   70,
		MRR:          1000,
		WAU:          500,
		Bank:         100000,
	}
}

func TestThreshold_Boundaries(t *testing.T) {
	cases := []struct {
		stat game.Stat
		v    float64
		want Band
	}{
		{game.StatRunway, 6.01, BandGood},
		{game.StatRunway, 6, BandWarning},
		{game.StatRunway, 3, BandWarning},
		{game.StatRunway, 2.99, BandCritical},
		{game.StatChurn, 2.9, BandGood},
		{game.StatChurn, 5, BandWarning},
		{game.StatChurn, 5.1, BandCritical},
		{game.StatVelocity, 0.9, BandGood},
		{game.StatVelocity, 0.6, BandWarning},
		{game.StatVelocity, 0.59, BandCritical},
		{game.StatTechDebt, 40, BandWarning},
		{game.StatTechDebt, 71, BandCritical},
	}
	for _, tc := range cases {
		for _, th := range Thresholds {
			if th.Stat != tc.stat {
				continue
			}
			if got := th.Classify(tc.v); got != tc.want {
				t.Fatalf("%s=%v: got %s want %s", tc.stat, tc.v, got, tc.want)
			}
		}
	}
}

func TestWarnings_MatchBands(t *testing.T) {
	s := healthy()
	if w := Warnings(&s); len(w) != 0 {
		t.Fatalf("healthy state should have no warnings: %+v", w)
	}
	s.Morale = 45
	s.RunwayMonths = 1
	w := Warnings(&s)
	if len(w) != 2 {
		t.Fatalf("expected two warnings, got %+v", w)
	}
	if w[0].ID != "cash_crunch" || w[0].Severity != SeverityCritical {
		t.Fatalf("critical runway should sort first: %+v", w)
	}
	if w[1].ID != "death_march" || w[1].Severity != SeverityWarning {
		t.Fatalf("morale 45 is a warning: %+v", w[1])
	}
	for _, x := range w {
		band, _ := Classify(&s, x.Stat)
		if severityOf(band) != x.Severity {
			t.Fatalf("warning severity %s disagrees with band %s", x.Severity, band)
		}
	}
}

func TestInsights_SortedAndCapped(t *testing.T) {
	prev := healthy()
	cur := healthy()
	cur.RunwayMonths = 2
	cur.Morale = 20
	cur.Reputation = 50
	cur.MRR = 2000
	cur.TechDebt = 50

	got := Insights(&prev, &cur)
	if len(got) != MaxInsights {
		t.Fatalf("expected %d insights, got %+v", MaxInsights, got)
	}
	if got[0].Severity != SeverityCritical || got[1].Severity != SeverityCritical {
		t.Fatalf("criticals first: %+v", got)
	}
	if got[2].Severity != SeverityWarning {
		t.Fatalf("then warnings: %+v", got)
	}
}

func TestInsights_Recovery(t *testing.T) {
	prev := healthy()
	prev.Morale = 20
	cur := healthy()
	got := Insights(&prev, &cur)
	if len(got) != 1 || got[0].Severity != SeverityPositive || got[0].Stat != game.StatMorale {
		t.Fatalf("expected a single positive morale insight, got %+v", got)
	}
}
