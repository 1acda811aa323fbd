// Package analytics classifies metrics into bands and derives the insights
// and warnings shown next to the dashboard. Everything here is read-only.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

type Band string

const (
	BandGood     Band = "good"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// Threshold is one metric's banding. The UI colours with the same table.
type Threshold struct {
	Stat          game.Stat `json:"stat"`
	HigherIsGood  bool      `json:"higher_is_good"`
	Good          float64   `json:"good"`
	Critical      float64   `json:"critical"`
	GoodInclusive bool      `json:"good_inclusive,omitempty"`
}

var Thresholds = []Threshold{
	{Stat: game.StatRunway, HigherIsGood: true, Good: 6, Critical: 3},
	{Stat: game.StatChurn, Good: 3, Critical: 5},
	{Stat: game.StatMorale, HigherIsGood: true, Good: 60, Critical: 30},
	{Stat: game.StatTechDebt, Good: 40, Critical: 70},
	{Stat: game.StatVelocity, HigherIsGood: true, Good: 0.9, Critical: 0.6, GoodInclusive: true},
	{Stat: game.StatReputation, HigherIsGood: true, Good: 60, Critical: 30},
}

func (t Threshold) Classify(v float64) Band {
	if t.HigherIsGood {
		switch {
		case v > t.Good || (t.GoodInclusive && v == t.Good):
			return BandGood
		case v < t.Critical:
			return BandCritical
		default:
			return BandWarning
		}
	}
	switch {
	case v < t.Good || (t.GoodInclusive && v == t.Good):
		return BandGood
	case v > t.Critical:
		return BandCritical
	default:
		return BandWarning
	}
}

// Classify bands one stat of s. ok is false for stats without a band.
func Classify(s *game.GameState, stat game.Stat) (Band, bool) {
	for _, t := range Thresholds {
		if t.Stat == stat {
			v, _ := s.Metric(stat)
			return t.Classify(v), true
		}
	}
	return "", false
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityPositive Severity = "positive"
	SeverityInfo     Severity = "info"
)

func rank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityPositive:
		return 2
	default:
		return 3
	}
}

func severityOf(b Band) Severity {
	switch b {
	case BandCritical:
		return SeverityCritical
	case BandWarning:
		return SeverityWarning
	default:
		return SeverityPositive
	}
}

type Insight struct {
	Stat     game.Stat `json:"stat"`
	Severity Severity  `json:"severity"`
	Band     Band      `json:"band,omitempty"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Delta    float64   `json:"delta"`
}

// MaxInsights bounds the list returned by Insights.
const MaxInsights = 3

var labels = map[game.Stat]string{
	game.StatRunway:     "Runway",
	game.StatChurn:      "Churn",
	game.StatMorale:     "Morale",
	game.StatTechDebt:   "Tech debt",
	game.StatVelocity:   "Velocity",
	game.StatReputation: "Reputation",
	game.StatMRR:        "MRR",
	game.StatWAU:        "Weekly actives",
	game.StatBank:       "Bank",
}

// Insights compares two snapshots. Band changes come first; large moves in
// revenue, users and cash fill the rest. At most MaxInsights are returned,
// most severe first.
func Insights(prev, cur *game.GameState) []Insight {
	var out []Insight
	for _, t := range Thresholds {
		a, _ := prev.Metric(t.Stat)
		b, _ := cur.Metric(t.Stat)
		from, to := t.Classify(a), t.Classify(b)
		if from == to {
			continue
		}
		sev := severityOf(to)
		verb := "recovered to"
		if worse(from, to) {
			verb = "slipped to"
		}
		out = append(out, Insight{
			Stat:     t.Stat,
			Severity: sev,
			Band:     to,
			Title:    fmt.Sprintf("%s %s %s", labels[t.Stat], verb, to),
			Message:  fmt.Sprintf("%s moved from %s to %s.", labels[t.Stat], format(t.Stat, a), format(t.Stat, b)),
			Delta:    b - a,
		})
	}
	out = append(out, trend(prev, cur, game.StatMRR, 0.2)...)
	out = append(out, trend(prev, cur, game.StatWAU, 0.2)...)
	out = append(out, trend(prev, cur, game.StatBank, 0.25)...)

	sort.SliceStable(out, func(i, j int) bool { return rank(out[i].Severity) < rank(out[j].Severity) })
	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out
}

func worse(from, to Band) bool {
	order := map[Band]int{BandGood: 0, BandWarning: 1, BandCritical: 2}
	return order[to] > order[from]
}

func trend(prev, cur *game.GameState, stat game.Stat, frac float64) []Insight {
	a, _ := prev.Metric(stat)
	b, _ := cur.Metric(stat)
	if a <= 0 || math.Abs(b-a) < frac*a {
		return nil
	}
	in := Insight{Stat: stat, Delta: b - a, Message: fmt.Sprintf("%s went from %s to %s.", labels[stat], format(stat, a), format(stat, b))}
	if b > a {
		in.Severity = SeverityPositive
		in.Title = labels[stat] + " jumped"
	} else {
		in.Severity = SeverityWarning
		in.Title = labels[stat] + " dropped"
	}
	return []Insight{in}
}

func format(stat game.Stat, v float64) string {
	switch stat {
	case game.StatBank, game.StatMRR:
		return fmt.Sprintf("$%.0f", v)
	case game.StatRunway:
		return fmt.Sprintf("%.1f months", v)
	case game.StatChurn:
		return fmt.Sprintf("%.1f%%", v)
	case game.StatVelocity:
		return fmt.Sprintf("%.2fx", v)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

type Warning struct {
	ID       string    `json:"id"`
	Stat     game.Stat `json:"stat"`
	Severity Severity  `json:"severity"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Value    float64   `json:"value"`
}

var warningDefs = []struct {
	id    string
	stat  game.Stat
	title string
}{
	{"cash_crunch", game.StatRunway, "Cash crunch"},
	{"death_march", game.StatMorale, "Death march"},
	{"customer_exodus", game.StatChurn, "Customer exodus"},
	{"technical_bankruptcy", game.StatTechDebt, "Technical bankruptcy"},
	{"velocity_collapse", game.StatVelocity, "Velocity collapse"},
	{"reputation_crisis", game.StatReputation, "Reputation crisis"},
}

// Warnings lists every metric sitting in its warning or critical band,
// critical ones first.
func Warnings(s *game.GameState) []Warning {
	var out []Warning
	for _, w := range warningDefs {
		band, _ := Classify(s, w.stat)
		if band == BandGood {
			continue
		}
		v, _ := s.Metric(w.stat)
		out = append(out, Warning{
			ID:       w.id,
			Stat:     w.stat,
			Severity: severityOf(band),
			Title:    w.title,
			Message:  fmt.Sprintf("%s is at %s (%s).", labels[w.stat], format(w.stat, v), band),
			Value:    v,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i].Severity) < rank(out[j].Severity) })
	return out
}
