// Package synergy matches action combinations against the rule table and
// tracks the specialization path a player settles into.
package synergy

import (
	"math"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

// Detect returns every rule whose required actions are covered by current
// plus the trailing window of recent turns (newest last). Rules are scanned
// in table order; a rule excluded by an already matched one is dropped.
func Detect(current []game.ActionKind, recent [][]game.ActionKind, rules []game.SynergyRule, defaultWindow int) []game.SynergyMatch {
	return detect(current, recent, rules, defaultWindow, false)
}

// DetectFresh is Detect restricted to rules with at least one required
// action in current, so a weekly step pays a bonus when it is earned and
// not again every week after.
func DetectFresh(current []game.ActionKind, recent [][]game.ActionKind, rules []game.SynergyRule, defaultWindow int) []game.SynergyMatch {
	return detect(current, recent, rules, defaultWindow, true)
}

func detect(current []game.ActionKind, recent [][]game.ActionKind, rules []game.SynergyRule, defaultWindow int, fresh bool) []game.SynergyMatch {
	now := set(current)
	var out []game.SynergyMatch
	matched := map[string]game.SynergyRule{}
	for _, r := range rules {
		w := r.Window
		if w <= 0 {
			w = defaultWindow
		}
		ok, touched := covered(r.Requires, now, trailing(recent, w))
		if !ok || fresh && !touched {
			continue
		}
		if excluded(r, matched) {
			continue
		}
		matched[r.ID] = r
		out = append(out, game.SynergyMatch{
			RuleID:  r.ID,
			Label:   r.Label,
			Effects: game.WithSource(r.Effects, "synergy:"+r.ID),
		})
	}
	return out
}

func set(kinds []game.ActionKind) map[game.ActionKind]bool {
	m := make(map[game.ActionKind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

func trailing(recent [][]game.ActionKind, w int) map[game.ActionKind]bool {
	m := map[game.ActionKind]bool{}
	start := len(recent) - w
	if start < 0 {
		start = 0
	}
	for _, turn := range recent[start:] {
		for _, k := range turn {
			m[k] = true
		}
	}
	return m
}

// covered reports whether req is within now ∪ past, and whether any of it
// is in now.
func covered(req []game.ActionKind, now, past map[game.ActionKind]bool) (ok, touched bool) {
	for _, k := range req {
		switch {
		case now[k]:
			touched = true
		case past[k]:
		default:
			return false, false
		}
	}
	return true, touched
}

func excluded(r game.SynergyRule, matched map[string]game.SynergyRule) bool {
	for _, x := range r.ExclusiveWith {
		if _, ok := matched[x]; ok {
			return true
		}
	}
	for _, m := range matched {
		for _, x := range m.ExclusiveWith {
			if x == r.ID {
				return true
			}
		}
	}
	return false
}

// ComboScore rates how well this week's actions played together.
func ComboScore(matches []game.SynergyMatch) float64 {
	return math.Min(2, 0.3*float64(len(matches)))
}

// Effects flattens the bonus bundles of every match, in match order.
func Effects(matches []game.SynergyMatch) []game.Effect {
	var out []game.Effect
	for _, m := range matches {
		out = append(out, m.Effects...)
	}
	return out
}

type Path struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Category game.Category `json:"category"`
	Effects  []game.Effect `json:"effects"`
}

var paths = map[game.Category]Path{
	game.CategoryProduct: {ID: "product_led", Label: "Product-Led", Category: game.CategoryProduct, Effects: []game.Effect{
		game.Add(game.StatTechDebt, -1, "path:product_led"),
		game.Add(game.StatNPS, 1, "path:product_led"),
	}},
	game.CategoryGrowth: {ID: "growth_hacker", Label: "Growth Hacker", Category: game.CategoryGrowth, Effects: []game.Effect{
		game.Add(game.StatWAUGrowth, 0.5, "path:growth_hacker"),
	}},
	game.CategoryOperations: {ID: "operator", Label: "Operator", Category: game.CategoryOperations, Effects: []game.Effect{
		game.Mul(game.StatVelocity, 1.01, "path:operator"),
	}},
	game.CategoryCustomer: {ID: "customer_centric", Label: "Customer-Centric", Category: game.CategoryCustomer, Effects: []game.Effect{
		game.Add(game.StatChurn, -0.2, "path:customer_centric"),
		game.Add(game.StatNPS, 0.5, "path:customer_centric"),
	}},
}

// PathByID looks a specialization path up by its id.
func PathByID(id string) (Path, bool) {
	for _, p := range paths {
		if p.ID == id {
			return p, true
		}
	}
	return Path{}, false
}

// Specialize finds the category that dominates the trailing window. ok is
// false while no category holds the required share or too few actions were
// taken.
func Specialize(recent [][]game.ActionKind, actions catalogs.ActionCatalog, tune tuning.Synergy) (Path, bool) {
	start := len(recent) - tune.SpecializationWeeks
	if start < 0 {
		start = 0
	}
	counts := map[game.Category]int{}
	total := 0
	for _, turn := range recent[start:] {
		for _, k := range turn {
			def, ok := actions.Def(k)
			if !ok {
				continue
			}
			counts[def.Category]++
			total++
		}
	}
	if total == 0 || total < tune.SpecializationMin {
		return Path{}, false
	}
	for _, c := range []game.Category{game.CategoryProduct, game.CategoryGrowth, game.CategoryOperations, game.CategoryCustomer} {
		if float64(counts[c])/float64(total) >= tune.SpecializationShare {
			return paths[c], true
		}
	}
	return Path{}, false
}
