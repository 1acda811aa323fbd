package main

import "github.com/acailic/founders-dilemma-sub001/internal/sim/game"

// plan fills the week's focus slots from a fixed priority list that bends
// to the state: cash first when runway is short, rest when morale sags.
func plan(s game.GameState, defs []game.ActionDef) []game.Action {
	cost := map[game.ActionKind]int{}
	for _, d := range defs {
		cost[d.Kind] = d.FocusCost
	}

	var order []game.Action
	if s.RunwayMonths > 0 && s.RunwayMonths < 6 {
		order = append(order, game.Action{Kind: game.ActFundraise})
	}
	if s.Morale < 40 {
		order = append(order, game.Action{Kind: game.ActTakeBreak})
	}
	if s.TechDebt > 60 {
		order = append(order, game.Action{Kind: game.ActRefactorCode})
	}
	order = append(order,
		game.Action{Kind: game.ActFounderLedSales, Calls: 3},
		game.Action{Kind: game.ActShipFeature},
	)
	if s.MRR > s.Burn/2 {
		order = append(order, game.Action{Kind: game.ActHire})
	}

	left := s.FocusSlots
	seen := map[game.ActionKind]bool{}
	var out []game.Action
	for _, a := range order {
		c, ok := cost[a.Kind]
		if !ok || seen[a.Kind] || c > left {
			continue
		}
		seen[a.Kind] = true
		left -= c
		out = append(out, a)
	}
	return out
}

// pickChoice takes the event's default, or its first choice.
func pickChoice(ev game.Event) string {
	if ev.DefaultChoice != "" {
		if _, ok := ev.Choice(ev.DefaultChoice); ok {
			return ev.DefaultChoice
		}
	}
	return ev.Choices[0].ID
}
