// Package customers tracks named accounts through their lifecycle and keeps
// the segment mix current.
package customers

import (
	"math"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
)

const startSatisfaction = 50

type Transition struct {
	ID   int            `json:"id"`
	Name string         `json:"name"`
	From game.Lifecycle `json:"from"`
	To   game.Lifecycle `json:"to"`
}

type Report struct {
	Transitions []Transition        `json:"transitions,omitempty"`
	Churned     []game.Customer     `json:"churned,omitempty"`
	LostMRR     float64             `json:"lost_mrr,omitempty"`
	Shares      []game.SegmentShare `json:"shares"`
}

// AddAccount registers a closed deal as a named account. The caller books
// the MRR.
func AddAccount(b *game.CustomerBase, segs catalogs.SegmentCatalog, mrr float64, week int, src rng.Source) game.Customer {
	def := segs.Classify(mrr)
	name := string(def.Segment)
	if len(def.Names) > 0 {
		name = def.Names[rng.Intn(src, len(def.Names))]
	}
	b.NextID++
	c := game.Customer{
		ID:           b.NextID,
		Name:         name,
		Segment:      def.Segment,
		MRR:          mrr,
		Satisfaction: startSatisfaction,
		Stage:        game.StageOnboarding,
		SinceWeek:    week,
	}
	b.Accounts = append(b.Accounts, c)
	return c
}

// Drift is this week's satisfaction change for one account before segment
// sensitivity.
func Drift(s *game.GameState, roll float64) float64 {
	d := roll
	switch {
	case s.NPS > 40:
		d += 3
	case s.NPS < 20:
		d -= 3
	}
	if s.TechDebt > 70 {
		d -= 2
	}
	switch {
	case s.Velocity > 1.2:
		d += 2
	case s.Velocity < 0.8:
		d -= 2
	}
	return d
}

// Next applies the lifecycle rules to one account.
func Next(stage game.Lifecycle, sat float64) game.Lifecycle {
	switch stage {
	case game.StageOnboarding:
		if sat > 50 {
			return game.StageActive
		}
	case game.StageActive:
		if sat > 80 {
			return game.StageChampion
		}
		if sat < 40 {
			return game.StageAtRisk
		}
	case game.StageChampion:
		if sat < 60 {
			return game.StageActive
		}
	case game.StageAtRisk:
		if sat > 60 {
			return game.StageActive
		}
		if sat < 30 {
			return game.StageChurned
		}
	}
	return stage
}

// Update drifts satisfaction, moves accounts through the lifecycle, drops
// churned accounts with their MRR and refreshes segment shares.
func Update(s *game.GameState, segs catalogs.SegmentCatalog, src rng.Source) Report {
	var rep Report
	kept := s.Customers.Accounts[:0:0]
	for _, c := range s.Customers.Accounts {
		roll := rng.Range(src, -5, 5)
		k := 1.0
		if def, ok := segs.Def(c.Segment); ok {
			k = def.Sensitivity
		}
		c.Satisfaction = math.Max(0, math.Min(100, c.Satisfaction+Drift(s, roll)*k))

		next := Next(c.Stage, c.Satisfaction)
		if next != c.Stage {
			rep.Transitions = append(rep.Transitions, Transition{ID: c.ID, Name: c.Name, From: c.Stage, To: next})
			c.Stage = next
		}
		if c.Stage == game.StageChurned {
			rep.Churned = append(rep.Churned, c)
			rep.LostMRR += c.MRR
			s.MRR -= c.MRR
			continue
		}
		kept = append(kept, c)
	}
	s.Customers.Accounts = kept
	s.Customers.Shares = Shares(s, segs)
	rep.Shares = s.Customers.Shares
	return rep
}

// Shares splits MRR across segments. Revenue not held by a named account
// counts as self-serve.
func Shares(s *game.GameState, segs catalogs.SegmentCatalog) []game.SegmentShare {
	out := make([]game.SegmentShare, 0, len(segs.Defs))
	idx := map[game.Segment]int{}
	for _, d := range segs.Defs {
		idx[d.Segment] = len(out)
		out = append(out, game.SegmentShare{Segment: d.Segment})
	}
	for _, c := range s.Customers.Accounts {
		i, ok := idx[c.Segment]
		if !ok {
			continue
		}
		out[i].Accounts++
		out[i].MRR += c.MRR
	}
	if i, ok := idx[game.SegmentSelfServe]; ok {
		out[i].MRR += math.Max(0, s.MRR-s.Customers.AccountMRR())
	}
	var total float64
	for _, sh := range out {
		total += sh.MRR
	}
	if total > 0 {
		for i := range out {
			out[i].Share = out[i].MRR / total * 100
		}
	}
	return out
}
