// Package events rolls narrative events, surfaces dilemmas and resolves the
// player's choices.
package events

import (
	"math"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/resolve"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

// Probability is the chance def fires against s: the base chance grows with
// how far each trigger metric sits past its threshold, up to the cap.
func Probability(s *game.GameState, def game.EventDef, tune tuning.Events) float64 {
	k := 1.0
	for _, c := range def.Trigger {
		v, _ := s.Metric(c.Stat)
		k += c.Excess(v)
	}
	ceiling := def.MaxProbability
	if ceiling <= 0 {
		ceiling = tune.DefaultMaxProbability
	}
	return math.Min(ceiling, def.BaseProbability*k)
}

// Eligible reports whether def may be rolled at all this week.
func Eligible(s *game.GameState, def game.EventDef, active []game.Event) bool {
	if !def.AllowedIn(s.Difficulty) || s.Week < def.MinWeek {
		return false
	}
	if s.EventCooldowns[def.ID] > 0 {
		return false
	}
	for _, e := range active {
		if e.ID == def.ID {
			return false
		}
	}
	for _, e := range s.ActiveEvents {
		if e.ID == def.ID {
			return false
		}
	}
	for _, se := range s.ScheduledEvents {
		if se.ID == def.ID {
			return false
		}
	}
	return game.AllHold(s, def.Trigger)
}

// Instance turns a definition into the event carried in the state. Harmful
// effects are scaled by severity.
func Instance(def game.EventDef, week int, severity float64, tune tuning.Events) game.Event {
	ev := game.Event{
		ID:            def.ID,
		Kind:          def.Kind,
		Title:         def.Title,
		Description:   def.Description,
		Week:          week,
		CooldownWeeks: def.CooldownWeeks,
		DefaultChoice: def.DefaultChoice,
	}
	src := "event:" + def.ID
	if len(def.Effects) > 0 {
		ev.Effects = game.WithSource(resolve.ScaleHarmful(def.Effects, severity), src)
	}
	if def.Kind == game.EventDilemma {
		after := def.ExpiresAfter
		if after <= 0 {
			after = tune.DefaultExpiresAfter
		}
		ev.ExpiresWeek = week + after
		ev.Choices = make([]game.Choice, len(def.Choices))
		for i, c := range def.Choices {
			c.Effects = game.WithSource(resolve.ScaleHarmful(c.Effects, severity), src+"/"+c.ID)
			ev.Choices[i] = c
		}
	}
	return ev
}

// Check returns the events triggered this week without touching s. Due
// follow-ups come first, then catalog events in id order, at most
// MaxPerWeek in total. One roll is drawn per catalog entry whether or not
// it is eligible.
func Check(s *game.GameState, active []game.Event, cat catalogs.EventCatalog, tune tuning.Events, severity float64, src rng.Source) []game.Event {
	var out []game.Event
	full := func() bool { return tune.MaxPerWeek > 0 && len(out) >= tune.MaxPerWeek }

	for _, se := range s.ScheduledEvents {
		if se.DueWeek > s.Week || full() {
			continue
		}
		def, ok := cat.ByID[se.ID]
		if !ok || isActive(s, active, se.ID) {
			continue
		}
		out = append(out, Instance(def, s.Week, severity, tune))
	}

	for _, def := range cat.Defs {
		roll := src.Float64()
		if full() || !Eligible(s, def, active) || contains(out, def.ID) {
			continue
		}
		if roll < Probability(s, def, tune) {
			out = append(out, Instance(def, s.Week, severity, tune))
		}
	}
	return out
}

func isActive(s *game.GameState, active []game.Event, id string) bool {
	if contains(active, id) {
		return true
	}
	_, ok := s.ActiveEvent(id)
	return ok
}

func contains(evs []game.Event, id string) bool {
	for _, e := range evs {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Raise commits a triggered event: automatic events apply and start their
// cooldown, dilemmas join the active set. A matching follow-up entry is
// consumed.
func Raise(s *game.GameState, ev game.Event) error {
	unschedule(s, ev.ID)
	switch ev.Kind {
	case game.EventAutomatic:
		if err := resolve.Apply(s, ev.Effects); err != nil {
			return err
		}
		startCooldown(s, ev)
		return nil
	case game.EventDilemma:
		s.ActiveEvents = append(s.ActiveEvents, ev)
		return nil
	default:
		return &game.InvalidStateError{Reason: "unknown event kind " + string(ev.Kind)}
	}
}

func unschedule(s *game.GameState, id string) {
	for i, se := range s.ScheduledEvents {
		if se.ID == id && se.DueWeek <= s.Week {
			s.ScheduledEvents = append(s.ScheduledEvents[:i:i], s.ScheduledEvents[i+1:]...)
			return
		}
	}
}

func startCooldown(s *game.GameState, ev game.Event) {
	if ev.CooldownWeeks <= 0 {
		return
	}
	if s.EventCooldowns == nil {
		s.EventCooldowns = map[string]int{}
	}
	s.EventCooldowns[ev.ID] = ev.CooldownWeeks
}

// Active returns the unresolved dilemma with the given id.
func Active(s *game.GameState, eventID string) (game.Event, bool) {
	for _, e := range s.ActiveEvents {
		if e.ID == eventID {
			return e, true
		}
	}
	return game.Event{}, false
}

// ApplyChoice resolves an active dilemma with one of its choices. Nothing
// is changed when the event is not active or the choice does not exist.
func ApplyChoice(s *game.GameState, eventID, choiceID string) (game.Choice, error) {
	ev, ok := Active(s, eventID)
	if !ok {
		return game.Choice{}, &game.InvalidStateError{Reason: "event " + eventID + " is not active"}
	}
	return Resolve(s, ev, choiceID)
}

// Resolve applies one of ev's choices to s. ev need not be active; when it
// is, it leaves the active set. Nothing is changed when the choice does not
// exist or its effects are rejected.
func Resolve(s *game.GameState, ev game.Event, choiceID string) (game.Choice, error) {
	choice, ok := ev.Choice(choiceID)
	if !ok {
		return game.Choice{}, &game.ChoiceNotFoundError{EventID: ev.ID, ChoiceID: choiceID}
	}
	if err := resolve.Apply(s, choice.Effects); err != nil {
		return game.Choice{}, err
	}
	for i := range s.ActiveEvents {
		if s.ActiveEvents[i].ID == ev.ID {
			s.ActiveEvents = append(s.ActiveEvents[:i:i], s.ActiveEvents[i+1:]...)
			break
		}
	}
	startCooldown(s, ev)
	if choice.FollowUp != "" {
		delay := choice.FollowUpDelay
		if delay <= 0 {
			delay = 1
		}
		s.ScheduledEvents = append(s.ScheduledEvents, game.ScheduledEvent{ID: choice.FollowUp, DueWeek: s.Week + delay})
	}
	return choice, nil
}

// Expired is a dilemma that ran out of time and took its default choice.
type Expired struct {
	EventID  string `json:"event_id"`
	ChoiceID string `json:"choice_id,omitempty"`
}

// Expire resolves every dilemma whose deadline has passed with its default
// choice, or drops it when there is none.
func Expire(s *game.GameState) ([]Expired, error) {
	var out []Expired
	for {
		var ev *game.Event
		for i := range s.ActiveEvents {
			e := s.ActiveEvents[i]
			if e.ExpiresWeek > 0 && s.Week >= e.ExpiresWeek {
				ev = &e
				break
			}
		}
		if ev == nil {
			return out, nil
		}
		if _, ok := ev.Choice(ev.DefaultChoice); ok {
			if _, err := ApplyChoice(s, ev.ID, ev.DefaultChoice); err != nil {
				return out, err
			}
			out = append(out, Expired{EventID: ev.ID, ChoiceID: ev.DefaultChoice})
			continue
		}
		for i := range s.ActiveEvents {
			if s.ActiveEvents[i].ID == ev.ID {
				s.ActiveEvents = append(s.ActiveEvents[:i:i], s.ActiveEvents[i+1:]...)
				break
			}
		}
		startCooldown(s, *ev)
		out = append(out, Expired{EventID: ev.ID})
	}
}

// TickCooldowns counts every cooldown down by one week.
func TickCooldowns(s *game.GameState) {
	for id, n := range s.EventCooldowns {
		if n <= 1 {
			delete(s.EventCooldowns, id)
			continue
		}
		s.EventCooldowns[id] = n - 1
	}
}
