package game

import "fmt"

// InvalidActionError rejects an unknown, out-of-scope, locked or duplicate
// action.
type InvalidActionError struct {
	Kind   ActionKind
	Reason string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q: %s", e.Kind, e.Reason)
}

// CapacityExceededError rejects a turn whose focus cost exceeds the slots.
type CapacityExceededError struct {
	Needed    int
	Available int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("actions need %d focus slots, only %d available", e.Needed, e.Available)
}

type ChoiceNotFoundError struct {
	EventID  string
	ChoiceID string
}

func (e *ChoiceNotFoundError) Error() string {
	return fmt.Sprintf("event %q has no choice %q", e.EventID, e.ChoiceID)
}

// InvalidStateError rejects a malformed snapshot.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return "invalid state: " + e.Reason
}

func invalidState(format string, args ...any) error {
	return &InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the structural invariants a snapshot must satisfy before
// any engine call.
func (s *GameState) Validate() error {
	switch {
	case !s.Difficulty.Valid():
		return invalidState("unknown difficulty %q", s.Difficulty)
	case s.Week < 0:
		return invalidState("negative week %d", s.Week)
	case s.Burn <= 0:
		return invalidState("burn must be positive, got %v", s.Burn)
	case s.FocusSlots <= 0:
		return invalidState("focus slots must be positive, got %d", s.FocusSlots)
	case len(s.Roster.Members) == 0 || !s.Roster.IsActive(FounderID):
		return invalidState("roster has no founder")
	}
	if sum := s.FounderEquity + s.OptionPool + s.InvestorShare; sum < 99.99 || sum > 100.01 {
		return invalidState("equity sums to %.3f", sum)
	}
	if err := checkIndexSet("active", s.Roster.Active, len(s.Roster.Members)); err != nil {
		return err
	}
	if err := checkIndexSet("departed", s.Roster.Departed, len(s.Roster.Members)); err != nil {
		return err
	}
	for _, id := range s.Roster.Departed {
		if s.Roster.IsActive(id) {
			return invalidState("roster member %d is both active and departed", id)
		}
	}
	return nil
}

// checkIndexSet requires ids to be strictly increasing arena indexes.
func checkIndexSet(name string, ids []int, n int) error {
	for i, id := range ids {
		if id < 0 || id >= n {
			return invalidState("%s roster index %d out of range", name, id)
		}
		if i > 0 && id <= ids[i-1] {
			return invalidState("%s roster ids not sorted and unique at %d", name, id)
		}
	}
	return nil
}
