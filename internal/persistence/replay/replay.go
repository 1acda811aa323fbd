// Package replay rebuilds games from the turn log and checks that every
// logged digest comes out the same.
package replay

import (
	"errors"
	"fmt"

	turnlog "github.com/acailic/founders-dilemma-sub001/internal/persistence/log"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

// ErrNotInLog means a start state's digest never appears in the log, so
// there is no point to resume from.
var ErrNotInLog = errors.New("start state not found in turn log")

type Result struct {
	State   game.GameState
	Checked int
	Started bool
}

// Apply advances s by one logged entry and checks the digest it recorded.
func Apply(eng *engine.Engine, s game.GameState, e turnlog.TurnEntry) (game.GameState, error) {
	var (
		next game.GameState
		err  error
	)
	switch e.Kind {
	case turnlog.KindNewGame:
		if e.NewGame == nil {
			return s, fmt.Errorf("week %d: new_game entry without options", e.Week)
		}
		next, err = eng.NewGame(e.NewGame.Difficulty, e.NewGame.Options)
	case turnlog.KindTurn:
		var rep engine.TurnReport
		rep, err = eng.Step(s, e.Actions)
		next = rep.State
	case turnlog.KindChoice:
		var ev game.Event
		if e.Event != nil {
			ev = *e.Event
		} else if ev, err = eng.ActiveEvent(s, e.EventID); err != nil {
			break
		}
		next, err = eng.ApplyEventChoice(s, ev, e.ChoiceID)
	default:
		return s, fmt.Errorf("week %d: unknown entry kind %q", e.Week, e.Kind)
	}
	if err != nil {
		return s, fmt.Errorf("week %d %s: %w", e.Week, e.Kind, err)
	}
	if next.Week != e.Week {
		return s, fmt.Errorf("week mismatch: got=%d want=%d", next.Week, e.Week)
	}
	got, err := next.Digest()
	if err != nil {
		return s, err
	}
	if got != e.Digest {
		return s, fmt.Errorf("digest mismatch at week %d (%s): got=%s want=%s", e.Week, e.Kind, got, e.Digest)
	}
	return next, nil
}

var errStop = errors.New("stop")

// Game replays gameID from the log in dir. With a nil start the log must
// open with the game's new_game entry; otherwise entries are skipped until
// the one that produced start and replay continues from there.
func Game(eng *engine.Engine, dir, gameID string, start *game.GameState) (Result, error) {
	return Until(eng, dir, gameID, start, -1)
}

// Until is Game that stops before the first entry past toWeek. A negative
// toWeek replays everything.
func Until(eng *engine.Engine, dir, gameID string, start *game.GameState, toWeek int) (Result, error) {
	var res Result
	var want string
	if start != nil {
		d, err := start.Digest()
		if err != nil {
			return res, err
		}
		want = d
		res.State = start.Clone()
	}

	err := turnlog.ReadTurns(dir, gameID, func(e turnlog.TurnEntry) error {
		if !res.Started {
			switch {
			case start == nil && e.Kind == turnlog.KindNewGame:
			case start != nil && e.Digest == want:
				res.Started = true
				return nil
			default:
				return nil
			}
		}
		if toWeek >= 0 && e.Week > toWeek {
			return errStop
		}
		next, err := Apply(eng, res.State, e)
		if err != nil {
			return err
		}
		res.State = next
		res.Started = true
		res.Checked++
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return res, err
	}
	if !res.Started {
		if start != nil {
			return res, ErrNotInLog
		}
		return res, fmt.Errorf("no new_game entry for %s", gameID)
	}
	return res, nil
}
