// Package ops routes boundary operations from any transport to the engine.
// Payloads are checked against the request schemas before they are
// decoded.
package ops

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sync"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/acailic/founders-dilemma-sub001/internal/protocol"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/schemas"
)

// Recorder sees every committed change to a stored game. Implementations
// must not block; they run under the game's lock.
type Recorder interface {
	NewGame(s game.GameState, opts engine.Options)
	Turn(rep engine.TurnReport, acts []game.Action)
	Choice(s game.GameState, ev game.Event, choiceID string)
}

// Error is a rejection with its wire code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func badRequest(format string, args ...any) *Error {
	return &Error{Code: protocol.ErrProtoBadRequest, Message: fmt.Sprintf(format, args...)}
}

type Dispatcher struct {
	eng     *engine.Engine
	store   *Store
	rec     Recorder
	log     *log.Logger
	schemas map[string]*jsonschema.Schema

	mu    sync.Mutex
	calls map[string]*atomic.Uint64
	fails map[string]*atomic.Uint64
}

// New compiles every request schema. rec and logger may be nil.
func New(eng *engine.Engine, store *Store, rec Recorder, logger *log.Logger) (*Dispatcher, error) {
	if store == nil {
		store = NewStore()
	}
	d := &Dispatcher{
		eng:     eng,
		store:   store,
		rec:     rec,
		log:     logger,
		schemas: map[string]*jsonschema.Schema{},
		calls:   map[string]*atomic.Uint64{},
		fails:   map[string]*atomic.Uint64{},
	}
	c := jsonschema.NewCompiler()
	for _, op := range protocol.Ops {
		name := op + ".schema.json"
		b, err := fs.ReadFile(schemas.FS, name)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		sch, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		d.schemas[op] = sch
	}
	return d, nil
}

func (d *Dispatcher) Store() *Store          { return d.store }
func (d *Dispatcher) Engine() *engine.Engine { return d.eng }

func (d *Dispatcher) printf(format string, args ...any) {
	if d.log != nil {
		d.log.Printf(format, args...)
	}
}

// Handle runs one OP message and builds its RESULT.
func (d *Dispatcher) Handle(m protocol.OpMsg) protocol.ResultMsg {
	res, err := d.Do(m.Op, m.Payload)
	if err != nil {
		code, msg := errorCode(err)
		return protocol.Failure(m.ID, m.Op, code, msg)
	}
	return protocol.Success(m.ID, m.Op, res)
}

func errorCode(err error) (string, string) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code, oe.Message
	}
	return protocol.CodeOf(err), err.Error()
}

// Do validates payload against op's schema, decodes it and runs the op.
func (d *Dispatcher) Do(op string, payload []byte) (any, error) {
	sch, ok := d.schemas[op]
	if !ok {
		return nil, &Error{Code: protocol.ErrUnknownOp, Message: "unknown op " + op}
	}
	d.count(d.calls, op)
	res, err := d.do(op, sch, payload)
	if err != nil {
		code, _ := errorCode(err)
		d.count(d.fails, op+"/"+code)
		if code == protocol.ErrInternal {
			d.printf("op %s: %v", op, err)
		}
	}
	return res, err
}

func (d *Dispatcher) do(op string, sch *jsonschema.Schema, payload []byte) (any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = []byte("{}")
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, badRequest("payload: %v", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, badRequest("%s: %v", op, err)
	}
	req := protocol.Requests()[op]
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, badRequest("%s: %v", op, err)
	}

	switch r := req.(type) {
	case *protocol.NewGameReq:
		return d.newGame(r)
	case *protocol.TakeTurnReq:
		return d.takeTurn(r)
	case *protocol.ApplyEventChoiceReq:
		return d.applyChoice(r)
	case *protocol.GenerateInsightsReq:
		return d.eng.GenerateInsights(r.Prev, r.Cur), nil
	}

	ref := stateRefOf(req)
	s, err := d.resolve(ref)
	if err != nil {
		return nil, err
	}
	switch r := req.(type) {
	case *protocol.StateReq:
		switch op {
		case protocol.OpCheckGameStatus:
			return d.eng.CheckGameStatus(s), nil
		case protocol.OpGetMarketStatus:
			return d.eng.GetMarketStatus(s), nil
		case protocol.OpGenerateWarnings:
			return d.eng.GenerateWarnings(s), nil
		}
	case *protocol.GetAvailableActionsReq:
		if r.Detailed {
			return d.eng.AvailableActionDefs(s), nil
		}
		return d.eng.GetAvailableActions(s), nil
	case *protocol.ProcessCompoundingEffectsReq:
		return d.eng.ProcessCompoundingEffects(s, r.Effects)
	case *protocol.CheckForEventsReq:
		return d.eng.CheckForEvents(s, r.Active)
	case *protocol.CheckActionSynergiesReq:
		return d.eng.CheckActionSynergies(s, r.Actions, r.Recent, r.Rules), nil
	case *protocol.UpdateMarketConditionsReq:
		return d.eng.UpdateMarketConditions(s, r.Conditions)
	case *protocol.CheckProgressionMilestonesReq:
		return d.eng.CheckProgressionMilestones(s, r.Milestones), nil
	case *protocol.UpdateCustomerSegmentsReq:
		return d.eng.UpdateCustomerSegments(s, r.Segments)
	case *protocol.UpdateCompetitorsReq:
		return d.eng.UpdateCompetitors(s, r.Competitors)
	}
	return nil, &Error{Code: protocol.ErrInternal, Message: "no handler for " + op}
}

func stateRefOf(req any) protocol.StateRef {
	switch r := req.(type) {
	case *protocol.StateReq:
		return r.StateRef
	case *protocol.GetAvailableActionsReq:
		return r.StateRef
	case *protocol.ProcessCompoundingEffectsReq:
		return r.StateRef
	case *protocol.CheckForEventsReq:
		return r.StateRef
	case *protocol.CheckActionSynergiesReq:
		return r.StateRef
	case *protocol.UpdateMarketConditionsReq:
		return r.StateRef
	case *protocol.CheckProgressionMilestonesReq:
		return r.StateRef
	case *protocol.UpdateCustomerSegmentsReq:
		return r.StateRef
	case *protocol.UpdateCompetitorsReq:
		return r.StateRef
	}
	return protocol.StateRef{}
}

// resolve picks the snapshot a read-only op runs on.
func (d *Dispatcher) resolve(ref protocol.StateRef) (game.GameState, error) {
	if ref.State != nil {
		return *ref.State, nil
	}
	if ref.GameID == "" {
		return game.GameState{}, badRequest("need game_id or state")
	}
	s, ok := d.store.Get(ref.GameID)
	if !ok {
		return game.GameState{}, &Error{Code: protocol.ErrGameNotFound, Message: "no game " + ref.GameID}
	}
	return s, nil
}

func (d *Dispatcher) newGame(r *protocol.NewGameReq) (any, error) {
	opts := engine.Options{Seed: r.Seed, GameID: r.GameID, StartedAt: r.StartedAt, Founder: r.Founder}
	s, err := d.eng.NewGame(r.Difficulty, opts)
	if err != nil {
		return nil, err
	}
	d.store.Put(s)
	if d.rec != nil {
		d.rec.NewGame(s, opts)
	}
	return s, nil
}

// takeTurn is pure for an inline state and commits for a stored game.
func (d *Dispatcher) takeTurn(r *protocol.TakeTurnReq) (any, error) {
	if r.State != nil {
		return d.eng.Step(*r.State, r.Actions)
	}
	if r.GameID == "" {
		return nil, badRequest("need game_id or state")
	}
	var rep engine.TurnReport
	found, err := d.store.Update(r.GameID, func(s game.GameState) (game.GameState, error) {
		var err error
		if rep, err = d.eng.Step(s, r.Actions); err != nil {
			return s, err
		}
		if d.rec != nil {
			d.rec.Turn(rep, r.Actions)
		}
		return rep.State, nil
	})
	if !found {
		return nil, &Error{Code: protocol.ErrGameNotFound, Message: "no game " + r.GameID}
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (d *Dispatcher) applyChoice(r *protocol.ApplyEventChoiceReq) (any, error) {
	if r.Event == nil && r.EventID == "" {
		return nil, badRequest("need event or event_id")
	}
	if r.State != nil {
		ev, err := d.eventFor(r, *r.State)
		if err != nil {
			return nil, err
		}
		return d.eng.ApplyEventChoice(*r.State, ev, r.ChoiceID)
	}
	if r.GameID == "" {
		return nil, badRequest("need game_id or state")
	}
	var out game.GameState
	found, err := d.store.Update(r.GameID, func(s game.GameState) (game.GameState, error) {
		ev, err := d.eventFor(r, s)
		if err != nil {
			return s, err
		}
		if out, err = d.eng.ApplyEventChoice(s, ev, r.ChoiceID); err != nil {
			return s, err
		}
		if d.rec != nil {
			d.rec.Choice(out, ev, r.ChoiceID)
		}
		return out, nil
	})
	if !found {
		return nil, &Error{Code: protocol.ErrGameNotFound, Message: "no game " + r.GameID}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dispatcher) eventFor(r *protocol.ApplyEventChoiceReq, s game.GameState) (game.Event, error) {
	if r.Event != nil {
		return *r.Event, nil
	}
	return d.eng.ActiveEvent(s, r.EventID)
}

func (d *Dispatcher) count(m map[string]*atomic.Uint64, key string) {
	d.mu.Lock()
	c, ok := m[key]
	if !ok {
		c = &atomic.Uint64{}
		m[key] = c
	}
	d.mu.Unlock()
	c.Add(1)
}

// Counters snapshots the per-op call counts and the per-op/code failure
// counts.
func (d *Dispatcher) Counters() (calls, fails map[string]uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls = make(map[string]uint64, len(d.calls))
	for k, v := range d.calls {
		calls[k] = v.Load()
	}
	fails = make(map[string]uint64, len(d.fails))
	for k, v := range d.fails {
		fails[k] = v.Load()
	}
	return calls, fails
}
