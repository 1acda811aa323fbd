package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/acailic/founders-dilemma-sub001/internal/persistence/indexdb"
	persistlog "github.com/acailic/founders-dilemma-sub001/internal/persistence/log"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/snapshot"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

func openRuntimeIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("FD_INDEX_BACKEND"))) {
	case "none", "off", "disabled":
		return nil, nil
	}
	return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "games.sqlite"))
}

// gameRecorder persists every committed change: the turn log first, then
// the index, then a snapshot every few weeks and at game over.
type gameRecorder struct {
	dataDir string
	turns   *persistlog.TurnLogger
	idx     *indexdb.SQLiteIndex
	status  func(game.GameState) game.GameStatus
	every   int
	log     *log.Logger
	now     func() time.Time

	tuningDigest  string
	catalogDigest string

	snaps        chan snapshot.SnapshotV1
	snapsWritten atomic.Uint64
	snapsDropped atomic.Uint64
	logErrors    atomic.Uint64
}

func newGameRecorder(dataDir string, eng *engine.Engine, idx *indexdb.SQLiteIndex, logger *log.Logger) *gameRecorder {
	every := eng.Tuning().SnapshotEveryWeeks
	if every <= 0 {
		every = 4
	}
	return &gameRecorder{
		dataDir:       dataDir,
		turns:         persistlog.NewTurnLogger(dataDir),
		idx:           idx,
		status:        eng.CheckGameStatus,
		every:         every,
		log:           logger,
		now:           time.Now,
		tuningDigest:  eng.Tuning().Digest(),
		catalogDigest: eng.Catalogs().Digest(),
		snaps:         make(chan snapshot.SnapshotV1, 16),
	}
}

func (r *gameRecorder) NewGame(s game.GameState, opts engine.Options) {
	e := persistlog.TurnEntry{
		Kind:    persistlog.KindNewGame,
		NewGame: &persistlog.NewGameEntry{Difficulty: s.Difficulty, Options: opts},
	}
	if !r.write(&e, s, r.status(s)) {
		return
	}
	founder := opts.Founder
	if founder == "" {
		founder = "Founder"
	}
	r.idx.RecordGame(s, founder)
	r.idx.WriteTurn(indexdb.TurnRecord{Entry: e, State: s})
	r.snapshot(s)
}

func (r *gameRecorder) Turn(rep engine.TurnReport, acts []game.Action) {
	s := rep.State
	e := persistlog.TurnEntry{Kind: persistlog.KindTurn, Actions: acts}
	if !r.write(&e, s, rep.Status) {
		return
	}
	rec := indexdb.TurnRecord{Entry: e, State: s}
	for _, ev := range rep.Events {
		rec.Events = append(rec.Events, ev.ID)
	}
	for _, m := range rep.Milestones {
		rec.Milestones = append(rec.Milestones, m.ID)
	}
	r.idx.WriteTurn(rec)
	if s.Week%r.every == 0 || rep.Status.GameOver {
		r.snapshot(s)
	}
}

func (r *gameRecorder) Choice(s game.GameState, ev game.Event, choiceID string) {
	e := persistlog.TurnEntry{Kind: persistlog.KindChoice, EventID: ev.ID, Event: &ev, ChoiceID: choiceID}
	if !r.write(&e, s, r.status(s)) {
		return
	}
	r.idx.WriteTurn(indexdb.TurnRecord{Entry: e, State: s})
}

// write fills in e from s and appends it to the turn log. A false return
// means the change could not be logged and nothing downstream should see
// it either.
func (r *gameRecorder) write(e *persistlog.TurnEntry, s game.GameState, st game.GameStatus) bool {
	d, err := s.Digest()
	if err != nil {
		r.logErrors.Add(1)
		r.log.Printf("turn log: digest %s: %v", s.GameID, err)
		return false
	}
	e.GameID = s.GameID
	e.Week = s.Week
	e.Digest = d
	e.Status = st.Legacy()
	e.At = r.now().Unix()
	if err := r.turns.WriteTurn(*e); err != nil {
		r.logErrors.Add(1)
		r.log.Printf("turn log: write %s week %d: %v", s.GameID, s.Week, err)
		return false
	}
	return true
}

func (r *gameRecorder) snapshot(s game.GameState) {
	snap, err := snapshot.New(s)
	if err != nil {
		r.log.Printf("snapshot %s: %v", s.GameID, err)
		return
	}
	snap.TuningDigest = r.tuningDigest
	snap.CatalogDigest = r.catalogDigest
	snap.SavedAt = r.now().Unix()
	select {
	case r.snaps <- snap:
	default:
		r.snapsDropped.Add(1)
	}
}

// runSnapshots writes queued snapshots until ctx is done, then drains what
// is left.
func (r *gameRecorder) runSnapshots(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case snap := <-r.snaps:
					r.writeSnapshot(snap)
				default:
					return
				}
			}
		case snap := <-r.snaps:
			r.writeSnapshot(snap)
		}
	}
}

func (r *gameRecorder) writeSnapshot(snap snapshot.SnapshotV1) {
	path := snapshot.Path(r.dataDir, snap.Header.GameID, snap.Header.Week)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		r.log.Printf("snapshot write: %v", err)
		return
	}
	r.snapsWritten.Add(1)
	r.idx.RecordSnapshot(path, snap)
}

func (r *gameRecorder) Close() error {
	return r.turns.Close()
}
