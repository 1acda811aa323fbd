package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	turnlog "github.com/acailic/founders-dilemma-sub001/internal/persistence/log"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/snapshot"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

// SQLiteIndex is a queryable copy of what the turn log and snapshots hold.
// Writes go through one goroutine and are dropped when it falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropGame     atomic.Uint64
	dropTurn     atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqGame reqKind = iota + 1
	reqTurn
	reqSnapshot
)

type req struct {
	kind reqKind

	game     gameRow
	turn     TurnRecord
	snapshot snapshotRow
}

type gameRow struct {
	GameID     string
	Difficulty string
	Seed       int64
	StartedAt  int64
	Founder    string
	CreatedAt  string
}

// TurnRecord is one accepted state change with the state it produced.
type TurnRecord struct {
	Entry      turnlog.TurnEntry
	State      game.GameState
	Events     []string
	Milestones []string
}

type snapshotRow struct {
	GameID string
	Week   int
	Path   string
	Digest string
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropGameTotal     uint64 `json:"drop_game_total"`
	DropTurnTotal     uint64 `json:"drop_turn_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS games (
			game_id TEXT PRIMARY KEY,
			difficulty TEXT NOT NULL,
			seed INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			founder TEXT NOT NULL,
			created_at TEXT NOT NULL,
			week INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT '',
			bank REAL NOT NULL DEFAULT 0,
			mrr REAL NOT NULL DEFAULT 0,
			streak INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			game_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			week INTEGER NOT NULL,
			kind TEXT NOT NULL,
			digest TEXT NOT NULL,
			actions_json TEXT NOT NULL,
			status TEXT NOT NULL,
			bank REAL NOT NULL,
			burn REAL NOT NULL,
			mrr REAL NOT NULL,
			wau REAL NOT NULL,
			morale REAL NOT NULL,
			reputation REAL NOT NULL,
			runway REAL NOT NULL,
			streak INTEGER NOT NULL,
			PRIMARY KEY (game_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_game_week ON turns(game_id, week);`,
		`CREATE TABLE IF NOT EXISTS events (
			game_id TEXT NOT NULL,
			week INTEGER NOT NULL,
			event_id TEXT NOT NULL,
			PRIMARY KEY (game_id, week, event_id)
		);`,
		`CREATE TABLE IF NOT EXISTS milestones (
			game_id TEXT NOT NULL,
			week INTEGER NOT NULL,
			milestone_id TEXT NOT NULL,
			PRIMARY KEY (game_id, milestone_id)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			game_id TEXT NOT NULL,
			week INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (game_id, week)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropGameTotal:     s.dropGame.Load(),
		DropTurnTotal:     s.dropTurn.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// enqueue drops r when the writer is behind; the turn log stays the source
// of truth.
func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) RecordGame(st game.GameState, founder string) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqGame, game: gameRow{
		GameID:     st.GameID,
		Difficulty: string(st.Difficulty),
		Seed:       st.Seed,
		StartedAt:  st.StartedAt,
		Founder:    founder,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}}, &s.dropGame)
}

func (s *SQLiteIndex) WriteTurn(r TurnRecord) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqTurn, turn: r}, &s.dropTurn)
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: snapshotRow{
		GameID: snap.Header.GameID,
		Week:   snap.Header.Week,
		Path:   path,
		Digest: snap.StateDigest,
	}}, &s.dropSnapshot)
}

// UpsertCatalogs stores the tables the server plays against, canonicalized
// as JSON, so a game in the index can be traced to its rules.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		v      any
	}
	rows := []kv{
		{"actions", cats.Actions.Digest, cats.Actions.Defs},
		{"synergies", cats.Synergies.Digest, cats.Synergies.Rules},
		{"events", cats.Events.Digest, cats.Events.Defs},
		{"market_conditions", cats.Market.Digest, cats.Market.Conditions},
		{"milestones", cats.Milestones.Digest, cats.Milestones.Defs},
		{"segments", cats.Segments.Digest, cats.Segments.Defs},
		{"competitors", cats.Competitors.Digest, cats.Competitors},
	}
	tb, err := json.Marshal(tune)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('catalog_digest',?)`, cats.Digest()); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		b, err := json.Marshal(r.v)
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		if r.digest == "" {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(b), now); err != nil {
			return err
		}
	}
	if _, err := stmt.Exec("tuning", tune.Digest(), string(tb), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertGame, _ := s.db.Prepare(`INSERT OR IGNORE INTO games(game_id,difficulty,seed,started_at,founder,created_at) VALUES(?,?,?,?,?,?)`)
	updateGame, _ := s.db.Prepare(`UPDATE games SET week=?,status=?,bank=?,mrr=?,streak=? WHERE game_id=?`)
	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(game_id,seq,week,kind,digest,actions_json,status,bank,burn,mrr,wau,morale,reputation,runway,streak) VALUES(?,(SELECT COALESCE(MAX(seq),0)+1 FROM turns WHERE game_id=?),?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR IGNORE INTO events(game_id,week,event_id) VALUES(?,?,?)`)
	insertMilestone, _ := s.db.Prepare(`INSERT OR IGNORE INTO milestones(game_id,week,milestone_id) VALUES(?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(game_id,week,path,digest) VALUES(?,?,?,?)`)
	stmts := []*sql.Stmt{insertGame, updateGame, insertTurn, insertEvent, insertMilestone, insertSnapshot}
	defer func() {
		for _, st := range stmts {
			if st != nil {
				_ = st.Close()
			}
		}
	}()
	for _, st := range stmts {
		if st == nil {
			// Schema mismatch; drain so writers never block.
			for range s.ch {
			}
			return
		}
	}

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqGame:
			g := r.game
			_, err = tx.Stmt(insertGame).Exec(g.GameID, g.Difficulty, g.Seed, g.StartedAt, g.Founder, g.CreatedAt)
			opCount++

		case reqTurn:
			err = s.writeTurn(tx, r.turn, insertTurn, updateGame, insertEvent, insertMilestone)
			opCount += 2 + len(r.turn.Events) + len(r.turn.Milestones)

		case reqSnapshot:
			sn := r.snapshot
			_, err = tx.Stmt(insertSnapshot).Exec(sn.GameID, sn.Week, sn.Path, sn.Digest)
			opCount++
		}
		if err != nil {
			rollback()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

func (s *SQLiteIndex) writeTurn(tx *sql.Tx, r TurnRecord, insertTurn, updateGame, insertEvent, insertMilestone *sql.Stmt) error {
	e, st := r.Entry, r.State
	acts := []byte("[]")
	if len(e.Actions) > 0 {
		acts, _ = json.Marshal(e.Actions)
	}
	streak := st.EscapeVelocity.StreakWeeks
	if _, err := tx.Stmt(insertTurn).Exec(
		e.GameID, e.GameID, e.Week, e.Kind, e.Digest, string(acts), e.Status,
		st.Bank, st.Burn, st.MRR, st.WAU, st.Morale, st.Reputation, st.RunwayMonths, streak,
	); err != nil {
		return err
	}
	if _, err := tx.Stmt(updateGame).Exec(e.Week, e.Status, st.Bank, st.MRR, streak, e.GameID); err != nil {
		return err
	}
	for _, id := range r.Events {
		if _, err := tx.Stmt(insertEvent).Exec(e.GameID, e.Week, id); err != nil {
			return err
		}
	}
	for _, id := range r.Milestones {
		if _, err := tx.Stmt(insertMilestone).Exec(e.GameID, e.Week, id); err != nil {
			return err
		}
	}
	return nil
}
