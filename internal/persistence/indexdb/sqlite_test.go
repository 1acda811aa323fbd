package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	turnlog "github.com/acailic/founders-dilemma-sub001/internal/persistence/log"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/snapshot"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTurn}

	s.RecordGame(game.GameState{GameID: "g"}, "Ada")
	s.WriteTurn(TurnRecord{Entry: turnlog.TurnEntry{GameID: "g", Week: 1}})
	s.RecordSnapshot("/tmp/1.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropGameTotal != 1 || st.DropTurnTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drop counters: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_RecordsTurns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.sqlite")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if err := idx.UpsertCatalogs(cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}

	st := game.GameState{GameID: "g1", Difficulty: game.IndieBootstrap, Seed: 42, Bank: 50000, MRR: 0}
	idx.RecordGame(st, "Ada")
	for week := 1; week <= 3; week++ {
		st.Week = week
		st.Bank -= 8000
		st.MRR += 500
		idx.WriteTurn(TurnRecord{
			Entry:      turnlog.TurnEntry{Kind: turnlog.KindTurn, GameID: "g1", Week: week, Digest: "d", Status: "in_progress", Actions: []game.Action{{Kind: game.ActShipFeature}}},
			State:      st,
			Milestones: []string{"first_revenue"},
		})
	}
	idx.RecordSnapshot("/data/g1/000003.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, GameID: "g1", Week: 3}, StateDigest: "d3"})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM turns WHERE game_id='g1'`).Scan(&n); err != nil || n != 3 {
		t.Fatalf("turns: n=%d err=%v", n, err)
	}
	var (
		week int
		bank float64
		diff string
	)
	if err := db.QueryRow(`SELECT week,bank,difficulty FROM games WHERE game_id='g1'`).Scan(&week, &bank, &diff); err != nil {
		t.Fatalf("game row: %v", err)
	}
	if week != 3 || bank != 26000 || diff != string(game.IndieBootstrap) {
		t.Fatalf("game row mismatch: week=%d bank=%v diff=%s", week, bank, diff)
	}
	var maxSeq int
	if err := db.QueryRow(`SELECT MAX(seq) FROM turns WHERE game_id='g1'`).Scan(&maxSeq); err != nil || maxSeq != 3 {
		t.Fatalf("seq: %d %v", maxSeq, err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM milestones WHERE game_id='g1'`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("milestones recorded once: n=%d err=%v", n, err)
	}
	var snapPath string
	if err := db.QueryRow(`SELECT path FROM snapshots WHERE game_id='g1' AND week=3`).Scan(&snapPath); err != nil || snapPath != "/data/g1/000003.snap.zst" {
		t.Fatalf("snapshot row: %q %v", snapPath, err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil || n != 8 {
		t.Fatalf("catalog rows: n=%d err=%v", n, err)
	}
}
