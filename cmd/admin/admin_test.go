package main

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/acailic/founders-dilemma-sub001/internal/persistence/indexdb"
	turnlog "github.com/acailic/founders-dilemma-sub001/internal/persistence/log"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/snapshot"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

func TestQueryIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	st := game.GameState{GameID: "g1", Difficulty: game.VCTrack, Seed: 3, Bank: 1_000_000}
	idx.RecordGame(st, "Ada")
	for week := 1; week <= 2; week++ {
		st.Week = week
		idx.WriteTurn(indexdb.TurnRecord{
			Entry:  turnlog.TurnEntry{Kind: turnlog.KindTurn, GameID: "g1", Week: week, Digest: "d", Status: "playing"},
			State:  st,
			Events: []string{"viral_moment"},
		})
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	rows, err := queryIndex(db, "games", "", 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("games: %v %v", rows, err)
	}
	if g := rows[0].(gameRow); g.Founder != "Ada" || g.Week != 2 {
		t.Fatalf("game row: %+v", g)
	}
	rows, err = queryIndex(db, "turns", "g1", 10)
	if err != nil || len(rows) != 2 || rows[0].(turnRow).Week != 2 {
		t.Fatalf("turns newest first: %v %v", rows, err)
	}
	if rows, err = queryIndex(db, "events", "g1", 10); err != nil || len(rows) != 2 {
		t.Fatalf("events: %v %v", rows, err)
	}
	if _, err := queryIndex(db, "turns", "", 10); err == nil {
		t.Fatalf("turns without -game should fail")
	}
	if _, err := queryIndex(db, "agents", "", 10); err == nil {
		t.Fatalf("unknown query should fail")
	}
}

func TestSnapshotAtOrBefore(t *testing.T) {
	dataDir := t.TempDir()
	for _, week := range []int{0, 4, 8} {
		snap, err := snapshot.New(game.GameState{GameID: "g1", Difficulty: game.IndieBootstrap, Week: week})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := snapshot.WriteSnapshot(snapshot.Path(dataDir, "g1", week), snap); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	snap, err := snapshotAtOrBefore(dataDir, "g1", 6)
	if err != nil || snap == nil || snap.Header.Week != 4 {
		t.Fatalf("want week 4, got %+v %v", snap, err)
	}
	if snap, _ := snapshotAtOrBefore(dataDir, "nope", 6); snap != nil {
		t.Fatalf("missing game should give nil")
	}

	games, err := listGames(dataDir)
	if err != nil || len(games) != 1 || games[0].Week != 8 {
		t.Fatalf("list: %+v %v", games, err)
	}
}
