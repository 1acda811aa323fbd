package log

import (
	"testing"
	"time"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

func TestTurnLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	entries := []TurnEntry{
		{Kind: KindNewGame, GameID: "g1", NewGame: &NewGameEntry{Difficulty: game.IndieBootstrap, Options: engine.Options{Seed: 7}}, Digest: "d0"},
		{Kind: KindTurn, GameID: "g2", Week: 1, Digest: "x"},
		{Kind: KindTurn, GameID: "g1", Week: 1, Actions: []game.Action{{Kind: game.ActFounderLedSales, Calls: 4}}, Digest: "d1"},
	}
	for i, e := range entries {
		if i == 2 {
			// next hour: new file
			clock = clock.Add(time.Hour)
		}
		if err := l.WriteTurn(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(dir + "/turns")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected two hourly files, got %v", files)
	}

	var got []TurnEntry
	if err := ReadTurns(dir+"/turns", "g1", func(e TurnEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].Kind != KindNewGame || got[1].Digest != "d1" {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if got[0].NewGame == nil || got[0].NewGame.Options.Seed != 7 {
		t.Fatalf("new game options lost: %+v", got[0])
	}
	if len(got[1].Actions) != 1 || got[1].Actions[0].Calls != 4 {
		t.Fatalf("actions lost: %+v", got[1].Actions)
	}
}

func TestTurnLogger_AppendAfterReopen(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		l := NewTurnLogger(dir)
		l.w.now = func() time.Time { return clock }
		if err := l.WriteTurn(TurnEntry{Kind: KindTurn, GameID: "g", Week: i + 1}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	n := 0
	if err := ReadTurns(dir+"/turns", "", func(e TurnEntry) error {
		n++
		if e.Week != n {
			t.Fatalf("entry %d has week %d", n, e.Week)
		}
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected both frames to be read, got %d entries", n)
	}
}
