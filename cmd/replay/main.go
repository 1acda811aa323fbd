package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	persistlog "github.com/acailic/founders-dilemma-sub001/internal/persistence/log"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/replay"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/snapshot"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		gameID     = flag.String("game", "", "game id (default: every game in the log)")
		snapPath   = flag.String("snapshot", "", "start from this .snap.zst instead of new_game (requires -game or uses the snapshot's game)")
		configDir  = flag.String("configs", "", "config directory (default: built-in configs)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml or built-in)")
	)
	flag.Parse()

	eng, err := buildEngine(*configDir, *tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rules:", err)
		os.Exit(1)
	}
	turnsDir := filepath.Join(*dataDir, "turns")

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d game=%s week=%d difficulty=%s seed=%d bank=%.0f mrr=%.0f\n",
			snap.Header.Version, snap.Header.GameID, snap.Header.Week, snap.Difficulty, snap.Seed, snap.State.Bank, snap.State.MRR)
		if snap.TuningDigest != "" && snap.TuningDigest != eng.Tuning().Digest() {
			fmt.Fprintln(os.Stderr, "warning: snapshot was taken under different tuning")
		}
		if snap.CatalogDigest != "" && snap.CatalogDigest != eng.Catalogs().Digest() {
			fmt.Fprintln(os.Stderr, "warning: snapshot was taken under different catalogs")
		}
		id := *gameID
		if id == "" {
			id = snap.Header.GameID
		}
		st := snap.State
		if !run(eng, turnsDir, id, &st) {
			os.Exit(1)
		}
		return
	}

	ids := []string{*gameID}
	if *gameID == "" {
		ids, err = gamesInLog(turnsDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list games:", err)
			os.Exit(1)
		}
		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "no games found in", turnsDir)
			os.Exit(1)
		}
	}
	ok := true
	for _, id := range ids {
		ok = run(eng, turnsDir, id, nil) && ok
	}
	if !ok {
		os.Exit(1)
	}
}

func run(eng *engine.Engine, dir, id string, start *game.GameState) bool {
	res, err := replay.Game(eng, dir, id, start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay %s: %v (checked=%d)\n", id, err, res.Checked)
		return false
	}
	fmt.Printf("replay ok: game=%s checked=%d week=%d status=%s\n",
		id, res.Checked, res.State.Week, eng.CheckGameStatus(res.State).Legacy())
	return true
}

func gamesInLog(dir string) ([]string, error) {
	seen := map[string]bool{}
	err := persistlog.ReadTurns(dir, "", func(e persistlog.TurnEntry) error {
		seen[e.GameID] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func buildEngine(configDir, tuningPath string) (*engine.Engine, error) {
	var (
		cats *catalogs.Catalogs
		tune tuning.Tuning
		err  error
	)
	if configDir == "" {
		cats, err = catalogs.Default()
	} else {
		cats, err = catalogs.Load(configDir)
	}
	if err != nil {
		return nil, err
	}
	switch {
	case tuningPath != "":
		tune, err = tuning.Load(tuningPath)
	case configDir != "":
		tune, err = tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	default:
		tune, err = tuning.Default()
	}
	if err != nil {
		return nil, err
	}
	return engine.New(tune, cats, nil), nil
}
