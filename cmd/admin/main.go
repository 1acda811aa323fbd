package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/acailic/founders-dilemma-sub001/internal/persistence/replay"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/snapshot"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rewind":
			rewindCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "game":
			gameCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

type gameSummary struct {
	GameID     string `json:"game_id"`
	Week       int    `json:"week"`
	Difficulty string `json:"difficulty"`
	Snapshot   string `json:"snapshot"`
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	games, err := listGames(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, g := range games {
		printJSON(g)
	}
}

// listGames reads the header of every game's newest snapshot.
func listGames(dataDir string) ([]gameSummary, error) {
	ids, err := snapshot.Games(dataDir)
	if err != nil {
		return nil, err
	}
	var out []gameSummary
	for _, id := range ids {
		path, err := snapshot.Latest(dataDir, id)
		if err != nil || path == "" {
			continue
		}
		snap, err := snapshot.ReadSnapshot(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, gameSummary{
			GameID:     id,
			Week:       snap.Header.Week,
			Difficulty: string(snap.Difficulty),
			Snapshot:   path,
		})
	}
	return out, nil
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	snapPath := fs.String("snapshot", "", "snapshot path")
	full := fs.Bool("full", false, "print the whole state")
	_ = fs.Parse(args)

	if strings.TrimSpace(*snapPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if *full {
		printJSON(snap)
		return
	}
	s := snap.State
	printJSON(map[string]any{
		"header":         snap.Header,
		"difficulty":     snap.Difficulty,
		"seed":           snap.Seed,
		"state_digest":   snap.StateDigest,
		"tuning_digest":  snap.TuningDigest,
		"catalog_digest": snap.CatalogDigest,
		"bank":           s.Bank,
		"burn":           s.Burn,
		"mrr":            s.MRR,
		"wau":            s.WAU,
		"morale":         s.Morale,
		"reputation":     s.Reputation,
		"streak":         s.EscapeVelocity.StreakWeeks,
		"active_events":  len(s.ActiveEvents),
		"milestones":     len(s.Achieved),
	})
}

// rewindCmd rebuilds a game as it stood at an earlier week, from the
// nearest snapshot at or before it plus the turn log.
func rewindCmd(args []string) {
	fs := flag.NewFlagSet("rewind", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id")
	week := fs.Int("week", -1, "target week")
	configDir := fs.String("configs", "", "config directory (default: built-in configs)")
	outPath := fs.String("out", "", "output snapshot path (default: <data>/rewinds/<game>/)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*gameID) == "" || *week < 0 {
		fmt.Fprintln(os.Stderr, "need -game and -week")
		os.Exit(2)
	}
	eng, err := buildEngine(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rules:", err)
		os.Exit(1)
	}

	start, err := snapshotAtOrBefore(*dataDir, *gameID, *week)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
	turnsDir := filepath.Join(*dataDir, "turns")
	var res replay.Result
	if start != nil {
		st := start.State
		res, err = replay.Until(eng, turnsDir, *gameID, &st, *week)
		if errors.Is(err, replay.ErrNotInLog) {
			res, err = replay.Result{State: st}, nil
		}
	} else {
		res, err = replay.Until(eng, turnsDir, *gameID, nil, *week)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if res.State.Week != *week {
		fmt.Fprintf(os.Stderr, "log ends at week %d\n", res.State.Week)
		os.Exit(1)
	}

	snap, err := snapshot.New(res.State)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
	snap.TuningDigest = eng.Tuning().Digest()
	snap.CatalogDigest = eng.Catalogs().Digest()
	out := strings.TrimSpace(*outPath)
	if out == "" {
		out = filepath.Join(*dataDir, "rewinds", *gameID, filepath.Base(snapshot.Path(*dataDir, *gameID, *week)))
	}
	if err := snapshot.WriteSnapshot(out, snap); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("rewound %s to week %d (replayed=%d) -> %s\n", *gameID, *week, res.Checked, out)
}

func snapshotAtOrBefore(dataDir, gameID string, week int) (*snapshot.SnapshotV1, error) {
	dir := filepath.Dir(snapshot.Path(dataDir, gameID, 0))
	ents, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	best := -1
	for _, e := range ents {
		w, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".snap.zst"))
		if err != nil || e.IsDir() || w > week {
			continue
		}
		if w > best {
			best = w
		}
	}
	if best < 0 {
		return nil, nil
	}
	snap, err := snapshot.ReadSnapshot(snapshot.Path(dataDir, gameID, best))
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func buildEngine(configDir string) (*engine.Engine, error) {
	if configDir == "" {
		cats, err := catalogs.Default()
		if err != nil {
			return nil, err
		}
		tune, err := tuning.Default()
		if err != nil {
			return nil, err
		}
		return engine.New(tune, cats, nil), nil
	}
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return nil, err
	}
	tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		return nil, err
	}
	return engine.New(tune, cats, nil), nil
}
