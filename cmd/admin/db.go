package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/games.sqlite)")
	gameID := fs.String("game", "", "game id (required for turns, events, milestones)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "games"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "games.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	rows, err := queryIndex(db, q, strings.TrimSpace(*gameID), *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

type gameRow struct {
	GameID     string  `json:"game_id"`
	Difficulty string  `json:"difficulty"`
	Seed       int64   `json:"seed"`
	Founder    string  `json:"founder"`
	CreatedAt  string  `json:"created_at"`
	Week       int     `json:"week"`
	Status     string  `json:"status"`
	Bank       float64 `json:"bank"`
	MRR        float64 `json:"mrr"`
	Streak     int     `json:"streak"`
}

type turnRow struct {
	Seq        int             `json:"seq"`
	Week       int             `json:"week"`
	Kind       string          `json:"kind"`
	Status     string          `json:"status"`
	Actions    json.RawMessage `json:"actions"`
	Bank       float64         `json:"bank"`
	Burn       float64         `json:"burn"`
	MRR        float64         `json:"mrr"`
	WAU        float64         `json:"wau"`
	Morale     float64         `json:"morale"`
	Reputation float64         `json:"reputation"`
	Runway     float64         `json:"runway"`
	Streak     int             `json:"streak"`
	Digest     string          `json:"digest"`
}

type weekRow struct {
	Week int    `json:"week"`
	ID   string `json:"id"`
}

type snapshotRow struct {
	GameID string `json:"game_id"`
	Week   int    `json:"week"`
	Path   string `json:"path"`
	Digest string `json:"digest"`
}

type catalogRow struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	UpdatedAt string `json:"updated_at"`
}

// queryIndex runs one of the named read queries against the index.
func queryIndex(db *sql.DB, q, gameID string, limit int) ([]any, error) {
	if limit <= 0 {
		limit = 20
	}
	needGame := func() error {
		if gameID == "" {
			return fmt.Errorf("missing -game")
		}
		return nil
	}

	var out []any
	switch q {
	case "games":
		rows, err := db.Query(`SELECT game_id,difficulty,seed,founder,created_at,week,status,bank,mrr,streak FROM games ORDER BY created_at DESC LIMIT ?`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var r gameRow
			if err := rows.Scan(&r.GameID, &r.Difficulty, &r.Seed, &r.Founder, &r.CreatedAt, &r.Week, &r.Status, &r.Bank, &r.MRR, &r.Streak); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()

	case "turns":
		if err := needGame(); err != nil {
			return nil, err
		}
		rows, err := db.Query(`SELECT seq,week,kind,status,actions_json,bank,burn,mrr,wau,morale,reputation,runway,streak,digest FROM turns WHERE game_id=? ORDER BY seq DESC LIMIT ?`, gameID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var r turnRow
			var acts string
			if err := rows.Scan(&r.Seq, &r.Week, &r.Kind, &r.Status, &acts, &r.Bank, &r.Burn, &r.MRR, &r.WAU, &r.Morale, &r.Reputation, &r.Runway, &r.Streak, &r.Digest); err != nil {
				return nil, err
			}
			r.Actions = json.RawMessage(acts)
			out = append(out, r)
		}
		return out, rows.Err()

	case "events", "milestones":
		if err := needGame(); err != nil {
			return nil, err
		}
		query := `SELECT week,event_id FROM events WHERE game_id=? ORDER BY week DESC LIMIT ?`
		if q == "milestones" {
			query = `SELECT week,milestone_id FROM milestones WHERE game_id=? ORDER BY week DESC LIMIT ?`
		}
		rows, err := db.Query(query, gameID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var r weekRow
			if err := rows.Scan(&r.Week, &r.ID); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()

	case "snapshots":
		query := `SELECT game_id,week,path,digest FROM snapshots ORDER BY game_id, week DESC LIMIT ?`
		args := []any{limit}
		if gameID != "" {
			query = `SELECT game_id,week,path,digest FROM snapshots WHERE game_id=? ORDER BY week DESC LIMIT ?`
			args = []any{gameID, limit}
		}
		rows, err := db.Query(query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var r snapshotRow
			if err := rows.Scan(&r.GameID, &r.Week, &r.Path, &r.Digest); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var r catalogRow
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()

	default:
		return nil, fmt.Errorf("unknown query %q (games, turns, events, milestones, snapshots, catalogs)", q)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
