package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	GameID  string `json:"game_id"`
	Week    int    `json:"week"`
}

// SnapshotV1 is a saved game. The digests record which tables the state
// was played against; resuming under different ones is allowed but the
// turn log will no longer replay.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Difficulty    game.Difficulty `json:"difficulty"`
	Seed          int64           `json:"seed"`
	TuningDigest  string          `json:"tuning_digest,omitempty"`
	CatalogDigest string          `json:"catalog_digest,omitempty"`
	StateDigest   string          `json:"state_digest"`
	SavedAt       int64           `json:"saved_at,omitempty"`

	State game.GameState `json:"state"`
}

// New wraps s with a header and its digest.
func New(s game.GameState) (SnapshotV1, error) {
	d, err := s.Digest()
	if err != nil {
		return SnapshotV1{}, err
	}
	return SnapshotV1{
		Header:      Header{Version: Version, GameID: s.GameID, Week: s.Week},
		Difficulty:  s.Difficulty,
		Seed:        s.Seed,
		StateDigest: d,
		State:       s,
	}, nil
}

// Path is where the snapshot of gameID at week lives under dataDir.
func Path(dataDir, gameID string, week int) string {
	return filepath.Join(dataDir, "snapshots", gameID, fmt.Sprintf("%06d.snap.zst", week))
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := write(tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func write(path string, snap SnapshotV1) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// The header line duplicates what gob carries; it is there for tools.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// Latest returns the newest snapshot path for gameID, or "" when there is
// none.
func Latest(dataDir, gameID string) (string, error) {
	dir := filepath.Join(dataDir, "snapshots", gameID)
	ents, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	best, bestWeek := "", -1
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		w, err := strconv.Atoi(strings.TrimSuffix(name, ".snap.zst"))
		if err != nil {
			continue
		}
		if w > bestWeek {
			best, bestWeek = filepath.Join(dir, name), w
		}
	}
	return best, nil
}

// Games lists the game ids that have at least one snapshot.
func Games(dataDir string) ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(dataDir, "snapshots"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
