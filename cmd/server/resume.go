package main

import (
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/acailic/founders-dilemma-sub001/internal/persistence/replay"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/snapshot"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ops"
)

// resumeGames loads the newest snapshot of every game under dataDir and
// rolls it forward through whatever the turn log holds after it.
func resumeGames(dataDir string, eng *engine.Engine, store *ops.Store, logger *log.Logger) (int, error) {
	ids, err := snapshot.Games(dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	turnsDir := filepath.Join(dataDir, "turns")
	tuneDigest, catDigest := eng.Tuning().Digest(), eng.Catalogs().Digest()

	n := 0
	for _, id := range ids {
		path, err := snapshot.Latest(dataDir, id)
		if err != nil || path == "" {
			continue
		}
		snap, err := snapshot.ReadSnapshot(path)
		if err != nil {
			logger.Printf("resume %s: %v", id, err)
			continue
		}
		st := snap.State
		if snap.TuningDigest != tuneDigest || snap.CatalogDigest != catDigest {
			logger.Printf("resume %s: rules changed since week %d; not replaying the log", id, snap.Header.Week)
		} else if res, err := replay.Game(eng, turnsDir, id, &st); err == nil {
			st = res.State
		} else if !errors.Is(err, replay.ErrNotInLog) && !errors.Is(err, os.ErrNotExist) {
			logger.Printf("resume %s: replay after week %d: %v", id, snap.Header.Week, err)
		}
		store.Put(st)
		n++
	}
	return n, nil
}
