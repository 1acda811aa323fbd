package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/catalogs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/rng"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/tuning"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ops"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "", "config directory (default: built-in configs)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (turn log and snapshots are still written)")
		ephemeral  = flag.Bool("ephemeral", false, "keep games in memory only")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume stored games from their latest snapshot")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, tune, err := loadRules(strings.TrimSpace(*configDir), strings.TrimSpace(*tuningPath), logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	eng := engine.New(tune, cats, rng.Hashed)
	logger.Printf("rules catalogs=%s tuning=%s", cats.Digest()[:12], tune.Digest()[:12])

	ctx, cancel := signalContext()
	defer cancel()

	store := ops.NewStore()
	var rt routes

	var rec ops.Recorder
	if !*ephemeral {
		idx, err := openRuntimeIndex(*dataDir, *disableDB)
		if err != nil {
			logger.Fatalf("open index backend: %v", err)
		}
		if idx != nil {
			defer idx.Close()
			if err := idx.UpsertCatalogs(cats, tune); err != nil {
				logger.Printf("index backend: upsert catalogs: %v", err)
			}
		}

		gr := newGameRecorder(*dataDir, eng, idx, logger)
		defer gr.Close()
		snapDone := make(chan struct{})
		go func() {
			defer close(snapDone)
			gr.runSnapshots(ctx)
		}()
		defer func() { <-snapDone }()

		if *loadLatest {
			n, err := resumeGames(*dataDir, eng, store, logger)
			if err != nil {
				logger.Fatalf("resume: %v", err)
			}
			if n > 0 {
				logger.Printf("resumed %d games from %s", n, filepath.Join(*dataDir, "snapshots"))
			}
		}
		rec = gr
		rt.rec = gr
		rt.idx = idx
	}

	d, err := ops.New(eng, store, rec, logger)
	if err != nil {
		logger.Fatalf("dispatcher: %v", err)
	}
	rt.ops = d
	rt.ws = ws.NewServer(d, logger)
	rt.admin = envBool("FD_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	rt.pprof = envBool("FD_ENABLE_PPROF_HTTP", false)
	if !rt.admin {
		logger.Printf("admin endpoints disabled (FD_ENABLE_ADMIN_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           rt.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
	}
	cancel()
}

// loadRules reads catalogs and tuning. An empty configDir means the built-in
// configs; a missing tuning file falls back to defaults.
func loadRules(configDir, tuningPath string, logger *log.Logger) (*catalogs.Catalogs, tuning.Tuning, error) {
	var (
		cats *catalogs.Catalogs
		err  error
	)
	if configDir == "" {
		cats, err = catalogs.Default()
	} else {
		cats, err = catalogs.Load(configDir)
	}
	if err != nil {
		return nil, tuning.Tuning{}, err
	}

	if tuningPath == "" && configDir != "" {
		tuningPath = filepath.Join(configDir, "tuning.yaml")
	}
	if tuningPath == "" {
		tune, err := tuning.Default()
		return cats, tune, err
	}
	tune, err := tuning.Load(tuningPath)
	if os.IsNotExist(err) {
		logger.Printf("tuning not found (%s); using defaults", tuningPath)
		return cats, tuning.Defaults(), nil
	}
	return cats, tune, err
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
