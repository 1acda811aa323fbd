package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/acailic/founders-dilemma-sub001/internal/persistence/indexdb"
	"github.com/acailic/founders-dilemma-sub001/internal/protocol"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ops"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ws"
)

const maxOpBody = 1 << 20

type routes struct {
	ops   *ops.Dispatcher
	rec   *gameRecorder
	idx   *indexdb.SQLiteIndex
	ws    *ws.Server
	admin bool
	pprof bool
}

func (rt routes) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", rt.metrics)
	mux.HandleFunc("POST /v1/ops/{op}", rt.op)
	mux.HandleFunc("/v1/ws", rt.ws.Handler())

	if rt.admin {
		mux.HandleFunc("GET /admin/v1/state", loopbackOnly(rt.adminState))
		mux.HandleFunc("GET /admin/v1/games/{id}", loopbackOnly(rt.adminGame))
		mux.HandleFunc("POST /admin/v1/snapshot", loopbackOnly(rt.adminSnapshot))
	}
	if rt.pprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// op runs one boundary operation. The request body is the op payload; the
// response is the same RESULT envelope the websocket sends.
func (rt routes) op(rw http.ResponseWriter, r *http.Request) {
	op := r.PathValue("op")
	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxOpBody))
	var res protocol.ResultMsg
	if err != nil {
		res = protocol.Failure(r.Header.Get("X-Request-ID"), op, protocol.ErrProtoBadRequest, "read body: "+err.Error())
	} else {
		res = rt.ops.Handle(protocol.OpMsg{
			Type:            protocol.TypeOp,
			ProtocolVersion: protocol.Version,
			ID:              r.Header.Get("X-Request-ID"),
			Op:              op,
			Payload:         body,
		})
	}
	writeJSON(rw, httpStatus(res), res)
}

func httpStatus(res protocol.ResultMsg) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.Code {
	case protocol.ErrProtoBadRequest:
		return http.StatusBadRequest
	case protocol.ErrUnknownOp, protocol.ErrGameNotFound:
		return http.StatusNotFound
	case protocol.ErrInvalidAction, protocol.ErrCapacityExceeded, protocol.ErrChoiceNotFound:
		return http.StatusUnprocessableEntity
	case protocol.ErrInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (rt routes) metrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(rw, "# HELP founders_dilemma_games Games held by the server.\n")
	fmt.Fprintf(rw, "# TYPE founders_dilemma_games gauge\n")
	fmt.Fprintf(rw, "founders_dilemma_games %d\n", rt.ops.Store().Len())

	calls, fails := rt.ops.Counters()
	fmt.Fprintf(rw, "# HELP founders_dilemma_op_calls_total Operations received, by op.\n")
	fmt.Fprintf(rw, "# TYPE founders_dilemma_op_calls_total counter\n")
	for _, k := range sortedKeys(calls) {
		fmt.Fprintf(rw, "founders_dilemma_op_calls_total{op=%q} %d\n", k, calls[k])
	}
	fmt.Fprintf(rw, "# HELP founders_dilemma_op_failures_total Rejected operations, by op and code.\n")
	fmt.Fprintf(rw, "# TYPE founders_dilemma_op_failures_total counter\n")
	for _, k := range sortedKeys(fails) {
		op, code, _ := strings.Cut(k, "/")
		fmt.Fprintf(rw, "founders_dilemma_op_failures_total{op=%q,code=%q} %d\n", op, code, fails[k])
	}

	if rt.rec != nil {
		fmt.Fprintf(rw, "# HELP founders_dilemma_snapshots_total Snapshots by outcome.\n")
		fmt.Fprintf(rw, "# TYPE founders_dilemma_snapshots_total counter\n")
		fmt.Fprintf(rw, "founders_dilemma_snapshots_total{outcome=%q} %d\n", "written", rt.rec.snapsWritten.Load())
		fmt.Fprintf(rw, "founders_dilemma_snapshots_total{outcome=%q} %d\n", "dropped", rt.rec.snapsDropped.Load())
		fmt.Fprintf(rw, "# HELP founders_dilemma_turn_log_errors_total Changes that could not be logged.\n")
		fmt.Fprintf(rw, "# TYPE founders_dilemma_turn_log_errors_total counter\n")
		fmt.Fprintf(rw, "founders_dilemma_turn_log_errors_total %d\n", rt.rec.logErrors.Load())
	}

	if rt.idx != nil {
		s := rt.idx.Stats()
		fmt.Fprintf(rw, "# HELP founders_dilemma_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE founders_dilemma_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "founders_dilemma_index_queue_depth %d\n", s.QueueDepth)
		fmt.Fprintf(rw, "# HELP founders_dilemma_index_queue_capacity Index writer queue capacity.\n")
		fmt.Fprintf(rw, "# TYPE founders_dilemma_index_queue_capacity gauge\n")
		fmt.Fprintf(rw, "founders_dilemma_index_queue_capacity %d\n", s.QueueCapacity)
		fmt.Fprintf(rw, "# HELP founders_dilemma_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE founders_dilemma_index_dropped_total counter\n")
		fmt.Fprintf(rw, "founders_dilemma_index_dropped_total{kind=%q} %d\n", "game", s.DropGameTotal)
		fmt.Fprintf(rw, "founders_dilemma_index_dropped_total{kind=%q} %d\n", "turn", s.DropTurnTotal)
		fmt.Fprintf(rw, "founders_dilemma_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
	}
}

func (rt routes) adminState(rw http.ResponseWriter, r *http.Request) {
	calls, fails := rt.ops.Counters()
	resp := struct {
		Games    []string          `json:"games"`
		Calls    map[string]uint64 `json:"calls"`
		Failures map[string]uint64 `json:"failures"`
		Index    *indexdb.Stats    `json:"index,omitempty"`
	}{
		Games:    rt.ops.Store().IDs(),
		Calls:    calls,
		Failures: fails,
	}
	if rt.idx != nil {
		s := rt.idx.Stats()
		resp.Index = &s
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (rt routes) adminGame(rw http.ResponseWriter, r *http.Request) {
	s, ok := rt.ops.Store().Get(r.PathValue("id"))
	if !ok {
		http.Error(rw, "not found", http.StatusNotFound)
		return
	}
	writeJSON(rw, http.StatusOK, s)
}

// adminSnapshot queues a snapshot of one game outside the usual schedule.
func (rt routes) adminSnapshot(rw http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("game_id")
	s, ok := rt.ops.Store().Get(id)
	if !ok {
		writeJSON(rw, http.StatusNotFound, map[string]any{"ok": false, "error": "no game " + id})
		return
	}
	if rt.rec == nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "persistence disabled"})
		return
	}
	rt.rec.snapshot(s)
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "game_id": id, "week": s.Week})
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func sortedKeys(m map[string]uint64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func envBool(name string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return def
	}
	return v
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
