package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	persistlog "github.com/acailic/founders-dilemma-sub001/internal/persistence/log"
	"github.com/acailic/founders-dilemma-sub001/internal/persistence/snapshot"
	"github.com/acailic/founders-dilemma-sub001/internal/protocol"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ops"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ws"
)

type testServer struct {
	url  string
	rec  *gameRecorder
	d    *ops.Dispatcher
	stop func()
}

func startServer(t *testing.T, dataDir string) *testServer {
	t.Helper()
	eng, err := engine.Default()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	rec := newGameRecorder(dataDir, eng, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.runSnapshots(ctx)
	}()

	d, err := ops.New(eng, nil, rec, logger)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	rt := routes{ops: d, rec: rec, ws: ws.NewServer(d, logger), admin: true}
	srv := httptest.NewServer(rt.mux())

	ts := &testServer{url: srv.URL, rec: rec, d: d}
	ts.stop = func() {
		srv.Close()
		cancel()
		<-done
		_ = rec.Close()
	}
	return ts
}

func post(t *testing.T, url, body string) (int, protocol.ResultMsg) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var res protocol.ResultMsg
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, res
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func playWeeks(t *testing.T, ts *testServer, id string, weeks int) {
	t.Helper()
	code, res := post(t, ts.url+"/v1/ops/new_game", `{"difficulty":"VCTrack","seed":5,"game_id":"`+id+`","started_at":1700000000}`)
	if code != http.StatusOK || !res.OK {
		t.Fatalf("new_game: %d %+v", code, res)
	}
	for i := 0; i < weeks; i++ {
		code, res = post(t, ts.url+"/v1/ops/take_turn", `{"game_id":"`+id+`","actions":[{"kind":"ship_feature"},{"kind":"founder_led_sales","calls":2}]}`)
		if code != http.StatusOK || !res.OK {
			t.Fatalf("take_turn %d: %d %+v", i+1, code, res)
		}
	}
}

func TestServer_PersistsAndResumes(t *testing.T) {
	dataDir := t.TempDir()
	ts := startServer(t, dataDir)
	playWeeks(t, ts, "p1", 5)
	ts.stop()

	for _, week := range []int{0, 4} {
		if _, err := os.Stat(snapshot.Path(dataDir, "p1", week)); err != nil {
			t.Fatalf("snapshot week %d: %v", week, err)
		}
	}
	var kinds []string
	err := persistlog.ReadTurns(filepath.Join(dataDir, "turns"), "p1", func(e persistlog.TurnEntry) error {
		kinds = append(kinds, e.Kind)
		return nil
	})
	if err != nil || len(kinds) != 6 || kinds[0] != persistlog.KindNewGame {
		t.Fatalf("turn log: err=%v kinds=%v", err, kinds)
	}

	eng, _ := engine.Default()
	store := ops.NewStore()
	n, err := resumeGames(dataDir, eng, store, log.New(io.Discard, "", 0))
	if err != nil || n != 1 {
		t.Fatalf("resume: n=%d err=%v", n, err)
	}
	s, ok := store.Get("p1")
	if !ok || s.Week != 5 {
		t.Fatalf("resumed game should be at week 5 (snapshot 4 + log), got ok=%v week=%d", ok, s.Week)
	}
}

func TestServer_OpStatusCodes(t *testing.T) {
	ts := startServer(t, t.TempDir())
	defer ts.stop()

	cases := []struct {
		op, body string
		status   int
		code     string
	}{
		{"launch", `{}`, http.StatusNotFound, protocol.ErrUnknownOp},
		{"new_game", `{"difficulty":"Hobby"}`, http.StatusBadRequest, protocol.ErrProtoBadRequest},
		{"take_turn", `{"game_id":"ghost","actions":[]}`, http.StatusNotFound, protocol.ErrGameNotFound},
	}
	for _, tc := range cases {
		status, res := post(t, ts.url+"/v1/ops/"+tc.op, tc.body)
		if status != tc.status || res.Code != tc.code {
			t.Fatalf("%s: status=%d code=%s", tc.op, status, res.Code)
		}
	}

	playWeeks(t, ts, "c1", 0)
	status, res := post(t, ts.url+"/v1/ops/take_turn", `{"game_id":"c1","actions":[{"kind":"hire"},{"kind":"fundraise"}]}`)
	if status != http.StatusUnprocessableEntity || res.Code != protocol.ErrCapacityExceeded {
		t.Fatalf("capacity: status=%d code=%s", status, res.Code)
	}
}

func TestServer_MetricsAndAdmin(t *testing.T) {
	ts := startServer(t, t.TempDir())
	defer ts.stop()
	playWeeks(t, ts, "m1", 1)

	code, body := get(t, ts.url+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("metrics status %d", code)
	}
	for _, want := range []string{
		"founders_dilemma_games 1",
		`founders_dilemma_op_calls_total{op="take_turn"} 1`,
		`founders_dilemma_snapshots_total{outcome="dropped"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}

	code, body = get(t, ts.url+"/admin/v1/state")
	if code != http.StatusOK || !strings.Contains(body, `"m1"`) {
		t.Fatalf("admin state: %d %s", code, body)
	}
	code, body = get(t, ts.url+"/admin/v1/games/m1")
	if code != http.StatusOK || !strings.Contains(body, `"week":1`) {
		t.Fatalf("admin game: %d %s", code, body)
	}
	if code, _ = get(t, ts.url+"/admin/v1/games/none"); code != http.StatusNotFound {
		t.Fatalf("admin missing game: %d", code)
	}
	if code, body = get(t, ts.url+"/healthz"); code != http.StatusOK || body != "ok" {
		t.Fatalf("healthz: %d %s", code, body)
	}
}
