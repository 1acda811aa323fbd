package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/acailic/founders-dilemma-sub001/internal/protocol"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ops"
)

func dial(t *testing.T) (*websocket.Conn, *ops.Dispatcher) {
	t.Helper()
	eng, err := engine.Default()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	d, err := ops.New(eng, nil, nil, nil)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	srv := httptest.NewServer(NewServer(d, nil).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, d
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(v); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "t"})
	var w protocol.WelcomeMsg
	recv(t, conn, &w)
	return w
}

func TestServer_HandshakeAndTurn(t *testing.T) {
	conn, d := dial(t)
	w := hello(t, conn)
	if w.Type != protocol.TypeWelcome || w.SessionID == "" {
		t.Fatalf("welcome: %+v", w)
	}
	if len(w.Ops) != len(protocol.Ops) || w.Catalogs.Combined == "" || w.Catalogs.Tuning == "" {
		t.Fatalf("welcome catalogs: %+v", w)
	}
	if w.Catalogs.Combined != d.Engine().Catalogs().Digest() {
		t.Fatalf("combined digest mismatch")
	}

	send(t, conn, protocol.OpMsg{Type: protocol.TypeOp, ID: "a", Op: protocol.OpNewGame,
		Payload: json.RawMessage(`{"difficulty":"InfraDevTool","seed":3,"game_id":"ws1"}`)})
	var res struct {
		protocol.ResultMsg
		Result json.RawMessage `json:"result"`
	}
	recv(t, conn, &res)
	if !res.OK || res.ID != "a" {
		t.Fatalf("new_game: %+v", res.ResultMsg)
	}

	send(t, conn, protocol.OpMsg{Type: protocol.TypeOp, ID: "b", Op: protocol.OpTakeTurn,
		Payload: json.RawMessage(`{"game_id":"ws1","actions":[{"kind":"ship_feature"}]}`)})
	recv(t, conn, &res)
	if !res.OK || res.ID != "b" {
		t.Fatalf("take_turn: %+v", res.ResultMsg)
	}
	var rep struct {
		Week int `json:"week"`
	}
	if err := json.Unmarshal(res.Result, &rep); err != nil || rep.Week != 1 {
		t.Fatalf("report week: %v %d", err, rep.Week)
	}
	if s, ok := d.Store().Get("ws1"); !ok || s.Week != 1 {
		t.Fatalf("store not advanced")
	}
}

func TestServer_RejectsNonOpMessages(t *testing.T) {
	conn, _ := dial(t)
	hello(t, conn)

	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version})
	var res protocol.ResultMsg
	recv(t, conn, &res)
	if res.OK || res.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected bad request, got %+v", res)
	}

	send(t, conn, protocol.OpMsg{Type: protocol.TypeOp, ID: "x", Op: "nope"})
	recv(t, conn, &res)
	if res.OK || res.Code != protocol.ErrUnknownOp || res.ID != "x" {
		t.Fatalf("expected unknown op, got %+v", res)
	}
}

func TestServer_BadVersionCloses(t *testing.T) {
	conn, _ := dial(t)
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1", ClientName: "old"})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
}
