package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/acailic/founders-dilemma-sub001/internal/protocol"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/engine"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "bot", "client name")
		difficulty = flag.String("difficulty", string(game.IndieBootstrap), "difficulty preset")
		seed       = flag.Int64("seed", 1, "game seed")
		maxWeeks   = flag.Int("weeks", 104, "stop after this many weeks")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn}
	w, err := c.hello(*name)
	if err != nil {
		logger.Fatalf("handshake: %v", err)
	}
	logger.Printf("WELCOME session=%s ops=%d catalogs=%s", w.SessionID, len(w.Ops), short(w.Catalogs.Combined))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var s game.GameState
	if err := c.call(protocol.OpNewGame, map[string]any{"difficulty": *difficulty, "seed": *seed, "founder": *name}, &s); err != nil {
		logger.Fatalf("new_game: %v", err)
	}
	logger.Printf("game %s difficulty=%s bank=%.0f", s.GameID, s.Difficulty, s.Bank)

	for s.Week < *maxWeeks {
		select {
		case <-stop:
			return
		default:
		}

		for _, ev := range s.ActiveEvents {
			if len(ev.Choices) == 0 {
				continue
			}
			choice := pickChoice(ev)
			if err := c.call(protocol.OpApplyEventChoice, map[string]any{"game_id": s.GameID, "event_id": ev.ID, "choice_id": choice}, &s); err != nil {
				logger.Printf("week %d: choice %s/%s: %v", s.Week, ev.ID, choice, err)
				continue
			}
			logger.Printf("week %d: %s -> %s", s.Week, ev.ID, choice)
		}

		var defs []game.ActionDef
		if err := c.call(protocol.OpGetAvailableActions, map[string]any{"game_id": s.GameID, "detailed": true}, &defs); err != nil {
			logger.Fatalf("get_available_actions: %v", err)
		}
		acts := plan(s, defs)

		var rep engine.TurnReport
		if err := c.call(protocol.OpTakeTurn, map[string]any{"game_id": s.GameID, "actions": acts}, &rep); err != nil {
			logger.Fatalf("week %d: take_turn: %v", s.Week+1, err)
		}
		s = rep.State
		logger.Printf("week %d: bank=%.0f mrr=%.0f wau=%.0f morale=%.0f streak=%d actions=%d",
			s.Week, s.Bank, s.MRR, s.WAU, s.Morale, s.EscapeVelocity.StreakWeeks, len(acts))
		for _, m := range rep.Milestones {
			logger.Printf("week %d: milestone %s", s.Week, m.Title)
		}
		if rep.Status.GameOver {
			logger.Printf("game over at week %d: %s (%s)", s.Week, rep.Status.Legacy(), rep.Status.Message)
			return
		}
	}
	logger.Printf("stopped at week %d", s.Week)
}

type client struct {
	conn *websocket.Conn
	seq  int
}

func (c *client) hello(name string) (protocol.WelcomeMsg, error) {
	var w protocol.WelcomeMsg
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	}
	if err := c.conn.WriteJSON(hello); err != nil {
		return w, err
	}
	err := c.conn.ReadJSON(&w)
	return w, err
}

// call sends one OP and decodes the result into out.
func (c *client) call(op string, payload, out any) error {
	c.seq++
	id := strconv.Itoa(c.seq)
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := protocol.OpMsg{Type: protocol.TypeOp, ProtocolVersion: protocol.Version, ID: id, Op: op, Payload: raw}
	if err := c.conn.WriteJSON(msg); err != nil {
		return err
	}
	var res struct {
		protocol.ResultMsg
		Result json.RawMessage `json:"result"`
	}
	if err := c.conn.ReadJSON(&res); err != nil {
		return err
	}
	if res.ID != id {
		return fmt.Errorf("result id %s, want %s", res.ID, id)
	}
	if !res.OK {
		return fmt.Errorf("%s: %s", res.Code, res.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(res.Result, out)
}

func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
