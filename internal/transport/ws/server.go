package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/acailic/founders-dilemma-sub001/internal/protocol"
	"github.com/acailic/founders-dilemma-sub001/internal/transport/ops"
)

type Server struct {
	ops *ops.Dispatcher
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(d *ops.Dispatcher, logger *log.Logger) *Server {
	return &Server{
		ops: d,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) printf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// Handler serves one session per connection: HELLO, WELCOME, then OP
// messages answered in order with RESULT.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		session, out := s.handshake(conn)
		if session == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res := s.handle(msg)
			b, err := json.Marshal(res)
			if err != nil {
				s.printf("session %s: encode result: %v", session, err)
				b, _ = json.Marshal(protocol.Failure(res.ID, res.Op, protocol.ErrInternal, "encode result"))
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-done
	}
}

func (s *Server) handle(msg []byte) protocol.ResultMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.Failure("", "", protocol.ErrProtoBadRequest, "bad message: "+err.Error())
	}
	if base.Type != protocol.TypeOp {
		return protocol.Failure("", "", protocol.ErrProtoBadRequest, "expected OP, got "+base.Type)
	}
	var op protocol.OpMsg
	if err := json.Unmarshal(msg, &op); err != nil {
		return protocol.Failure("", "", protocol.ErrProtoBadRequest, "bad OP: "+err.Error())
	}
	if op.ProtocolVersion != "" && op.ProtocolVersion != protocol.Version {
		return protocol.Failure(op.ID, op.Op, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	return s.ops.Handle(op)
}

func (s *Server) handshake(conn *websocket.Conn) (session string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	session = uuid.NewString()
	if err := writeJSON(conn, s.Welcome(session)); err != nil {
		return "", nil
	}
	s.printf("session %s: %s connected", session, hello.ClientName)
	return session, out
}

// Welcome describes the rules this server plays by.
func (s *Server) Welcome(session string) protocol.WelcomeMsg {
	eng := s.ops.Engine()
	cats := eng.Catalogs()
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       session,
		Ops:             append([]string(nil), protocol.Ops...),
		Catalogs: protocol.CatalogDigests{
			Combined: cats.Digest(),
			Tuning:   eng.Tuning().Digest(),
			Files:    cats.Digests(),
		},
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
