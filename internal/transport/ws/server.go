package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/sim/world"
)

const outQueue = 32

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		agentID, out := s.handshake(conn)
		if agentID == "" {
			return
		}
		s.logf("ws connected agent=%s remote=%s", agentID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
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

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			env, ackFor, reqID, code := decodeAction(agentID, msg)
			if code != "" {
				reject(out, ackFor, reqID, code, "malformed or unsupported message")
				continue
			}
			select {
			case s.world.Inbox() <- env:
			default:
				reject(out, ackFor, reqID, protocol.ErrWorldBusy, "world inbox full")
			}
		}

		// Cleanup.
		s.world.Leave() <- world.LeaveRequest{AgentID: agentID, Out: out}
		s.logf("ws disconnected agent=%s", agentID)
	}
}

// decodeAction maps a client message to a world action. A non-empty code
// means the message was rejected.
func decodeAction(agentID string, msg []byte) (env world.ActionEnvelope, ackFor, reqID, code string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return env, "", "", protocol.ErrProtoBadRequest
	}
	ackFor = base.Type
	var probe struct {
		ProtocolVersion string `json:"protocol_version"`
		ReqID           string `json:"req_id"`
	}
	_ = json.Unmarshal(msg, &probe)
	reqID = probe.ReqID
	if probe.ProtocolVersion != protocol.Version {
		return env, ackFor, reqID, protocol.ErrProtoBadRequest
	}

	env.AgentID = agentID
	switch base.Type {
	case protocol.TypeActivate:
		var m protocol.ActivateMsg
		if err = json.Unmarshal(msg, &m); err == nil {
			env.Activate = &m
		}
	case protocol.TypePlaceGate:
		var m protocol.PlaceGateMsg
		if err = json.Unmarshal(msg, &m); err == nil {
			env.PlaceGate = &m
		}
	case protocol.TypeRemoveGate:
		var m protocol.RemoveGateMsg
		if err = json.Unmarshal(msg, &m); err == nil {
			env.RemoveGate = &m
		}
	case protocol.TypeGiveKey:
		var m protocol.GiveKeyMsg
		if err = json.Unmarshal(msg, &m); err == nil {
			env.GiveKey = &m
		}
	default:
		return env, ackFor, reqID, protocol.ErrProtoBadRequest
	}
	if err != nil {
		return env, ackFor, reqID, protocol.ErrProtoBadRequest
	}
	return env, ackFor, reqID, ""
}

func reject(out chan []byte, ackFor, reqID, code, message string) {
	b, err := json.Marshal(protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          ackFor,
		ReqID:           reqID,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (agentID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	out = make(chan []byte, outQueue)

	// Optional: resume an existing agent (reconnect).
	var resp world.JoinResponse
	if token := strings.TrimSpace(hello.ResumeToken); token != "" {
		respCh := make(chan world.JoinResponse, 1)
		s.world.Attach() <- world.AttachRequest{ResumeToken: token, Out: out, Resp: respCh}
		resp = <-respCh
	}
	if resp.Welcome.AgentID == "" {
		// Fresh join.
		respCh := make(chan world.JoinResponse, 1)
		s.world.Join() <- world.JoinRequest{Name: hello.AgentName, Out: out, Resp: respCh}
		resp = <-respCh
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", nil
	}
	return resp.Welcome.AgentID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
