package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"voxelgate.ai/internal/protocol"
)

// bot joins a world, places a gate next to its spawn and activates it, then
// keeps printing gate events until interrupted.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "agent name")
		kind   = flag.String("kind", "basic", "gate kind to place")
		key    = flag.String("key", "bronze_key", "key used to activate the gate")
		offset = flag.Int("offset", 2, "gate x offset from spawn")
		resume = flag.String("resume", "", "resume token (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       *name,
		ResumeToken:     *resume,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	var gatePos [3]int
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME agent_id=%s pos=%v keys=%v resume=%s", w.AgentID, w.Pos, w.Keys, w.ResumeToken)
			gatePos = [3]int{w.Pos[0] + *offset, w.Pos[1], w.Pos[2]}
			_ = conn.WriteJSON(protocol.PlaceGateMsg{
				Type:            protocol.TypePlaceGate,
				ProtocolVersion: protocol.Version,
				ReqID:           "place_1",
				Pos:             gatePos,
				Kind:            *kind,
			})

		case protocol.TypeAck:
			var a protocol.AckMsg
			if err := json.Unmarshal(msg, &a); err != nil {
				continue
			}
			logger.Printf("ACK for=%s req=%s accepted=%v code=%s %s", a.AckFor, a.ReqID, a.Accepted, a.Code, a.Message)
			if a.AckFor == protocol.TypePlaceGate && (a.Accepted || a.Code == protocol.ErrConflict) {
				_ = conn.WriteJSON(protocol.ActivateMsg{
					Type:            protocol.TypeActivate,
					ProtocolVersion: protocol.Version,
					ReqID:           "activate_1",
					Pos:             gatePos,
					KeyID:           *key,
				})
			}

		case protocol.TypeActivateResult:
			var r protocol.ActivateResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			if !r.OK {
				logger.Printf("ACTIVATE failed code=%s %s", r.Code, r.Message)
				continue
			}
			logger.Printf("ACTIVATE ok reentry=%v dungeon=%s placement=%s delivered=%s unsafe=%v",
				r.Reentry, dungeonString(r.Dungeon), vecString(r.Placement), vecString(r.Delivered), r.Unsafe)

		case protocol.TypeEvent:
			var e protocol.EventMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("EVENT tick=%d %v", e.Tick, e.Event)
		}
	}
}

func dungeonString(d *protocol.DungeonRef) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%s(%s,%d)", d.Structure, d.Type, d.Difficulty)
}

func vecString(v *[3]int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d,%d,%d", v[0], v[1], v[2])
}
