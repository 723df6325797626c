package worldtest

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/sim/catalogs"
	"voxelgate.ai/internal/sim/dungeons"
	world "voxelgate.ai/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - Join() issues JoinRequest via StepOnce()
// - PlaceGate()/Activate() issue one action each via StepOnce()
// - Per-agent Out channels carry server JSON, kept per message type
//
// It avoids touching world internals so tests can live outside the world package.
type Harness struct {
	T      *testing.T
	Cats   *catalogs.Catalogs
	DCat   *dungeons.Catalog
	W      *world.World
	Digest string

	DefaultAgentID string
	Spawn          [3]int

	sessions map[string]*session
}

type session struct {
	AgentID string
	Out     chan []byte
	last    map[string][]byte
}

// LoadCatalogs reads the block/structure catalogs and the dungeon records
// from the repo configs directory.
func LoadCatalogs(t *testing.T, configDir string) (*catalogs.Catalogs, *dungeons.Catalog) {
	t.Helper()
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	entries, err := dungeons.LoadDir(configDir, filepath.Join(configDir, "dungeons"))
	if err != nil {
		t.Fatalf("load dungeons: %v", err)
	}
	dcat := dungeons.NewCatalog(nil)
	if rep := dcat.Reload(entries); rep.Accepted == 0 {
		t.Fatalf("no dungeon records accepted: %+v", rep)
	}
	return cats, dcat
}

func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs, dcat *dungeons.Catalog, agentName string) *Harness {
	t.Helper()

	w, err := world.New(cfg, cats, dcat, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, cats, dcat, agentName)
}

// NewHarnessWithWorld is like NewHarness, but uses an already-constructed world instance.
// This is useful for snapshot round-trip tests where the snapshot is imported first.
// An empty agentName skips the join.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs, dcat *dungeons.Catalog, agentName string) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}

	h := &Harness{
		T:        t,
		Cats:     cats,
		DCat:     dcat,
		W:        w,
		sessions: map[string]*session{},
	}
	if agentName != "" {
		var welcome protocol.WelcomeMsg
		h.DefaultAgentID, welcome = h.Join(agentName)
		h.Spawn = welcome.Pos
	}
	return h
}

func (h *Harness) Join(agentName string) (string, protocol.WelcomeMsg) {
	h.T.Helper()

	out := make(chan []byte, 64)
	resp := make(chan world.JoinResponse, 1)
	_, h.Digest = h.W.StepOnce([]world.JoinRequest{{
		Name: agentName,
		Out:  out,
		Resp: resp,
	}}, nil, nil)
	jr := <-resp
	if jr.Welcome.AgentID == "" {
		h.T.Fatalf("join returned empty agent id")
	}
	s := &session{AgentID: jr.Welcome.AgentID, Out: out, last: map[string][]byte{}}
	h.sessions[s.AgentID] = s
	h.drainAll()
	return s.AgentID, jr.Welcome
}

// Step runs one tick with the given actions and records the digest.
func (h *Harness) Step(actions ...world.ActionEnvelope) uint64 {
	h.T.Helper()
	tick, d := h.W.StepOnce(nil, nil, actions)
	h.Digest = d
	h.drainAll()
	return tick
}

func (h *Harness) StepN(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Step()
	}
}

func (h *Harness) PlaceGate(pos [3]int, kind string) protocol.AckMsg {
	h.T.Helper()
	h.Step(world.ActionEnvelope{
		AgentID:   h.DefaultAgentID,
		PlaceGate: &protocol.PlaceGateMsg{Type: protocol.TypePlaceGate, ProtocolVersion: protocol.Version, Pos: pos, Kind: kind},
	})
	var ack protocol.AckMsg
	h.Last(h.DefaultAgentID, protocol.TypeAck, &ack)
	return ack
}

func (h *Harness) Activate(pos [3]int, keyID string) protocol.ActivateResultMsg {
	h.T.Helper()
	h.Step(world.ActionEnvelope{
		AgentID:  h.DefaultAgentID,
		Activate: &protocol.ActivateMsg{Type: protocol.TypeActivate, ProtocolVersion: protocol.Version, Pos: pos, KeyID: keyID},
	})
	var res protocol.ActivateResultMsg
	h.Last(h.DefaultAgentID, protocol.TypeActivateResult, &res)
	return res
}

// Last decodes the most recent message of type typ sent to agentID.
func (h *Harness) Last(agentID, typ string, v any) bool {
	h.T.Helper()
	s := h.sessions[agentID]
	if s == nil {
		h.T.Fatalf("unknown agent id: %q", agentID)
	}
	b := s.last[typ]
	if b == nil {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		h.T.Fatalf("unmarshal %s: %v", typ, err)
	}
	return true
}

func (h *Harness) Snapshot() (tick uint64, snap snapshot.SnapshotV1) {
	h.T.Helper()
	// Keep tick stable: export at currentTick-1 then import would restore to currentTick.
	cur := h.W.CurrentTick()
	if cur == 0 {
		return 0, h.W.ExportSnapshot(0)
	}
	tick = cur - 1
	return tick, h.W.ExportSnapshot(tick)
}

func (h *Harness) drainAll() {
	h.T.Helper()
	for _, s := range h.sessions {
		for {
			select {
			case b := <-s.Out:
				base, err := protocol.DecodeBase(b)
				if err != nil {
					h.T.Fatalf("decode: %v", err)
				}
				s.last[base.Type] = b
				continue
			default:
			}
			break
		}
	}
}
