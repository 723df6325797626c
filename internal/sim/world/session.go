package world

import (
	"encoding/json"
	"strings"
	"time"

	"voxelgate.ai/internal/protocol"
	lifecyclepkg "voxelgate.ai/internal/sim/world/feature/session/lifecycle"
	welcomepkg "voxelgate.ai/internal/sim/world/feature/session/welcome"
	"voxelgate.ai/internal/sim/world/kernel/model"
)

func (w *World) joinAgent(name string, out chan []byte) JoinResponse {
	idNum := w.nextAgentNum.Add(1)
	agentID := lifecyclepkg.NewAgentID(idNum)

	// Spawn on the surface, spread diagonally from the configured origin.
	dx, dz := lifecyclepkg.SpawnSeed(idNum)
	x, z := w.cfg.Spawn.X+dx, w.cfg.Spawn.Z+dz
	spawn := model.Vec3i{X: x, Y: w.chunks.SurfaceHeight(x, z) + 1, Z: z}

	a := lifecyclepkg.BuildJoinedAgent(lifecyclepkg.BuildJoinedAgentInput{
		AgentID:     agentID,
		Name:        name,
		Spawn:       spawn,
		StarterKeys: w.cfg.StarterKeys,
	})
	a.ResumeToken = lifecyclepkg.NewResumeToken(w.cfg.ID, time.Now().UnixNano())

	w.agents[agentID] = a
	if out != nil {
		w.clients[agentID] = &clientState{Out: out}
	}
	w.logf("world join world=%s agent=%s name=%q pos=%v", w.cfg.ID, agentID, a.Name, a.Pos)
	return JoinResponse{Welcome: w.buildWelcome(a)}
}

func (w *World) handleAttach(req AttachRequest) {
	token := strings.TrimSpace(req.ResumeToken)
	if token == "" || req.Out == nil {
		if req.Resp != nil {
			req.Resp <- JoinResponse{}
		}
		return
	}
	attached := lifecyclepkg.AttachByToken(token, w.agents, w.cfg.ID, time.Now().UnixNano())
	if !attached.OK || attached.Agent == nil {
		if req.Resp != nil {
			req.Resp <- JoinResponse{}
		}
		return
	}
	a := attached.Agent
	w.clients[a.ID] = &clientState{Out: req.Out}
	if req.Resp != nil {
		req.Resp <- JoinResponse{Welcome: w.buildWelcome(a)}
	}
}

// handleLeave detaches the client only. The agent stays in the world so a
// resume token can reattach it.
func (w *World) handleLeave(req LeaveRequest) {
	cl := w.clients[req.AgentID]
	if cl == nil || (req.Out != nil && cl.Out != req.Out) {
		return
	}
	delete(w.clients, req.AgentID)
}

func (w *World) buildWelcome(a *model.Agent) protocol.WelcomeMsg {
	dsnap := w.dungeons.Snapshot()
	return welcomepkg.Build(welcomepkg.Input{
		AgentID:            a.ID,
		ResumeToken:        a.ResumeToken,
		WorldID:            w.cfg.ID,
		Pos:                a.Pos.ToArray(),
		Keys:               a.Keys,
		TickRateHz:         w.cfg.TickRateHz,
		MinY:               w.cfg.MinY,
		MaxY:               w.cfg.MaxY,
		Seed:               w.cfg.Seed,
		GateActiveTicks:    w.cfg.GateActiveTicks,
		BlockPaletteDigest: w.catalogs.Blocks.PaletteDigest,
		BlockPaletteCount:  len(w.catalogs.Blocks.Palette),
		StructuresDigest:   w.catalogs.Structures.Digest,
		DungeonsDigest:     dsnap.Digest(),
		DungeonCount:       dsnap.Len(),
	})
}

// send marshals msg to the agent's client, if one is attached.
func (w *World) send(agentID string, msg any) {
	cl := w.clients[agentID]
	if cl == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	sendLatest(cl.Out, b)
}

func (w *World) broadcast(msg any) {
	if len(w.clients) == 0 {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, cl := range w.clients {
		sendLatest(cl.Out, b)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
