package world

import (
	"fmt"
	"sort"
	"strings"

	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/world/feature/gates/lifecycle"
	"voxelgate.ai/internal/sim/world/kernel/model"
)

func gateBlockName(t dungeons.Type) string {
	return strings.ToUpper(string(t)) + "_GATE"
}

// agentHandle lets the gate controller move an agent without seeing the
// rest of its state.
type agentHandle struct{ a *model.Agent }

func (h agentHandle) ID() string               { return h.a.ID }
func (h agentHandle) TeleportTo(p model.Vec3i) { h.a.Pos = p }

func (w *World) sortedGatePositions() []model.Vec3i {
	out := make([]model.Vec3i, 0, len(w.gates))
	for p := range w.gates {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return model.Less(out[i], out[j]) })
	return out
}

func (w *World) applyActivate(a *model.Agent, m *protocol.ActivateMsg, nowTick uint64) {
	res := protocol.ActivateResultMsg{
		Type:            protocol.TypeActivateResult,
		ProtocolVersion: protocol.Version,
		ReqID:           m.ReqID,
		ServerTick:      nowTick,
	}
	fail := func(code, msg string) {
		res.Code, res.Message = code, msg
		w.send(a.ID, res)
	}

	key, ok := dungeons.KeyByID(m.KeyID)
	if !ok {
		fail(protocol.ErrBadRequest, "unknown key: "+m.KeyID)
		return
	}
	if !a.HasKey(key.ID) {
		fail(protocol.ErrNoPermission, "key not held: "+key.ID)
		return
	}
	pos := model.VecFromArray(m.Pos)
	g := w.gates[pos]
	if g == nil {
		fail(protocol.ErrInvalidTarget, fmt.Sprintf("no gate at %v", m.Pos))
		return
	}

	out := w.ctrl.Activate(g, agentHandle{a}, key.Credential)
	if !out.OK {
		fail(out.Code, out.Message)
		return
	}
	res.OK = true
	res.Reentry = out.Reentry
	res.Dungeon = dungeonRef(out.Dungeon)
	placement := out.Placement.ToArray()
	delivered := out.Delivered.ToArray()
	res.Placement = &placement
	res.Delivered = &delivered
	res.Unsafe = out.Unsafe
	w.send(a.ID, res)
}

func (w *World) applyPlaceGate(a *model.Agent, m *protocol.PlaceGateMsg, nowTick uint64) {
	kind, ok := dungeons.ParseType(m.Kind)
	if !ok {
		w.ack(a.ID, protocol.TypePlaceGate, m.ReqID, nowTick, protocol.ErrBadRequest, "unknown gate kind: "+m.Kind)
		return
	}
	pos := model.VecFromArray(m.Pos)
	if w.gates[pos] != nil {
		w.ack(a.ID, protocol.TypePlaceGate, m.ReqID, nowTick, protocol.ErrConflict, "gate already placed")
		return
	}
	if !w.chunks.InBounds(pos.X, pos.Y, pos.Z) || !w.chunks.BlockKind(pos).Passable() {
		w.ack(a.ID, protocol.TypePlaceGate, m.ReqID, nowTick, protocol.ErrBlocked, "position is not free")
		return
	}
	block := w.catalogs.Blocks.Index[gateBlockName(kind)]
	w.setBlock(nowTick, a.ID, pos, block, "PLACE_GATE")
	w.gates[pos] = lifecycle.NewGate(pos, kind)
	w.logf("gate placed world=%s gate=%v kind=%s agent=%s", w.cfg.ID, pos, kind, a.ID)
	w.ack(a.ID, protocol.TypePlaceGate, m.ReqID, nowTick, "", "")
}

func (w *World) applyRemoveGate(a *model.Agent, m *protocol.RemoveGateMsg, nowTick uint64) {
	pos := model.VecFromArray(m.Pos)
	if w.gates[pos] == nil {
		w.ack(a.ID, protocol.TypeRemoveGate, m.ReqID, nowTick, protocol.ErrInvalidTarget, "no gate at position")
		return
	}
	w.removeGate(nowTick, a.ID, pos, "REMOVE_GATE")
	w.ack(a.ID, protocol.TypeRemoveGate, m.ReqID, nowTick, "", "")
}

func (w *World) applyGiveKey(a *model.Agent, m *protocol.GiveKeyMsg, nowTick uint64) {
	if !w.cfg.AllowKeyGrants {
		w.ack(a.ID, protocol.TypeGiveKey, m.ReqID, nowTick, protocol.ErrNoPermission, "key grants are disabled")
		return
	}
	if _, ok := dungeons.KeyByID(m.KeyID); !ok || m.Count <= 0 {
		w.ack(a.ID, protocol.TypeGiveKey, m.ReqID, nowTick, protocol.ErrBadRequest, "bad key grant")
		return
	}
	if a.Keys == nil {
		a.Keys = map[string]int{}
	}
	a.Keys[m.KeyID] += m.Count
	w.ack(a.ID, protocol.TypeGiveKey, m.ReqID, nowTick, "", "")
}

func (w *World) ack(agentID, ackFor, reqID string, nowTick uint64, code, msg string) {
	w.send(agentID, protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          ackFor,
		ReqID:           reqID,
		Accepted:        code == "",
		Code:            code,
		Message:         msg,
		ServerTick:      nowTick,
	})
}

// removeGate clears the gate block and drops its state.
func (w *World) removeGate(nowTick uint64, actor string, pos model.Vec3i, reason string) {
	w.setBlock(nowTick, actor, pos, w.chunks.Gen.Air, reason)
	delete(w.gates, pos)
}

// DestroyGate clears breakable blocks within DestroyRadius of the gate and
// removes the gate itself.
func (w *World) DestroyGate(pos model.Vec3i) {
	nowTick := w.tick.Load()
	r := w.cfg.DestroyRadius
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if dx*dx+dy*dy+dz*dz > r*r || (dx == 0 && dy == 0 && dz == 0) {
					continue
				}
				p := pos.Add(dx, dy, dz)
				if !w.chunks.InBounds(p.X, p.Y, p.Z) {
					continue
				}
				if w.gates[p] != nil {
					// A gate caught in the blast goes with its block.
					w.logf("gate destroyed world=%s gate=%v by=%v", w.cfg.ID, p, pos)
					w.removeGate(nowTick, "WORLD", p, "GATE_EXPIRED")
					continue
				}
				b := w.chunks.GetBlock(p.X, p.Y, p.Z)
				if b == w.chunks.Gen.Air || !w.catalogs.Blocks.Breakable(b) {
					continue
				}
				w.setBlock(nowTick, "WORLD", p, w.chunks.Gen.Air, "GATE_EXPIRED")
			}
		}
	}
	w.removeGate(nowTick, "WORLD", pos, "GATE_EXPIRED")
}

// tickGates advances every gate in position order and tells connected
// clients about expiries.
func (w *World) tickGates(nowTick uint64) {
	for _, pos := range w.sortedGatePositions() {
		g := w.gates[pos]
		if g == nil {
			continue
		}
		if !w.ctrl.Tick(g).Expired {
			continue
		}
		w.broadcast(protocol.EventMsg{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			Event: protocol.Event{
				"type": "GATE_EXPIRED",
				"gate": pos.ToArray(),
				"kind": string(g.Kind),
			},
		})
	}
}

// GateEvent forwards controller events to the gate log.
func (w *World) GateEvent(e lifecycle.Event) {
	if w.gateLogger == nil {
		return
	}
	entry := GateLogEntry{
		Tick:     w.tick.Load(),
		WorldID:  w.cfg.ID,
		Type:     e.Type,
		Gate:     e.Gate.ToArray(),
		AgentID:  e.AgentID,
		Code:     e.Code,
		Dungeon:  dungeonRef(e.Dungeon),
		Attempts: e.Attempts,
		Rejects:  e.Rejects,
	}
	if e.Placement != nil {
		p := e.Placement.ToArray()
		entry.Placement = &p
	}
	if e.Delivered != nil {
		p := e.Delivered.ToArray()
		entry.Delivered = &p
	}
	if err := w.gateLogger.WriteGate(entry); err != nil {
		w.logf("gate log write failed: %v", err)
	}
}

func dungeonRef(d *dungeons.Descriptor) *protocol.DungeonRef {
	if d == nil {
		return nil
	}
	return &protocol.DungeonRef{Structure: d.StructureID, Type: string(d.Type), Difficulty: d.Difficulty}
}

func (w *World) setBlock(nowTick uint64, actor string, pos model.Vec3i, b uint16, reason string) {
	from := w.chunks.GetBlock(pos.X, pos.Y, pos.Z)
	if !w.chunks.SetBlock(pos.X, pos.Y, pos.Z, b) {
		return
	}
	w.auditSetBlock(nowTick, actor, pos, from, b, reason)
}

func (w *World) auditSetBlock(tick uint64, actor string, pos model.Vec3i, from, to uint16, reason string) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:   tick,
		Actor:  actor,
		Action: "SET_BLOCK",
		Pos:    pos.ToArray(),
		From:   from,
		To:     to,
		Reason: reason,
	})
}
