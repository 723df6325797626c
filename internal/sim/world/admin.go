package world

import (
	"context"
	"errors"
	"sort"

	"voxelgate.ai/internal/sim/world/feature/gates/lifecycle"
)

type adminSnapshotReq struct {
	Resp chan adminSnapshotResp
}

type adminSnapshotResp struct {
	Tick uint64
	Err  string
}

// RequestSnapshot asks the world loop goroutine to enqueue a snapshot.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestSnapshot(ctx context.Context) (tick uint64, err error) {
	if w == nil || w.admin == nil {
		return 0, errors.New("admin snapshot not available")
	}
	resp := make(chan adminSnapshotResp, 1)
	req := adminSnapshotReq{Resp: resp}

	select {
	case w.admin <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-resp:
		if r.Err != "" {
			return r.Tick, errors.New(r.Err)
		}
		return r.Tick, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) handleAdminSnapshotRequests(reqs []adminSnapshotReq) {
	if w == nil || len(reqs) == 0 {
		return
	}
	cur := w.tick.Load()
	snapTick := uint64(0)
	if cur > 0 {
		snapTick = cur - 1
	}

	errStr := ""
	if w.snapshotSink == nil {
		errStr = "snapshot sink not configured"
	} else if !w.enqueueSnapshot(snapTick) {
		errStr = "snapshot sink backpressure"
	}

	resp := adminSnapshotResp{Tick: snapTick, Err: errStr}
	for _, r := range reqs {
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- resp:
		default:
			// Client timed out; don't block the sim loop.
		}
	}
}

// GateView is the read-only admin view of one gate.
type GateView struct {
	Pos            [3]int  `json:"pos"`
	Kind           string  `json:"kind"`
	Phase          string  `json:"phase"`
	RemainingTicks int     `json:"remaining_ticks,omitempty"`
	Placement      *[3]int `json:"placement,omitempty"`
	Dungeon        string  `json:"dungeon,omitempty"`
	Difficulty     int     `json:"difficulty,omitempty"`
}

func gateView(g *lifecycle.Gate) GateView {
	v := GateView{
		Pos:   g.Pos.ToArray(),
		Kind:  string(g.Kind),
		Phase: g.State.Phase.String(),
	}
	if g.State.Active() {
		p := g.State.Placement.ToArray()
		v.RemainingTicks = g.State.RemainingTicks
		v.Placement = &p
		v.Dungeon = g.State.Chosen.StructureID
		v.Difficulty = g.State.Chosen.Difficulty
	}
	return v
}

// StateView is published once per tick for GET /admin/state.
type StateView struct {
	Tick          uint64         `json:"tick"`
	WorldID       string         `json:"world_id"`
	Gates         []GateView     `json:"gates"`
	LedgerPoints  int            `json:"ledger_points"`
	LedgerDirty   bool           `json:"ledger_dirty"`
	DungeonCounts map[string]int `json:"dungeon_counts"`
	Agents        []string       `json:"agents"`
}

func (w *World) buildStateView(tick uint64) StateView {
	v := StateView{
		Tick:          tick,
		WorldID:       w.cfg.ID,
		Gates:         make([]GateView, 0, len(w.gates)),
		LedgerPoints:  w.ledger.Len(),
		LedgerDirty:   w.ledger.Dirty(),
		DungeonCounts: map[string]int{},
		Agents:        make([]string, 0, len(w.agents)),
	}
	for _, pos := range w.sortedGatePositions() {
		v.Gates = append(v.Gates, gateView(w.gates[pos]))
	}
	for t, n := range w.dungeons.Snapshot().Counts() {
		v.DungeonCounts[string(t)] = n
	}
	for id := range w.agents {
		v.Agents = append(v.Agents, id)
	}
	sort.Strings(v.Agents)
	return v
}
