package world

import (
	"sort"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/world/feature/gates/lifecycle"
	"voxelgate.ai/internal/sim/world/terrain/store"
)

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	points := w.ledger.Points()
	ledger := make([][3]int, 0, len(points))
	for _, p := range points {
		ledger = append(ledger, p.ToArray())
	}

	gates := make([]snapshot.GateV1, 0, len(w.gates))
	for _, pos := range w.sortedGatePositions() {
		gates = append(gates, lifecycle.ToV1(w.gates[pos]))
	}

	agentIDs := make([]string, 0, len(w.agents))
	for id := range w.agents {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)
	agents := make([]snapshot.AgentV1, 0, len(agentIDs))
	for _, id := range agentIDs {
		a := w.agents[id]
		keys := make(map[string]int, len(a.Keys))
		for k, n := range a.Keys {
			if n > 0 {
				keys[k] = n
			}
		}
		agents = append(agents, snapshot.AgentV1{ID: a.ID, Name: a.Name, Pos: a.Pos.ToArray(), Keys: keys})
	}

	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:          w.cfg.Seed,
		TickRate:      w.cfg.TickRateHz,
		MinY:          w.cfg.MinY,
		MaxY:          w.cfg.MaxY,
		SeaLevel:      w.cfg.SeaLevel,
		PaletteDigest: w.catalogs.Blocks.PaletteDigest,
		Ledger:        ledger,
		Gates:         gates,
		Agents:        agents,
		Chunks:        store.ExportChunks(w.chunks),
		Counters:      snapshot.CountersV1{NextAgent: w.nextAgentNum.Load()},
	}
}
