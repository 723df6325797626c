package world

import (
	"errors"
	"fmt"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/world/feature/gates/lifecycle"
	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain/store"
)

// ImportSnapshot replaces the world state with s. It must be called before
// Run. Nothing changes when it returns an error.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if s.Seed != w.cfg.Seed {
		return fmt.Errorf("snapshot seed %d does not match world seed %d", s.Seed, w.cfg.Seed)
	}
	if s.PaletteDigest != "" && s.PaletteDigest != w.catalogs.Blocks.PaletteDigest {
		return fmt.Errorf("snapshot palette digest mismatch")
	}

	chunks, err := store.ImportChunks(w.chunks.Gen, w.chunks.Kinds, s.Chunks)
	if err != nil {
		return fmt.Errorf("snapshot chunks: %w", err)
	}

	gates := make(map[model.Vec3i]*lifecycle.Gate, len(s.Gates))
	for _, gv := range s.Gates {
		g, err := lifecycle.FromV1(gv)
		if errors.Is(err, lifecycle.ErrIncompleteActive) {
			w.logf("snapshot gate reset to idle world=%s gate=%v err=%v", w.cfg.ID, gv.Pos, err)
		} else if err != nil {
			return fmt.Errorf("snapshot gate %v: %w", gv.Pos, err)
		}
		if gates[g.Pos] != nil {
			return fmt.Errorf("snapshot gate %v: duplicate", gv.Pos)
		}
		gates[g.Pos] = g
	}

	agents := make(map[string]*model.Agent, len(s.Agents))
	for _, av := range s.Agents {
		if av.ID == "" || agents[av.ID] != nil {
			return fmt.Errorf("snapshot agent %q: missing or duplicate id", av.ID)
		}
		keys := make(map[string]int, len(av.Keys))
		for k, n := range av.Keys {
			keys[k] = n
		}
		agents[av.ID] = &model.Agent{ID: av.ID, Name: av.Name, Pos: model.VecFromArray(av.Pos), Keys: keys}
	}

	points := make([]model.Vec3i, 0, len(s.Ledger))
	for _, p := range s.Ledger {
		points = append(points, model.VecFromArray(p))
	}

	w.chunks = chunks
	w.ledger.Restore(points)
	w.gates = gates
	w.agents = agents
	w.clients = map[string]*clientState{}
	w.nextAgentNum.Store(s.Counters.NextAgent)
	w.ctrl = w.newController()
	w.tick.Store(s.Header.Tick + 1)
	w.lastSnapshotTick = s.Header.Tick
	w.logf("snapshot imported world=%s tick=%d gates=%d ledger=%d agents=%d chunks=%d",
		w.cfg.ID, s.Header.Tick, len(gates), len(points), len(agents), len(s.Chunks))
	return nil
}
