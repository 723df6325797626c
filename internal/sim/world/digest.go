package world

import (
	digestpkg "voxelgate.ai/internal/sim/world/feature/persistence/digest"
	"voxelgate.ai/internal/sim/world/terrain/store"
)

// StateDigest hashes the world state as of nowTick. Chunks whose edits have
// all been reverted do not contribute, so a snapshot round trip keeps the
// digest.
func (w *World) StateDigest(nowTick uint64) string {
	return digestpkg.StateDigest(digestpkg.StateInput{
		NowTick:   nowTick,
		Seed:      w.cfg.Seed,
		ChunkKeys: w.chunks.LoadedChunkKeys(),
		ChunkDigest: func(k store.ChunkKey) ([32]byte, bool) {
			c := w.chunks.Chunks[k]
			if c == nil || len(c.Edits) == 0 {
				return [32]byte{}, false
			}
			return c.Digest(), true
		},
		Ledger:    w.ledger.Points(),
		Gates:     w.gates,
		Agents:    w.agents,
		NextAgent: w.nextAgentNum.Load(),
	})
}
