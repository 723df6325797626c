package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"voxelgate.ai/internal/sim/world/feature/gates/lifecycle"
	modelpkg "voxelgate.ai/internal/sim/world/kernel/model"
	storepkg "voxelgate.ai/internal/sim/world/terrain/store"
)

// ChunkDigestFn returns the edit digest of a chunk, or false when the chunk
// holds no edits and should not contribute.
type ChunkDigestFn func(k storepkg.ChunkKey) ([32]byte, bool)

type StateInput struct {
	NowTick uint64
	Seed    int64

	ChunkKeys   []storepkg.ChunkKey
	ChunkDigest ChunkDigestFn

	// Ledger must be sorted.
	Ledger []modelpkg.Vec3i
	Gates  map[modelpkg.Vec3i]*lifecycle.Gate
	Agents map[string]*modelpkg.Agent

	NextAgent uint64
}

// StateDigest hashes the authoritative world state. Two worlds fed the same
// inputs from the same seed produce the same digest at every tick.
func StateDigest(in StateInput) string {
	h := sha256.New()
	var tmp [8]byte

	writeU64(h, &tmp, in.NowTick)
	writeU64(h, &tmp, uint64(in.Seed))
	writeU64(h, &tmp, in.NextAgent)

	digestChunks(h, &tmp, in)
	digestLedger(h, &tmp, in.Ledger)
	digestGates(h, &tmp, in.Gates)
	digestAgents(h, &tmp, in.Agents)

	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func writeU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func writeVec(h hashWriter, tmp *[8]byte, p modelpkg.Vec3i) {
	writeU64(h, tmp, uint64(int64(p.X)))
	writeU64(h, tmp, uint64(int64(p.Y)))
	writeU64(h, tmp, uint64(int64(p.Z)))
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func digestChunks(h hashWriter, tmp *[8]byte, in StateInput) {
	if in.ChunkDigest == nil {
		return
	}
	for _, k := range in.ChunkKeys {
		d, ok := in.ChunkDigest(k)
		if !ok {
			continue
		}
		writeU64(h, tmp, uint64(int64(k.CX)))
		writeU64(h, tmp, uint64(int64(k.CZ)))
		h.Write(d[:])
	}
}

func digestLedger(h hashWriter, tmp *[8]byte, points []modelpkg.Vec3i) {
	writeU64(h, tmp, uint64(len(points)))
	for _, p := range points {
		writeVec(h, tmp, p)
	}
}

func digestGates(h hashWriter, tmp *[8]byte, gates map[modelpkg.Vec3i]*lifecycle.Gate) {
	pos := make([]modelpkg.Vec3i, 0, len(gates))
	for p := range gates {
		pos = append(pos, p)
	}
	sort.Slice(pos, func(i, j int) bool { return modelpkg.Less(pos[i], pos[j]) })
	writeU64(h, tmp, uint64(len(pos)))
	for _, p := range pos {
		g := gates[p]
		writeVec(h, tmp, p)
		h.Write([]byte(g.Kind))
		h.Write([]byte{boolByte(g.State.Active())})
		writeU64(h, tmp, uint64(int64(g.State.RemainingTicks)))
		if g.State.Placement != nil {
			h.Write([]byte{1})
			writeVec(h, tmp, *g.State.Placement)
		} else {
			h.Write([]byte{0})
		}
		if d := g.State.Chosen; d != nil {
			h.Write([]byte(d.StructureID))
			h.Write([]byte(d.Type))
			writeU64(h, tmp, uint64(d.Difficulty))
		}
	}
}

func digestAgents(h hashWriter, tmp *[8]byte, agents map[string]*modelpkg.Agent) {
	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a := agents[id]
		h.Write([]byte(id))
		h.Write([]byte(a.Name))
		writeVec(h, tmp, a.Pos)
		writeNonZeroIntMap(h, tmp, a.Keys)
	}
}

// writeNonZeroIntMap emits m sorted by key, skipping zero counts so an
// emptied entry hashes the same as a missing one.
func writeNonZeroIntMap(h hashWriter, tmp *[8]byte, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	writeU64(h, tmp, uint64(len(keys)))
	for _, k := range keys {
		h.Write([]byte(k))
		writeU64(h, tmp, uint64(int64(m[k])))
	}
}
