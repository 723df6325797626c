package store

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain"
	genpkg "voxelgate.ai/internal/sim/world/terrain/gen"
)

const ChunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk holds the edits made on top of generated terrain inside one
// 16x16 column.
type Chunk struct {
	CX, CZ int
	Edits  map[model.Vec3i]uint16

	// tops tracks the highest edited y per local column.
	tops map[[2]int]int

	dirty bool
	hash  [32]byte
}

func newChunk(cx, cz int) *Chunk {
	return &Chunk{
		CX:    cx,
		CZ:    cz,
		Edits: map[model.Vec3i]uint16{},
		tops:  map[[2]int]int{},
		dirty: true,
	}
}

func (c *Chunk) set(p model.Vec3i, b uint16, isBase bool) {
	old, had := c.Edits[p]
	if isBase {
		if !had {
			return
		}
		delete(c.Edits, p)
		c.dirty = true
		return
	}
	if had && old == b {
		return
	}
	c.Edits[p] = b
	col := [2]int{p.X, p.Z}
	if top, ok := c.tops[col]; !ok || p.Y > top {
		c.tops[col] = p.Y
	}
	c.dirty = true
}

// SortedEdits returns the chunk's edit positions in ascending order.
func (c *Chunk) SortedEdits() []model.Vec3i {
	out := make([]model.Vec3i, 0, len(c.Edits))
	for p := range c.Edits {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return model.Less(out[i], out[j]) })
	return out
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [8]byte
		for _, p := range c.SortedEdits() {
			for _, v := range [3]int{p.X, p.Y, p.Z} {
				binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
				h.Write(tmp[:])
			}
			binary.LittleEndian.PutUint16(tmp[:2], c.Edits[p])
			h.Write(tmp[:2])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// WorldGen describes the generated base terrain and the palette ids it uses.
type WorldGen struct {
	Height          genpkg.Params
	SeaLevel        int
	BiomeRegionSize int
	BoundaryR       int // blocks; 0 means unbounded

	Air     uint16
	Bedrock uint16
	Stone   uint16
	Dirt    uint16
	Grass   uint16
	Sand    uint16
	Water   uint16
}

// KindFunc maps a palette id to its terrain kind.
type KindFunc func(id uint16) terrain.Kind

// ChunkStore is the world's block storage: generated base terrain plus a
// sparse overlay of edits. It is not safe for concurrent use.
type ChunkStore struct {
	Gen    WorldGen
	Kinds  KindFunc
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore(gen WorldGen, kinds KindFunc) *ChunkStore {
	return &ChunkStore{
		Gen:    gen,
		Kinds:  kinds,
		Chunks: map[ChunkKey]*Chunk{},
	}
}
