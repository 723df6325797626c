package store

import (
	"fmt"

	snapv1 "voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/world/kernel/model"
)

// ExportChunks converts the edit overlay into snapshot chunks, in key order.
func ExportChunks(s *ChunkStore) []snapv1.ChunkV1 {
	keys := s.LoadedChunkKeys()
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := s.Chunks[k]
		if ch == nil || len(ch.Edits) == 0 {
			continue
		}
		edits := make([]snapv1.BlockEditV1, 0, len(ch.Edits))
		for _, p := range ch.SortedEdits() {
			edits = append(edits, snapv1.BlockEditV1{Pos: p.ToArray(), Block: ch.Edits[p]})
		}
		out = append(out, snapv1.ChunkV1{CX: k.CX, CZ: k.CZ, Edits: edits})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks.
func ImportChunks(gen WorldGen, kinds KindFunc, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	s := NewChunkStore(gen, kinds)
	for _, sc := range chunks {
		k := ChunkKey{CX: sc.CX, CZ: sc.CZ}
		if _, dup := s.Chunks[k]; dup {
			return nil, fmt.Errorf("snapshot chunk %d,%d: duplicate", sc.CX, sc.CZ)
		}
		ch := newChunk(sc.CX, sc.CZ)
		for _, e := range sc.Edits {
			p := model.VecFromArray(e.Pos)
			if chunkOf(p.X, p.Z) != k {
				return nil, fmt.Errorf("snapshot chunk %d,%d: edit %v belongs to another chunk", sc.CX, sc.CZ, e.Pos)
			}
			if !s.InBounds(p.X, p.Y, p.Z) {
				return nil, fmt.Errorf("snapshot chunk %d,%d: edit %v out of bounds", sc.CX, sc.CZ, e.Pos)
			}
			ch.set(p, e.Block, false)
		}
		_ = ch.Digest()
		s.Chunks[k] = ch
	}
	return s, nil
}
