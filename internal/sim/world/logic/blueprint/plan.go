package blueprint

import (
	"errors"
	"fmt"

	"voxelgate.ai/internal/sim/world/kernel/model"
)

var ErrUnknownBlock = errors.New("unknown block")

type PlacementBlock struct {
	Pos   [3]int
	Block string
}

// Write is one resolved block write of a placement.
type Write struct {
	Pos   model.Vec3i
	Block uint16
}

// Plan resolves a template into absolute block writes around anchor. It
// writes nothing; callers check the result before applying it.
func Plan(blocks []PlacementBlock, index map[string]uint16, anchor model.Vec3i, rotation int) ([]Write, error) {
	rot := NormalizeRotation(rotation)
	out := make([]Write, 0, len(blocks))
	for _, b := range blocks {
		id, ok := index[b.Block]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, b.Block)
		}
		off := RotateOffset(b.Pos, rot)
		out = append(out, Write{Pos: anchor.Add(off.X, off.Y, off.Z), Block: id})
	}
	return out, nil
}

type BlockGetter func(x, y, z int) uint16

// CheckPlaced reports whether every block of the template is present at its
// rotated position around anchor.
func CheckPlaced(getBlock BlockGetter, index map[string]uint16, blocks []PlacementBlock, anchor model.Vec3i, rotation int) bool {
	if getBlock == nil || len(blocks) == 0 {
		return false
	}
	writes, err := Plan(blocks, index, anchor, rotation)
	if err != nil {
		return false
	}
	for _, w := range writes {
		if getBlock(w.Pos.X, w.Pos.Y, w.Pos.Z) != w.Block {
			return false
		}
	}
	return true
}
