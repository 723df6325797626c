package world

import (
	"errors"
	"fmt"

	"voxelgate.ai/internal/sim/catalogs"
	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/logic/blueprint"
)

var (
	ErrUnknownStructure = errors.New("unknown structure")
	ErrOutOfBounds      = errors.New("structure out of bounds")
)

func placementBlocks(def catalogs.StructureDef) []blueprint.PlacementBlock {
	out := make([]blueprint.PlacementBlock, 0, len(def.Blocks))
	for _, b := range def.Blocks {
		out = append(out, blueprint.PlacementBlock{Pos: b.Pos, Block: b.Block})
	}
	return out
}

// Place builds a structure template at origin with a random quarter-turn
// rotation. Nothing is written unless every block fits.
func (w *World) Place(structureID string, origin model.Vec3i) error {
	def, ok := w.catalogs.Structures.ByID[structureID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStructure, structureID)
	}
	rot := w.rng.Intn(4)
	writes, err := blueprint.Plan(placementBlocks(def), w.catalogs.Blocks.Index, origin, rot)
	if err != nil {
		return err
	}
	for _, wr := range writes {
		if !w.chunks.InBounds(wr.Pos.X, wr.Pos.Y, wr.Pos.Z) {
			return fmt.Errorf("%w: %s at %v", ErrOutOfBounds, structureID, wr.Pos)
		}
	}
	for _, wr := range writes {
		if w.gates[wr.Pos] != nil {
			delete(w.gates, wr.Pos)
			w.logf("gate overwritten world=%s gate=%v structure=%s", w.cfg.ID, wr.Pos, structureID)
		}
		w.chunks.SetBlock(wr.Pos.X, wr.Pos.Y, wr.Pos.Z, wr.Block)
	}
	if w.auditLogger != nil {
		_ = w.auditLogger.WriteAudit(AuditEntry{
			Tick:   w.tick.Load(),
			Actor:  "WORLD",
			Action: "PLACE_STRUCTURE",
			Pos:    origin.ToArray(),
			Reason: fmt.Sprintf("%s rot=%d blocks=%d", structureID, rot, len(writes)),
		})
	}
	w.logf("structure placed world=%s structure=%s at=%v rot=%d blocks=%d", w.cfg.ID, structureID, origin, rot, len(writes))
	return nil
}
