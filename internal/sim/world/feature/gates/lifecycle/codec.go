package lifecycle

import (
	"errors"
	"fmt"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/world/kernel/model"
)

func ToV1(g *Gate) snapshot.GateV1 {
	out := snapshot.GateV1{
		Pos:             g.Pos.ToArray(),
		Kind:            string(g.Kind),
		IsActive:        g.State.Active(),
		ActivationTimer: g.State.RemainingTicks,
	}
	if p := g.State.Placement; p != nil {
		a := p.ToArray()
		out.GeneratedDungeon = &a
	}
	if d := g.State.Chosen; d != nil {
		out.SelectedDungeonStructure = d.StructureID
		out.SelectedDungeonType = string(d.Type)
		out.SelectedDungeonDifficulty = d.Difficulty
	}
	return out
}

// ErrIncompleteActive marks an active gate record whose selection or
// placement is missing or invalid.
var ErrIncompleteActive = errors.New("incomplete active gate")

// FromV1 restores a gate. Selection fields of an inactive gate are ignored.
// An active record without a complete selection and placement comes back as
// an idle gate together with an error wrapping ErrIncompleteActive.
func FromV1(v snapshot.GateV1) (*Gate, error) {
	kind, ok := dungeons.ParseType(v.Kind)
	if !ok {
		return nil, fmt.Errorf("gate %v: bad kind %q", v.Pos, v.Kind)
	}
	g := NewGate(model.VecFromArray(v.Pos), kind)
	if !v.IsActive {
		return g, nil
	}

	if v.GeneratedDungeon == nil {
		return g, fmt.Errorf("gate %v: %w: no dungeon position", v.Pos, ErrIncompleteActive)
	}
	t, ok := dungeons.ParseType(v.SelectedDungeonType)
	if !ok {
		return g, fmt.Errorf("gate %v: %w: bad dungeon type %q", v.Pos, ErrIncompleteActive, v.SelectedDungeonType)
	}
	if v.SelectedDungeonStructure == "" {
		return g, fmt.Errorf("gate %v: %w: no structure", v.Pos, ErrIncompleteActive)
	}
	if v.SelectedDungeonDifficulty < dungeons.MinDifficulty || v.SelectedDungeonDifficulty > dungeons.MaxDifficulty {
		return g, fmt.Errorf("gate %v: %w: bad dungeon difficulty %d", v.Pos, ErrIncompleteActive, v.SelectedDungeonDifficulty)
	}
	pt := model.VecFromArray(*v.GeneratedDungeon)
	g.State = State{
		Phase:          Active,
		RemainingTicks: v.ActivationTimer,
		Placement:      &pt,
		Chosen: &dungeons.Descriptor{
			StructureID: v.SelectedDungeonStructure,
			Type:        t,
			Difficulty:  v.SelectedDungeonDifficulty,
		},
	}
	return g, nil
}
