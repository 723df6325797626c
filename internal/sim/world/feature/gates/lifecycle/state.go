package lifecycle

import (
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/world/kernel/model"
)

type Phase uint8

const (
	Idle Phase = iota
	Active
)

func (p Phase) String() string {
	if p == Active {
		return "ACTIVE"
	}
	return "IDLE"
}

// State is the per-gate activation state. Placement and Chosen are set
// exactly when Phase is Active.
type State struct {
	Phase          Phase
	RemainingTicks int
	Placement      *model.Vec3i
	Chosen         *dungeons.Descriptor
}

func (s State) Active() bool { return s.Phase == Active }

// Gate is a placed gate block and its state.
type Gate struct {
	Pos   model.Vec3i
	Kind  dungeons.Type
	State State
}

func NewGate(pos model.Vec3i, kind dungeons.Type) *Gate {
	return &Gate{Pos: pos, Kind: kind}
}
