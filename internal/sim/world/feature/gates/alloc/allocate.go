// Package alloc finds dungeon placement points that stay apart from every
// point previously handed out in the same world.
package alloc

import (
	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain"
)

type Rand interface {
	Intn(n int) int
}

type Params struct {
	MinSeparation int
	MaxAttempts   int
	SearchRadius  int
	// Candidates whose surface is within BuildMargin of a build limit are rejected.
	BuildMargin int
	SurfaceLift int
}

func DefaultParams() Params {
	return Params{
		MinSeparation: 500,
		MaxAttempts:   50,
		SearchRadius:  20000,
		BuildMargin:   10,
		SurfaceLift:   2,
	}
}

// withDefaults replaces non-positive fields with the defaults.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MinSeparation <= 0 {
		p.MinSeparation = d.MinSeparation
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.SearchRadius <= 0 {
		p.SearchRadius = d.SearchRadius
	}
	if p.BuildMargin <= 0 {
		p.BuildMargin = d.BuildMargin
	}
	if p.SurfaceLift <= 0 {
		p.SurfaceLift = d.SurfaceLift
	}
	return p
}

// Rejection reasons, counted per attempt.
const (
	RejectBounds  = "bounds"
	RejectLiquid  = "liquid"
	RejectTooNear = "too_near"
)

type Stats struct {
	Attempts int
	Rejects  map[string]int
}

// Allocate draws up to MaxAttempts random surface columns around origin and
// records the first acceptable one in the ledger. ok=false leaves the ledger
// unchanged.
func Allocate(l *Ledger, origin model.Vec3i, p Params, q terrain.Query, rng Rand) (pt model.Vec3i, st Stats, ok bool) {
	p = p.withDefaults()
	st.Rejects = map[string]int{}
	minY, maxY := q.BuildLimits()
	span := 2*p.SearchRadius + 1
	for st.Attempts < p.MaxAttempts {
		st.Attempts++
		x := origin.X + rng.Intn(span) - p.SearchRadius
		z := origin.Z + rng.Intn(span) - p.SearchRadius

		y := q.SurfaceHeight(x, z)
		if y < minY+p.BuildMargin || y > maxY-p.BuildMargin {
			st.Rejects[RejectBounds]++
			continue
		}
		surface := model.Vec3i{X: x, Y: y, Z: z}
		if q.BlockKind(surface) == terrain.Liquid {
			st.Rejects[RejectLiquid]++
			continue
		}
		cand := surface.Up(p.SurfaceLift)
		if !l.TryInsert(cand, p.MinSeparation) {
			st.Rejects[RejectTooNear]++
			continue
		}
		return cand, st, true
	}
	return model.Vec3i{}, st, false
}
