package model

import "voxelgate.ai/internal/sim/world/logic/mathx"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func VecFromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3i) Add(dx, dy, dz int) Vec3i {
	return Vec3i{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

func (v Vec3i) Up(n int) Vec3i   { return Vec3i{X: v.X, Y: v.Y + n, Z: v.Z} }
func (v Vec3i) Down(n int) Vec3i { return Vec3i{X: v.X, Y: v.Y - n, Z: v.Z} }

func Manhattan(a, b Vec3i) int {
	return mathx.Manhattan(a.X, a.Y, a.Z, b.X, b.Y, b.Z)
}

// Less orders positions by x, then y, then z.
func Less(a, b Vec3i) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
