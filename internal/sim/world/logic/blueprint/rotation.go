package blueprint

import "voxelgate.ai/internal/sim/world/kernel/model"

// NormalizeRotation folds a rotation into a quarter-turn count in [0,3].
// Multiples of 90 outside [-3,3] are read as degrees.
func NormalizeRotation(r int) int {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}

// RotateXZ rotates an (x,z) offset clockwise around the Y axis by rot
// quarter turns.
func RotateXZ(x, z, rot int) (rx, rz int) {
	switch rot & 3 {
	case 0:
		return x, z
	case 1:
		return z, -x
	case 2:
		return -x, -z
	default:
		return -z, x
	}
}

func RotateOffset(off [3]int, rot int) model.Vec3i {
	rx, rz := RotateXZ(off[0], off[2], rot)
	return model.Vec3i{X: rx, Y: off[1], Z: rz}
}

// RotateAABB returns the axis-aligned box covering aabb after rotation.
func RotateAABB(aabb [2][3]int, rot int) (min, max model.Vec3i) {
	a := RotateOffset(aabb[0], rot)
	b := RotateOffset(aabb[1], rot)
	min = model.Vec3i{X: minInt(a.X, b.X), Y: minInt(a.Y, b.Y), Z: minInt(a.Z, b.Z)}
	max = model.Vec3i{X: maxInt(a.X, b.X), Y: maxInt(a.Y, b.Y), Z: maxInt(a.Z, b.Z)}
	return min, max
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
