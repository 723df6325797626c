package alloc

import (
	"sort"
	"sync"

	"voxelgate.ai/internal/sim/world/kernel/model"
)

// Ledger is the per-world set of placement points handed out so far. Points
// are only ever added; the separation invariant is enforced on insert.
type Ledger struct {
	mu     sync.Mutex
	points map[model.Vec3i]struct{}
	dirty  bool
}

func NewLedger() *Ledger {
	return &Ledger{points: map[model.Vec3i]struct{}{}}
}

// TryInsert adds p if it is at least minSep (Manhattan) from every existing
// point. The check and the insert happen under one lock.
func (l *Ledger) TryInsert(p model.Vec3i, minSep int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.points[p]; ok {
		return false
	}
	for q := range l.points {
		if model.Manhattan(p, q) < minSep {
			return false
		}
	}
	l.points[p] = struct{}{}
	l.dirty = true
	return true
}

// MinDistance returns the Manhattan distance from p to the closest point,
// or -1 when the ledger is empty.
func (l *Ledger) MinDistance(p model.Vec3i) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	best := -1
	for q := range l.points {
		if d := model.Manhattan(p, q); best < 0 || d < best {
			best = d
		}
	}
	return best
}

func (l *Ledger) Contains(p model.Vec3i) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.points[p]
	return ok
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.points)
}

// Points returns the points sorted by x, y, z.
func (l *Ledger) Points() []model.Vec3i {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Vec3i, 0, len(l.points))
	for p := range l.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return model.Less(out[i], out[j]) })
	return out
}

func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// MarkDirty flags the ledger as unsaved again, e.g. after a failed write.
func (l *Ledger) MarkDirty() {
	l.mu.Lock()
	l.dirty = true
	l.mu.Unlock()
}

func (l *Ledger) MarkClean() {
	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()
}

// Restore replaces the ledger content with persisted points. Persisted
// points are trusted; separation is not re-checked.
func (l *Ledger) Restore(points []model.Vec3i) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.points = make(map[model.Vec3i]struct{}, len(points))
	for _, p := range points {
		l.points[p] = struct{}{}
	}
	l.dirty = false
}
