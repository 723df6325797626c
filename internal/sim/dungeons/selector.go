package dungeons

// Rand is the randomness source used for picks. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Select picks uniformly among descriptors of type t with difficulty at
// least minDifficulty. ok=false means no dungeon matches.
func Select(snap *Snapshot, t Type, minDifficulty int, rng Rand) (Descriptor, bool) {
	if t == "" || snap == nil {
		return Descriptor{}, false
	}
	all := snap.byType[t]
	var pool []Descriptor
	for _, d := range all {
		if d.Difficulty >= minDifficulty {
			pool = append(pool, d)
		}
	}
	if len(pool) == 0 {
		return Descriptor{}, false
	}
	return pool[rng.Intn(len(pool))], true
}
