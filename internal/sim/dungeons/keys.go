package dungeons

import "sort"

// Credential is what a key unlocks: a dungeon type at a minimum difficulty.
type Credential struct {
	OpensType     Type `json:"opens_type"`
	MinDifficulty int  `json:"min_difficulty"`
}

// Allows reports whether the credential may re-enter a gate that already
// produced dungeon d.
func (c Credential) Allows(d Descriptor) bool {
	return c.OpensType == d.Type && c.MinDifficulty >= d.Difficulty
}

type KeyDef struct {
	ID         string
	Credential Credential
}

var keys = map[string]KeyDef{
	"bronze_key":   {ID: "bronze_key", Credential: Credential{OpensType: Basic, MinDifficulty: 1}},
	"iron_key":     {ID: "iron_key", Credential: Credential{OpensType: Cave, MinDifficulty: 2}},
	"golden_key":   {ID: "golden_key", Credential: Credential{OpensType: Sewerage, MinDifficulty: 3}},
	"diamond_key":  {ID: "diamond_key", Credential: Credential{OpensType: Dark, MinDifficulty: 4}},
	"scorbium_key": {ID: "scorbium_key", Credential: Credential{OpensType: Dark, MinDifficulty: 5}},
}

func KeyByID(id string) (KeyDef, bool) {
	k, ok := keys[id]
	return k, ok
}

// Keys returns all key tiers ordered by difficulty then id.
func Keys() []KeyDef {
	out := make([]KeyDef, 0, len(keys))
	for _, k := range keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Credential.MinDifficulty != out[j].Credential.MinDifficulty {
			return out[i].Credential.MinDifficulty < out[j].Credential.MinDifficulty
		}
		return out[i].ID < out[j].ID
	})
	return out
}
