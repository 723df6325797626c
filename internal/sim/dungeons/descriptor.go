// Package dungeons holds the reloadable catalog of dungeon descriptors, the
// selector that picks one for a key, and the fixed key tiers.
package dungeons

import (
	"fmt"
	"strings"
)

type Type string

const (
	Basic    Type = "basic"
	Cave     Type = "cave"
	Sewerage Type = "sewerage"
	Dark     Type = "dark"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

var Types = []Type{Basic, Cave, Sewerage, Dark}

// ParseType accepts any casing and returns the canonical lowercase type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Basic, Cave, Sewerage, Dark:
		return t, true
	default:
		return "", false
	}
}

// Descriptor describes one placeable dungeon template. Values are immutable
// once they are in a published snapshot.
type Descriptor struct {
	StructureID string `json:"structure"`
	Type        Type   `json:"type"`
	Difficulty  int    `json:"difficulty"`
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s(type=%s difficulty=%d)", d.StructureID, d.Type, d.Difficulty)
}

// rawRecord is the on-disk shape of a descriptor.
type rawRecord struct {
	Structure  string `json:"structure"`
	Type       string `json:"type"`
	Difficulty int    `json:"difficulty"`
}

func (r rawRecord) validate() (Descriptor, error) {
	if strings.TrimSpace(r.Structure) == "" {
		return Descriptor{}, fmt.Errorf("missing structure")
	}
	t, ok := ParseType(r.Type)
	if !ok {
		return Descriptor{}, fmt.Errorf("invalid type %q (must be one of %v)", r.Type, Types)
	}
	if r.Difficulty < MinDifficulty || r.Difficulty > MaxDifficulty {
		return Descriptor{}, fmt.Errorf("invalid difficulty %d (must be %d-%d)", r.Difficulty, MinDifficulty, MaxDifficulty)
	}
	return Descriptor{StructureID: strings.TrimSpace(r.Structure), Type: t, Difficulty: r.Difficulty}, nil
}
