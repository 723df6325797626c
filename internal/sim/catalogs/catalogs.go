package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelgate.ai/internal/sim/world/terrain"
)

// Catalogs holds the static block and structure definitions. Dungeon
// descriptors are reloadable and live in package dungeons instead.
type Catalogs struct {
	Blocks     BlockCatalog
	Structures StructureCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	Kinds         []terrain.Kind // by palette id
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // "EMPTY","SOLID","LIQUID","REPLACEABLE"
	Breakable bool   `json:"breakable"`
}

type StructureCatalog struct {
	ByID   map[string]StructureDef
	Digest string
}

// StructureDef is a block template placed relative to an anchor.
type StructureDef struct {
	ID     string           `json:"id"`
	Author string           `json:"author,omitempty"`
	AABB   [2][3]int        `json:"aabb"`
	Blocks []StructureBlock `json:"blocks"`
}

type StructureBlock struct {
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadStructures(filepath.Join(configDir, "structures"), &c.Structures); err != nil {
		return nil, err
	}
	for id, st := range c.Structures.ByID {
		for _, b := range st.Blocks {
			if _, ok := c.Blocks.Index[b.Block]; !ok {
				return nil, fmt.Errorf("structure %s: unknown block %s", id, b.Block)
			}
		}
	}
	return &c, nil
}

// KindOf returns the terrain kind of a palette id. Unknown ids are solid.
func (b *BlockCatalog) KindOf(id uint16) terrain.Kind {
	if int(id) >= len(b.Kinds) {
		return terrain.Solid
	}
	return b.Kinds[id]
}

func (b *BlockCatalog) Breakable(id uint16) bool {
	if int(id) >= len(b.Palette) {
		return false
	}
	return b.Defs[b.Palette[id]].Breakable
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, ok := terrain.ParseKind(d.Kind); !ok {
			return fmt.Errorf("blocks.json: %s: bad kind %q", d.ID, d.Kind)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// AIR must exist and be palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	out.Kinds = make([]terrain.Kind, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
		out.Kinds[i], _ = terrain.ParseKind(out.Defs[id].Kind)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadStructures(dir string, out *StructureCatalog) error {
	out.ByID = map[string]StructureDef{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var st StructureDef
		if err := json.Unmarshal(b, &st); err != nil {
			return fmt.Errorf("structure %s: %w", filepath.Base(p), err)
		}
		if st.ID == "" {
			return fmt.Errorf("structure %s: missing id", filepath.Base(p))
		}
		if len(st.Blocks) == 0 {
			return fmt.Errorf("structure %s: no blocks", filepath.Base(p))
		}
		out.ByID[st.ID] = st
	}
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
