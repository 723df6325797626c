package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed          int64  `json:"seed"`
	TickRate      int    `json:"tick_rate_hz"`
	MinY          int    `json:"min_y"`
	MaxY          int    `json:"max_y"`
	SeaLevel      int    `json:"sea_level"`
	PaletteDigest string `json:"palette_digest"`

	// Ledger holds every dungeon placement point handed out in this world.
	// Order carries no meaning.
	Ledger [][3]int `json:"ledger"`

	Gates  []GateV1  `json:"gates"`
	Agents []AgentV1 `json:"agents"`
	Chunks []ChunkV1 `json:"chunks,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextAgent uint64 `json:"next_agent"`
}

// GateV1 is the persisted state of one gate, keyed by its position.
type GateV1 struct {
	Pos  [3]int `json:"pos"`
	Kind string `json:"kind"`

	IsActive                  bool    `json:"is_active"`
	ActivationTimer           int     `json:"activation_timer"`
	GeneratedDungeon          *[3]int `json:"generated_dungeon,omitempty"`
	SelectedDungeonStructure  string  `json:"selected_dungeon_structure"`
	SelectedDungeonType       string  `json:"selected_dungeon_type"`
	SelectedDungeonDifficulty int     `json:"selected_dungeon_difficulty"`
}

type AgentV1 struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Pos  [3]int         `json:"pos"`
	Keys map[string]int `json:"keys,omitempty"`
}

// ChunkV1 holds the block edits applied on top of generated terrain in one
// 16x16 column chunk.
type ChunkV1 struct {
	CX    int           `json:"cx"`
	CZ    int           `json:"cz"`
	Edits []BlockEditV1 `json:"edits"`
}

type BlockEditV1 struct {
	Pos   [3]int `json:"pos"`
	Block uint16 `json:"block"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for tooling; gob carries the header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}
