package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteReadSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "400.snap.zst")
	pos := [3]int{1200, 66, -340}
	want := SnapshotV1{
		Header:        Header{Version: 1, WorldID: "overworld", Tick: 400},
		Seed:          1337,
		TickRate:      20,
		MinY:          -64,
		MaxY:          319,
		SeaLevel:      62,
		PaletteDigest: "abc",
		Ledger:        [][3]int{{1200, 66, -340}, {-9000, 80, 4100}},
		Gates: []GateV1{
			{
				Pos:                       [3]int{3, 70, 4},
				Kind:                      "cave",
				IsActive:                  true,
				ActivationTimer:           123,
				GeneratedDungeon:          &pos,
				SelectedDungeonStructure:  "voxelgate:cave_hollow",
				SelectedDungeonType:       "cave",
				SelectedDungeonDifficulty: 2,
			},
			{Pos: [3]int{10, 70, 4}, Kind: "basic"},
		},
		Agents: []AgentV1{{ID: "A1", Name: "alice", Pos: [3]int{0, 70, 0}, Keys: map[string]int{"iron_key": 1}}},
		Chunks: []ChunkV1{{CX: 75, CZ: -22, Edits: []BlockEditV1{{Pos: [3]int{1200, 66, -340}, Block: 7}}}},
		Counters: CountersV1{NextAgent: 2},
	}
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, want)
	}
	if got.Gates[1].GeneratedDungeon != nil {
		t.Fatalf("absent dungeon position must stay nil")
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h != want.Header {
		t.Fatalf("header=%+v want %+v", h, want.Header)
	}
}
