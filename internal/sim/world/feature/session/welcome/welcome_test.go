package welcome

import "testing"

func TestBuildWelcome(t *testing.T) {
	keys := map[string]int{"bronze_key": 1}
	msg := Build(Input{
		AgentID:            "A1",
		ResumeToken:        "r1",
		WorldID:            "world_1",
		Pos:                [3]int{2, 65, -2},
		Keys:               keys,
		TickRateHz:         20,
		MinY:               -64,
		MaxY:               319,
		Seed:               123,
		GateActiveTicks:    400,
		BlockPaletteDigest: "bd",
		BlockPaletteCount:  20,
		StructuresDigest:   "sd",
		DungeonsDigest:     "dd",
		DungeonCount:       12,
	})
	if msg.Type != "WELCOME" || msg.AgentID != "A1" || msg.ResumeToken != "r1" {
		t.Fatalf("unexpected welcome identity: %+v", msg)
	}
	if msg.WorldParams.GateActiveTicks != 400 || msg.WorldParams.MinY != -64 {
		t.Fatalf("unexpected world params: %+v", msg.WorldParams)
	}
	if msg.Catalogs.DungeonsDigest != "dd" || msg.Catalogs.DungeonCount != 12 {
		t.Fatalf("unexpected catalog digests: %+v", msg.Catalogs)
	}
	keys["bronze_key"] = 9
	if msg.Keys["bronze_key"] != 1 {
		t.Fatalf("welcome keys alias the agent's map")
	}
}
