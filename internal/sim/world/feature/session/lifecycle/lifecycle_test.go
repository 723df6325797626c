package lifecycle

import (
	"testing"

	modelpkg "voxelgate.ai/internal/sim/world/kernel/model"
)

func TestNewAgentID(t *testing.T) {
	if got := NewAgentID(17); got != "A17" {
		t.Fatalf("NewAgentID = %q, want A17", got)
	}
}

func TestSpawnSeed(t *testing.T) {
	x, z := SpawnSeed(3)
	if x != 6 || z != -6 {
		t.Fatalf("SpawnSeed = (%d,%d), want (6,-6)", x, z)
	}
}

func TestNewResumeToken(t *testing.T) {
	got := NewResumeToken("world_1", 123)
	want := "resume_world_1_123"
	if got != want {
		t.Fatalf("NewResumeToken = %q, want %q", got, want)
	}
}

func TestBuildJoinedAgent_StarterKeys(t *testing.T) {
	a := BuildJoinedAgent(BuildJoinedAgentInput{
		AgentID:     "A1",
		Name:        "  ",
		Spawn:       modelpkg.Vec3i{X: 2, Y: 65, Z: -2},
		StarterKeys: map[string]int{"bronze_key": 2, "iron_key": 0, "": 4},
	})
	if a.Name != "agent" {
		t.Fatalf("name=%q want agent", a.Name)
	}
	if a.Keys["bronze_key"] != 2 || len(a.Keys) != 1 {
		t.Fatalf("keys=%v", a.Keys)
	}
	if a.Pos != (modelpkg.Vec3i{X: 2, Y: 65, Z: -2}) {
		t.Fatalf("pos=%v", a.Pos)
	}
}

func TestAttachByToken_RotatesToken(t *testing.T) {
	agents := map[string]*modelpkg.Agent{
		"A1": {ID: "A1", ResumeToken: "resume_world_1_1"},
		"A2": {ID: "A2", ResumeToken: "resume_world_1_2"},
	}
	res := AttachByToken(" resume_world_1_2 ", agents, "world_1", 99)
	if !res.OK || res.Agent.ID != "A2" {
		t.Fatalf("attach=%+v", res)
	}
	if res.NewToken != "resume_world_1_99" || agents["A2"].ResumeToken != res.NewToken {
		t.Fatalf("token not rotated: %+v", res)
	}
	if AttachByToken("resume_world_1_2", agents, "world_1", 100).OK {
		t.Fatalf("old token still attaches")
	}
}
