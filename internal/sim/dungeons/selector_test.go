package dungeons

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

type fixedRand int

func (f fixedRand) Intn(n int) int { return int(f) % n }

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSelect_FiltersByMinimumDifficulty(t *testing.T) {
	c := NewCatalog(nil)
	c.Reload([]RawEntry{
		entry("1", `{"structure":"easy","type":"dark","difficulty":1}`),
		entry("2", `{"structure":"mid","type":"dark","difficulty":4}`),
		entry("3", `{"structure":"hard","type":"dark","difficulty":5}`),
	})
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		d, ok := Select(c.Snapshot(), Dark, 4, rng)
		if !ok {
			t.Fatalf("expected a match")
		}
		if d.Difficulty < 4 {
			t.Fatalf("picked %v below minimum", d)
		}
	}
}

func TestSelect_UniformAmongSurvivors(t *testing.T) {
	c := NewCatalog(nil)
	c.Reload([]RawEntry{
		entry("1", `{"structure":"a","type":"basic","difficulty":1}`),
		entry("2", `{"structure":"b","type":"basic","difficulty":2}`),
		entry("3", `{"structure":"c","type":"basic","difficulty":3}`),
	})
	rng := rand.New(rand.NewSource(42))
	counts := map[string]int{}
	const n = 3000
	for i := 0; i < n; i++ {
		d, _ := Select(c.Snapshot(), Basic, 1, rng)
		counts[d.StructureID]++
	}
	for _, id := range []string{"a", "b", "c"} {
		if counts[id] < n/3-150 || counts[id] > n/3+150 {
			t.Fatalf("distribution skewed: %v", counts)
		}
	}
}

func TestSelect_EmptyTypeOrSnapshot(t *testing.T) {
	if _, ok := Select(nil, Basic, 1, fixedRand(0)); ok {
		t.Fatalf("nil snapshot must not match")
	}
	c := NewCatalog(nil)
	if _, ok := Select(c.Snapshot(), "", 1, fixedRand(0)); ok {
		t.Fatalf("empty type must not match")
	}
}

func TestKeys_FixedTiers(t *testing.T) {
	want := map[string]Credential{
		"bronze_key":   {OpensType: Basic, MinDifficulty: 1},
		"iron_key":     {OpensType: Cave, MinDifficulty: 2},
		"golden_key":   {OpensType: Sewerage, MinDifficulty: 3},
		"diamond_key":  {OpensType: Dark, MinDifficulty: 4},
		"scorbium_key": {OpensType: Dark, MinDifficulty: 5},
	}
	if len(Keys()) != len(want) {
		t.Fatalf("keys=%d want %d", len(Keys()), len(want))
	}
	for id, cred := range want {
		k, ok := KeyByID(id)
		if !ok || k.Credential != cred {
			t.Fatalf("key %s = %+v ok=%v, want %+v", id, k.Credential, ok, cred)
		}
	}
	if _, ok := KeyByID("wooden_key"); ok {
		t.Fatalf("unknown key resolved")
	}
}

func TestCredentialAllows(t *testing.T) {
	d := Descriptor{StructureID: "x", Type: Cave, Difficulty: 2}
	if !(Credential{OpensType: Cave, MinDifficulty: 2}).Allows(d) {
		t.Fatalf("equal tier must allow")
	}
	if !(Credential{OpensType: Cave, MinDifficulty: 3}).Allows(d) {
		t.Fatalf("higher tier must allow")
	}
	if (Credential{OpensType: Cave, MinDifficulty: 1}).Allows(d) {
		t.Fatalf("lower tier must not allow")
	}
	if (Credential{OpensType: Dark, MinDifficulty: 5}).Allows(d) {
		t.Fatalf("other type must not allow")
	}
}
