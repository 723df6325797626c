package resume

import "testing"

func TestSortedIDs(t *testing.T) {
	got := SortedIDs(map[string]int{"iron_key": 1, "bronze_key": 2})
	if len(got) != 2 || got[0] != "bronze_key" || got[1] != "iron_key" {
		t.Fatalf("unexpected sorted ids: %#v", got)
	}
	if SortedIDs(map[string]int{}) != nil {
		t.Fatalf("empty map should yield nil")
	}
}

func TestFindResumeAgentID(t *testing.T) {
	id := FindResumeAgentID([]Candidate{
		{ID: "A2", ResumeToken: "t2"},
		{ID: "A1", ResumeToken: "t1"},
	}, "t1")
	if id != "A1" {
		t.Fatalf("expected A1, got %q", id)
	}
	if id := FindResumeAgentID([]Candidate{{ID: "A1", ResumeToken: "t1"}}, "nope"); id != "" {
		t.Fatalf("unknown token matched %q", id)
	}
}
