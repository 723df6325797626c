package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelgate.ai/internal/sim/world"
)

func readJSONL(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	var out []map[string]any
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events")
	cur := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return cur }

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	cur = cur.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := readJSONL(t, filepath.Join(dir, "events-2026-03-01-10.jsonl.zst"))
	second := readJSONL(t, filepath.Join(dir, "events-2026-03-01-11.jsonl.zst"))
	if len(first) != 2 || len(second) != 1 {
		t.Fatalf("lines=%d,%d want 2,1", len(first), len(second))
	}
	if second[0]["n"] != float64(3) {
		t.Fatalf("second file=%v", second)
	}
}

func TestGateLogger_WritesEntries(t *testing.T) {
	dir := t.TempDir()
	l := NewGateLogger(dir)
	pt := [3]int{120, 70, -40}
	err := l.WriteGate(world.GateLogEntry{
		Tick:      7,
		WorldID:   "w1",
		Type:      "ACTIVATE",
		Gate:      [3]int{1, 65, 1},
		AgentID:   "A1",
		Placement: &pt,
		Attempts:  2,
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "events", "gates-*.jsonl.zst"))
	if len(matches) != 1 {
		t.Fatalf("files=%v", matches)
	}
	lines := readJSONL(t, matches[0])
	if len(lines) != 1 || lines[0]["type"] != "ACTIVATE" || lines[0]["agent_id"] != "A1" {
		t.Fatalf("lines=%v", lines)
	}
}
