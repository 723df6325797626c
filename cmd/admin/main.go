package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "gates":
			gatesCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "reload":
			reloadCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// inspectCmd prints a summary of a snapshot plus its gates and ledger.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	full := fs.Bool("full", false, "print every gate and ledger point")
	_ = fs.Parse(args)

	path := resolveSnapshot(*dataDir, *worldID, *snapPath)
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	s := summarize(snap)
	s.Path = path
	printJSON(s)
	if !*full {
		return
	}
	for _, g := range snap.Gates {
		printJSON(g)
	}
	for _, p := range snap.Ledger {
		printJSON(map[string]any{"ledger": p})
	}
}

type snapshotSummary struct {
	Path         string `json:"path,omitempty"`
	Version      int    `json:"version"`
	WorldID      string `json:"world_id"`
	Tick         uint64 `json:"tick"`
	Seed         int64  `json:"seed"`
	LedgerPoints int    `json:"ledger_points"`
	Gates        int    `json:"gates"`
	ActiveGates  int    `json:"active_gates"`
	Placed       int    `json:"placed_dungeons"`
	Agents       int    `json:"agents"`
	Chunks       int    `json:"chunks"`
	Edits        int    `json:"edits"`
}

func summarize(snap snapshot.SnapshotV1) snapshotSummary {
	s := snapshotSummary{
		Version:      snap.Header.Version,
		WorldID:      snap.Header.WorldID,
		Tick:         snap.Header.Tick,
		Seed:         snap.Seed,
		LedgerPoints: len(snap.Ledger),
		Gates:        len(snap.Gates),
		Agents:       len(snap.Agents),
		Chunks:       len(snap.Chunks),
	}
	for _, g := range snap.Gates {
		if g.IsActive {
			s.ActiveGates++
		}
		if g.GeneratedDungeon != nil {
			s.Placed++
		}
	}
	for _, c := range snap.Chunks {
		s.Edits += len(c.Edits)
	}
	return s
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	reason := fs.String("reason", "", "reason filter, e.g. GATE_EXPIRED (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	f := auditFilter{SinceTick: *sinceTick, ToTick: *toTick, Reason: strings.TrimSpace(*reason)}
	if strings.TrimSpace(*aabb) != "" {
		min, max, err := parseAABB(*aabb)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -aabb:", err)
			os.Exit(2)
		}
		f.Box = &[2][3]int{min, max}
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	recs, err := readJSONL[world.AuditEntry](filepath.Join(worldDir, "audit"), "audit-")
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	n := 0
	for _, e := range recs {
		if f.match(e) {
			printJSON(e)
			n++
		}
	}
	fmt.Fprintf(os.Stderr, "%d of %d audit entries matched\n", n, len(recs))
}

type auditFilter struct {
	SinceTick uint64
	ToTick    uint64
	Reason    string
	Box       *[2][3]int
}

func (f auditFilter) match(e world.AuditEntry) bool {
	if e.Tick < f.SinceTick {
		return false
	}
	if f.ToTick != 0 && e.Tick > f.ToTick {
		return false
	}
	if f.Reason != "" && e.Reason != f.Reason {
		return false
	}
	if f.Box != nil && !withinAABB(e.Pos, f.Box[0], f.Box[1]) {
		return false
	}
	return true
}

// gatesCmd replays the gate event log and prints per-type totals plus the
// events of one gate when -gate is set.
func gatesCmd(args []string) {
	fs := flag.NewFlagSet("gates", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	gate := fs.String("gate", "", "gate position x,y,z (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	var only *[3]int
	if strings.TrimSpace(*gate) != "" {
		p, err := parseVec3(*gate)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -gate:", err)
			os.Exit(2)
		}
		only = &p
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	recs, err := readJSONL[world.GateLogEntry](filepath.Join(worldDir, "events"), "gates-")
	if err != nil {
		fmt.Fprintln(os.Stderr, "read gate events:", err)
		os.Exit(1)
	}
	totals := map[string]int{}
	for _, e := range recs {
		totals[e.Type]++
		if only != nil && e.Gate == *only {
			printJSON(e)
		}
	}
	printJSON(map[string]any{"events": len(recs), "by_type": totals})
}

// readJSONL decodes every <prefix>*.jsonl.zst file in dir in name order.
func readJSONL[T any](dir, prefix string) ([]T, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []T
	for _, name := range names {
		path := filepath.Join(dir, name)
		recs, err := readJSONLFile[T](path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func readJSONLFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []T
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		out = append(out, v)
	}
	return out, sc.Err()
}

func resolveSnapshot(dataDir, worldID, snapPath string) string {
	path := strings.TrimSpace(snapPath)
	if path != "" {
		return path
	}
	if strings.TrimSpace(worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world or -snapshot")
		os.Exit(2)
	}
	path = latestSnapshot(filepath.Join(dataDir, "worlds", worldID))
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
		os.Exit(2)
	}
	return path
}

func withinAABB(pos [3]int, min, max [3]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1] &&
		pos[2] >= min[2] && pos[2] <= max[2]
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		min[i], max[i] = a[i], b[i]
		if min[i] > max[i] {
			min[i], max[i] = max[i], min[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
