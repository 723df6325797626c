package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/sim/catalogs"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/tuning"
	"voxelgate.ai/internal/sim/world"
)

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSQLiteIndex_WritesAllKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	pt := [3]int{300, 72, -120}
	_ = s.WriteGate(world.GateLogEntry{
		Tick: 5, WorldID: "w1", Type: "ACTIVATE", Gate: [3]int{1, 65, 1}, AgentID: "A1",
		Dungeon:   &protocol.DungeonRef{Structure: "voxelgate:basic_crypt", Type: "basic", Difficulty: 1},
		Placement: &pt, Attempts: 3,
	})
	_ = s.WriteGate(world.GateLogEntry{Tick: 5, WorldID: "w1", Type: "REJECT", Gate: [3]int{1, 65, 1}, AgentID: "A2", Code: protocol.ErrNoMatch})
	_ = s.WriteAudit(world.AuditEntry{Tick: 5, Actor: "WORLD", Action: "SET_BLOCK", Pos: [3]int{1, 65, 1}, From: 0, To: 16, Reason: "PLACE_GATE"})
	s.RecordSnapshot("/data/5.snap.zst", snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: "w1", Tick: 5},
		Seed:   42,
		Ledger: [][3]int{pt},
		Gates:  []snapshot.GateV1{{Pos: [3]int{1, 65, 1}, Kind: "basic", IsActive: true}},
	})
	s.RecordCatalogReload(dungeons.Report{Accepted: 6, Digest: "abc", Rejected: []dungeons.Rejection{{SourceID: "x.json", Reason: "bad"}}})
	s.RecordCheckpoint(1, 5, "/data/archives/checkpoint_001/5.snap.zst", 42)
	s.RecordCheckpoint(0, 5, "/ignored", 42)

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	if n := countRows(t, db, "gate_events"); n != 2 {
		t.Fatalf("gate_events=%d want 2", n)
	}
	var structure sql.NullString
	var px sql.NullInt64
	if err := db.QueryRow(`SELECT structure, placement_x FROM gate_events WHERE type='ACTIVATE'`).Scan(&structure, &px); err != nil {
		t.Fatalf("query gate: %v", err)
	}
	if structure.String != "voxelgate:basic_crypt" || px.Int64 != 300 {
		t.Fatalf("gate row structure=%v placement_x=%v", structure, px)
	}
	if n := countRows(t, db, "audits"); n != 1 {
		t.Fatalf("audits=%d want 1", n)
	}
	var ledger, active int
	if err := db.QueryRow(`SELECT ledger, active_gates FROM snapshots WHERE tick=5`).Scan(&ledger, &active); err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if ledger != 1 || active != 1 {
		t.Fatalf("snapshot row ledger=%d active=%d", ledger, active)
	}
	if n := countRows(t, db, "dungeon_reloads"); n != 1 {
		t.Fatalf("dungeon_reloads=%d want 1", n)
	}
	if n := countRows(t, db, "checkpoints"); n != 1 {
		t.Fatalf("checkpoints=%d want 1", n)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	configDir := "../../../configs"
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	entries, err := dungeons.LoadDir(configDir, filepath.Join(configDir, "dungeons"))
	if err != nil {
		t.Fatalf("dungeons: %v", err)
	}
	dcat := dungeons.NewCatalog(nil)
	dcat.Reload(entries)

	path := filepath.Join(t.TempDir(), "index.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.UpsertCatalogs(configDir, cats, dcat.Snapshot(), tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Upserting twice replaces rows.
	if err := s.UpsertCatalogs(configDir, cats, dcat.Snapshot(), tuning.Defaults()); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if n := countRows(t, db, "catalogs"); n != 5 {
		t.Fatalf("catalogs=%d want 5", n)
	}
	var digest string
	if err := db.QueryRow(`SELECT digest FROM catalogs WHERE name='dungeons'`).Scan(&digest); err != nil {
		t.Fatalf("query: %v", err)
	}
	if digest != dcat.Snapshot().Digest() {
		t.Fatalf("dungeons digest=%s want %s", digest, dcat.Snapshot().Digest())
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqGate, gate: world.GateLogEntry{Tick: 1}}

	_ = s.WriteGate(world.GateLogEntry{Tick: 2})
	_ = s.WriteAudit(world.AuditEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})
	s.RecordCatalogReload(dungeons.Report{})
	s.RecordCheckpoint(1, 2, "/tmp/2.snap.zst", 42)

	st := s.Stats()
	if st.DropGateTotal != 1 || st.DropAuditTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops=%+v", st)
	}
	if st.DropReloadTotal != 1 || st.DropCheckpointTotal != 1 {
		t.Fatalf("drops=%+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}
