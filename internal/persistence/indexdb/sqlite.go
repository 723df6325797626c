package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/catalogs"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/tuning"
	"voxelgate.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over the JSONL logs and
// snapshots. Writes are queued and applied by one goroutine in batches; a
// full queue drops the write.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropGate       atomic.Uint64
	dropAudit      atomic.Uint64
	dropSnapshot   atomic.Uint64
	dropReload     atomic.Uint64
	dropCheckpoint atomic.Uint64
}

type Stats struct {
	QueueDepth          int    `json:"queue_depth"`
	QueueCapacity       int    `json:"queue_capacity"`
	DropGateTotal       uint64 `json:"drop_gate_total"`
	DropAuditTotal      uint64 `json:"drop_audit_total"`
	DropSnapshotTotal   uint64 `json:"drop_snapshot_total"`
	DropReloadTotal     uint64 `json:"drop_reload_total"`
	DropCheckpointTotal uint64 `json:"drop_checkpoint_total"`
}

type reqKind int

const (
	reqGate reqKind = iota + 1
	reqAudit
	reqSnapshot
	reqReload
	reqCheckpoint
)

type req struct {
	kind reqKind

	gate       world.GateLogEntry
	audit      world.AuditEntry
	snapshot   snapshotRow
	reload     reloadRow
	checkpoint checkpointRow
}

type snapshotRow struct {
	Tick        uint64
	Path        string
	Seed        int64
	Ledger      int
	Gates       int
	ActiveGates int
	Agents      int
	Chunks      int
}

type reloadRow struct {
	RecordedAt string
	Digest     string
	Accepted   int
	Rejected   int
	RawJSON    string
}

type checkpointRow struct {
	N          int
	Tick       uint64
	Path       string
	Seed       int64
	RecordedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Destroying a gate can emit a burst of block audits in one tick.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS gate_events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			gate_x INTEGER NOT NULL,
			gate_y INTEGER NOT NULL,
			gate_z INTEGER NOT NULL,
			agent_id TEXT,
			code TEXT,
			structure TEXT,
			difficulty INTEGER,
			placement_x INTEGER,
			placement_y INTEGER,
			placement_z INTEGER,
			attempts INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_gate_events_gate ON gate_events(gate_x, gate_z, gate_y, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_gate_events_type_tick ON gate_events(type, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_block INTEGER NOT NULL,
			to_block INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			ledger INTEGER NOT NULL,
			gates INTEGER NOT NULL,
			active_gates INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			chunks INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS dungeon_reloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at TEXT NOT NULL,
			digest TEXT NOT NULL,
			accepted INTEGER NOT NULL,
			rejected INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			n INTEGER PRIMARY KEY,
			tick INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			snapshot_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropGateTotal:       s.dropGate.Load(),
		DropAuditTotal:      s.dropAudit.Load(),
		DropSnapshotTotal:   s.dropSnapshot.Load(),
		DropReloadTotal:     s.dropReload.Load(),
		DropCheckpointTotal: s.dropCheckpoint.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteGate(entry world.GateLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqGate, gate: entry}, &s.dropGate)
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: entry}, &s.dropAudit)
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	active := 0
	for _, g := range snap.Gates {
		if g.IsActive {
			active++
		}
	}
	r := snapshotRow{
		Tick:        snap.Header.Tick,
		Path:        path,
		Seed:        snap.Seed,
		Ledger:      len(snap.Ledger),
		Gates:       len(snap.Gates),
		ActiveGates: active,
		Agents:      len(snap.Agents),
		Chunks:      len(snap.Chunks),
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: r}, &s.dropSnapshot)
}

func (s *SQLiteIndex) RecordCatalogReload(rep dungeons.Report) {
	if s == nil || s.closed.Load() {
		return
	}
	raw, _ := json.Marshal(rep)
	r := reloadRow{
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Digest:     rep.Digest,
		Accepted:   rep.Accepted,
		Rejected:   len(rep.Rejected),
		RawJSON:    string(raw),
	}
	s.enqueue(req{kind: reqReload, reload: r}, &s.dropReload)
}

func (s *SQLiteIndex) RecordCheckpoint(n int, tick uint64, archivedSnapshotPath string, seed int64) {
	if s == nil || s.closed.Load() {
		return
	}
	if n <= 0 || archivedSnapshotPath == "" {
		return
	}
	r := checkpointRow{
		N:          n,
		Tick:       tick,
		Path:       archivedSnapshotPath,
		Seed:       seed,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.enqueue(req{kind: reqCheckpoint, checkpoint: r}, &s.dropCheckpoint)
}

// UpsertCatalogs stores the catalogs and tuning the server runs with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, dsnap *dungeons.Snapshot, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	{
		// Structure ids only; the templates themselves stay in configs.
		ids := make([]string, 0, len(cats.Structures.ByID))
		for id := range cats.Structures.ByID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if b, _ := json.Marshal(ids); len(b) > 0 {
			rows = append(rows, kv{name: "structures", digest: cats.Structures.Digest, json: b})
		}
	}
	if dsnap != nil {
		var all []dungeons.Descriptor
		for _, t := range dungeons.Types {
			all = append(all, dsnap.Query(t)...)
		}
		if b, _ := json.Marshal(all); len(b) > 0 {
			rows = append(rows, kv{name: "dungeons", digest: dsnap.Digest(), json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertGate, _ := s.db.Prepare(`INSERT OR REPLACE INTO gate_events(tick,seq,type,gate_x,gate_y,gate_z,agent_id,code,structure,difficulty,placement_x,placement_y,placement_z,attempts,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,x,y,z,from_block,to_block,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,seed,ledger,gates,active_gates,agents,chunks) VALUES(?,?,?,?,?,?,?,?)`)
	insertReload, _ := s.db.Prepare(`INSERT INTO dungeon_reloads(recorded_at,digest,accepted,rejected,raw_json) VALUES(?,?,?,?,?)`)
	insertCheckpoint, _ := s.db.Prepare(`INSERT OR REPLACE INTO checkpoints(n,tick,seed,snapshot_path,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertGate, insertAudit, insertSnapshot, insertReload, insertCheckpoint} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastGateTick  uint64
		gateSeq       int
		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqGate:
			g := r.gate
			if g.Tick != lastGateTick {
				lastGateTick = g.Tick
				gateSeq = 0
			}
			seq := gateSeq
			gateSeq++
			raw, _ := json.Marshal(g)
			var structure sql.NullString
			var difficulty sql.NullInt64
			if g.Dungeon != nil {
				structure = sql.NullString{String: g.Dungeon.Structure, Valid: true}
				difficulty = sql.NullInt64{Int64: int64(g.Dungeon.Difficulty), Valid: true}
			}
			var px, py, pz sql.NullInt64
			if g.Placement != nil {
				px = sql.NullInt64{Int64: int64(g.Placement[0]), Valid: true}
				py = sql.NullInt64{Int64: int64(g.Placement[1]), Valid: true}
				pz = sql.NullInt64{Int64: int64(g.Placement[2]), Valid: true}
			}
			exec(insertGate,
				int64(g.Tick), seq, g.Type,
				g.Gate[0], g.Gate[1], g.Gate[2],
				g.AgentID, g.Code,
				structure, difficulty,
				px, py, pz,
				g.Attempts,
				string(raw),
			)

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			exec(insertAudit,
				int64(a.Tick), seq, a.Actor, a.Action,
				a.Pos[0], a.Pos[1], a.Pos[2],
				int64(a.From), int64(a.To),
				a.Reason, string(raw),
			)

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.Seed, sn.Ledger, sn.Gates, sn.ActiveGates, sn.Agents, sn.Chunks)

		case reqReload:
			rl := r.reload
			exec(insertReload, rl.RecordedAt, rl.Digest, rl.Accepted, rl.Rejected, rl.RawJSON)

		case reqCheckpoint:
			cp := r.checkpoint
			exec(insertCheckpoint, cp.N, int64(cp.Tick), cp.Seed, cp.Path, cp.RecordedAt)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
