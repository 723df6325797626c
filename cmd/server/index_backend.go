package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelgate.ai/internal/persistence/indexdb"
	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/catalogs"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/tuning"
	"voxelgate.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.GateLogger
	world.AuditLogger
	Close() error
	Stats() indexdb.Stats
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, dsnap *dungeons.Snapshot, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	RecordCatalogReload(rep dungeons.Report)
	RecordCheckpoint(n int, tick uint64, archivedSnapshotPath string, seed int64)
}

func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VG_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported VG_INDEX_BACKEND: %s", backend)
	}
}

type multiGateLogger struct {
	a world.GateLogger
	b world.GateLogger
}

func (m multiGateLogger) WriteGate(entry world.GateLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteGate(entry)
	}
	if m.b != nil {
		_ = m.b.WriteGate(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
