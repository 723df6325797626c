package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"voxelgate.ai/internal/persistence/snapshot"
)

type CheckpointMeta struct {
	Checkpoint   int    `json:"checkpoint"`
	Tick         uint64 `json:"tick"`
	Seed         int64  `json:"seed"`
	Snapshot     string `json:"snapshot"`
	CreatedAt    string `json:"created_at"`
	EveryTicks   int    `json:"every_ticks"`
	LedgerPoints int    `json:"ledger_points"`
	Gates        int    `json:"gates"`
	ActiveGates  int    `json:"active_gates"`
}

// ArchiveCheckpoint copies a snapshot into `worldDir/archives/checkpoint_<NNN>/`
// when it is the last tick of an everyTicks window. Routine snapshots get
// pruned; checkpoints keep a long-lived record of the ledger.
func ArchiveCheckpoint(worldDir, snapshotPath string, snap snapshot.SnapshotV1, everyTicks int) (n int, archivedPath string, archived bool, err error) {
	if everyTicks <= 0 {
		return 0, "", false, nil
	}
	every := uint64(everyTicks)
	// Snapshots represent the last executed tick, so window k ends at
	// tick every*k - 1.
	if (snap.Header.Tick+1)%every != 0 {
		return 0, "", false, nil
	}
	n = int((snap.Header.Tick + 1) / every)
	if n <= 0 {
		return 0, "", false, nil
	}

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("checkpoint_%03d", n))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}
	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	active := 0
	for _, g := range snap.Gates {
		if g.IsActive {
			active++
		}
	}
	meta := CheckpointMeta{
		Checkpoint:   n,
		Tick:         snap.Header.Tick,
		Seed:         snap.Seed,
		Snapshot:     filepath.Base(dst),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
		EveryTicks:   everyTicks,
		LedgerPoints: len(snap.Ledger),
		Gates:        len(snap.Gates),
		ActiveGates:  active,
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return n, dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
