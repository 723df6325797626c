package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"voxelgate.ai/internal/persistence/archive"
	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/tuning"
	"voxelgate.ai/internal/sim/world"
	"voxelgate.ai/internal/sim/world/feature/gates/alloc"
	"voxelgate.ai/internal/sim/world/kernel/model"
)

type serverRuntimeConfig struct {
	WorldID        string
	Seed           int64
	StarterKeys    map[string]int
	AllowKeyGrants bool
}

// worldConfig derives the world config from tuning. When snap is non-nil the
// persisted world shape (seed, tick rate, build limits) wins over tuning.
func worldConfig(rc serverRuntimeConfig, tune tuning.Tuning, snap *snapshot.SnapshotV1) world.WorldConfig {
	cfg := world.WorldConfig{
		ID:                 rc.WorldID,
		TickRateHz:         tune.TickRateHz,
		Seed:               rc.Seed,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		MinY:               tune.World.MinY,
		MaxY:               tune.World.MaxY,
		SeaLevel:           tune.World.SeaLevel,
		BaseHeight:         tune.World.BaseHeight,
		HeightAmplitude:    tune.World.HeightAmplitude,
		RegionSize:         tune.World.RegionSize,
		BiomeRegionSize:    tune.World.BiomeRegionSize,
		BoundaryR:          tune.Allocation.SearchRadius,
		GateActiveTicks:    tune.GateActiveTicks(),
		LandingRadius:      tune.LandingRadius,
		DestroyRadius:      tune.DestroyRadius,
		Alloc: alloc.Params{
			MinSeparation: tune.Allocation.MinSeparation,
			MaxAttempts:   tune.Allocation.MaxAttempts,
			SearchRadius:  tune.Allocation.SearchRadius,
			BuildMargin:   tune.Allocation.BuildMargin,
			SurfaceLift:   tune.Allocation.SurfaceLift,
		},
		Spawn:          model.Vec3i{X: tune.Allocation.SpawnX, Z: tune.Allocation.SpawnZ},
		StarterKeys:    rc.StarterKeys,
		AllowKeyGrants: rc.AllowKeyGrants,
	}
	if snap != nil {
		cfg.Seed = snap.Seed
		if snap.TickRate > 0 {
			cfg.TickRateHz = snap.TickRate
			cfg.GateActiveTicks = tune.GateActiveSeconds * snap.TickRate
		}
		if snap.MaxY > snap.MinY {
			cfg.MinY, cfg.MaxY = snap.MinY, snap.MaxY
			cfg.SeaLevel = snap.SeaLevel
		}
	}
	return cfg
}

// parseStarterKeys reads "bronze_key:1,iron_key:2". A bare id means one key.
func parseStarterKeys(s string) (map[string]int, error) {
	out := map[string]int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, countStr, hasCount := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if _, ok := dungeons.KeyByID(id); !ok {
			return nil, fmt.Errorf("unknown key id: %s", id)
		}
		n := 1
		if hasCount {
			v, err := strconv.Atoi(strings.TrimSpace(countStr))
			if err != nil || v < 0 {
				return nil, fmt.Errorf("bad key count for %s: %q", id, countStr)
			}
			n = v
		}
		if n > 0 {
			out[id] += n
		}
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
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
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

func snapshotPath(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}

func sortedTypeCounts(counts map[dungeons.Type]int) []string {
	out := make([]string, 0, len(counts))
	for t, n := range counts {
		out = append(out, fmt.Sprintf("%s=%d", t, n))
	}
	sort.Strings(out)
	return out
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// snapshotWriter persists snapshots handed over by the world loop, then
// indexes and archives them.
type snapshotWriter struct {
	worldDir     string
	archiveEvery int
	world        interface{ MarkSnapshotFailed() }
	idx          runtimeIndex
	logger       *log.Logger
}

func (sw snapshotWriter) write(snap snapshot.SnapshotV1) bool {
	path := snapshotPath(sw.worldDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		sw.logger.Printf("snapshot write: tick=%d err=%v", snap.Header.Tick, err)
		if sw.world != nil {
			sw.world.MarkSnapshotFailed()
		}
		return false
	}
	if sw.idx != nil {
		sw.idx.RecordSnapshot(path, snap)
	}
	n, archivedPath, ok, err := archive.ArchiveCheckpoint(sw.worldDir, path, snap, sw.archiveEvery)
	if err != nil {
		sw.logger.Printf("archive checkpoint: %v", err)
	} else if ok && sw.idx != nil {
		sw.idx.RecordCheckpoint(n, snap.Header.Tick, archivedPath, snap.Seed)
	}
	return true
}
