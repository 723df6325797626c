package world

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/catalogs"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/world/feature/gates/alloc"
	"voxelgate.ai/internal/sim/world/feature/gates/lifecycle"
	"voxelgate.ai/internal/sim/world/kernel/model"
	"voxelgate.ai/internal/sim/world/terrain/gen"
	"voxelgate.ai/internal/sim/world/terrain/store"
)

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	dungeons *dungeons.Catalog
	log      *log.Logger

	tick atomic.Uint64

	chunks *store.ChunkStore
	ledger *alloc.Ledger
	gates  map[model.Vec3i]*lifecycle.Gate
	ctrl   *lifecycle.Controller
	rng    *rand.Rand

	agents  map[string]*model.Agent
	clients map[string]*clientState

	inbox  chan ActionEnvelope
	join   chan JoinRequest
	attach chan AttachRequest
	leave  chan LeaveRequest
	admin  chan adminSnapshotReq
	stop   chan struct{}

	nextAgentNum atomic.Uint64

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	gateLogger  GateLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink     chan<- snapshot.SnapshotV1
	lastSnapshotTick uint64

	metrics atomic.Value // WorldMetrics
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, dcat *dungeons.Catalog, logger *log.Logger) (*World, error) {
	cfg.normalize()
	if cats == nil || dcat == nil {
		return nil, fmt.Errorf("world %s: catalogs required", cfg.ID)
	}

	b := func(id string) (uint16, error) {
		v, ok := cats.Blocks.Index[id]
		if !ok {
			return 0, fmt.Errorf("missing block id in palette: %s", id)
		}
		return v, nil
	}
	var err error
	var ids [7]uint16
	for i, name := range []string{"AIR", "BEDROCK", "STONE", "DIRT", "GRASS", "SAND", "WATER"} {
		if ids[i], err = b(name); err != nil {
			return nil, err
		}
	}
	for _, t := range dungeons.Types {
		if _, err := b(gateBlockName(t)); err != nil {
			return nil, err
		}
	}

	wg := store.WorldGen{
		Height: gen.Params{
			Seed:            cfg.Seed,
			BaseHeight:      cfg.BaseHeight,
			HeightAmplitude: cfg.HeightAmplitude,
			RegionSize:      cfg.RegionSize,
			MinY:            cfg.MinY,
			MaxY:            cfg.MaxY,
		},
		SeaLevel:        cfg.SeaLevel,
		BiomeRegionSize: cfg.BiomeRegionSize,
		BoundaryR:       cfg.BoundaryR,
		Air:             ids[0],
		Bedrock:         ids[1],
		Stone:           ids[2],
		Dirt:            ids[3],
		Grass:           ids[4],
		Sand:            ids[5],
		Water:           ids[6],
	}

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		dungeons: dcat,
		log:      logger,
		chunks:   store.NewChunkStore(wg, cats.Blocks.KindOf),
		ledger:   alloc.NewLedger(),
		gates:    map[model.Vec3i]*lifecycle.Gate{},
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		agents:   map[string]*model.Agent{},
		clients:  map[string]*clientState{},
		inbox:    make(chan ActionEnvelope, 1024),
		join:     make(chan JoinRequest, 64),
		attach:   make(chan AttachRequest, 64),
		leave:    make(chan LeaveRequest, 64),
		admin:    make(chan adminSnapshotReq, 8),
		stop:     make(chan struct{}),
	}
	w.ctrl = w.newController()
	return w, nil
}

func (w *World) newController() *lifecycle.Controller {
	return &lifecycle.Controller{
		Catalog:       w.dungeons,
		Ledger:        w.ledger,
		Terrain:       w.chunks,
		Placer:        w,
		Destroyer:     w,
		Rand:          w.rng,
		Alloc:         w.cfg.Alloc,
		ActiveTicks:   w.cfg.GateActiveTicks,
		LandingRadius: w.cfg.LandingRadius,
		SpawnHint:     w.cfg.Spawn,
		Log:           w.log,
		Events:        w,
	}
}

func (w *World) logf(format string, args ...any) {
	if w.log != nil {
		w.log.Printf(format, args...)
	}
}

func (w *World) SetGateLogger(l GateLogger)                    { w.gateLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Attach() chan<- AttachRequest { return w.attach }
func (w *World) Leave() chan<- LeaveRequest   { return w.leave }

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) TickRateHz() int     { return w.cfg.TickRateHz }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []LeaveRequest
	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-w.attach:
			w.handleAttach(req)
		case req := <-w.leave:
			pendingLeaves = append(pendingLeaves, req)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case env := <-w.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingActions)
			w.handleAdminSnapshotRequests(pendingAdmin)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }
