package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	persistlog "voxelgate.ai/internal/persistence/log"
	"voxelgate.ai/internal/persistence/snapshot"
	"voxelgate.ai/internal/sim/catalogs"
	"voxelgate.ai/internal/sim/dungeons"
	"voxelgate.ai/internal/sim/tuning"
	"voxelgate.ai/internal/sim/world"
	"voxelgate.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (gate/audit events + catalogs + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")

		starterKeys    = flag.String("starter_keys", "bronze_key:1", "keys granted to new agents, e.g. bronze_key:1,iron_key:1")
		allowKeyGrants = flag.Bool("allow_key_grants", false, "accept GIVE_KEY actions from clients")
		archiveEvery   = flag.Int("archive_every_ticks", 72000, "archive a checkpoint snapshot every N ticks (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	keys, err := parseStarterKeys(*starterKeys)
	if err != nil {
		logger.Fatalf("starter keys: %v", err)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}

	// Tuning is required for a fresh world; snapshot resumes fall back to defaults.
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	reloadLog := persistlog.NewReloadLogger(worldDir)
	defer reloadLog.Close()

	dcat := dungeons.NewCatalog(log.New(os.Stdout, "[dungeons] ", log.LstdFlags|log.Lmicroseconds))
	var reloadMu sync.Mutex
	reload := func() (dungeons.Report, error) {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		entries, err := dungeons.LoadDir(*configDir, filepath.Join(*configDir, "dungeons"))
		if err != nil {
			return dungeons.Report{}, err
		}
		rep := dcat.Reload(entries)
		_ = reloadLog.WriteReload(rep)
		if idx != nil {
			idx.RecordCatalogReload(rep)
			if err := idx.UpsertCatalogs(*configDir, cats, dcat.Snapshot(), tune); err != nil {
				logger.Printf("index backend: upsert catalogs: %v", err)
			}
		}
		logger.Printf("dungeon catalog: accepted=%d rejected=%d counts=%v", rep.Accepted, len(rep.Rejected), sortedTypeCounts(rep.Counts))
		return rep, nil
	}
	if _, err := reload(); err != nil {
		logger.Fatalf("load dungeon catalog: %v", err)
	}

	rc := serverRuntimeConfig{
		WorldID:        *worldID,
		Seed:           *seed,
		StarterKeys:    keys,
		AllowKeyGrants: *allowKeyGrants,
	}

	// Create world (fresh or resumed from snapshot).
	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		w, err = world.New(worldConfig(rc, tune, &snap), cats, dcat, logger)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else {
		w, err = world.New(worldConfig(rc, tune, nil), cats, dcat, logger)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if _, err := reload(); err != nil {
					logger.Printf("dungeon catalog reload: %v", err)
				}
			}
		}
	}()

	gateLog := persistlog.NewGateLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer gateLog.Close()
	defer auditLog.Close()
	w.SetGateLogger(multiGateLogger{a: gateLog, b: idx})
	w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	sw := snapshotWriter{worldDir: worldDir, archiveEvery: *archiveEvery, world: w, idx: idx, logger: logger}
	writeSnap := func(snap snapshot.SnapshotV1) { sw.write(snap) }
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				writeSnap(snap)
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeWorldMetrics(rw, *worldID, w.CurrentTick(), w.Metrics())
		if idx != nil {
			writeIndexMetrics(rw, *worldID, idx)
		}
	})

	enableAdminHTTP := envBool("VG_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("VG_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID string             `json:"world_id"`
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
				State   world.StateView    `json:"state"`
			}{
				WorldID: *worldID,
				Tick:    w.CurrentTick(),
				Metrics: w.Metrics(),
				State:   w.State(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			tick, err := w.RequestSnapshot(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
		})
		mux.HandleFunc("/admin/v1/dungeons/reload", reloadHandler(reload))
	} else {
		logger.Printf("admin endpoints disabled (VG_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (VG_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s tick=%d", *addr, *worldID, w.CurrentTick())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Final snapshot once the loop has stopped so the ledger survives a restart.
	cancel()
	<-worldDone
	<-writerDone
	if cur := w.CurrentTick(); cur > 0 {
		writeSnap(w.ExportSnapshot(cur - 1))
		logger.Printf("final snapshot tick=%d", cur-1)
	}
}

// reloadHandler serves POST requests that re-read the dungeon record directory.
func reloadHandler(reload func() (dungeons.Report, error)) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rep, err := reload()
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "report": rep})
	}
}

func writeWorldMetrics(rw http.ResponseWriter, worldID string, tick uint64, m world.WorldMetrics) {
	if m.Tick != 0 {
		tick = m.Tick
	}

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP voxelgate_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_world_tick gauge\n")
	fmt.Fprintf(rw, "voxelgate_world_tick{world=%q} %d\n", worldID, tick)

	fmt.Fprintf(rw, "# HELP voxelgate_world_agents Current number of agents in the world.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_world_agents gauge\n")
	fmt.Fprintf(rw, "voxelgate_world_agents{world=%q} %d\n", worldID, m.Agents)

	fmt.Fprintf(rw, "# HELP voxelgate_world_clients Current number of connected clients.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_world_clients gauge\n")
	fmt.Fprintf(rw, "voxelgate_world_clients{world=%q} %d\n", worldID, m.Clients)

	fmt.Fprintf(rw, "# HELP voxelgate_world_loaded_chunks Loaded chunk count.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_world_loaded_chunks gauge\n")
	fmt.Fprintf(rw, "voxelgate_world_loaded_chunks{world=%q} %d\n", worldID, m.LoadedChunks)

	fmt.Fprintf(rw, "# HELP voxelgate_world_edits Block edits kept over generated terrain.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_world_edits gauge\n")
	fmt.Fprintf(rw, "voxelgate_world_edits{world=%q} %d\n", worldID, m.Edits)

	fmt.Fprintf(rw, "# HELP voxelgate_gates Placed gates by state.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_gates gauge\n")
	fmt.Fprintf(rw, "voxelgate_gates{world=%q,state=%q} %d\n", worldID, "active", m.ActiveGates)
	fmt.Fprintf(rw, "voxelgate_gates{world=%q,state=%q} %d\n", worldID, "idle", m.Gates-m.ActiveGates)

	fmt.Fprintf(rw, "# HELP voxelgate_ledger_points Dungeon placement points handed out.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_ledger_points gauge\n")
	fmt.Fprintf(rw, "voxelgate_ledger_points{world=%q} %d\n", worldID, m.LedgerPoints)

	fmt.Fprintf(rw, "# HELP voxelgate_world_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_world_queue_depth gauge\n")
	fmt.Fprintf(rw, "voxelgate_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "voxelgate_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "join", m.QueueDepths.Join)
	fmt.Fprintf(rw, "voxelgate_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "leave", m.QueueDepths.Leave)
	fmt.Fprintf(rw, "voxelgate_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "attach", m.QueueDepths.Attach)

	fmt.Fprintf(rw, "# HELP voxelgate_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_world_step_ms gauge\n")
	fmt.Fprintf(rw, "voxelgate_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)
}

func writeIndexMetrics(rw http.ResponseWriter, worldID string, idx runtimeIndex) {
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP voxelgate_index_queue_depth Index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "voxelgate_index_queue_depth{world=%q} %d\n", worldID, s.QueueDepth)

	fmt.Fprintf(rw, "# HELP voxelgate_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE voxelgate_index_dropped_total counter\n")
	fmt.Fprintf(rw, "voxelgate_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "gate", s.DropGateTotal)
	fmt.Fprintf(rw, "voxelgate_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "audit", s.DropAuditTotal)
	fmt.Fprintf(rw, "voxelgate_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "snapshot", s.DropSnapshotTotal)
	fmt.Fprintf(rw, "voxelgate_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "reload", s.DropReloadTotal)
	fmt.Fprintf(rw, "voxelgate_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "checkpoint", s.DropCheckpointTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
