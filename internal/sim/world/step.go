package world

import "time"

// StepOnce runs a single tick with the given inputs and returns the stepped
// tick with the state digest taken after it. It is meant for tests and tools
// that drive the world without Run.
func (w *World) StepOnce(joins []JoinRequest, leaves []LeaveRequest, actions []ActionEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(joins, leaves, actions)
	return tick, w.StateDigest(tick)
}

func (w *World) step(joins []JoinRequest, leaves []LeaveRequest, actions []ActionEnvelope) {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	for _, req := range leaves {
		w.handleLeave(req)
	}
	for _, req := range joins {
		resp := w.joinAgent(req.Name, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	// Gates advance before actions, so an activation counts down from the
	// next tick.
	w.tickGates(nowTick)

	// Actions apply in inbox order.
	for _, env := range actions {
		a := w.agents[env.AgentID]
		if a == nil {
			continue
		}
		switch {
		case env.Activate != nil:
			w.applyActivate(a, env.Activate, nowTick)
		case env.PlaceGate != nil:
			w.applyPlaceGate(a, env.PlaceGate, nowTick)
		case env.RemoveGate != nil:
			w.applyRemoveGate(a, env.RemoveGate, nowTick)
		case env.GiveKey != nil:
			w.applyGiveKey(a, env.GiveKey, nowTick)
		}
	}

	w.maybeSnapshot(nowTick)

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.publishMetrics(nextTick, stepMS)
}

// maybeSnapshot exports a snapshot every SnapshotEveryTicks, and sooner when
// the ledger holds points that no snapshot has captured yet.
func (w *World) maybeSnapshot(nowTick uint64) {
	if w.snapshotSink == nil || nowTick == 0 {
		return
	}
	due := false
	if every := uint64(w.cfg.SnapshotEveryTicks); every > 0 && nowTick%every == 0 {
		due = true
	}
	if w.ledger.Dirty() && nowTick-w.lastSnapshotTick >= uint64(w.cfg.DirtySnapshotTicks) {
		due = true
	}
	if !due {
		return
	}
	w.enqueueSnapshot(nowTick)
}

// enqueueSnapshot hands a snapshot to the sink without blocking. The ledger
// is marked clean once the sink has accepted it; the writer calls
// MarkSnapshotFailed if the write then fails.
func (w *World) enqueueSnapshot(tick uint64) bool {
	snap := w.ExportSnapshot(tick)
	select {
	case w.snapshotSink <- snap:
		w.lastSnapshotTick = tick
		w.ledger.MarkClean()
		return true
	default:
		// Drop snapshot if sink is backed up.
		w.logf("snapshot dropped world=%s tick=%d: sink backpressure", w.cfg.ID, tick)
		return false
	}
}

// MarkSnapshotFailed re-arms the dirty-ledger snapshot trigger. Safe to call
// from the snapshot writer goroutine.
func (w *World) MarkSnapshotFailed() {
	if w.ledger.Len() > 0 {
		w.ledger.MarkDirty()
	}
}
