package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Agents       int `json:"agents"`
	Clients      int `json:"clients"`
	LoadedChunks int `json:"loaded_chunks"`
	Edits        int `json:"edits"`

	Gates        int `json:"gates"`
	ActiveGates  int `json:"active_gates"`
	LedgerPoints int `json:"ledger_points"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`

	State StateView `json:"-"`
}

type QueueDepths struct {
	Inbox  int `json:"inbox"`
	Join   int `json:"join"`
	Leave  int `json:"leave"`
	Attach int `json:"attach"`
}

func (w *World) publishMetrics(nextTick uint64, stepMS float64) {
	active := 0
	for _, g := range w.gates {
		if g.State.Active() {
			active++
		}
	}
	w.metrics.Store(WorldMetrics{
		Tick:         nextTick,
		Agents:       len(w.agents),
		Clients:      len(w.clients),
		LoadedChunks: len(w.chunks.Chunks),
		Edits:        w.chunks.EditCount(),
		Gates:        len(w.gates),
		ActiveGates:  active,
		LedgerPoints: w.ledger.Len(),
		QueueDepths: QueueDepths{
			Inbox:  len(w.inbox),
			Join:   len(w.join),
			Leave:  len(w.leave),
			Attach: len(w.attach),
		},
		StepMS: stepMS,
		State:  w.buildStateView(nextTick),
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

// State returns the state view published at the end of the last tick.
func (w *World) State() StateView {
	return w.Metrics().State
}
