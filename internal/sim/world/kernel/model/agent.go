package model

// Agent is a connected actor that can use keys on gates and be delivered
// into dungeons.
type Agent struct {
	ID   string
	Name string

	// ResumeToken is a transport-level token used for reconnects.
	// It is NOT included in snapshots.
	ResumeToken string

	Pos Vec3i

	// Keys held by the agent, by key item id.
	Keys map[string]int
}

func (a *Agent) HasKey(id string) bool {
	return a != nil && a.Keys[id] > 0
}
