package lifecycle

import (
	"strings"

	resumepkg "voxelgate.ai/internal/sim/world/feature/session/resume"
	modelpkg "voxelgate.ai/internal/sim/world/kernel/model"
)

type BuildJoinedAgentInput struct {
	AgentID     string
	Name        string
	Spawn       modelpkg.Vec3i
	StarterKeys map[string]int
}

func BuildJoinedAgent(in BuildJoinedAgentInput) *modelpkg.Agent {
	a := &modelpkg.Agent{
		ID:   in.AgentID,
		Name: NormalizeAgentName(in.Name),
		Pos:  in.Spawn,
		Keys: map[string]int{},
	}
	for _, id := range resumepkg.SortedIDs(in.StarterKeys) {
		n := in.StarterKeys[id]
		if id == "" || n <= 0 {
			continue
		}
		a.Keys[id] += n
	}
	return a
}

func NormalizeAgentName(name string) string {
	v := strings.TrimSpace(name)
	if v == "" {
		return "agent"
	}
	return v
}

type AttachResult struct {
	Agent    *modelpkg.Agent
	NewToken string
	OK       bool
}

// AttachByToken finds the agent holding token and rotates its token.
func AttachByToken(token string, agents map[string]*modelpkg.Agent, worldID string, nowUnixNano int64) AttachResult {
	if strings.TrimSpace(token) == "" || len(agents) == 0 {
		return AttachResult{}
	}
	candidates := make([]resumepkg.Candidate, 0, len(agents))
	for id, a := range agents {
		if a == nil {
			continue
		}
		candidates = append(candidates, resumepkg.Candidate{ID: id, ResumeToken: a.ResumeToken})
	}
	aid := resumepkg.FindResumeAgentID(candidates, strings.TrimSpace(token))
	a := agents[aid]
	if a == nil {
		return AttachResult{}
	}
	newToken := NewResumeToken(worldID, nowUnixNano)
	a.ResumeToken = newToken
	return AttachResult{
		Agent:    a,
		NewToken: newToken,
		OK:       true,
	}
}
