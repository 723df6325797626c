package world

import (
	"voxelgate.ai/internal/protocol"
)

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type AttachRequest struct {
	ResumeToken string
	Out         chan []byte
	Resp        chan JoinResponse
}

// LeaveRequest detaches a client. Out identifies the connection so a late
// leave cannot detach a newer connection of the same agent.
type LeaveRequest struct {
	AgentID string
	Out     chan []byte
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

// ActionEnvelope carries one client request into the world loop. Exactly one
// of the message fields is set.
type ActionEnvelope struct {
	AgentID string

	Activate   *protocol.ActivateMsg
	PlaceGate  *protocol.PlaceGateMsg
	RemoveGate *protocol.RemoveGateMsg
	GiveKey    *protocol.GiveKeyMsg
}

type GateLogger interface {
	WriteGate(entry GateLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// GateLogEntry is one gate lifecycle event as written to the event log.
type GateLogEntry struct {
	Tick      uint64               `json:"tick"`
	WorldID   string               `json:"world_id"`
	Type      string               `json:"type"` // ACTIVATE, REENTER, REJECT, EXPIRE
	Gate      [3]int               `json:"gate"`
	AgentID   string               `json:"agent_id,omitempty"`
	Code      string               `json:"code,omitempty"`
	Dungeon   *protocol.DungeonRef `json:"dungeon,omitempty"`
	Placement *[3]int              `json:"placement,omitempty"`
	Delivered *[3]int              `json:"delivered,omitempty"`
	Attempts  int                  `json:"attempts,omitempty"`
	Rejects   map[string]int       `json:"rejects,omitempty"`
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Actor  string `json:"actor"`
	Action string `json:"action"` // e.g. "SET_BLOCK"
	Pos    [3]int `json:"pos"`
	From   uint16 `json:"from"`
	To     uint16 `json:"to"`
	Reason string `json:"reason,omitempty"`
}

type clientState struct {
	Out chan []byte
}
