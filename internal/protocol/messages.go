package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	ResumeToken     string `json:"resume_token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	AgentID         string         `json:"agent_id"`
	ResumeToken     string         `json:"resume_token"`
	WorldID         string         `json:"world_id"`
	Pos             [3]int         `json:"pos"`
	Keys            map[string]int `json:"keys,omitempty"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz      int   `json:"tick_rate_hz"`
	MinY            int   `json:"min_y"`
	MaxY            int   `json:"max_y"`
	Seed            int64 `json:"seed"`
	GateActiveTicks int   `json:"gate_active_ticks"`
}

type CatalogDigests struct {
	BlockPalette     DigestRef `json:"block_palette"`
	StructuresDigest string    `json:"structures_digest"`
	DungeonsDigest   string    `json:"dungeons_digest"`
	DungeonCount     int       `json:"dungeon_count"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// ACTIVATE (client -> server): use a held key on the gate at Pos.
type ActivateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Pos             [3]int `json:"pos"`
	KeyID           string `json:"key_id"`
}

// PLACE_GATE (client -> server)
type PlaceGateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Pos             [3]int `json:"pos"`
	Kind            string `json:"kind"`
}

// REMOVE_GATE (client -> server)
type RemoveGateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Pos             [3]int `json:"pos"`
}

// GIVE_KEY (client -> server): grants a key item to the caller. Only
// honoured when the server runs with key grants enabled.
type GiveKeyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	KeyID           string `json:"key_id"`
	Count           int    `json:"count"`
}

// ACTIVATE_RESULT (server -> client)
type ActivateResultMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ReqID           string      `json:"req_id,omitempty"`
	OK              bool        `json:"ok"`
	Code            string      `json:"code,omitempty"`
	Message         string      `json:"message,omitempty"`
	Reentry         bool        `json:"reentry,omitempty"`
	Dungeon         *DungeonRef `json:"dungeon,omitempty"`
	Placement       *[3]int     `json:"placement,omitempty"`
	Delivered       *[3]int     `json:"delivered,omitempty"`
	Unsafe          bool        `json:"unsafe,omitempty"`
	ServerTick      uint64      `json:"server_tick"`
}

type DungeonRef struct {
	Structure  string `json:"structure"`
	Type       string `json:"type"`
	Difficulty int    `json:"difficulty"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	ReqID           string `json:"req_id,omitempty"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}

// EVENT (server -> client): world notifications such as gate expiry.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Event           Event  `json:"event"`
}

type Event map[string]any
