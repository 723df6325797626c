package welcome

import "voxelgate.ai/internal/protocol"

type Input struct {
	AgentID         string
	ResumeToken     string
	WorldID         string
	Pos             [3]int
	Keys            map[string]int
	TickRateHz      int
	MinY            int
	MaxY            int
	Seed            int64
	GateActiveTicks int

	BlockPaletteDigest string
	BlockPaletteCount  int
	StructuresDigest   string
	DungeonsDigest     string
	DungeonCount       int
}

func Build(in Input) protocol.WelcomeMsg {
	var keys map[string]int
	if len(in.Keys) > 0 {
		keys = make(map[string]int, len(in.Keys))
		for k, v := range in.Keys {
			keys[k] = v
		}
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         in.AgentID,
		ResumeToken:     in.ResumeToken,
		WorldID:         in.WorldID,
		Pos:             in.Pos,
		Keys:            keys,
		WorldParams: protocol.WorldParams{
			TickRateHz:      in.TickRateHz,
			MinY:            in.MinY,
			MaxY:            in.MaxY,
			Seed:            in.Seed,
			GateActiveTicks: in.GateActiveTicks,
		},
		Catalogs: protocol.CatalogDigests{
			BlockPalette:     protocol.DigestRef{Digest: in.BlockPaletteDigest, Count: in.BlockPaletteCount},
			StructuresDigest: in.StructuresDigest,
			DungeonsDigest:   in.DungeonsDigest,
			DungeonCount:     in.DungeonCount,
		},
	}
}
