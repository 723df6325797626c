package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	// Dwell time of an activated gate before it self-destructs.
	GateActiveSeconds int `yaml:"gate_active_seconds"`
	LandingRadius     int `yaml:"landing_radius"`
	DestroyRadius     int `yaml:"destroy_radius"`

	World      WorldGen   `yaml:"world"`
	Allocation Allocation `yaml:"allocation"`
}

type WorldGen struct {
	MinY            int `yaml:"min_y"`
	MaxY            int `yaml:"max_y"`
	SeaLevel        int `yaml:"sea_level"`
	BaseHeight      int `yaml:"base_height"`
	HeightAmplitude int `yaml:"height_amplitude"`
	RegionSize      int `yaml:"region_size"`
	BiomeRegionSize int `yaml:"biome_region_size"`
}

type Allocation struct {
	MinSeparation int `yaml:"min_separation"`
	MaxAttempts   int `yaml:"max_attempts"`
	SearchRadius  int `yaml:"search_radius"`
	BuildMargin   int `yaml:"build_margin"`
	SurfaceLift   int `yaml:"surface_lift"`
	SpawnX        int `yaml:"spawn_x"`
	SpawnZ        int `yaml:"spawn_z"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         20,
		SnapshotEveryTicks: 6000,
		GateActiveSeconds:  20,
		LandingRadius:      5,
		DestroyRadius:      4,
		World: WorldGen{
			MinY:            -64,
			MaxY:            319,
			SeaLevel:        62,
			BaseHeight:      68,
			HeightAmplitude: 24,
			RegionSize:      64,
			BiomeRegionSize: 256,
		},
		Allocation: Allocation{
			MinSeparation: 500,
			MaxAttempts:   50,
			SearchRadius:  20000,
			BuildMargin:   10,
			SurfaceLift:   2,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize replaces non-positive values with defaults. Spawn coordinates
// are left alone since zero is a valid spawn.
func (t *Tuning) Normalize() {
	d := Defaults()
	pos := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	pos(&t.TickRateHz, d.TickRateHz)
	pos(&t.SnapshotEveryTicks, d.SnapshotEveryTicks)
	pos(&t.GateActiveSeconds, d.GateActiveSeconds)
	pos(&t.LandingRadius, d.LandingRadius)
	pos(&t.DestroyRadius, d.DestroyRadius)
	pos(&t.World.HeightAmplitude, d.World.HeightAmplitude)
	pos(&t.World.RegionSize, d.World.RegionSize)
	pos(&t.World.BiomeRegionSize, d.World.BiomeRegionSize)
	pos(&t.Allocation.MinSeparation, d.Allocation.MinSeparation)
	pos(&t.Allocation.MaxAttempts, d.Allocation.MaxAttempts)
	pos(&t.Allocation.SearchRadius, d.Allocation.SearchRadius)
	pos(&t.Allocation.BuildMargin, d.Allocation.BuildMargin)
	pos(&t.Allocation.SurfaceLift, d.Allocation.SurfaceLift)
	if t.World.MinY == 0 && t.World.MaxY == 0 {
		t.World.MinY, t.World.MaxY = d.World.MinY, d.World.MaxY
	}
}

func (t Tuning) Validate() error {
	if t.World.MaxY <= t.World.MinY {
		return fmt.Errorf("world: max_y %d must be above min_y %d", t.World.MaxY, t.World.MinY)
	}
	if t.World.SeaLevel < t.World.MinY || t.World.SeaLevel > t.World.MaxY {
		return fmt.Errorf("world: sea_level %d outside build limits", t.World.SeaLevel)
	}
	if 2*t.Allocation.BuildMargin >= t.World.MaxY-t.World.MinY {
		return fmt.Errorf("allocation: build_margin %d leaves no usable height", t.Allocation.BuildMargin)
	}
	return nil
}

// GateActiveTicks converts the gate dwell time to ticks.
func (t Tuning) GateActiveTicks() int {
	return t.GateActiveSeconds * t.TickRateHz
}
