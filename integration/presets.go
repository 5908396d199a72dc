// Package integration provides configuration presets and the assembly helper
// that builds a running dispute engine out of them. Presets bundle the storage
// backend, cache sizes and observability switches into named profiles so
// operators can pick one instead of tuning every flag.
//
// Usage:
//
//	cfg := integration.LitePreset()    // in-memory, for development and replays
//	cfg := integration.FullPreset()    // leveldb-backed, for validators
//	cfg := integration.ArchivePreset() // full plus the SQL resolution archive
package integration

import "fmt"

// Storage backends understood by MakeEngine.
const (
	MemoryDB = "memory"
	LevelDB  = "leveldb"
)

// PresetConfig captures the tunable parameters that vary across preset profiles.
type PresetConfig struct {
	Name          string // human-readable identifier (e.g., "lite", "full")
	Network       string // relay rules preset: "main", "test" or "fake"
	DBBackend     string // MemoryDB or LevelDB
	CacheMB       int    // leveldb block cache
	Handles       int    // leveldb open file handles
	EnableMetrics bool   // expose the Prometheus endpoint
	EnableTracing bool   // record opencensus spans
	EnableArchive bool   // feed resolutions into the SQL archive
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:          "default",
		Network:       "main",
		DBBackend:     LevelDB,
		CacheMB:       64,
		Handles:       256,
		EnableMetrics: false,
		EnableTracing: false,
		EnableArchive: false,
	}
}

// LitePreset keeps everything in memory on the fake network. Nothing survives
// a restart, which is what replays and tests want.
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.Network = "fake"
	cfg.DBBackend = MemoryDB
	cfg.CacheMB = 0
	cfg.Handles = 0
	cfg.EnableMetrics = true
	return cfg
}

// FullPreset is the production profile for validators.
func FullPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "full"
	cfg.CacheMB = 256
	cfg.Handles = 512
	cfg.EnableMetrics = true
	cfg.EnableTracing = true
	return cfg
}

// ArchivePreset is FullPreset plus the SQL archive of every resolution and
// offender, for explorers and audits.
func ArchivePreset() PresetConfig {
	cfg := FullPreset()
	cfg.Name = "archive"
	cfg.CacheMB = 512
	cfg.EnableArchive = true
	return cfg
}

// GetPresetByName looks up a preset by its string identifier.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "lite":
		return LitePreset(), nil
	case "full":
		return FullPreset(), nil
	case "archive":
		return ArchivePreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: lite, full, archive, default)", name)
	}
}

// ApplyPreset merges a preset into target. Empty strings and zero sizes in the
// preset leave target untouched; switches are always applied.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.Network != "" {
		target.Network = preset.Network
	}
	if preset.DBBackend != "" {
		target.DBBackend = preset.DBBackend
	}
	if preset.CacheMB > 0 {
		target.CacheMB = preset.CacheMB
	}
	if preset.Handles > 0 {
		target.Handles = preset.Handles
	}
	target.EnableMetrics = preset.EnableMetrics
	target.EnableTracing = preset.EnableTracing
	target.EnableArchive = preset.EnableArchive
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
