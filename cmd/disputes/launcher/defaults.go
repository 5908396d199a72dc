package launcher

import (
	"github.com/rony4d/go-disputes/integration"
)

// Defaults bundles the baseline configuration values the launcher uses before
// the preset, config file and flags override them.

type Defaults struct {
	Node    NodeDefaults
	Metrics MetricsDefaults
	Archive ArchiveDefaults
	Logging LoggingDefaults
}

// NodeDefaults captures where the engine keeps its data.
type NodeDefaults struct {
	DataDir string // filesystem root of the leveldb dispute store
	Name    string // instance name, attached to Sentry reports
	Preset  string // integration preset applied first
}

type MetricsDefaults struct {
	Enable   bool   // serve /metrics
	HTTPAddr string // interface the metrics server binds to
	HTTPPort int    // port of the metrics server
	Tracing  bool   // sample every opencensus span
}

// ArchiveDefaults point the resolution archive at a SQL database.
type ArchiveDefaults struct {
	Dialect string // only "postgres" is supported
	DSN     string // empty disables the archive
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    // 0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace
	Format    string // text or json
	Color     bool   // ANSI colors, best disabled when piping to files
	SentryDSN string // empty disables the Sentry hook
}

// DefaultConfig returns a fully populated Defaults instance.

func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.disputes",
			Name:    "go-disputes",
			Preset:  "default",
		},
		Metrics: MetricsDefaults{
			Enable:   false,
			HTTPAddr: "127.0.0.1",
			HTTPPort: 6060,
			Tracing:  false,
		},
		Archive: ArchiveDefaults{
			Dialect: "postgres",
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     true,
		},
	}
}

// DefaultPreset is the preset named by DefaultConfig.
func DefaultPreset() integration.PresetConfig {
	p, err := integration.GetPresetByName(DefaultConfig().Node.Preset)
	if err != nil {
		panic(err)
	}
	return p
}
