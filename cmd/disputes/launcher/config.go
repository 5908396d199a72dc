// This file maps the CLI context and an optional TOML file onto Config.

package launcher

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/naoina/toml"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-disputes/disputes/threshold"
	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/integration"
	"github.com/rony4d/go-disputes/relay"
)

// Config aggregates everything the launcher needs to assemble and run the engine.
type Config struct {
	Node    NodeConfig
	Logging LoggingConfig
	Metrics MetricsConfig
	Archive ArchiveConfig
	Preset  integration.PresetConfig
	Rules   relay.Rules
}

type NodeConfig struct {
	DataDir string
	Name    string
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string
}

type MetricsConfig struct {
	Enabled  bool
	HTTPAddr string
	HTTPPort int
	Tracing  bool
}

type ArchiveConfig struct {
	Dialect string
	DSN     string
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// -----------------------------------------------------------------------------
// Default config + builders
// -----------------------------------------------------------------------------

func defaultConfig() Config {
	d := DefaultConfig()
	preset := DefaultPreset()
	rules, err := relay.RulesByName(preset.Network)
	if err != nil {
		panic(err)
	}
	return Config{
		Node: NodeConfig{
			DataDir: resolvePath(d.Node.DataDir),
			Name:    d.Node.Name,
		},
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
			SentryDSN: d.Logging.SentryDSN,
		},
		Metrics: MetricsConfig{
			Enabled:  d.Metrics.Enable,
			HTTPAddr: d.Metrics.HTTPAddr,
			HTTPPort: d.Metrics.HTTPPort,
			Tracing:  d.Metrics.Tracing,
		},
		Archive: ArchiveConfig{
			Dialect: d.Archive.Dialect,
			DSN:     d.Archive.DSN,
		},
		Preset: preset,
		Rules:  rules,
	}
}

// MakeAllConfigs merges defaults, the --preset profile, the config file and
// CLI overrides, in that order, and validates the result.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if ctx.IsSet("preset") {
		preset, err := integration.GetPresetByName(ctx.String("preset"))
		if err != nil {
			return cfg, err
		}
		integration.ApplyPreset(&cfg.Preset, preset)
		if cfg.Rules, err = relay.RulesByName(cfg.Preset.Network); err != nil {
			return cfg, err
		}
	}

	if file := ctx.String("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "failed to load config file %s", file)
		}
	}

	if err := applyCLIOverrides(ctx, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return cfg, err
	}

	if cfg.Preset.DBBackend == integration.LevelDB {
		if err := ensureDir(cfg.Node.DataDir); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------
// Config-file / CLI wiring
// -----------------------------------------------------------------------------

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}

// dumpConfig renders cfg as TOML, the format loadConfigFile reads.
func dumpConfig(cfg *Config) ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) error {
	if ctx.IsSet("datadir") {
		cfg.Node.DataDir = resolvePath(ctx.String("datadir"))
	}

	if ctx.IsSet("log.format") {
		cfg.Logging.Format = ctx.String("log.format")
	}
	if ctx.IsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.Int("log.verbosity")
	}
	if ctx.IsSet("log.color") {
		cfg.Logging.Color = ctx.Bool("log.color")
	}
	if ctx.IsSet("sentry.dsn") {
		cfg.Logging.SentryDSN = ctx.String("sentry.dsn")
	}

	if ctx.IsSet("network") {
		rules, err := relay.RulesByName(ctx.String("network"))
		if err != nil {
			return err
		}
		cfg.Rules = rules
		cfg.Preset.Network = rules.Name
	}
	if ctx.IsSet("disputes.timeout") {
		cfg.Rules.Disputes.TimeoutBlocks = idx.Block(ctx.Uint64("disputes.timeout"))
	}
	if ctx.IsSet("disputes.period") {
		cfg.Rules.Disputes.Period = idx.Epoch(ctx.Uint64("disputes.period"))
	}
	if ctx.IsSet("disputes.threshold") {
		p, err := threshold.ParsePolicy(ctx.String("disputes.threshold"))
		if err != nil {
			return err
		}
		cfg.Rules.Disputes.Threshold = p
	}
	if ctx.IsSet("disputes.sources") {
		p, err := inter.ParseVoteSourcePolicy(ctx.String("disputes.sources"))
		if err != nil {
			return err
		}
		cfg.Rules.Disputes.VoteSources = p
	}

	if ctx.IsSet("db.backend") {
		cfg.Preset.DBBackend = ctx.String("db.backend")
	}
	if ctx.IsSet("cache") {
		cfg.Preset.CacheMB = ctx.Int("cache")
	}
	if ctx.IsSet("db.handles") {
		cfg.Preset.Handles = ctx.Int("db.handles")
	}
	if ctx.IsSet("archive.dialect") {
		cfg.Archive.Dialect = ctx.String("archive.dialect")
	}
	if ctx.IsSet("archive.dsn") {
		cfg.Archive.DSN = ctx.String("archive.dsn")
		cfg.Preset.EnableArchive = cfg.Archive.DSN != ""
	}

	if ctx.Bool("metrics") {
		cfg.Metrics.Enabled = true
	}
	if ctx.IsSet("metrics.addr") {
		cfg.Metrics.HTTPAddr = ctx.String("metrics.addr")
	}
	if ctx.IsSet("metrics.port") {
		cfg.Metrics.HTTPPort = ctx.Int("metrics.port")
	}
	if ctx.Bool("tracing") {
		cfg.Metrics.Tracing = true
	}
	cfg.Metrics.Enabled = cfg.Metrics.Enabled || cfg.Preset.EnableMetrics
	cfg.Metrics.Tracing = cfg.Metrics.Tracing || cfg.Preset.EnableTracing
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}

func GuessProjectRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd // hit filesystem root without finding go.mod
		}
		dir = parent
	}
}
