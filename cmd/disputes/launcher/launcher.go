package launcher

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-disputes/disputes"
	"github.com/rony4d/go-disputes/disputes/threshold"
	"github.com/rony4d/go-disputes/flags"
	"github.com/rony4d/go-disputes/indexer"
	"github.com/rony4d/go-disputes/integration"
)

var app = flags.NewApp()

func init() {
	app.Commands = []cli.Command{
		{
			Name:      "replay",
			Usage:     "Drive the dispute module from a JSON scenario and print its events",
			ArgsUsage: "<scenario.json>",
			Action:    replayAction,
			Flags:     flags.AllFlags(),
		},
		{
			Name:      "threshold",
			Usage:     "Print the supermajority and legacy thresholds for a validator count",
			ArgsUsage: "<validators>",
			Action:    thresholdAction,
		},
		{
			Name:   "status",
			Usage:  "Print the live session, open disputes and barred blocks of the store",
			Action: statusAction,
			Flags:  flags.AllFlags(),
		},
		{
			Name:   "dumpconfig",
			Usage:  "Print the effective configuration as TOML",
			Action: dumpConfigAction,
			Flags:  flags.AllFlags(),
		},
	}
}

// Launch loads .env if present and runs the CLI.
func Launch(args []string) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return errors.Wrap(err, "could not load .env")
		}
	}
	return app.Run(args)
}

// prepare builds the config and sets up logging for a command.
func prepare(ctx *cli.Context) (Config, error) {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return cfg, err
	}
	if err := setupLogging(cfg.Logging, cfg.Node.Name); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func replayAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected one scenario file, got %d arguments", ctx.NArg())
	}
	cfg, err := prepare(ctx)
	if err != nil {
		return err
	}
	scenario, err := LoadScenario(ctx.Args().First())
	if err != nil {
		return err
	}

	stopMetrics := startMetrics(cfg.Metrics)
	defer stopMetrics()

	engine, err := integration.MakeEngineWithRules(cfg.Node.DataDir, cfg.Preset, cfg.Rules)
	if err != nil {
		return err
	}
	defer engine.Close()

	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Preset.EnableArchive {
		stop, err := startArchive(runCtx, cfg.Archive, engine.Module)
		if err != nil {
			return err
		}
		defer stop()
	}

	_, err = Replay(runCtx, engine, scenario, ctx.App.Writer)
	return err
}

// startArchive subscribes the SQL archive to the module's events.
func startArchive(ctx context.Context, cfg ArchiveConfig, m *disputes.Module) (func(), error) {
	db, err := indexer.Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "could not open archive")
	}
	if db == nil {
		log.Info("Archive DSN not provided, archiving disabled")
		return func() {}, nil
	}
	if err := indexer.AutoMigrate(db); err != nil {
		return nil, errors.Wrap(err, "could not migrate archive")
	}

	stop := indexer.NewArchive(db).Follow(ctx, m, 256)
	log.Info("Archiving dispute events")
	return stop, nil
}

func thresholdAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected a validator count")
	}
	n, err := strconv.Atoi(ctx.Args().First())
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid validator count %q", ctx.Args().First())
	}
	fmt.Fprintf(ctx.App.Writer, "validators:    %d\n", n)
	fmt.Fprintf(ctx.App.Writer, "supermajority: %d\n", threshold.Supermajority.Threshold(n))
	fmt.Fprintf(ctx.App.Writer, "legacy:        %d\n", threshold.Legacy.Threshold(n))
	return nil
}

func statusAction(ctx *cli.Context) error {
	cfg, err := prepare(ctx)
	if err != nil {
		return err
	}
	engine, err := integration.MakeEngineWithRules(cfg.Node.DataDir, cfg.Preset, cfg.Rules)
	if err != nil {
		return err
	}
	defer engine.Close()

	w := ctx.App.Writer
	fmt.Fprintf(w, "network: %s\n", cfg.Rules.Name)
	if snap := engine.Module.Session(); snap != nil {
		fmt.Fprintf(w, "session: %d (%d validators, threshold %d)\n", snap.Session, snap.Len(), engine.Module.Threshold())
	} else {
		fmt.Fprintln(w, "session: none")
	}
	open, err := engine.Store.OpenDisputes()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "open disputes: %d\n", len(open))
	for _, d := range open {
		tally, err := engine.Module.Ledger().Tally(d.Candidate)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s session=%d opened=%d valid=%d invalid=%d\n", d.Candidate.String(), d.Session, d.OpenedAt, tally.Pro, tally.Against)
	}
	barred, err := engine.Module.Blacklist().All()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "barred blocks: %d\n", len(barred))
	for _, b := range barred {
		fmt.Fprintf(w, "  %s\n", b.String())
	}
	return nil
}

func dumpConfigAction(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	out, err := dumpConfig(&cfg)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
