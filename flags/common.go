package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// CommonFlags returns the base set of CLI flags shared across commands.

func CommonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "datadir",
			Usage:  "Data directory for the dispute store",
			Value:  "~/.disputes",
			EnvVar: "DISPUTES_DATADIR",
		},
		cli.StringFlag{
			Name:   "config",
			Usage:  "TOML configuration file",
			EnvVar: "DISPUTES_CONFIG",
		},
		cli.StringFlag{
			Name:   "preset",
			Usage:  "Configuration preset (lite|full|archive|default)",
			Value:  "default",
			EnvVar: "DISPUTES_PRESET",
		},
		cli.StringFlag{
			Name:   "log.format",
			Usage:  "Log output format (text|json)",
			Value:  "text",
			EnvVar: "DISPUTES_LOG_FORMAT",
		},
		cli.IntFlag{
			Name:   "log.verbosity",
			Usage:  "Logging verbosity (0=fatal,1=error,2=warn,3=info,4=debug,5=trace)",
			Value:  3,
			EnvVar: "DISPUTES_LOG_VERBOSITY",
		},
		cli.BoolFlag{
			Name:   "log.color",
			Usage:  "Enable colored log output",
			EnvVar: "DISPUTES_LOG_COLOR",
		},
		cli.StringFlag{
			Name:   "sentry.dsn",
			Usage:  "Sentry DSN receiving errors (disabled when empty)",
			EnvVar: "SENTRY_DSN",
		},
	}
}
