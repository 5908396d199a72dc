package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// StorageFlags configure the dispute store and the SQL archive.

func StorageFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "db.backend",
			Usage:  "Dispute store backend (memory|leveldb)",
			EnvVar: "DISPUTES_DB_BACKEND",
		},
		cli.IntFlag{
			Name:   "cache",
			Usage:  "Megabytes of memory allocated to the store cache",
			EnvVar: "DISPUTES_CACHE",
		},
		cli.IntFlag{
			Name:   "db.handles",
			Usage:  "Open file handles of the store",
			EnvVar: "DISPUTES_DB_HANDLES",
		},
		cli.StringFlag{
			Name:   "archive.dialect",
			Usage:  "SQL dialect of the resolution archive",
			Value:  "postgres",
			EnvVar: "DB_DIALECT",
		},
		cli.StringFlag{
			Name:   "archive.dsn",
			Usage:  "DSN of the resolution archive (archiving disabled when empty)",
			EnvVar: "DATABASE_URL",
		},
	}
}

// MetricsFlags expose Prometheus metrics and opencensus tracing.
func MetricsFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:   "metrics",
			Usage:  "Enable the Prometheus metrics endpoint",
			EnvVar: "DISPUTES_METRICS",
		},
		cli.StringFlag{
			Name:   "metrics.addr",
			Usage:  "Metrics server listening interface",
			Value:  "127.0.0.1",
			EnvVar: "DISPUTES_METRICS_ADDR",
		},
		cli.IntFlag{
			Name:   "metrics.port",
			Usage:  "Metrics server listening port",
			Value:  6060,
			EnvVar: "DISPUTES_METRICS_PORT",
		},
		cli.BoolFlag{
			Name:   "tracing",
			Usage:  "Sample every opencensus span",
			EnvVar: "DISPUTES_TRACING",
		},
	}
}
