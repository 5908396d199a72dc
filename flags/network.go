package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// DisputeFlags select the relay network and override its dispute rules.

func DisputeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "network",
			Usage:  "Relay network rules (main|test|fake)",
			EnvVar: "DISPUTES_NETWORK",
		},
		cli.Uint64Flag{
			Name:   "disputes.timeout",
			Usage:  "Blocks a dispute may stay open before it times out (0 disables timeouts)",
			EnvVar: "DISPUTES_TIMEOUT",
		},
		cli.Uint64Flag{
			Name:   "disputes.period",
			Usage:  "Sessions back a concluded candidate may still be disputed",
			EnvVar: "DISPUTES_PERIOD",
		},
		cli.StringFlag{
			Name:   "disputes.threshold",
			Usage:  "Threshold formula (supermajority|legacy)",
			EnvVar: "DISPUTES_THRESHOLD",
		},
		cli.StringFlag{
			Name:   "disputes.sources",
			Usage:  "Votes counted toward a dispute (approval|backing|both)",
			EnvVar: "DISPUTES_VOTE_SOURCES",
		},
	}
}
