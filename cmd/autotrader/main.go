package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "autotrader",
		Usage:   "Automated trading against the KIS Open API",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration `FILE`",
				Sources: cli.EnvVars("AUTOTRADER_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start the scheduler and the ops server until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Schedule mode (interval, daily); overrides the config",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Cycle interval in interval mode, e.g. 60s",
					},
					&cli.StringFlag{
						Name:  "daily-time",
						Usage: "Cycle time in daily mode as `HH:MM` Seoul time",
					},
					&cli.StringFlag{
						Name:  "ops-addr",
						Usage: "Ops server listen address; overrides the config",
					},
				},
				Action: runAction,
			},
			{
				Name:  "evaluate",
				Usage: "Run one trading cycle now, ignoring market hours",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Record signals without submitting orders",
					},
				},
				Action: evaluateAction,
			},
			{
				Name:   "token",
				Usage:  "Obtain an access token and print its expiry",
				Action: tokenAction,
			},
			{
				Name:  "market",
				Usage: "Print the market session status",
				Flags: []cli.Flag{
					&cli.TimestampFlag{
						Name:  "at",
						Usage: "Evaluate at this time instead of now",
						Value: time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{time.RFC3339, "2006-01-02 15:04"},
						},
					},
				},
				Action: marketAction,
			},
			{
				Name:      "schema",
				Usage:     "Print the parameter JSON schema of a strategy type",
				ArgsUsage: "[" + string(types.StrategyTypeMovingAverageCrossover) + "|...]",
				Action:    schemaAction,
			},
			{
				Name:   "config",
				Usage:  "Validate the configuration and print it with secrets masked",
				Action: configAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
