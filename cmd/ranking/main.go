package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "ranking",
		Usage: "olympiad score aggregation, ranking and next-stage selection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"RANKING_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "also append logs to this file",
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "log JSON instead of colored text",
			},
		},
		Commands: []*cli.Command{
			newGenerateCommand(),
			newRankCommand(),
			newStandingsCommand(),
			newScoreSheetsCommand(),
			newQuotaCommand(),
			newReportCommand(),
			newEnqueueCommand(),
			newJobsCommand(),
			newWorkerCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
