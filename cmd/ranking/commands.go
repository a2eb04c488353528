package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	quotaservice "github.com/baysaa41/mmo-ranking/app/modules/quota/application"
	quotadomain "github.com/baysaa41/mmo-ranking/app/modules/quota/domain"
	quotaparsers "github.com/baysaa41/mmo-ranking/app/modules/quota/infrastructure/parsers"
	quotareports "github.com/baysaa41/mmo-ranking/app/modules/quota/infrastructure/reports"
	rankingdomain "github.com/baysaa41/mmo-ranking/app/modules/ranking/domain"
	rankingqueue "github.com/baysaa41/mmo-ranking/app/modules/ranking/infrastructure/queue"
	scoringservice "github.com/baysaa41/mmo-ranking/app/modules/scoring/application"
	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func parseContestIDs(c *cli.Context) ([]int64, error) {
	if c.NArg() == 0 {
		return nil, fmt.Errorf("at least one contest id is required")
	}
	ids := make([]int64, 0, c.NArg())
	for _, raw := range c.Args().Slice() {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid contest id %q", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// forEachContest runs fn for every id with at most limit in flight. Every
// contest is attempted; the failures are joined in id order.
func forEachContest(ids []int64, limit int, fn func(id int64) error) error {
	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			if err := fn(id); err != nil {
				errs[i] = fmt.Errorf("contest %d: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func newGenerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "aggregate score sheets, rank them and refresh prize labels",
		ArgsUsage: "<contest-id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force-delete", Usage: "drop existing score sheets before regenerating"},
			&cli.BoolFlag{Name: "include-unofficial", Usage: "keep contestants of non-participating schools as unofficial"},
		},
		Action: func(c *cli.Context) error {
			ids, err := parseContestIDs(c)
			if err != nil {
				return err
			}
			ctx, rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := scoringservice.AggregateOptions{
				ForceDelete:       c.Bool("force-delete"),
				IncludeUnofficial: c.Bool("include-unofficial"),
			}
			return forEachContest(ids, rt.cfg.Ranking.Parallelism, func(id int64) error {
				agg, err := rt.Scoring.Aggregate(ctx, id, opts)
				if err != nil {
					return err
				}
				rank, err := rt.Ranking.RankContest(ctx, id)
				if err != nil {
					return err
				}
				prizes, err := rt.Quota.SyncPrizes(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("contest %d: %d results, %d created, %d updated, %d unchanged, %d deleted, %d skipped; %d sheets ranked in %d scopes; %d prize labels updated\n",
					id, agg.Results, agg.Created, agg.Updated, agg.Unchanged, agg.Deleted, agg.Skipped(),
					rank.Sheets, rank.Scopes, prizes.Updated)
				return nil
			})
		},
	}
}

func newRankCommand() *cli.Command {
	return &cli.Command{
		Name:      "rank",
		Usage:     "recompute the ranking snapshot of contests",
		ArgsUsage: "<contest-id>...",
		Action: func(c *cli.Context) error {
			ids, err := parseContestIDs(c)
			if err != nil {
				return err
			}
			ctx, rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			return forEachContest(ids, rt.cfg.Ranking.Parallelism, func(id int64) error {
				summary, err := rt.Ranking.RankContest(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("contest %d: snapshot %s, %d sheets, %d scopes, %d entries, %d pruned\n",
					id, summary.SnapshotID, summary.Sheets, summary.Scopes, summary.Entries, summary.Pruned)
				return nil
			})
		},
	}
}

func newStandingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "standings",
		Usage: "print one scope of a contest's active ranking",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "contest", Required: true},
			&cli.StringFlag{Name: "scope", Value: "national::official", Usage: "kind:id:population, e.g. province:3:all"},
		},
		Action: func(c *cli.Context) error {
			scope, err := rankingdomain.ParseScope(c.String("scope"))
			if err != nil {
				return err
			}
			ctx, rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			rows, err := rt.Ranking.Standings(ctx, c.Int64("contest"), scope)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tA\tB\tNAME\tTOTAL")
			for _, r := range rows {
				fmt.Fprintf(w, "%d\t%d\t%d\t%s %s\t%g\n", r.ListRank, r.RankingA, r.RankingB, r.LastName, r.FirstName, r.Total)
			}
			return w.Flush()
		},
	}
}

func newScoreSheetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "scoresheets",
		Usage: "score sheet maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "set-school",
				Usage: "override the school a contestant's sheet counts for",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "contest", Required: true},
					&cli.Int64Flag{Name: "contestant", Required: true},
					&cli.Int64Flag{Name: "school", Required: true},
				},
				Action: func(c *cli.Context) error {
					ctx, rt, err := setup(c)
					if err != nil {
						return err
					}
					defer rt.Close()

					if err := rt.Scoring.SetSheetSchool(ctx, c.Int64("contest"), c.Int64("contestant"), c.Int64("school")); err != nil {
						return err
					}
					fmt.Printf("contest %d: contestant %d now counts for school %d\n",
						c.Int64("contest"), c.Int64("contestant"), c.Int64("school"))
					return nil
				},
			},
		},
	}
}

func newQuotaCommand() *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "next-stage admission",
		Subcommands: []*cli.Command{
			{
				Name:  "select",
				Usage: "select contestants for the next stage from a quota workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config-file", Required: true, Usage: "quota workbook (.xlsx)"},
					&cli.StringFlag{Name: "stage", Required: true, Usage: "second, third or fourth"},
					&cli.BoolFlag{Name: "dry-run", Usage: "compute the selection without writing awards"},
					&cli.StringFlag{Name: "tie-policy", Usage: "include or exclude a tie that straddles the quota"},
					&cli.IntFlag{Name: "max-per-province", Value: -1, Usage: "cap on fourth-stage admissions per province"},
					&cli.StringFlag{Name: "report", Usage: "write the selection to this .xlsx file"},
				},
				Action: quotaSelect,
			},
		},
	}
}

func quotaSelect(c *cli.Context) error {
	stage, err := quotadomain.ParseStage(c.String("stage"))
	if err != nil {
		return err
	}
	wb, err := quotaparsers.ReadWorkbookFile(c.String("config-file"))
	if err != nil {
		return err
	}

	ctx, rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	rules, err := rt.QuotaRules()
	if err != nil {
		return err
	}
	if c.IsSet("tie-policy") {
		if rules.TiePolicy, err = quotadomain.ParseTiePolicy(c.String("tie-policy")); err != nil {
			return err
		}
	}
	if n := c.Int("max-per-province"); n >= 0 {
		rules.MaxFourthPerProvince = n
	}

	summary, err := rt.Quota.SelectNextStage(ctx, quotaservice.Plan{
		Stage:    stage,
		Workbook: wb,
		Rules:    rules,
		DryRun:   c.Bool("dry-run"),
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tREGION\tLABEL\tN")
	for _, n := range summary.Counts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", n.Category, n.Region, n.Label, n.N)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("stage %s: %d candidates, %d selected, %d awards removed, %d created, %d sheets updated (dry run: %t)\n",
		summary.Stage, summary.Candidates, len(summary.Selections),
		summary.AwardsDeleted, summary.AwardsCreated, summary.SheetsUpdated, summary.DryRun)

	if path := c.String("report"); path != "" {
		data, err := quotareports.SelectionWorkbook(stage, summary.Selections)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		rt.obs.Logger.InfoContext(ctx, "Selection report written", attr.String("path", path))
	}
	return nil
}

func newReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "contest reports",
		Subcommands: []*cli.Command{
			{
				Name:  "distribution",
				Usage: "render the score distribution of a contest as a PNG bar chart",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "contest", Required: true},
					&cli.StringFlag{Name: "out", Required: true},
					&cli.Float64Flag{Name: "bucket", Value: 5, Usage: "bucket width in points"},
				},
				Action: func(c *cli.Context) error {
					ctx, rt, err := setup(c)
					if err != nil {
						return err
					}
					defer rt.Close()

					id := c.Int64("contest")
					totals, err := rt.Quota.ScoreTotals(ctx, id)
					if err != nil {
						return err
					}
					png, err := quotareports.DistributionChart(fmt.Sprintf("Contest %d", id), totals, c.Float64("bucket"))
					if err != nil {
						return err
					}
					if err := os.WriteFile(c.String("out"), png, 0o644); err != nil {
						return fmt.Errorf("failed to write chart: %w", err)
					}
					fmt.Printf("contest %d: %d sheets charted to %s\n", id, len(totals), c.String("out"))
					return nil
				},
			},
		},
	}
}

func newEnqueueCommand() *cli.Command {
	return &cli.Command{
		Name:      "enqueue",
		Usage:     "queue ranking passes for the worker",
		ArgsUsage: "<contest-id>...",
		Action: func(c *cli.Context) error {
			ids, err := parseContestIDs(c)
			if err != nil {
				return err
			}
			ctx, rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			queue, err := rankingqueue.NewService(ctx, rt.db, rt.obs.Logger, rt.cfg.Postgres.DSN, rt.obs.Metrics, nil, rankingqueue.Options{})
			if err != nil {
				return err
			}
			defer queue.Close()

			for _, id := range ids {
				jobID, dup, err := queue.EnqueueRankContest(ctx, id)
				if err != nil {
					return fmt.Errorf("contest %d: %w", id, err)
				}
				if dup {
					fmt.Printf("contest %d: already queued as job %d\n", id, jobID)
					continue
				}
				fmt.Printf("contest %d: job %d\n", id, jobID)
			}
			return nil
		},
	}
}

func newJobsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "list the ranking jobs of a contest",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "contest", Required: true},
		},
		Action: func(c *cli.Context) error {
			ctx, rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			queue, err := rankingqueue.NewService(ctx, rt.db, rt.obs.Logger, rt.cfg.Postgres.DSN, rt.obs.Metrics, nil, rankingqueue.Options{})
			if err != nil {
				return err
			}
			defer queue.Close()

			jobs, err := queue.ListJobs(ctx, c.Int64("contest"))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tSTATE\tATTEMPT\tCREATED")
			for _, j := range jobs {
				fmt.Fprintf(w, "%d\t%s\t%d/%d\t%s\n", j.ID, j.State, j.Attempt, j.MaxAttempts, j.CreatedAt)
			}
			return w.Flush()
		},
	}
}
