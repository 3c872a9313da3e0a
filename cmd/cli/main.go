package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/glizzus/callsched/internal/generator"
	"github.com/glizzus/callsched/internal/loop"
	"github.com/glizzus/callsched/internal/schedule"
	"github.com/glizzus/callsched/internal/worker"
	"github.com/urfave/cli/v2"
)

func printNextRuns(c *cli.Context) error {
	expr := c.Args().First()
	if expr == "" {
		return cli.Exit("Please provide a cron expression, e.g. '*/5 * * * *'", 1)
	}
	if err := schedule.ValidateCron(expr); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	times, err := schedule.NextRunTimesAfter(expr, time.Now().UTC(), c.Int("count"))
	if err != nil {
		return cli.Exit("Failed to compute run times: "+err.Error(), 1)
	}
	for _, t := range times {
		fmt.Println(t.Format(time.RFC3339))
	}
	return nil
}

// runDemo arms a handful of ticking tasks, moves some and withdraws others
// while they run, then stops the loop and prints what is left.
func runDemo(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	forwarder := worker.NewForwarder(&worker.PrintingFiredHandler{}, 0, logger)
	l, err := loop.New(
		logger,
		schedule.WithObserver(forwarder.Observe),
		schedule.WithIDGenerator(&generator.SequenceGenerator{Prefix: "demo"}),
	)
	if err != nil {
		return cli.Exit("Failed to create loop: "+err.Error(), 1)
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("duration"))
	defer cancel()

	fwdDone := make(chan error, 1)
	go func() { fwdDone <- forwarder.Run(ctx) }()
	loopDone := make(chan error, 1)
	go func() { loopDone <- l.Run(ctx) }()

	every := c.Duration("every")
	n := c.Int("tasks")
	tickers := make([]*schedule.Recurring, 0, n)
	err = l.Call(ctx, func(s *schedule.Scheduler) error {
		for i := range n {
			rt, err := schedule.NewIntervalTask(s, fmt.Sprintf("ticker-%d", i), every*time.Duration(i+1), func(any) {})
			if err != nil {
				return err
			}
			if err := rt.Start(i); err != nil {
				return err
			}
			tickers = append(tickers, rt)
		}
		return nil
	})
	if err != nil {
		return cli.Exit("Failed to arm tasks: "+err.Error(), 1)
	}

	// Halfway through, pull every other ticker forward and withdraw the rest.
	half := time.NewTimer(c.Duration("duration") / 2)
	defer half.Stop()
	select {
	case <-half.C:
		err := l.Call(ctx, func(s *schedule.Scheduler) error {
			for i, rt := range tickers {
				if i%2 == 0 {
					if err := s.Schedule(rt.Task, i, 0); err != nil {
						return err
					}
					continue
				}
				if err := rt.Stop(i); err != nil {
					return err
				}
			}
			for _, e := range s.Pending() {
				log.Printf("pending %s(%v) at %s", e.TaskName, e.Arg, e.Deadline.Format(time.RFC3339Nano))
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			return cli.Exit("Failed to adjust tasks: "+err.Error(), 1)
		}
	case <-ctx.Done():
	}

	if err := <-loopDone; err != nil {
		return cli.Exit("Loop stopped with error: "+err.Error(), 1)
	}
	if err := <-fwdDone; err != nil {
		return cli.Exit("Failed to flush fired callbacks: "+err.Error(), 1)
	}
	log.Println("Demo finished.")
	return nil
}

func main() {
	app := &cli.App{
		Name:        "callsched-cli",
		Description: "A development CLI for exercising the callback scheduler",
		Commands: []*cli.Command{
			{
				Name:      "cron",
				Aliases:   []string{"next"},
				Usage:     "Print the next run times of a cron expression",
				ArgsUsage: "<expression>",
				Action:    printNextRuns,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of run times to print",
						Value: 5,
					},
				},
			},
			{
				Name:   "demo",
				Usage:  "Run ticking callbacks on a real loop for a while",
				Action: runDemo,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "tasks",
						Usage: "Number of ticking tasks",
						Value: 4,
					},
					&cli.DurationFlag{
						Name:  "every",
						Usage: "Base tick interval; task i ticks every (i+1) intervals",
						Value: 250 * time.Millisecond,
					},
					&cli.DurationFlag{
						Name:  "duration",
						Usage: "How long to run before tearing down",
						Value: 3 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Log scheduler debug output",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
