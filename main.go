package main

import (
	"fmt"
	"log"
	"os"

	"driftwatch/internal/digest"
	"driftwatch/internal/search"
	"driftwatch/internal/workflows"
	"driftwatch/models"
	digestpkg "driftwatch/pkg/digest"
	"driftwatch/pkg/help"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "driftwatch",
		Usage: "monitor a remote content-discovery service: search, crawl, and workflow update digests",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: models.DefaultConfigPath(),
				Usage: "path to YAML config file",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "search",
				Usage:  "submit a search job and poll it to completion",
				Action: search.SearchAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Usage: "search query", Required: true},
					&cli.IntFlag{Name: "max-results", Value: 10, Usage: "maximum results to request"},
					&cli.BoolFlag{Name: "summary", Usage: "request an async summary and wait for it"},
					&cli.BoolFlag{Name: "metadata", Usage: "wait for async metadata extraction"},
					&cli.DurationFlag{Name: "budget", Usage: search.DefaultBudgetText()},
				},
			},
			{
				Name:   "crawl",
				Usage:  "submit a crawl job and poll it to completion",
				Action: search.CrawlAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "URL to crawl", Required: true},
					&cli.IntFlag{Name: "depth", Value: 1, Usage: "crawl depth"},
					&cli.BoolFlag{Name: "summary", Usage: "request an async summary and wait for it"},
					&cli.BoolFlag{Name: "metadata", Usage: "wait for async metadata extraction"},
					&cli.DurationFlag{Name: "budget", Usage: search.DefaultBudgetText()},
				},
			},
			{
				Name:   "workflows",
				Usage:  "list monitoring workflows",
				Action: workflows.ListAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "include paused/completed/failed workflows"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum workflows to list"},
				},
				Subcommands: []*cli.Command{
					{
						Name:      "executions",
						Usage:     "show a workflow's recent executions",
						ArgsUsage: "<workflow-id>",
						Action:    workflows.ExecutionsAction,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 25, Usage: "maximum executions to show"},
						},
					},
				},
			},
			{
				Name:   "digest",
				Usage:  "build a cross-workflow update digest since a watermark",
				Action: digest.DigestAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "since", Usage: "watermark timestamp, ISO 8601 (default: 24h ago)"},
					&cli.BoolFlag{Name: "include-inactive", Usage: "include paused/completed workflows"},
					&cli.IntFlag{
						Name:  "max-workflows",
						Value: digestpkg.DefaultMaxWorkflows,
						Usage: fmt.Sprintf("workflow cap (hard max %d)", digestpkg.HardMaxWorkflows),
					},
					&cli.BoolFlag{Name: "verbose", Usage: "include recent diffs and executions per workflow"},
					&cli.StringFlag{
						Name:  "format",
						Value: "json",
						Usage: "output format: json, yaml, briefing, briefing_llm, compact",
					},
				},
			},
			{
				Name:  "quickstart",
				Usage: "print the quick-reference YAML",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
