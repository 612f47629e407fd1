package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"driftwatch/models"
	"driftwatch/pkg/client"
	"driftwatch/pkg/poller"
	"github.com/urfave/cli/v2"
)

// SearchAction submits a search job and polls it to the best available state.
func SearchAction(c *cli.Context) error {
	query := c.String("query")
	if query == "" {
		return fmt.Errorf("no query provided via --query flag")
	}

	logger := newLogger(c)
	api, p, err := setup(c, logger)
	if err != nil {
		return err
	}

	submitted, err := api.SubmitSearch(c.Context, client.SearchRequest{
		Query:        query,
		MaxResults:   c.Int("max-results"),
		WithSummary:  c.Bool("summary"),
		WithMetadata: c.Bool("metadata"),
	})
	if err != nil {
		return fmt.Errorf("search submission failed: %w", err)
	}
	logger.Info("Search job submitted", "job_id", submitted.ID, "status", submitted.Status)

	return waitAndPrint(c, p, submitted)
}

// CrawlAction submits a crawl job and polls it to the best available state.
func CrawlAction(c *cli.Context) error {
	target := c.String("url")
	if target == "" {
		return fmt.Errorf("no URL provided via --url flag")
	}

	logger := newLogger(c)
	api, p, err := setup(c, logger)
	if err != nil {
		return err
	}

	submitted, err := api.SubmitCrawl(c.Context, client.CrawlRequest{
		URL:          target,
		Depth:        c.Int("depth"),
		WithSummary:  c.Bool("summary"),
		WithMetadata: c.Bool("metadata"),
	})
	if err != nil {
		return fmt.Errorf("crawl submission failed: %w", err)
	}
	logger.Info("Crawl job submitted", "job_id", submitted.ID, "status", submitted.Status)

	return waitAndPrint(c, p, submitted)
}

func newLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func setup(c *cli.Context, logger *slog.Logger) (*client.Client, *poller.Poller, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	api, err := client.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return api, poller.New(api, logger), nil
}

// waitAndPrint polls for the requested async features and prints the final
// snapshot. With no features requested the submission response is printed
// as-is, without polling.
func waitAndPrint(c *cli.Context, p *poller.Poller, submitted *models.JobSnapshot) error {
	var features []poller.Feature
	if c.Bool("summary") {
		features = append(features, poller.SummaryDone())
	}
	if c.Bool("metadata") {
		features = append(features, poller.MetadataDone())
	}

	budget := poller.ClampBudget(c.Duration("budget"))
	snap, err := p.Wait(c.Context, submitted, features, budget)
	if err != nil {
		var failed *poller.JobFailedError
		if errors.As(err, &failed) {
			// Print the terminal snapshot so callers see the service's error,
			// then exit nonzero.
			printSnapshot(failed.Snapshot)
			return cli.Exit(failed.Error(), 2)
		}
		return err
	}

	printSnapshot(snap)
	return nil
}

func printSnapshot(snap *models.JobSnapshot) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal snapshot: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// DefaultBudgetText is the help-text rendering of the polling budget bounds.
func DefaultBudgetText() string {
	return fmt.Sprintf("polling budget (default %s, clamped to %s-%s)",
		poller.DefaultBudget, poller.MinBudget, poller.MaxBudget)
}
