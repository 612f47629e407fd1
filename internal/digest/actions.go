package digest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"driftwatch/models"
	"driftwatch/pkg/briefing"
	"driftwatch/pkg/client"
	"driftwatch/pkg/correlate"
	digestpkg "driftwatch/pkg/digest"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// DigestAction runs the full pipeline: aggregate -> correlate -> format.
func DigestAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	api, err := client.New(cfg, logger)
	if err != nil {
		return err
	}

	opts := digestpkg.Options{
		IncludeInactive: c.Bool("include-inactive"),
		MaxWorkflows:    c.Int("max-workflows"),
		Verbose:         c.Bool("verbose"),
	}
	if sinceStr := c.String("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return fmt.Errorf("invalid --since (want ISO 8601, e.g. 2026-08-23T00:00:00Z): %w", err)
		}
		opts.Since = since
	}

	agg := digestpkg.New(api, logger)
	resp, err := agg.Aggregate(c.Context, opts)
	if err != nil {
		return err
	}

	correlations, stats := correlate.Find(resp.Workflows)
	resp.Correlations = correlations
	resp.Counts.CorrelationAnalyzed = stats.Analyzed
	resp.Counts.CorrelationSkipped = stats.Skipped
	resp.Counts.URLsCompared = stats.URLsCompared

	format := strings.ToLower(c.String("format"))
	switch format {
	case "", "json":
		return printJSON(resp)
	case "yaml":
		return printYAML(resp)
	case "briefing":
		resp.FormattedOutput = briefing.Render(resp, briefing.ModeHuman)
		fmt.Println(resp.FormattedOutput)
		return nil
	case "briefing_llm":
		resp.FormattedOutput = briefing.Render(resp, briefing.ModeLLM)
		fmt.Println(resp.FormattedOutput)
		return nil
	case "compact":
		return printJSON(briefing.Compact(resp))
	default:
		return fmt.Errorf("unknown format %q (want json, yaml, briefing, briefing_llm, compact)", format)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
