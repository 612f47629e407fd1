package workflows

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"driftwatch/internal/common"
	"driftwatch/models"
	"driftwatch/pkg/client"
	"github.com/urfave/cli/v2"
)

// ListAction prints a table of monitoring workflows.
func ListAction(c *cli.Context) error {
	api, err := setup(c)
	if err != nil {
		return err
	}

	opts := client.ListOptions{Limit: c.Int("limit")}
	if !c.Bool("all") {
		opts.Status = string(models.WorkflowActive)
	}

	workflows, err := api.ListWorkflows(c.Context, opts)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	if len(workflows) == 0 {
		fmt.Println("No workflows found")
		return nil
	}

	fmt.Printf("%-14s %-30s %-10s %-8s %-20s\n",
		"ID", "Name", "Status", "Priority", "Last Execution")
	fmt.Println(strings.Repeat("-", 86))

	for _, wf := range workflows {
		lastRun := "never"
		if wf.LastExecutionAt != nil {
			lastRun = wf.LastExecutionAt.Format("2006-01-02 15:04:05")
		}
		priority := wf.Priority
		if priority == "" {
			priority = "normal"
		}
		fmt.Printf("%-14s %-30s %-10s %-8s %-20s\n",
			wf.ID,
			common.Truncate(wf.Name, 30),
			wf.Status,
			priority,
			lastRun,
		)
	}

	fmt.Printf("\nTotal: %d workflows\n", len(workflows))
	fmt.Printf("\nTip: Use 'driftwatch workflows executions <id>' to see a workflow's runs\n")

	return nil
}

// ExecutionsAction prints a workflow's recent executions, newest first.
func ExecutionsAction(c *cli.Context) error {
	workflowID := c.Args().First()
	if workflowID == "" {
		return fmt.Errorf("no workflow id provided (usage: driftwatch workflows executions <id>)")
	}

	api, err := setup(c)
	if err != nil {
		return err
	}

	executions, err := api.Executions(c.Context, workflowID, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to fetch executions for %s: %w", workflowID, err)
	}

	if len(executions) == 0 {
		fmt.Printf("Workflow %s has no executions\n", workflowID)
		return nil
	}

	fmt.Printf("%-14s %-10s %-20s %-20s %-8s\n",
		"ID", "Status", "Started", "Completed", "Changed")
	fmt.Println(strings.Repeat("-", 76))

	for _, e := range executions {
		started, completed := "-", "-"
		if e.StartedAt != nil {
			started = e.StartedAt.Format("2006-01-02 15:04:05")
		}
		if e.CompletedAt != nil {
			completed = e.CompletedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-14s %-10s %-20s %-20s %-8d\n",
			e.ID, e.Status, started, completed, e.PagesChanged)
	}

	fmt.Printf("\nTotal: %d executions\n", len(executions))
	return nil
}

func setup(c *cli.Context) (*client.Client, error) {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	return client.New(cfg, logger)
}
