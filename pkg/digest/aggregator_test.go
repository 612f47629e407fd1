package digest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"driftwatch/models"
	"driftwatch/pkg/client"
)

// fakeSource serves canned workflows, executions, and diffs, tracking calls.
type fakeSource struct {
	mu         sync.Mutex
	workflows  []models.Workflow
	listErr    error
	executions map[string][]models.Execution
	execErr    map[string]error
	diffs      map[string]*models.DiffResult
	diffErr    map[string]error
	listCalls  int
	fetchCalls int
}

func (f *fakeSource) ListWorkflows(ctx context.Context, opts client.ListOptions) ([]models.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.workflows, nil
}

func (f *fakeSource) Executions(ctx context.Context, id string, limit int) ([]models.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if err := f.execErr[id]; err != nil {
		return nil, err
	}
	return f.executions[id], nil
}

func (f *fakeSource) Diff(ctx context.Context, id string, since time.Time) (*models.DiffResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if err := f.diffErr[id]; err != nil {
		return nil, err
	}
	if d, ok := f.diffs[id]; ok {
		return d, nil
	}
	return &models.DiffResult{WorkflowID: id}, nil
}

func testAggregator(source Source) *Aggregator {
	return New(source, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func ts(offset time.Duration) *time.Time {
	t := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC).Add(offset)
	return &t
}

func activeWorkflow(id, name string) models.Workflow {
	return models.Workflow{ID: id, Name: name, Status: models.WorkflowActive}
}

func changedDiff(id string, urls ...models.NewURL) *models.DiffResult {
	return &models.DiffResult{
		WorkflowID: id,
		Executions: []models.ExecutionDiff{{
			ExecutionID: id + "-e1",
			Changes:     []models.ChangeEntry{{Field: "results", Kind: models.ChangeAdded}},
		}},
		Latest: &models.LatestState{NewURLs: urls},
	}
}

func TestAggregate_NoWorkflowsShortCircuits(t *testing.T) {
	source := &fakeSource{}
	resp, err := testAggregator(source).Aggregate(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !strings.Contains(resp.Summary, "No workflows found") {
		t.Errorf("Summary = %q, want the fixed no-workflows response", resp.Summary)
	}
	if len(resp.Workflows) != 0 {
		t.Errorf("got %d digests, want 0", len(resp.Workflows))
	}
	if source.fetchCalls != 0 {
		t.Errorf("made %d per-workflow fetches, want 0", source.fetchCalls)
	}
}

func TestAggregate_ListFailureIsHardError(t *testing.T) {
	source := &fakeSource{listErr: fmt.Errorf("service unavailable")}
	if _, err := testAggregator(source).Aggregate(context.Background(), Options{}); err == nil {
		t.Fatal("Aggregate() error = nil, want listing failure to propagate")
	}
}

func TestAggregate_PerWorkflowFailureIsIsolated(t *testing.T) {
	source := &fakeSource{
		diffs:   map[string]*models.DiffResult{},
		diffErr: map[string]error{"wf-3": fmt.Errorf("diff endpoint 500")},
	}
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("wf-%d", i)
		source.workflows = append(source.workflows, activeWorkflow(id, "W"+id))
		source.diffs[id] = changedDiff(id)
	}

	resp, err := testAggregator(source).Aggregate(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Aggregate() error = %v, one bad workflow must not abort the run", err)
	}
	if len(resp.Workflows) != 5 {
		t.Fatalf("got %d digests, want 5", len(resp.Workflows))
	}

	var errored, normal int
	for _, d := range resp.Workflows {
		if d.Error != "" {
			errored++
			if d.WorkflowID != "wf-3" {
				t.Errorf("error digest for %s, want wf-3", d.WorkflowID)
			}
			if d.HasChanges {
				t.Error("error digest claims has_changes=true")
			}
			if d.ExecutionsSince != 0 {
				t.Errorf("error digest executions_since = %d, want 0", d.ExecutionsSince)
			}
		} else {
			normal++
		}
	}
	if normal != 4 || errored != 1 {
		t.Errorf("normal = %d, errored = %d; want 4 and 1", normal, errored)
	}
	if resp.Counts.Errors != 1 {
		t.Errorf("Counts.Errors = %d, want 1", resp.Counts.Errors)
	}
}

func TestAggregate_SortsByScoreThenExecutions(t *testing.T) {
	since := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		workflows: []models.Workflow{
			activeWorkflow("quiet", "Quiet"),
			{ID: "busy", Name: "Busy", Status: models.WorkflowActive, Priority: "high"},
			activeWorkflow("steady", "Steady"),
		},
		diffs: map[string]*models.DiffResult{
			"busy":   changedDiff("busy", models.NewURL{URL: "https://a.com/1"}),
			"steady": changedDiff("steady", models.NewURL{URL: "https://b.com/1"}),
		},
		executions: map[string][]models.Execution{
			"steady": {{ID: "e1", CompletedAt: ts(-time.Hour)}, {ID: "e2", CompletedAt: ts(-2 * time.Hour)}},
			"quiet":  {{ID: "e3", CompletedAt: ts(-time.Hour)}},
		},
	}

	resp, err := testAggregator(source).Aggregate(context.Background(), Options{Since: since})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	gotOrder := []string{resp.Workflows[0].WorkflowID, resp.Workflows[1].WorkflowID, resp.Workflows[2].WorkflowID}
	// busy wins on high priority; steady's URL bonus and executions place it
	// second, ahead of quiet.
	want := []string{"busy", "steady", "quiet"}
	for i := range want {
		if gotOrder[i] != want[i] {
			t.Fatalf("sort order = %v, want %v", gotOrder, want)
		}
	}
	if resp.Workflows[1].ExecutionsSince != 2 {
		t.Errorf("steady executions_since = %d, want 2", resp.Workflows[1].ExecutionsSince)
	}
}

func TestAggregate_TriggeredCondition(t *testing.T) {
	since := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		workflows: []models.Workflow{
			{ID: "done-new", Name: "DoneNew", Status: models.WorkflowCompleted, LastExecutionAt: ts(0)},
			{ID: "done-old", Name: "DoneOld", Status: models.WorkflowCompleted, LastExecutionAt: ts(-48 * time.Hour)},
			{ID: "active", Name: "Active", Status: models.WorkflowActive, LastExecutionAt: ts(0)},
		},
	}

	resp, err := testAggregator(source).Aggregate(context.Background(),
		Options{Since: since, IncludeInactive: true})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	triggered := map[string]bool{}
	for _, d := range resp.Workflows {
		triggered[d.WorkflowID] = d.TriggeredCondition
	}
	if !triggered["done-new"] {
		t.Error("completed workflow with fresh execution should be triggered")
	}
	if triggered["done-old"] {
		t.Error("completed workflow with stale execution should not be triggered")
	}
	if triggered["active"] {
		t.Error("active workflow should not be triggered")
	}
	if resp.Counts.Triggered != 1 {
		t.Errorf("Counts.Triggered = %d, want 1", resp.Counts.Triggered)
	}
}

func TestAggregate_CapsWorkflowCount(t *testing.T) {
	source := &fakeSource{}
	for i := 0; i < 30; i++ {
		source.workflows = append(source.workflows,
			activeWorkflow(fmt.Sprintf("wf-%d", i), fmt.Sprintf("W%d", i)))
	}

	resp, err := testAggregator(source).Aggregate(context.Background(), Options{MaxWorkflows: 10})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(resp.Workflows) != 10 {
		t.Errorf("got %d digests, want 10", len(resp.Workflows))
	}

	// Requests beyond the hard cap are clamped even if the service over-returns.
	resp, err = testAggregator(source).Aggregate(context.Background(), Options{MaxWorkflows: 200})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(resp.Workflows) > HardMaxWorkflows {
		t.Errorf("got %d digests, want at most %d", len(resp.Workflows), HardMaxWorkflows)
	}
}

func TestAggregate_VerboseIncludesRecentActivity(t *testing.T) {
	source := &fakeSource{
		workflows: []models.Workflow{activeWorkflow("wf-1", "W1")},
		diffs:     map[string]*models.DiffResult{"wf-1": changedDiff("wf-1")},
		executions: map[string][]models.Execution{
			"wf-1": {{ID: "e1"}, {ID: "e2"}},
		},
	}

	verbose, err := testAggregator(source).Aggregate(context.Background(), Options{Verbose: true})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(verbose.Workflows[0].RecentDiffs) == 0 || len(verbose.Workflows[0].RecentExecutions) == 0 {
		t.Error("verbose digest missing recent diffs/executions")
	}

	terse, err := testAggregator(source).Aggregate(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(terse.Workflows[0].RecentDiffs) != 0 {
		t.Error("non-verbose digest should not carry recent diffs")
	}
}

func TestAggregate_CleansSnippetMarkup(t *testing.T) {
	source := &fakeSource{
		workflows: []models.Workflow{activeWorkflow("wf-1", "W1")},
		diffs: map[string]*models.DiffResult{
			"wf-1": changedDiff("wf-1", models.NewURL{
				URL:     "https://example.com/x",
				Title:   "<b>Enforcement</b> update",
				Snippet: "the <em>deadline</em>  moved",
			}),
		},
	}

	resp, err := testAggregator(source).Aggregate(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	got := resp.Workflows[0].NewURLs[0]
	if got.Title != "Enforcement update" {
		t.Errorf("Title = %q, want markup stripped", got.Title)
	}
	if got.Snippet != "the deadline moved" {
		t.Errorf("Snippet = %q, want markup stripped", got.Snippet)
	}
}
