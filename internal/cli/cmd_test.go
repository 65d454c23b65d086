package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intentgate/internal/comparator"
	"intentgate/internal/config"
	"intentgate/internal/detector"
	"intentgate/internal/generator"
	"intentgate/internal/parser"
	"intentgate/internal/repository"
	"intentgate/internal/service"
	"intentgate/internal/testutil"
	"intentgate/internal/voting"
)

// testApp wires a full App backed by an in-memory DB for CLI integration
// tests. The LLM parsers stay off; the rule parser is enough to drive every
// command.
func testApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	database := testutil.NewTestDB(t)

	ledger := repository.NewSQLiteLedgerRepo(database)
	elevations := repository.NewSQLiteElevationRepo(database)

	engine, err := voting.NewEngine(cfg.HighConfidenceThreshold, cfg.LowConfidenceThreshold, cfg.MinParsers)
	require.NoError(t, err)
	gen := generator.New(cfg, nil)
	proc := service.StubProcessor{}

	pipeline := service.NewPipelineService(
		detector.New(cfg.BlockThreshold),
		parser.NewEnsemble([]parser.Parser{parser.NewRuleParser()}, time.Second, nil),
		engine,
		comparator.New(&cfg.Policy),
		gen,
		proc,
		ledger,
		elevations,
		nil,
	)

	return &App{
		Pipeline:   pipeline,
		Elevations: service.NewElevationService(elevations, ledger, gen, proc),
		Ledger:     ledger,
		Config:     cfg,
		// IsInteractive left nil: prompts are skipped in tests.
	}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	root.SilenceUsage = true
	err := root.Execute()
	return buf.String(), err
}

func TestProcessCmd_Completed(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "process", "--user", "u1", "--session", "s1",
		"find experts on machine learning budget $500")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "trusted intent: find_experts")
	assert.Contains(t, out, "executed in")
}

func TestProcessCmd_Blocked(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "process", "summarize this; rm -rf /tmp")
	require.NoError(t, err)
	assert.Contains(t, out, "BLOCKED")
}

func TestLedgerShowCmd(t *testing.T) {
	app := testApp(t)
	result, err := app.Pipeline.Process(context.Background(), service.ProcessRequest{
		UserID: "u1", SessionID: "s1", Query: "find experts on machine learning",
	})
	require.NoError(t, err)

	out, err := executeCmd(t, app, "ledger", "show", result.LedgerEntryID)
	require.NoError(t, err)
	assert.Contains(t, out, result.LedgerEntryID)
	assert.Contains(t, out, "HIGH CONFIDENCE")
}

func TestLedgerShowCmd_NotFound(t *testing.T) {
	app := testApp(t)

	_, err := executeCmd(t, app, "ledger", "show", "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedgerListCmd(t *testing.T) {
	app := testApp(t)
	_, err := app.Pipeline.Process(context.Background(), service.ProcessRequest{
		UserID: "u1", SessionID: "s1", Query: "find experts on machine learning",
	})
	require.NoError(t, err)

	out, err := executeCmd(t, app, "ledger", "list", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "u1")

	out, err = executeCmd(t, app, "ledger", "list", "--user", "ghost")
	require.NoError(t, err)
	assert.Contains(t, out, "No entries found.")

	_, err = executeCmd(t, app, "ledger", "list")
	require.Error(t, err)
}

func TestLedgerStatsCmd(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "ledger", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "entries:")
}

func TestElevationsCmds(t *testing.T) {
	app := testApp(t)
	app.Config.Policy.BudgetCeiling = 400
	app.Config.Policy.ToleranceMargin = 200

	// Over ceiling but within tolerance: lands in the review queue.
	result, err := app.Pipeline.Process(context.Background(), service.ProcessRequest{
		UserID: "u1", SessionID: "s1", Query: "find experts on machine learning budget $500",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Elevation)

	out, err := executeCmd(t, app, "elevations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PENDING")

	_, err = executeCmd(t, app, "elevations", "resolve", result.Elevation.ID)
	require.Error(t, err, "one of --approve or --reject must be chosen")

	out, err = executeCmd(t, app, "elevations", "resolve", result.Elevation.ID,
		"--approve", "--approver", "reviewer_1", "--notes", "fine")
	require.NoError(t, err)
	assert.Contains(t, out, "APPROVED")
	assert.Contains(t, out, "trusted intent: find_experts")

	out, err = executeCmd(t, app, "elevations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending elevations.")
}
