package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execResult struct {
	stdout string
	stderr string
	code   int
}

func execute(t *testing.T, args ...string) execResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return execResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ci.db")
}

func decodeRun(t *testing.T, out string) RunView {
	t.Helper()
	var resp struct {
		Status string  `json:"status"`
		Data   RunView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestTrigger_Manual(t *testing.T) {
	db := tempDB(t)

	res := execute(t, "trigger", "--db", db, "--project", "app")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "app#1 (run ")
	assert.Contains(t, res.stdout, "Started manually\n")

	res = execute(t, "trigger", "--db", db, "--project", "app", "--note", "hotfix")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "app#2 (run ")
	assert.Contains(t, res.stdout, "Started manually: hotfix\n")
}

func TestTrigger_CauseOrder(t *testing.T) {
	db := tempDB(t)

	res := execute(t, "trigger", "--db", db, "--project", "app", "--format", "json",
		"--scm", "--timer", "--system", "--remote", "10.0.0.1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	run := decodeRun(t, res.stdout)
	assert.Equal(t, "app", run.Project)
	assert.Equal(t, 1, run.Number)
	assert.Equal(t, []string{
		"Started by user SYSTEM",
		"Started by timer",
		"Started by remote host 10.0.0.1",
		"Started by an SCM change",
	}, run.Descriptions)
	assert.Equal(t, 4, run.Stats.Roots)
	assert.NotEmpty(t, run.ChainID)
}

func TestTrigger_UserResolution(t *testing.T) {
	db := tempDB(t)

	res := execute(t, "trigger", "--db", db, "--project", "app", "--user", "alice")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Started by user unknown or anonymous")

	res = execute(t, "user", "add", "--db", db, "alice", "Alice Liddell")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "added alice (Alice Liddell)")

	res = execute(t, "show", "--db", db, "--project", "app", "--build", "1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Started by user Alice Liddell")

	res = execute(t, "user", "list", "--db", db)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "alice\tAlice Liddell\n", res.stdout)
}

func TestTrigger_UpstreamTree(t *testing.T) {
	db := tempDB(t)

	require.Equal(t, ExitSuccess, execute(t, "trigger", "--db", db, "--project", "a", "--timer").code)
	res := execute(t, "trigger", "--db", db, "--project", "b", "--upstream", "a#1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, `Started by upstream project "a" build number 1`)

	res = execute(t, "show", "--db", db, "--project", "b", "--build", "1", "--tree")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout,
		"Started by upstream project \"a\" build number 1\n"+
			"originally caused by:\n"+
			"  Started by timer\n")

	res = execute(t, "show", "--db", db, "--project", "b", "--build", "1", "--tree", "--format", "json")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	run := decodeRun(t, res.stdout)
	assert.JSONEq(t,
		`[{"kind":"upstream","project":"a","build":1,"causes":[{"kind":"timer"}]}]`,
		string(run.Causes))
	assert.Equal(t, 1, run.Stats.Upstreams)
}

func TestTrigger_MissingUpstream(t *testing.T) {
	db := tempDB(t)

	res := execute(t, "trigger", "--db", db, "--project", "b", "--upstream", "a#9")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "Error [E002]")
	assert.Empty(t, res.stdout)
}

func TestTrigger_BadReference(t *testing.T) {
	res := execute(t, "trigger", "--db", tempDB(t), "--project", "b", "--upstream", "a-9")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "Error [E001]")
}

func TestTrigger_MissingProjectFlag(t *testing.T) {
	res := execute(t, "trigger", "--db", tempDB(t))
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "project")
}

func TestShow_NotFoundJSON(t *testing.T) {
	res := execute(t, "show", "--db", tempDB(t), "--project", "x", "--build", "3", "--format", "json")
	assert.Equal(t, ExitCommandError, res.code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp), res.stdout)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
}

func TestRuns_List(t *testing.T) {
	db := tempDB(t)

	res := execute(t, "runs", "--db", db, "--project", "app")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "No runs for app.\n", res.stdout)

	require.Equal(t, ExitSuccess, execute(t, "trigger", "--db", db, "--project", "app", "--timer").code)
	require.Equal(t, ExitSuccess, execute(t, "trigger", "--db", db, "--project", "app", "--timer", "--scm").code)

	res = execute(t, "runs", "--db", db, "--project", "app")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t,
		"app#1\tStarted by timer\n"+
			"app#2\tStarted by timer (+1 more)\n",
		res.stdout)
}

func TestRuns_AllProjects(t *testing.T) {
	db := tempDB(t)

	res := execute(t, "runs", "--db", db)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "No runs.\n", res.stdout)

	require.Equal(t, ExitSuccess, execute(t, "trigger", "--db", db, "--project", "b", "--timer").code)
	require.Equal(t, ExitSuccess, execute(t, "trigger", "--db", db, "--project", "a", "--upstream", "b#1").code)

	res = execute(t, "runs", "--db", db)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t,
		"b#1\tStarted by timer\n"+
			"a#1\tStarted by upstream project \"b\" build number 1\n",
		res.stdout)
}

func TestRuns_ByChain(t *testing.T) {
	db := tempDB(t)

	res := execute(t, "trigger", "--db", db, "--project", "a", "--timer", "--format", "json")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	chainID := decodeRun(t, res.stdout).ChainID
	require.Equal(t, ExitSuccess, execute(t, "trigger", "--db", db, "--project", "a", "--scm").code)
	require.Equal(t, ExitSuccess, execute(t, "trigger", "--db", db, "--project", "b", "--timer").code)

	res = execute(t, "runs", "--db", db, "--chain", chainID)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "a#1\tStarted by timer\nb#1\tStarted by timer\n", res.stdout)

	res = execute(t, "runs", "--db", db, "--chain", chainID, "--project", "a")
	assert.Equal(t, ExitCommandError, res.code)
}

func TestInvalidFormat(t *testing.T) {
	res := execute(t, "runs", "--db", tempDB(t), "--project", "app", "--format", "xml")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, `invalid format "xml"`)
}

func TestConfigFlag_AppliesPolicy(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "causetrail.yaml")
	db := filepath.Join(dir, "ci.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("policy:\n  max_causes: 2\ndatabase: "+db+"\n"), 0o644))

	res := execute(t, "--config", cfgPath, "--format", "json",
		"trigger", "--project", "app", "--timer", "--scm", "--system")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	run := decodeRun(t, res.stdout)
	assert.Equal(t, 2, run.Stats.Roots)
	assert.Contains(t, res.stderr, "cause chain truncated")

	_, err := os.Stat(db)
	assert.NoError(t, err, "configured database should be used")
}

func TestConfigFlag_Invalid(t *testing.T) {
	res := execute(t, "--config", "../config/testdata/bad_depth.yaml", "runs", "--project", "app")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "Error [E005]")
}

func TestConfigCheck(t *testing.T) {
	res := execute(t, "config", "check", "../config/testdata/full.yaml")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "# ../config/testdata/full.yaml: ok\n")
	assert.Contains(t, res.stdout, "max_depth: 5")
	assert.Contains(t, res.stdout, "system_user_label: root")

	res = execute(t, "config", "check", "../config/testdata/bad_depth.yaml")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "Error [E005]: invalid config")
}

func TestScenarioRun_Testdata(t *testing.T) {
	res := execute(t, "scenario", "run", "../harness/testdata")
	require.Equal(t, ExitSuccess, res.code, res.stdout+res.stderr)
	assert.Contains(t, res.stdout, "✓ upstream_pair (2 runs)")
	assert.Contains(t, res.stdout, "0 failed, 8 total")
}

func TestScenarioRun_Filter(t *testing.T) {
	res := execute(t, "scenario", "run", "../harness/testdata", "--filter", "deep*", "--format", "json")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var resp struct {
		Data ScenarioReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "deeply_nested", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestScenarioRun_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: failing
steps:
  - trigger: a
    causes:
      - {kind: timer}
assertions:
  - {type: max_roots, run: "a#1", max: 0}
`), 0o644))

	res := execute(t, "scenario", "run", path)
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stdout, "✗ failing (1 runs)")
	assert.Contains(t, res.stdout, "a#1 has 1 roots, want at most 0")
	assert.Contains(t, res.stderr, "Error [E006]")
}

func TestScenarioRun_MissingPath(t *testing.T) {
	res := execute(t, "scenario", "run", filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, ExitCommandError, res.code)
}

func TestScenarioRun_ParallelKeepsFileOrder(t *testing.T) {
	serial := execute(t, "scenario", "run", "../harness/testdata", "--parallel", "1")
	require.Equal(t, ExitSuccess, serial.code, serial.stderr)

	parallel := execute(t, "scenario", "run", "../harness/testdata", "--parallel", "4")
	require.Equal(t, ExitSuccess, parallel.code, parallel.stderr)
	assert.Equal(t, serial.stdout, parallel.stdout)

	res := execute(t, "scenario", "run", "../harness/testdata", "--parallel", "0")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "--parallel must be at least 1")
}
