package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTraceCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceRequiresDatabaseFlag(t *testing.T) {
	_, err := runTraceCmd(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := runTraceCmd(t, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "no recorded runs")
}

func TestTraceListsRecordedRuns(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "runs.db")
	scenarioPath := writeScenario(t, tmpDir, "roundtrip.yaml", roundtripScenario)
	runID := recordRun(t, dbPath, scenarioPath)

	out, err := runTraceCmd(t, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "roundtrip")
}

func TestTraceDumpsRun(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "runs.db")
	scenarioPath := writeScenario(t, tmpDir, "roundtrip.yaml", roundtripScenario)
	runID := recordRun(t, dbPath, scenarioPath)

	out, err := runTraceCmd(t, "--db", dbPath, runID)
	require.NoError(t, err)
	assert.Contains(t, out, "run "+runID)
	assert.Contains(t, out, "[1] thread move -> ok value=7 (idle)")
	assert.Contains(t, out, "[2] irq:17 lock -> ok value=7 (idle)")
	assert.Contains(t, out, "[3] thread free -> ok value=9 (uninit)")
}

func TestTraceDumpJSON(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "runs.db")
	scenarioPath := writeScenario(t, tmpDir, "roundtrip.yaml", roundtripScenario)
	runID := recordRun(t, dbPath, scenarioPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, runID})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   TraceOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, runID, resp.Data.Run.ID)
	assert.Equal(t, "roundtrip", resp.Data.Run.Scenario)
	require.Len(t, resp.Data.Events, 3)
	assert.Equal(t, "move", resp.Data.Events[0].Op)
}

func TestTraceUnknownRun(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "runs.db")
	scenarioPath := writeScenario(t, tmpDir, "roundtrip.yaml", roundtripScenario)
	recordRun(t, dbPath, scenarioPath)

	_, err := runTraceCmd(t, "--db", dbPath, "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}
