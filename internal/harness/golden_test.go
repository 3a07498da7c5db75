package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGoldenScenario(t *testing.T, name string) {
	t.Helper()
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	require.Equal(t, name, sc.Name, "scenario name must match its file name")

	result := RunWithGolden(t, sc)
	assert.True(t, result.Pass, "scenario %s: %v", name, result.Errors)
}

func TestGolden_MoveLockFreeRoundtrip(t *testing.T) {
	runGoldenScenario(t, "move-lock-free-roundtrip")
}

func TestGolden_ReentrantLockRejected(t *testing.T) {
	runGoldenScenario(t, "reentrant-lock-rejected")
}

func TestGolden_WrongContextRejections(t *testing.T) {
	runGoldenScenario(t, "wrong-context-rejections")
}
