package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

func TestParseScenario_Valid(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: basic
cell:
  bound: "irq:17"
  initial: 5
steps:
  - from: "irq:17"
    op: lock
    expect:
      outcome: ok
      value: 5
`))
	require.NoError(t, err)
	assert.Equal(t, "basic", sc.Name)
	assert.Equal(t, "irq:17", sc.Cell.Bound)
	require.NotNil(t, sc.Cell.Initial)
	assert.Equal(t, int64(5), *sc.Cell.Initial)
	require.Len(t, sc.Steps, 1)
	require.NotNil(t, sc.Steps[0].Expect)
	assert.Equal(t, "ok", sc.Steps[0].Expect.Outcome)
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
cell:
  bound: "irq:1"
steps:
  - from: "thread"
    op: move
    value: 1
    expekt:
      outcome: ok
`))
	assert.Error(t, err, "unknown fields must fail loudly")
}

func TestParseScenario_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", `
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: free}
`},
		{"thread binding", `
name: x
cell:
  bound: "thread"
steps:
  - {from: "thread", op: free}
`},
		{"bad bound context", `
name: x
cell:
  bound: "irq:notanumber"
steps:
  - {from: "thread", op: free}
`},
		{"no steps", `
name: x
cell:
  bound: "irq:1"
steps: []
`},
		{"bad op", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: swap}
`},
		{"move without value", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: move}
`},
		{"free with value", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: free, value: 3}
`},
		{"store on move", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: move, value: 1, store: 2}
`},
		{"masked thread step", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: free, masked: true}
`},
		{"bad expected outcome", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: free, expect: {outcome: nope}}
`},
		{"bad assertion type", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: free}
assertions:
  - {type: trace_sum, op: free}
`},
		{"trace_order too short", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: free}
assertions:
  - {type: trace_order, ops: [free]}
`},
		{"final_state value on uninit", `
name: x
cell:
  bound: "irq:1"
steps:
  - {from: "thread", op: free}
assertions:
  - {type: final_state, state: uninit, value: 3}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: from-file
cell:
  bound: "exception:PendSV"
steps:
  - {from: "thread", op: move, value: 1}
`), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", sc.Name)
}
