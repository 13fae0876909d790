package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// run installs a signal goroutine per invocation; every one must be gone
// when the package's tests finish.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// response is CLIResponse with its payload left undecoded.
type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
	RunID  string          `json:"run_id"`
}

func decodeResponse(t *testing.T, buf *bytes.Buffer, data any) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "output: %s", buf.String())
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func writeConfig(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "car.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

// stallingConfig owes two physics steps per frame but allows one.
const stallingConfig = `simulation: {
	inner_step:   1 / 64
	max_substeps: 1
	frames: {count: 70, step: 1 / 32}
}
`

// execute runs a root command with args and returns stdout.
func execute(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

// recordRun records a run of configPath into dbPath.
func recordRun(t *testing.T, dbPath, configPath, runID string) {
	t.Helper()
	_, err := execute(t, "run", "--db", dbPath, "--run-id", runID, configPath)
	require.NoError(t, err)
}
