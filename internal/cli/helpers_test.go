package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerbook/internal/remote"
	"github.com/roach88/ledgerbook/internal/testutil"
	"github.com/roach88/ledgerbook/internal/transfer"
)

// pngBytes starts with a real PNG signature so media sniffing recognises it.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

// cliEnv runs root commands against one temp-dir database with a frozen
// clock, sequential ids and an in-memory remote slot.
type cliEnv struct {
	dir      string
	db       string
	settings string
	clock    *testutil.DeterministicClock
	ids      *testutil.SequentialIDGenerator
	slot     remote.Slot
	session  transfer.Session
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	return &cliEnv{
		dir:      dir,
		db:       filepath.Join(dir, "ledgerbook.db"),
		settings: filepath.Join(dir, "settings.json"),
		clock:    testutil.NewFrozenClock(testutil.DefaultEpoch),
		ids:      testutil.NewSequentialIDGenerator("cli"),
		slot:     remote.NewMemorySlot(),
		session:  transfer.StaticSession{ID: "alice", Reachable: true},
	}
}

// run executes the root command with args and returns stdout and stderr.
func (e *cliEnv) run(args ...string) (string, string, error) {
	return e.runContext(context.Background(), args...)
}

func (e *cliEnv) runContext(ctx context.Context, args ...string) (string, string, error) {
	opts := &RootOptions{
		Clock:   e.clock,
		IDs:     e.ids,
		Slot:    e.slot,
		Session: e.session,
	}
	cmd := NewRootCommandWithOptions(opts)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{
		"--db", e.db,
		"--settings", e.settings,
		"--env-file", filepath.Join(e.dir, "missing.env"),
	}, args...))

	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// jsonResponse is CLIResponse with the payload left raw.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// runJSON runs args with --format json and decodes the response.
func (e *cliEnv) runJSON(t *testing.T, args ...string) (jsonResponse, error) {
	t.Helper()
	stdout, _, err := e.run(append([]string{"--format", "json"}, args...)...)
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout: %s", stdout)
	return resp, err
}

// mustJSON runs args, requires success and decodes the payload into v.
func (e *cliEnv) mustJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	resp, err := e.runJSON(t, args...)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
}

// writeFile writes data under the env dir and returns its path.
func (e *cliEnv) writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// seed creates customer cli-0001 (Acme), invoice cli-0002 (INV-1) and image
// cli-0003 (bill.png).
func (e *cliEnv) seed(t *testing.T) {
	t.Helper()
	e.mustJSON(t, nil, "customer", "add", "--name", "Acme", "--email", "billing@acme.test")
	e.mustJSON(t, nil, "invoice", "add", "--customer", "cli-0001", "--number", "INV-1",
		"--total", "120", "--item", "Boiler service;1;120;120")
	e.mustJSON(t, nil, "invoice", "attach", "cli-0002", e.writeFile(t, "bill.png", pngBytes))
}
