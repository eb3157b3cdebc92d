package cli

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/remote"
	"github.com/roach88/ledgerbook/internal/repository"
	"github.com/roach88/ledgerbook/internal/store"
	"github.com/roach88/ledgerbook/internal/transfer"
)

// clearRemoteEnv keeps the developer's environment from choosing a slot.
func clearRemoteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LEDGERBOOK_REMOTE_URL", "")
	t.Setenv("LEDGERBOOK_REMOTE_TOKEN", "")
	t.Setenv("LEDGERBOOK_REMOTE_FILE", "")
}

func TestCloud_UploadThenDownload(t *testing.T) {
	src := newCLIEnv(t)
	src.seed(t)

	stdout, _, err := src.run("cloud", "upload")
	require.NoError(t, err)
	assert.Equal(t, "Uploaded backup\n", stdout)

	dst := newCLIEnv(t)
	dst.slot = src.slot
	dst.mustJSON(t, nil, "customer", "add", "--name", "Stale")

	var sum repository.Summary
	dst.mustJSON(t, &sum, "cloud", "download")
	assert.Equal(t, repository.Summary{Customers: 1, Invoices: 1, Images: 1}, sum)

	var customers []model.Customer
	dst.mustJSON(t, &customers, "customer", "list")
	require.Len(t, customers, 1)
	assert.Equal(t, "Acme", customers[0].Name)
}

func TestCloud_DownloadEmptySlot(t *testing.T) {
	e := newCLIEnv(t)
	e.seed(t)

	resp, err := e.runJSON(t, "cloud", "download")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "NO_REMOTE_BACKUP", resp.Error.Code)

	var customers []model.Customer
	e.mustJSON(t, &customers, "customer", "list")
	assert.Len(t, customers, 1)
}

func TestCloud_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		session transfer.Session
	}{
		{"offline", transfer.StaticSession{ID: "alice", Reachable: false}},
		{"signed_out", transfer.StaticSession{Reachable: true}},
		{"no_session", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newCLIEnv(t)
			slot := remote.NewMemorySlot()
			e.slot = slot
			e.session = tt.session

			for _, op := range []string{"upload", "download"} {
				resp, err := e.runJSON(t, "cloud", op)
				require.Error(t, err, op)
				assert.Equal(t, "NETWORK_OR_AUTH_UNAVAILABLE", resp.Error.Code, op)
			}

			puts, gets := slot.Calls()
			assert.Zero(t, puts)
			assert.Zero(t, gets)
		})
	}
}

func TestCloud_NoRemoteConfigured(t *testing.T) {
	clearRemoteEnv(t)
	e := newCLIEnv(t)
	e.slot = nil
	e.session = nil

	resp, err := e.runJSON(t, "cloud", "upload")
	require.Error(t, err)
	assert.Equal(t, "NETWORK_OR_AUTH_UNAVAILABLE", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no remote configured")
}

func TestCloud_FileSlotFromEnvironment(t *testing.T) {
	clearRemoteEnv(t)
	slotFile := filepath.Join(t.TempDir(), "slot.json")
	t.Setenv("LEDGERBOOK_REMOTE_FILE", slotFile)

	src := newCLIEnv(t)
	src.slot, src.session = nil, nil
	src.seed(t)
	src.mustJSON(t, nil, "cloud", "upload")

	dst := newCLIEnv(t)
	dst.slot, dst.session = nil, nil
	var sum repository.Summary
	dst.mustJSON(t, &sum, "cloud", "download")
	assert.Equal(t, 1, sum.Invoices)
}

func TestCloud_HTTPSlotFromEnvironment(t *testing.T) {
	clearRemoteEnv(t)

	slotStore, err := store.Open(filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { slotStore.Close() })
	srv := httptest.NewServer(remote.NewServer(slotStore, zerolog.Nop(), remote.DefaultServerConfig()).Handler())
	t.Cleanup(srv.Close)

	t.Setenv("LEDGERBOOK_REMOTE_URL", srv.URL)
	t.Setenv("LEDGERBOOK_REMOTE_TOKEN", "alice")

	src := newCLIEnv(t)
	src.slot, src.session = nil, nil
	src.seed(t)
	src.mustJSON(t, nil, "cloud", "upload")

	dst := newCLIEnv(t)
	dst.slot, dst.session = nil, nil
	var sum repository.Summary
	dst.mustJSON(t, &sum, "cloud", "download")
	assert.Equal(t, repository.Summary{Customers: 1, Invoices: 1, Images: 1}, sum)

	t.Setenv("LEDGERBOOK_REMOTE_TOKEN", "bob")
	resp, err := dst.runJSON(t, "cloud", "download")
	require.Error(t, err)
	assert.Equal(t, "NO_REMOTE_BACKUP", resp.Error.Code, "each identity has its own slot")
}

func TestCloud_HTTPSlotUnreachable(t *testing.T) {
	clearRemoteEnv(t)
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	t.Setenv("LEDGERBOOK_REMOTE_URL", url)
	t.Setenv("LEDGERBOOK_REMOTE_TOKEN", "alice")

	e := newCLIEnv(t)
	e.slot, e.session = nil, nil
	resp, err := e.runJSON(t, "cloud", "upload")
	require.Error(t, err)
	assert.Equal(t, "NETWORK_OR_AUTH_UNAVAILABLE", resp.Error.Code)
}
