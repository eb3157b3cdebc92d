package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/repository"
)

const exportName = "Invoice_Manager_backup_2026-01-15.json"

// exportSeeded seeds e and exports it, returning the backup path.
func exportSeeded(t *testing.T, e *cliEnv) string {
	t.Helper()
	e.seed(t)
	var written map[string]any
	e.mustJSON(t, &written, "backup", "export", "--out", e.dir)
	return written["file"].(string)
}

// rewrite loads the backup at path, applies edit and writes it to name.
func rewrite(t *testing.T, e *cliEnv, path, name string, edit func(doc map[string]any)) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	edit(doc)
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return e.writeFile(t, name, out)
}

func TestBackupExport(t *testing.T) {
	e := newCLIEnv(t)
	path := exportSeeded(t, e)

	assert.Equal(t, filepath.Join(e.dir, exportName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "{\n  \"version\": \"1.0\"")
	assert.Contains(t, string(data), `"appName": "Invoice Manager"`)
}

func TestBackupExport_UsesAppName(t *testing.T) {
	e := newCLIEnv(t)
	e.mustJSON(t, nil, "settings", "set-app-name", "Corner Shop")

	stdout, _, err := e.run("backup", "export", "--out", e.dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Corner_Shop_backup_2026-01-15.json")

	_, err = os.Stat(filepath.Join(e.dir, "Corner_Shop_backup_2026-01-15.json"))
	assert.NoError(t, err)
}

func TestBackupImport_RoundTrip(t *testing.T) {
	src := newCLIEnv(t)
	path := exportSeeded(t, src)

	dst := newCLIEnv(t)
	dst.mustJSON(t, nil, "customer", "add", "--name", "Stale")

	var sum repository.Summary
	dst.mustJSON(t, &sum, "backup", "import", path)
	assert.Equal(t, repository.Summary{Customers: 1, Invoices: 1, Images: 1}, sum)

	var customers []model.Customer
	dst.mustJSON(t, &customers, "customer", "list")
	require.Len(t, customers, 1)
	assert.Equal(t, "Acme", customers[0].Name)
	assert.Equal(t, "cli-0001", customers[0].ID)

	var info imageInfo
	dst.mustJSON(t, &info, "image", "get", "cli-0003", "--out", filepath.Join(dst.dir, "out"))
	data, err := os.ReadFile(info.File)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestBackupImport_Text(t *testing.T) {
	src := newCLIEnv(t)
	path := exportSeeded(t, src)

	dst := newCLIEnv(t)
	stdout, _, err := dst.run("backup", "import", path)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 customers, 1 invoices, 1 images\n", stdout)
}

func TestBackupImport_RejectedLeavesStore(t *testing.T) {
	e := newCLIEnv(t)
	e.seed(t)

	tests := []struct {
		name string
		body string
	}{
		{"not_json", "not json"},
		{"missing_images", `{"version":"1.0","customers":[],"invoices":[]}`},
		{"numeric_version", `{"version":1,"customers":[],"invoices":[],"images":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := e.writeFile(t, tt.name+".json", []byte(tt.body))

			resp, err := e.runJSON(t, "backup", "import", path)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Equal(t, "INVALID_BACKUP_FORMAT", resp.Error.Code)

			var customers []model.Customer
			e.mustJSON(t, &customers, "customer", "list")
			assert.Len(t, customers, 1)
		})
	}
}

func TestBackupImport_MissingFile(t *testing.T) {
	e := newCLIEnv(t)

	_, _, err := e.run("backup", "import", filepath.Join(e.dir, "nope.json"))
	require.Error(t, err)
	assert.True(t, IsReported(err))
}

func TestBackupImport_StrictRejectsOrphans(t *testing.T) {
	src := newCLIEnv(t)
	orphan := rewrite(t, src, exportSeeded(t, src), "orphan.json", func(doc map[string]any) {
		doc["invoices"] = []any{}
	})

	dst := newCLIEnv(t)
	resp, err := dst.runJSON(t, "backup", "import", "--strict", orphan)
	require.Error(t, err)
	assert.Equal(t, "INVALID_BACKUP_FORMAT", resp.Error.Code)

	var sum repository.Summary
	dst.mustJSON(t, &sum, "backup", "import", orphan)
	assert.Equal(t, repository.Summary{Customers: 1, Invoices: 0, Images: 1}, sum)
}

func TestBackupImport_BadImageSequentialVersusAtomic(t *testing.T) {
	src := newCLIEnv(t)
	bad := rewrite(t, src, exportSeeded(t, src), "bad.json", func(doc map[string]any) {
		img := doc["images"].([]any)[0].(map[string]any)
		img["data"] = "***not base64***"
	})

	t.Run("atomic", func(t *testing.T) {
		dst := newCLIEnv(t)
		dst.mustJSON(t, nil, "customer", "add", "--name", "Kept")

		resp, err := dst.runJSON(t, "backup", "import", "--atomic", bad)
		require.Error(t, err)
		assert.Equal(t, "MALFORMED_ENCODING", resp.Error.Code)

		var customers []model.Customer
		dst.mustJSON(t, &customers, "customer", "list")
		require.Len(t, customers, 1)
		assert.Equal(t, "Kept", customers[0].Name)
	})

	t.Run("sequential", func(t *testing.T) {
		dst := newCLIEnv(t)
		dst.mustJSON(t, nil, "customer", "add", "--name", "Lost")

		resp, err := dst.runJSON(t, "backup", "import", bad)
		require.Error(t, err)
		assert.Equal(t, "MALFORMED_ENCODING", resp.Error.Code)

		var customers []model.Customer
		dst.mustJSON(t, &customers, "customer", "list")
		require.Len(t, customers, 1)
		assert.Equal(t, "Acme", customers[0].Name, "customers were replaced before the image failed")
	})
}

func TestBackupVerify_Valid(t *testing.T) {
	e := newCLIEnv(t)
	path := exportSeeded(t, e)

	var result VerifyResult
	e.mustJSON(t, &result, "backup", "verify", path)
	assert.True(t, result.Valid)
	assert.Equal(t, "1.0", result.Version)
	assert.Equal(t, "Invoice Manager", result.AppName)
	assert.Equal(t, 1, result.Customers)
	assert.Equal(t, 1, result.Invoices)
	assert.Equal(t, 1, result.Images)

	stdout, _, err := e.run("backup", "verify", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Backup is valid")
}

func TestBackupVerify_ReportsIssues(t *testing.T) {
	e := newCLIEnv(t)
	orphan := rewrite(t, e, exportSeeded(t, e), "orphan.json", func(doc map[string]any) {
		doc["invoices"] = []any{}
	})

	resp, err := e.runJSON(t, "backup", "verify", orphan)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "INVALID_BACKUP_FORMAT", resp.Error.Code)

	var customers []model.Customer
	e.mustJSON(t, &customers, "customer", "list")
	assert.Len(t, customers, 1, "verify never touches the store")
}

func TestBackupVerify_Unparseable(t *testing.T) {
	e := newCLIEnv(t)
	path := e.writeFile(t, "broken.json", []byte(`{"version":"1.0"}`))

	stdout, _, err := e.run("backup", "verify", path)
	require.Error(t, err)
	assert.Contains(t, stdout, "Backup is invalid")
	assert.Contains(t, stdout, "missing customers")
}

func TestVerify_Direct(t *testing.T) {
	result := verify([]byte(`{"version":"1.0","customers":[],"invoices":[],"images":[]}`))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Issues)

	result = verify([]byte(`[]`))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
}
