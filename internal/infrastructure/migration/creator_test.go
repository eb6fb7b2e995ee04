package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration_WritesPair(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "Add Alert Archive", "archive resolved alerts")
	require.NoError(t, err)

	assert.Len(t, mf.Version, 14)
	assert.True(t, strings.HasSuffix(mf.UpPath, "_add_alert_archive.up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, "_add_alert_archive.down.sql"))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Add Alert Archive (up)")
	assert.Contains(t, string(up), "archive resolved alerts")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Add Alert Archive (down)")
}

func TestCreateMigration_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(dir, "initial", "")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Add Alert Archive", "add_alert_archive"},
		{"create-credit--ledger", "create_credit_ledger"},
		{"  spaced  out  ", "spaced_out"},
		{"Já válido?!", "j_vlido"},
		{"v2 schema", "v2_schema"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"20260101000000_first.up.sql",
		"20260101000000_first.down.sql",
		"20260201000000_second.up.sql",
		"20260201000000_second.down.sql",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- x\n"), 0o644))
	}

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_first", "20260201000000_second"}, names)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(filepath.Join(t.TempDir(), "nowhere"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
