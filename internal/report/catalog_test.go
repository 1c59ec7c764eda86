package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuongbtq/spendwise/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.3"), 0o644))
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Statement_20250101_120000_7.pdf", FileName(at, 7))

	// always rendered in UTC
	local := at.In(time.FixedZone("UTC+2", 2*3600))
	assert.Equal(t, "Statement_20250101_120000_7.pdf", FileName(local, 7))
}

func TestCatalog_ListScopesByUser(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"Statement_20250101_120000_7.pdf",
		"Statement_20250101_120001_9.pdf",
	)

	catalog := NewCatalog(dir, logger.NewNop())

	assert.Equal(t, []string{"Statement_20250101_120000_7.pdf"}, catalog.List(7))
	assert.Equal(t, []string{"Statement_20250101_120001_9.pdf"}, catalog.List(9))
}

func TestCatalog_ListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"Statement_20250101_120000_7.pdf",
		"Statement_20251231_235959_7.pdf",
		"Statement_20250615_080000_7.pdf",
	)

	catalog := NewCatalog(dir, logger.NewNop())

	assert.Equal(t, []string{
		"Statement_20251231_235959_7.pdf",
		"Statement_20250615_080000_7.pdf",
		"Statement_20250101_120000_7.pdf",
	}, catalog.List(7))
}

func TestCatalog_ListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"Statement_20250101_120000_17.pdf", // suffix 7 but user 17
		"Statement_20250101_120000_7.pdf.tmp",
		".Statement_123456.tmp",
		"notes_7.pdf",
		"Statement_2025_7.pdf",
		"Statement_20250101_120000_7.PDF",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Statement_20250101_120000_7.pdf"), 0o755))

	catalog := NewCatalog(dir, logger.NewNop())

	assert.Empty(t, catalog.List(7))
	assert.Equal(t, []string{"Statement_20250101_120000_17.pdf"}, catalog.List(17))
}

func TestCatalog_ListMissingDirectory(t *testing.T) {
	catalog := NewCatalog(filepath.Join(t.TempDir(), "missing"), logger.NewNop())

	names := catalog.List(7)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestCatalog_Resolve(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Statement_20250101_120000_7.pdf")

	catalog := NewCatalog(dir, logger.NewNop())

	path, err := catalog.Resolve(7, "Statement_20250101_120000_7.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Statement_20250101_120000_7.pdf"), path)

	tests := []struct {
		name   string
		userID int64
		file   string
	}{
		{"other user", 9, "Statement_20250101_120000_7.pdf"},
		{"missing file", 7, "Statement_20250101_120001_7.pdf"},
		{"path traversal", 7, "../Statement_20250101_120000_7.pdf"},
		{"nested path", 7, "x/Statement_20250101_120000_7.pdf"},
		{"not a statement", 7, "passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Resolve(tt.userID, tt.file)
			assert.ErrorIs(t, err, ErrReportNotFound)
		})
	}
}
