package report

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/spendwise/shared/logger"
)

func newTestRenderer(t *testing.T, dir string, at time.Time) *Renderer {
	t.Helper()
	r := NewRenderer(dir, "", logger.NewNop())
	r.now = func() time.Time { return at }
	return r
}

func sampleSummary() StatementSummary {
	return Summarize([]Transaction{
		tx(1, "12.50", "Food", day(1, 9)),
		tx(2, "800", "Rent", day(2, 9)),
		tx(3, "4.20", "Transport", day(2, 18)),
	})
}

func TestRenderer_Render(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRenderer(t, dir, at)

	name, err := r.Render(sampleSummary(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Statement_20250101_120000_7.pdf", name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "not a pdf")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file left behind")

	assert.Equal(t, []string{name}, NewCatalog(dir, logger.NewNop()).List(7))
}

func TestRenderer_RenderEmptyHistory(t *testing.T) {
	dir := t.TempDir()
	r := newTestRenderer(t, dir, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	name, err := r.Render(Summarize(nil), 7)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRenderer_RenderManyPages(t *testing.T) {
	txs := make([]Transaction, 0, 200)
	for i := 0; i < 200; i++ {
		txs = append(txs, tx(int64(i+1), "1.99", "Food", day(1+i%28, 9)))
	}

	dir := t.TempDir()
	r := newTestRenderer(t, dir, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	_, err := r.Render(Summarize(txs), 7)
	require.NoError(t, err)
}

func TestRenderer_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	r := newTestRenderer(t, dir, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	name, err := r.Render(sampleSummary(), 7)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, name))
}

func TestRenderer_SameSecondNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRenderer(t, dir, at)

	first, err := r.Render(sampleSummary(), 7)
	require.NoError(t, err)
	firstData, err := os.ReadFile(filepath.Join(dir, first))
	require.NoError(t, err)

	second, err := r.Render(Summarize(nil), 7)
	require.NoError(t, err)

	assert.Equal(t, "Statement_20250101_120000_7.pdf", first)
	assert.Equal(t, "Statement_20250101_120001_7.pdf", second)

	// the first statement is untouched
	after, err := os.ReadFile(filepath.Join(dir, first))
	require.NoError(t, err)
	assert.Equal(t, firstData, after)

	assert.Equal(t, []string{second, first}, NewCatalog(dir, logger.NewNop()).List(7))
}

func TestRenderer_FailedWriteLeavesNothingVisible(t *testing.T) {
	dir := t.TempDir()
	r := newTestRenderer(t, dir, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	r.output = func(_ *fpdf.Fpdf, w io.Writer) error {
		_, _ = w.Write([]byte("%PDF-1.3\npartial"))
		return errors.New("disk full")
	}

	_, err := r.Render(sampleSummary(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write statement")

	assert.Empty(t, NewCatalog(dir, logger.NewNop()).List(7))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderer_UnwritableDirectory(t *testing.T) {
	// a regular file where the directory should be fails regardless of privileges
	parent := t.TempDir()
	blocked := filepath.Join(parent, "reports")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	r := newTestRenderer(t, blocked, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	_, err := r.Render(sampleSummary(), 7)
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"short", "coffee", 10, "coffee"},
		{"exact", "0123456789", 10, "0123456789"},
		{"long", "0123456789ABC", 10, "0123456..."},
		{"multibyte", strings.Repeat("é", 12), 10, strings.Repeat("é", 7) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), tt.limit)
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$12.50", formatMoney(decimal.RequireFromString("12.5")))
	assert.Equal(t, "-$5.00", formatMoney(decimal.NewFromInt(-5)))
	assert.Equal(t, "$0.00", formatMoney(decimal.Zero))
}
