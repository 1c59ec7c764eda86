package report

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const (
	filePrefix      = "Statement_"
	fileExt         = ".pdf"
	timestampLayout = "20060102_150405"
)

// ErrReportNotFound is returned when a statement does not exist or belongs to
// another user
var ErrReportNotFound = errors.New("report not found")

var statementName = regexp.MustCompile(`^Statement_\d{8}_\d{6}_(\d+)\.pdf$`)

// FileName returns the published name of a statement generated at t for userID
func FileName(t time.Time, userID int64) string {
	return fmt.Sprintf("%s%s_%d%s", filePrefix, t.UTC().Format(timestampLayout), userID, fileExt)
}

// ownerOf returns the user a statement file name belongs to
func ownerOf(name string) (int64, bool) {
	m := statementName.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Catalog lists statements straight from the reports directory
type Catalog struct {
	dir    string
	logger *slog.Logger
}

// NewCatalog creates a Catalog over dir
func NewCatalog(dir string, logger *slog.Logger) *Catalog {
	return &Catalog{dir: dir, logger: logger}
}

// List returns the statements of userID, newest first. A missing or unreadable
// directory yields an empty list.
func (c *Catalog) List(userID int64) []string {
	names := []string{}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to read reports directory",
				slog.String("dir", c.dir),
				slog.Any("error", err),
			)
		}
		return names
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if owner, ok := ownerOf(entry.Name()); ok && owner == userID {
			names = append(names, entry.Name())
		}
	}

	// zero-padded timestamps make lexicographic order chronological
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	return names
}

// Resolve returns the path of the statement name owned by userID
func (c *Catalog) Resolve(userID int64, name string) (string, error) {
	if name != filepath.Base(name) {
		return "", ErrReportNotFound
	}

	owner, ok := ownerOf(name)
	if !ok || owner != userID {
		return "", ErrReportNotFound
	}

	path := filepath.Join(c.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrReportNotFound
		}
		return "", fmt.Errorf("failed to stat report: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrReportNotFound
	}

	return path, nil
}
