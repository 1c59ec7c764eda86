package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBrand is printed in the page header when none is configured
	DefaultBrand = "SpendWise"

	maxDescriptionRunes = 40
	ellipsis            = "..."

	// how many later seconds to try when a statement name is already taken
	maxNameCollisions = 60
)

// ledger column widths in mm, A4 portrait with 15mm margins
var ledgerColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 30, "L"},
	{"Category", 40, "L"},
	{"Description", 80, "L"},
	{"Amount", 30, "R"},
}

// Renderer writes statements into the reports directory
type Renderer struct {
	dir    string
	brand  string
	logger *slog.Logger

	now    func() time.Time
	output func(pdf *fpdf.Fpdf, w io.Writer) error
}

// NewRenderer creates a Renderer publishing into dir
func NewRenderer(dir, brand string, logger *slog.Logger) *Renderer {
	if brand == "" {
		brand = DefaultBrand
	}
	return &Renderer{
		dir:    dir,
		brand:  brand,
		logger: logger,
		now:    time.Now,
		output: func(pdf *fpdf.Fpdf, w io.Writer) error { return pdf.Output(w) },
	}
}

// Dir returns the reports directory
func (r *Renderer) Dir() string {
	return r.dir
}

// Render writes the statement of userID and returns its file name. The file
// only becomes visible under its final name once it is complete.
func (r *Renderer) Render(summary StatementSummary, userID int64) (string, error) {
	generatedAt := r.now().UTC()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, "."+filePrefix+"*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	// the published name is a second link, so the temp name always goes
	defer os.Remove(tmp.Name())

	pdf := r.build(summary, userID, generatedAt)
	if err := r.output(pdf, tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write statement: %w", err)
	}

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to set statement permissions: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync statement: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close statement: %w", err)
	}

	name, err := r.publish(tmp.Name(), generatedAt, userID)
	if err != nil {
		return "", err
	}

	r.logger.Info("Statement rendered",
		slog.Int64("user_id", userID),
		slog.String("file", name),
		slog.Int("transactions", summary.TransactionCount),
	)

	return name, nil
}

// publish links the finished temp file under the first free statement name.
// Link never replaces an existing file, unlike rename.
func (r *Renderer) publish(tmpPath string, generatedAt time.Time, userID int64) (string, error) {
	for i := 0; i < maxNameCollisions; i++ {
		name := FileName(generatedAt.Add(time.Duration(i)*time.Second), userID)

		err := os.Link(tmpPath, filepath.Join(r.dir, name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to publish statement: %w", err)
		}

		r.logger.Debug("Statement name taken, trying next second",
			slog.String("file", name),
		)
	}

	return "", fmt.Errorf("failed to publish statement: no free name after %d attempts", maxNameCollisions)
}

func (r *Renderer) build(summary StatementSummary, userID int64, generatedAt time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreationDate(generatedAt)
	pdf.SetTitle(fmt.Sprintf("%s statement", r.brand), true)
	pdf.SetAuthor(r.brand, true)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	inLedger := false

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(90, 10, tr(r.brand), "", 0, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(100, 116, 139)
		pdf.CellFormat(0, 10, "Generated "+generatedAt.Format("2006-01-02 15:04:05 MST"), "", 1, "R", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Monthly statement for user %d", userID), "B", 1, "L", false, 0, "")
		pdf.Ln(6)

		if inLedger {
			ledgerHeader(pdf)
		}
	})

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(148, 163, 184)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	summaryTiles(pdf, tr, summary)
	categoryTable(pdf, tr, summary)

	sectionTitle(pdf, "Transactions")
	ledgerHeader(pdf)
	inLedger = true

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(15, 23, 42)
	for i, tx := range summary.LineItems {
		fill := i%2 == 1
		pdf.SetFillColor(248, 250, 252)
		pdf.CellFormat(ledgerColumns[0].width, 7, tx.Date.Format(time.DateOnly), "", 0, ledgerColumns[0].align, fill, 0, "")
		pdf.CellFormat(ledgerColumns[1].width, 7, tr(tx.Category), "", 0, ledgerColumns[1].align, fill, 0, "")
		pdf.CellFormat(ledgerColumns[2].width, 7, tr(truncate(tx.Description, maxDescriptionRunes)), "", 0, ledgerColumns[2].align, fill, 0, "")
		pdf.CellFormat(ledgerColumns[3].width, 7, formatMoney(tx.Amount), "", 1, ledgerColumns[3].align, fill, 0, "")
	}

	if len(summary.LineItems) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions recorded.", "", 1, "L", false, 0, "")
	}

	return pdf
}

func summaryTiles(pdf *fpdf.Fpdf, tr func(string) string, summary StatementSummary) {
	tiles := []struct {
		label string
		value string
	}{
		{"Total spend", formatMoney(summary.TotalSpend)},
		{"Average spend", formatMoney(summary.AverageSpend)},
		{"Top category", summary.TopCategory},
		{"Transactions", strconv.Itoa(summary.TransactionCount)},
	}

	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	gap := 4.0
	width := (pageWidth - left - right - gap*float64(len(tiles)-1)) / float64(len(tiles))
	top := pdf.GetY()

	for i, tile := range tiles {
		x := left + float64(i)*(width+gap)

		pdf.SetFillColor(241, 245, 249)
		pdf.Rect(x, top, width, 22, "F")

		pdf.SetXY(x+3, top+3)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 116, 139)
		pdf.CellFormat(width-6, 5, tile.label, "", 0, "L", false, 0, "")

		pdf.SetXY(x+3, top+10)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(15, 23, 42)
		pdf.CellFormat(width-6, 8, tr(truncate(tile.value, 18)), "", 0, "L", false, 0, "")
	}

	pdf.SetXY(left, top+30)
}

func categoryTable(pdf *fpdf.Fpdf, tr func(string) string, summary StatementSummary) {
	if len(summary.CategoryTotals) == 0 {
		return
	}

	sectionTitle(pdf, "Spending by category")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(15, 23, 42)
	for _, ct := range summary.CategoryTotals {
		share := decimal.Zero
		if !summary.TotalSpend.IsZero() {
			share = ct.Total.Div(summary.TotalSpend).Mul(decimal.NewFromInt(100))
		}
		pdf.CellFormat(70, 6, tr(ct.Category), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, formatMoney(ct.Total), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, share.StringFixed(1)+"%", "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func ledgerHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	for i, col := range ledgerColumns {
		ln := 0
		if i == len(ledgerColumns)-1 {
			ln = 1
		}
		pdf.CellFormat(col.width, 7, col.title, "", ln, col.align, true, 0, "")
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(15, 23, 42)
}

// truncate shortens s to at most limit runes, marking the cut with an ellipsis
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}

func formatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
