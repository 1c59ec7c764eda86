// Package report turns a user's transaction history into a PDF statement and
// keeps track of the statements already written to the reports directory.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NoCategory is reported as the top category of an empty history
const NoCategory = "N/A"

// Transaction is a single spend record owned by one user
type Transaction struct {
	ID          int64           `db:"id"`
	Amount      decimal.Decimal `db:"amount"`
	Category    string          `db:"category"`
	Description string          `db:"description"`
	Date        time.Time       `db:"date"`
	UserID      int64           `db:"user_id"`
}

// CategoryTotal is the summed spend of one category
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// DailyTotal is the summed spend of one calendar day
type DailyTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

// StatementSummary holds everything a statement shows
type StatementSummary struct {
	TotalSpend       decimal.Decimal
	TransactionCount int
	AverageSpend     decimal.Decimal
	TopCategory      string
	// CategoryTotals is ordered by first appearance in the input
	CategoryTotals []CategoryTotal
	// LineItems is ordered by date, newest first
	LineItems []Transaction
	// DailyTotals is ordered by day, oldest first
	DailyTotals []DailyTotal
}

// Summarize aggregates txs. It does not modify txs.
func Summarize(txs []Transaction) StatementSummary {
	summary := StatementSummary{
		TotalSpend:       decimal.Zero,
		TransactionCount: len(txs),
		AverageSpend:     decimal.Zero,
		TopCategory:      NoCategory,
		CategoryTotals:   []CategoryTotal{},
		LineItems:        make([]Transaction, len(txs)),
		DailyTotals:      []DailyTotal{},
	}

	categoryIndex := make(map[string]int)
	dayIndex := make(map[string]int)

	for _, tx := range txs {
		summary.TotalSpend = summary.TotalSpend.Add(tx.Amount)

		if i, ok := categoryIndex[tx.Category]; ok {
			summary.CategoryTotals[i].Total = summary.CategoryTotals[i].Total.Add(tx.Amount)
		} else {
			categoryIndex[tx.Category] = len(summary.CategoryTotals)
			summary.CategoryTotals = append(summary.CategoryTotals, CategoryTotal{Category: tx.Category, Total: tx.Amount})
		}

		day := startOfDay(tx.Date)
		key := day.Format(time.DateOnly)
		if i, ok := dayIndex[key]; ok {
			summary.DailyTotals[i].Total = summary.DailyTotals[i].Total.Add(tx.Amount)
		} else {
			dayIndex[key] = len(summary.DailyTotals)
			summary.DailyTotals = append(summary.DailyTotals, DailyTotal{Day: day, Total: tx.Amount})
		}
	}

	if summary.TransactionCount > 0 {
		summary.AverageSpend = summary.TotalSpend.Div(decimal.NewFromInt(int64(summary.TransactionCount)))
	}

	// strict comparison keeps the first-seen category on ties
	var top *CategoryTotal
	for i := range summary.CategoryTotals {
		if top == nil || summary.CategoryTotals[i].Total.GreaterThan(top.Total) {
			top = &summary.CategoryTotals[i]
		}
	}
	if top != nil {
		summary.TopCategory = top.Category
	}

	copy(summary.LineItems, txs)
	sort.SliceStable(summary.LineItems, func(i, j int) bool {
		return summary.LineItems[i].Date.After(summary.LineItems[j].Date)
	})

	sort.Slice(summary.DailyTotals, func(i, j int) bool {
		return summary.DailyTotals[i].Day.Before(summary.DailyTotals[j].Day)
	})

	return summary
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
