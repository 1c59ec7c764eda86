package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(id int64, amount string, category string, date time.Time) Transaction {
	return Transaction{
		ID:          id,
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Description: "purchase",
		Date:        date,
		UserID:      7,
	}
}

func day(d int, hour int) time.Time {
	return time.Date(2025, time.March, d, hour, 0, 0, 0, time.UTC)
}

func TestSummarize_Average(t *testing.T) {
	summary := Summarize([]Transaction{
		tx(1, "10", "Food", day(1, 9)),
		tx(2, "20", "Rent", day(2, 9)),
		tx(3, "30", "Food", day(3, 9)),
	})

	assert.True(t, summary.TotalSpend.Equal(decimal.NewFromInt(60)), "total %s", summary.TotalSpend)
	assert.Equal(t, 3, summary.TransactionCount)
	assert.True(t, summary.AverageSpend.Equal(decimal.NewFromInt(20)), "average %s", summary.AverageSpend)
	assert.Equal(t, "Food", summary.TopCategory)
}

func TestSummarize_Empty(t *testing.T) {
	for name, input := range map[string][]Transaction{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			summary := Summarize(input)

			assert.True(t, summary.TotalSpend.IsZero())
			assert.Equal(t, 0, summary.TransactionCount)
			assert.True(t, summary.AverageSpend.IsZero())
			assert.Equal(t, NoCategory, summary.TopCategory)
			assert.NotNil(t, summary.CategoryTotals)
			assert.Empty(t, summary.CategoryTotals)
			assert.NotNil(t, summary.LineItems)
			assert.Empty(t, summary.LineItems)
			assert.Empty(t, summary.DailyTotals)
		})
	}
}

func TestSummarize_CategoryTotalsMatchTotal(t *testing.T) {
	input := []Transaction{
		tx(1, "12.34", "Food", day(1, 9)),
		tx(2, "0.66", "Transport", day(1, 10)),
		tx(3, "100.10", "Rent", day(2, 9)),
		tx(4, "7.90", "Food", day(4, 9)),
		tx(5, "-5.00", "Food", day(5, 9)), // refund
		tx(6, "3.33", "Transport", day(6, 9)),
	}

	summary := Summarize(input)

	sum := decimal.Zero
	for _, ct := range summary.CategoryTotals {
		sum = sum.Add(ct.Total)
	}
	assert.True(t, sum.Equal(summary.TotalSpend), "categories %s != total %s", sum, summary.TotalSpend)

	require.Len(t, summary.CategoryTotals, 3)
	assert.Equal(t, "Food", summary.CategoryTotals[0].Category)
	assert.Equal(t, "Transport", summary.CategoryTotals[1].Category)
	assert.Equal(t, "Rent", summary.CategoryTotals[2].Category)
	assert.True(t, summary.CategoryTotals[0].Total.Equal(decimal.RequireFromString("15.24")))
	assert.Equal(t, "Rent", summary.TopCategory)
}

func TestSummarize_TopCategoryTieBreak(t *testing.T) {
	input := []Transaction{
		tx(1, "10", "A", day(1, 9)),
		tx(2, "10", "B", day(2, 9)),
	}

	for i := 0; i < 20; i++ {
		assert.Equal(t, "A", Summarize(input).TopCategory)
	}

	reversed := []Transaction{input[1], input[0]}
	assert.Equal(t, "B", Summarize(reversed).TopCategory)
}

func TestSummarize_LineItemsStableDateDescending(t *testing.T) {
	input := []Transaction{
		tx(1, "1", "A", day(1, 9)),
		tx(2, "2", "A", day(3, 9)),
		tx(3, "3", "B", day(2, 9)),
		tx(4, "4", "B", day(3, 9)), // same instant as id 2
		tx(5, "5", "C", day(3, 9)),
	}

	summary := Summarize(input)

	ids := make([]int64, 0, len(summary.LineItems))
	for _, item := range summary.LineItems {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []int64{2, 4, 5, 3, 1}, ids)

	// input order untouched
	assert.Equal(t, int64(1), input[0].ID)
	assert.Equal(t, int64(5), input[4].ID)
}

func TestSummarize_DailyTotals(t *testing.T) {
	input := []Transaction{
		tx(1, "5", "A", day(3, 18)),
		tx(2, "2.50", "A", day(1, 9)),
		tx(3, "1.25", "B", day(3, 7)),
	}

	summary := Summarize(input)

	require.Len(t, summary.DailyTotals, 2)
	assert.Equal(t, day(1, 0), summary.DailyTotals[0].Day)
	assert.True(t, summary.DailyTotals[0].Total.Equal(decimal.RequireFromString("2.50")))
	assert.Equal(t, day(3, 0), summary.DailyTotals[1].Day)
	assert.True(t, summary.DailyTotals[1].Total.Equal(decimal.RequireFromString("6.25")))
}
