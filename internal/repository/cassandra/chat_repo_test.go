package cassandra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestBucketsForRangeSameMonth tests the single-bucket case
func TestBucketsForRangeSameMonth(t *testing.T) {
	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 28, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, []int{202603}, bucketsForRange(start, end))
}

// TestBucketsForRangeEndOfMonthStart tests that a room started on the last
// day of a month still covers the next month's bucket
func TestBucketsForRangeEndOfMonthStart(t *testing.T) {
	start := time.Date(2026, time.January, 31, 23, 30, 0, 0, time.UTC)
	end := time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)

	buckets := bucketsForRange(start, end)
	assert.Equal(t, []int{202601, 202602}, buckets)
}

// TestBucketsForRangeYearRollover tests bucket generation across a year
// boundary
func TestBucketsForRangeYearRollover(t *testing.T) {
	start := time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, []int{202511, 202512, 202601}, bucketsForRange(start, end))
}

// TestBucketsForRangeDegenerate tests an end before the start
func TestBucketsForRangeDegenerate(t *testing.T) {
	start := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, bucketsForRange(start, end))
}
