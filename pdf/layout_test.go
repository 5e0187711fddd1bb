package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metrics with an exact first-page row capacity of k and plenty of room for
// the trailing blocks on continuation pages.
func capacityMetrics(k int) Metrics {
	return Metrics{
		PageWidth:     595.28,
		PageHeight:    842,
		FirstTop:      100,
		ContTop:       100,
		RowHeight:     36,
		FooterReserve: 842 - 100 - float64(k)*36, // exactly k rows fit
		TotalsHeight:  1,
		NotesHeight:   1,
		ThanksHeight:  1,
		MaxPages:      50,
	}
}

func TestLayoutExactCapacityRowsFillFirstPage(t *testing.T) {
	const k = 8
	pages, err := Layout(k, false, capacityMetrics(k))
	require.NoError(t, err)
	// rows fill page 1 exactly; the totals block no longer fits there
	require.Len(t, pages, 2)
	assert.Equal(t, k, pages[0].RowCount())
	assert.False(t, pages[0].Totals)
	assert.True(t, pages[1].Totals)
	assert.True(t, pages[1].Thanks)
}

func TestLayoutBoundaryOverflow(t *testing.T) {
	const k = 8
	m := capacityMetrics(k)
	// leave room for totals+thanks after the rows
	m.FooterReserve -= 3

	pages, err := Layout(k-1, false, m)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, k-1, pages[0].RowCount())
	assert.True(t, pages[0].Totals)

	pages, err = Layout(k+1, false, m)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, k, pages[0].RowCount())
	assert.Equal(t, 1, pages[1].RowCount())
	assert.True(t, pages[1].Totals)
}

func TestLayoutRowIndexRangesArePartition(t *testing.T) {
	const n = 100
	pages, err := Layout(n, true, DefaultMetrics())
	require.NoError(t, err)

	next := 0
	for _, p := range pages {
		assert.Equal(t, next, p.Start)
		assert.GreaterOrEqual(t, p.End, p.Start)
		next = p.End
	}
	assert.Equal(t, n, next)

	// trailing blocks land exactly once, in order, on the last pages
	last := pages[len(pages)-1]
	assert.True(t, last.Thanks)
	totalsCount := 0
	for _, p := range pages {
		if p.Totals {
			totalsCount++
		}
		if p.Notes {
			assert.True(t, p.Totals || totalsCount > 0, "notes cannot precede totals")
		}
	}
	assert.Equal(t, 1, totalsCount)
}

func TestLayoutNotesFlowToNextPage(t *testing.T) {
	const k = 8
	m := capacityMetrics(k)
	m.FooterReserve -= 2 // room for totals but not notes after k rows
	m.NotesHeight = 10

	pages, err := Layout(k, true, m)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.True(t, pages[0].Totals)
	assert.False(t, pages[0].Notes)
	assert.True(t, pages[1].Notes)
	assert.True(t, pages[1].Thanks)
}

func TestLayoutRepeatHeaderShrinksContinuationPages(t *testing.T) {
	m := DefaultMetrics()
	plain, err := Layout(60, false, m)
	require.NoError(t, err)

	m.RepeatHeader = true
	repeated, err := Layout(60, false, m)
	require.NoError(t, err)

	assert.Greater(t, len(repeated), len(plain)-1)
	for i, p := range repeated {
		// every page starts at the first-page top, so capacity is uniform
		if i < len(repeated)-1 && p.RowCount() > 0 {
			assert.Equal(t, repeated[0].RowCount(), p.RowCount())
		}
	}
}

func TestLayoutMaxPagesGuard(t *testing.T) {
	m := capacityMetrics(4)
	m.MaxPages = 3
	_, err := Layout(100, false, m)
	assert.ErrorIs(t, err, ErrTooManyPages)
}

func TestLayoutEmptyItems(t *testing.T) {
	// not reachable through validation, but the engine itself must not break
	pages, err := Layout(0, false, DefaultMetrics())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].RowCount())
	assert.True(t, pages[0].Totals)
}
