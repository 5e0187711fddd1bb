package pdf

import "errors"

// ErrTooManyPages trips the max-page guard; a malformed document cannot eat
// unbounded memory in the drawing backend.
var ErrTooManyPages = errors.New("page limit exceeded")

// Metrics describes the fixed vertical geometry of a page, in points. The
// defaults encode the production layout: A4, decorative header band with the
// to/from/bill blocks above the table on page one, footer artwork pinned to
// the page bottom.
type Metrics struct {
	PageWidth     float64
	PageHeight    float64
	FirstTop      float64 // y of the first table row on page 1
	ContTop       float64 // y of the first table row on continuation pages
	RowHeight     float64
	FooterReserve float64 // band at the bottom rows must not enter
	TotalsHeight  float64
	NotesHeight   float64
	ThanksHeight  float64
	RepeatHeader  bool // continuation pages restart below the full header band
	MaxPages      int
}

func DefaultMetrics() Metrics {
	return Metrics{
		PageWidth:     595.28,
		PageHeight:    842,
		FirstTop:      425,
		ContTop:       50,
		RowHeight:     36,
		FooterReserve: 106,
		TotalsHeight:  100,
		NotesHeight:   90,
		ThanksHeight:  60,
		MaxPages:      100,
	}
}

// limit is the lowest y a block may still start at and stay clear of the
// footer band once its own height is added.
func (m Metrics) limit() float64 { return m.PageHeight - m.FooterReserve }

// top returns the content start for the given page index.
func (m Metrics) top(pageIndex int) float64 {
	if pageIndex == 0 || m.RepeatHeader {
		return m.FirstTop
	}
	return m.ContTop
}

// Page holds the item rows assigned to one rendered page, as the half-open
// index range [Start, End), plus which trailing blocks landed here.
type Page struct {
	Start  int
	End    int
	Totals bool
	Notes  bool
	Thanks bool
}

func (p Page) RowCount() int { return p.End - p.Start }

// Layout paginates n item rows plus the totals/notes/thank-you blocks in a
// single streaming pass: a vertical cursor advances row by row and a page
// closes as soon as the next block would cross into the footer reserve.
// Stateless between calls; a render is restartable but never resumable.
func Layout(n int, hasNotes bool, m Metrics) ([]Page, error) {
	pages := []Page{{Start: 0, End: 0}}
	cursor := m.top(0)

	breakPage := func() error {
		if m.MaxPages > 0 && len(pages) >= m.MaxPages {
			return ErrTooManyPages
		}
		start := pages[len(pages)-1].End
		pages = append(pages, Page{Start: start, End: start})
		cursor = m.top(len(pages) - 1)
		return nil
	}
	fit := func(h float64) error {
		if cursor+h > m.limit() {
			return breakPage()
		}
		return nil
	}

	for i := 0; i < n; i++ {
		if err := fit(m.RowHeight); err != nil {
			return nil, err
		}
		pages[len(pages)-1].End = i + 1
		cursor += m.RowHeight
	}

	if err := fit(m.TotalsHeight); err != nil {
		return nil, err
	}
	pages[len(pages)-1].Totals = true
	cursor += m.TotalsHeight

	if hasNotes {
		if err := fit(m.NotesHeight); err != nil {
			return nil, err
		}
		pages[len(pages)-1].Notes = true
		cursor += m.NotesHeight
	}

	if err := fit(m.ThanksHeight); err != nil {
		return nil, err
	}
	pages[len(pages)-1].Thanks = true

	return pages, nil
}
