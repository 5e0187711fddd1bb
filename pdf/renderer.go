package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urbanvac/invoicing/internal/models"
	"github.com/urbanvac/invoicing/internal/money"
)

// RenderError reports a layout or drawing failure with enough context for the
// caller to decide retry vs abort. The document may already be persisted when
// rendering fails; retrying a render never re-allocates a number.
type RenderError struct {
	Number int64
	Stage  string // "layout", "draw", "output"
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render document %d: %s: %v", e.Number, e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Options fix everything about the output that is not part of the document
// itself. Two renders with equal Options and an equal frozen document produce
// identical bytes.
type Options struct {
	Metrics   Metrics
	AssetsDir string // Header.png / Footer.png; missing files degrade gracefully
	FooterABN string
	TaxLabel  string // printed next to the tax amount, e.g. "GST (10%)"

	BusinessName  string
	BusinessAddr1 string
	BusinessAddr2 string
	BankLines     [3]string
}

// Renderer turns a frozen document into a paginated PDF byte stream through
// the Canvas capability interface.
type Renderer struct {
	opts       Options
	newCanvas  NewCanvas
	headerPath string
	footerPath string
}

func NewRenderer(opts Options, backend NewCanvas) *Renderer {
	if backend == nil {
		backend = NewFpdfCanvas
	}
	if opts.Metrics.PageHeight == 0 {
		opts.Metrics = DefaultMetrics()
	}
	if opts.TaxLabel == "" {
		opts.TaxLabel = "GST (10%)"
	}
	return &Renderer{
		opts:       opts,
		newCanvas:  backend,
		headerPath: assetPath(opts.AssetsDir, "Header.png"),
		footerPath: assetPath(opts.AssetsDir, "Footer.png"),
	}
}

// Render draws the document. It never mutates doc; number and totals are
// taken as-is, and whatever status the document carries is printed without
// lifecycle checks. Cancellation is observed between pages.
func (r *Renderer) Render(ctx context.Context, doc *models.Document) ([]byte, error) {
	m := r.opts.Metrics
	pages, err := Layout(len(doc.Items), strings.TrimSpace(doc.Notes) != "", m)
	if err != nil {
		return nil, &RenderError{Number: doc.DocumentNumber, Stage: "layout", Err: err}
	}

	c := r.newCanvas()
	for pi, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, &RenderError{Number: doc.DocumentNumber, Stage: "draw", Err: err}
		}
		r.drawPage(c, doc, pi, page, pi == len(pages)-1)
	}
	if err := c.Err(); err != nil {
		return nil, &RenderError{Number: doc.DocumentNumber, Stage: "draw", Err: err}
	}
	out, err := c.Output()
	if err != nil {
		return nil, &RenderError{Number: doc.DocumentNumber, Stage: "output", Err: err}
	}
	return out, nil
}

func (r *Renderer) drawPage(c Canvas, doc *models.Document, pi int, page Page, last bool) {
	m := r.opts.Metrics
	c.AddPage()

	withHeader := pi == 0 || m.RepeatHeader
	if withHeader {
		r.drawHeaderBand(c, doc)
		r.drawTableHead(c, m.FirstTop)
	}

	cursor := m.top(pi)
	c.SetFont("Helvetica", "", 13)
	c.SetTextColor(51, 51, 51)
	for i := page.Start; i < page.End; i++ {
		item := doc.Items[i]
		c.SetFillColor(204, 204, 204)
		c.Rect(40, cursor, 515, 1)
		y := cursor + 11
		c.Text(50, y, 200, AlignLeft, item.Description)
		c.Text(260, y, 80, AlignCenter, item.Quantity.String())
		c.Text(350, y, 80, AlignRight, money.FromMinor(item.UnitPrice, doc.Currency).Format())
		c.Text(440, y, 100, AlignRight, money.FromMinor(item.LineTotal, doc.Currency).Format())
		cursor += m.RowHeight
	}

	if page.Totals {
		r.drawTotals(c, doc, cursor)
		cursor += m.TotalsHeight
	}
	if page.Notes {
		r.drawNotes(c, doc.Notes, cursor)
		cursor += m.NotesHeight
	}
	if page.Thanks {
		c.SetFont("Helvetica", "B", 14)
		c.SetTextColor(51, 51, 51)
		c.Text(0, cursor+20, m.PageWidth, AlignCenter, "Thank you for your business!")
	}
	if last {
		r.drawFooter(c)
	}
}

func (r *Renderer) drawHeaderBand(c Canvas, doc *models.Document) {
	m := r.opts.Metrics
	titleY := 40.0
	if r.headerPath != "" {
		c.Image(r.headerPath, 0, 0, m.PageWidth)
		titleY = 150
	}

	c.SetTextColor(51, 51, 51)
	c.SetFont("Helvetica", "B", 28)
	c.Text(0, titleY, m.PageWidth, AlignCenter, models.TitleFor(doc.DocumentType))

	// Left column: To + Bank Details
	c.SetFont("Helvetica", "B", 14)
	c.Text(40, 200, 0, AlignLeft, "To")
	c.SetFont("Helvetica", "", 13)
	c.Text(40, 220, 260, AlignLeft, doc.Customer.Name)
	c.Text(40, 235, 260, AlignLeft, doc.Customer.Phone)
	c.Text(40, 250, 260, AlignLeft, doc.Customer.Address)

	c.SetFont("Helvetica", "B", 14)
	c.Text(40, 280, 0, AlignLeft, "Bank Details")
	c.SetFont("Helvetica", "", 13)
	for i, line := range r.opts.BankLines {
		c.Text(40, 300+float64(i)*15, 260, AlignLeft, line)
	}

	// Right column: From + bill metadata
	c.SetFont("Helvetica", "B", 14)
	c.Text(350, 200, 0, AlignLeft, "From")
	c.SetFont("Helvetica", "", 13)
	c.Text(350, 220, 205, AlignLeft, r.opts.BusinessName)
	c.Text(350, 235, 205, AlignLeft, r.opts.BusinessAddr1)
	c.Text(350, 250, 205, AlignLeft, r.opts.BusinessAddr2)

	c.SetFont("Helvetica", "B", 13)
	c.Text(350, 290, 0, AlignLeft, "Bill No: ")
	c.SetFont("Helvetica", "", 13)
	c.Text(420, 290, 0, AlignLeft, strconv.FormatInt(doc.DocumentNumber, 10))

	c.SetFont("Helvetica", "B", 13)
	c.Text(350, 305, 0, AlignLeft, "Bill Date: ")
	c.SetFont("Helvetica", "", 13)
	c.Text(420, 305, 0, AlignLeft, doc.IssueDate.Format("02/01/2006"))

	c.SetFont("Helvetica", "B", 13)
	c.Text(350, 320, 0, AlignLeft, "Due Date: ")
	c.SetFont("Helvetica", "", 13)
	c.Text(420, 320, 0, AlignLeft, doc.DueDate.Format("02/01/2006"))

	// Status is printed exactly as given; lifecycle validity is not the
	// renderer's concern.
	c.SetFont("Helvetica", "B", 13)
	c.Text(350, 335, 0, AlignLeft, "Status: ")
	c.SetFont("Helvetica", "", 13)
	c.Text(420, 335, 0, AlignLeft, strings.ToUpper(doc.Status))
}

func (r *Renderer) drawTableHead(c Canvas, firstTop float64) {
	c.SetTextColor(51, 51, 51)
	c.SetFont("Helvetica", "B", 16)
	c.Text(40, firstTop-55, 0, AlignLeft, "Items")

	c.SetFillColor(232, 232, 232)
	c.Rect(40, firstTop-30, 515, 30)
	c.SetTextColor(0, 0, 0)
	c.SetFont("Helvetica", "B", 13)
	y := firstTop - 22
	c.Text(50, y, 200, AlignLeft, "Item")
	c.Text(260, y, 80, AlignCenter, "Quantity")
	c.Text(350, y, 80, AlignRight, "Price")
	c.Text(440, y, 100, AlignRight, "Total")
}

func (r *Renderer) drawTotals(c Canvas, doc *models.Document, blockTop float64) {
	c.SetFillColor(204, 204, 204)
	c.Rect(40, blockTop, 515, 1)
	y := blockTop + 20

	c.SetTextColor(51, 51, 51)
	c.SetFont("Helvetica", "", 14)
	c.Text(400, y, 140, AlignRight, "Subtotal: "+money.FromMinor(doc.Subtotal, doc.Currency).Format())
	y += 20
	if doc.Tax > 0 {
		c.Text(400, y, 140, AlignRight, r.opts.TaxLabel+": "+money.FromMinor(doc.Tax, doc.Currency).Format())
		y += 20
	}
	c.SetFont("Helvetica", "B", 16)
	c.Text(400, y, 140, AlignRight, "Total: "+money.FromMinor(doc.Total, doc.Currency).Format())
}

func (r *Renderer) drawNotes(c Canvas, notes string, blockTop float64) {
	c.SetFillColor(248, 249, 250)
	c.Rect(40, blockTop, 515, 80)
	c.SetTextColor(51, 51, 51)
	c.SetFont("Helvetica", "B", 13)
	c.Text(50, blockTop+10, 0, AlignLeft, "Notes:")
	c.SetFont("Helvetica", "", 13)
	c.MultiText(50, blockTop+30, 495, 16, notes)
}

func (r *Renderer) drawFooter(c Canvas) {
	m := r.opts.Metrics
	footerY := m.PageHeight - 92
	if r.footerPath != "" {
		c.Image(r.footerPath, 0, footerY, m.PageWidth)
	}
	c.SetFont("Helvetica", "B", 24)
	c.SetTextColor(51, 51, 51)
	c.Text(0, footerY+10, m.PageWidth-40, AlignRight, r.opts.FooterABN)
}

func assetPath(dir, name string) string {
	if dir == "" {
		return ""
	}
	p := filepath.Join(dir, name)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}
