package pdf

import (
	"bytes"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// fixedCreation pins the document metadata so byte-identical input gives
// byte-identical output.
var fixedCreation = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// fpdfCanvas implements Canvas on gofpdf. Zero outer margins and no automatic
// page breaking: pagination is the layout engine's job, not the backend's.
type fpdfCanvas struct {
	pdf   *gofpdf.Fpdf
	lineH float64
}

// NewFpdfCanvas returns an A4 portrait canvas measured in points.
func NewFpdfCanvas() Canvas {
	p := gofpdf.New("P", "pt", "A4", "")
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.SetCreationDate(fixedCreation)
	p.SetCellMargin(0)
	return &fpdfCanvas{pdf: p, lineH: 14}
}

func (c *fpdfCanvas) AddPage() { c.pdf.AddPage() }

func (c *fpdfCanvas) SetFont(family, style string, size float64) {
	c.pdf.SetFont(family, style, size)
	c.lineH = size * 1.2
}

func (c *fpdfCanvas) SetTextColor(r, g, b int) { c.pdf.SetTextColor(r, g, b) }
func (c *fpdfCanvas) SetFillColor(r, g, b int) { c.pdf.SetFillColor(r, g, b) }

func (c *fpdfCanvas) Text(x, y, w float64, align, s string) {
	c.pdf.SetXY(x, y)
	if w <= 0 {
		w = c.pdf.GetStringWidth(s) + 1
	}
	c.pdf.CellFormat(w, c.lineH, s, "", 0, align, false, 0, "")
}

func (c *fpdfCanvas) MultiText(x, y, w, lineHeight float64, s string) {
	c.pdf.SetXY(x, y)
	c.pdf.MultiCell(w, lineHeight, s, "", AlignLeft, false)
}

func (c *fpdfCanvas) Rect(x, y, w, h float64) {
	c.pdf.Rect(x, y, w, h, "F")
}

func (c *fpdfCanvas) Image(path string, x, y, w float64) {
	c.pdf.ImageOptions(path, x, y, w, 0, false, gofpdf.ImageOptions{}, 0, "")
}

func (c *fpdfCanvas) Output() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *fpdfCanvas) Err() error {
	if c.pdf.Err() {
		return c.pdf.Error()
	}
	return nil
}
