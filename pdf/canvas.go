package pdf

// Align values accepted by Canvas.Text.
const (
	AlignLeft   = "L"
	AlignCenter = "C"
	AlignRight  = "R"
)

// Canvas is the capability set the renderer needs from a drawing backend:
// place text at a position, fill a rectangle, draw an image region, start a
// page, emit bytes. Keeping the renderer on this interface is what lets one
// layout implementation serve any backend.
type Canvas interface {
	AddPage()
	SetFont(family, style string, size float64)
	SetTextColor(r, g, b int)
	SetFillColor(r, g, b int)

	// Text draws s in a box of the given width anchored at (x, y); align is
	// one of the Align constants. A zero width draws unconstrained from x.
	Text(x, y, w float64, align, s string)
	// MultiText wraps s within width w starting at (x, y).
	MultiText(x, y, w, lineHeight float64, s string)
	Rect(x, y, w, h float64)
	// Image draws the file scaled to width w at (x, y); the backend reports
	// a failure through Err.
	Image(path string, x, y, w float64)

	Output() ([]byte, error)
	Err() error
}

// NewCanvas is the backend constructor the service wiring uses; swap it for a
// different Canvas implementation to change typesetting engines.
type NewCanvas func() Canvas
