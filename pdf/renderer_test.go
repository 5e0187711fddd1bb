package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanvac/invoicing/internal/models"
)

// recordingCanvas captures draw calls so layout decisions can be asserted
// without parsing PDF bytes.
type recordingCanvas struct {
	pages int
	texts []string
	rects int
}

func (c *recordingCanvas) AddPage()                          { c.pages++ }
func (c *recordingCanvas) SetFont(string, string, float64)   {}
func (c *recordingCanvas) SetTextColor(int, int, int)        {}
func (c *recordingCanvas) SetFillColor(int, int, int)        {}
func (c *recordingCanvas) Text(_, _, _ float64, _, s string) { c.texts = append(c.texts, s) }
func (c *recordingCanvas) MultiText(_, _, _, _ float64, s string) {
	c.texts = append(c.texts, s)
}
func (c *recordingCanvas) Rect(_, _, _, _ float64)      { c.rects++ }
func (c *recordingCanvas) Image(string, float64, float64, float64) {}
func (c *recordingCanvas) Output() ([]byte, error)      { return []byte("%PDF-fake"), nil }
func (c *recordingCanvas) Err() error                   { return nil }

func (c *recordingCanvas) has(s string) bool {
	for _, t := range c.texts {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

func testDocument(items int) *models.Document {
	doc := &models.Document{
		DocumentNumber: 3001,
		DocumentType:   models.TypeInvoice,
		Customer: models.Customer{
			Name: "J Smith", Email: "j@example.com",
			Phone: "0400 000 000", Address: "1 High St, Melbourne",
		},
		IssueDate: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC),
		Currency:  "AUD",
		Subtotal:  52000,
		Tax:       5200,
		Total:     57200,
		Status:    models.StatusDraft,
		Notes:     "Payment due within 30 days.",
	}
	for i := 0; i < items; i++ {
		doc.Items = append(doc.Items, models.LineItem{
			Position:    i,
			Description: fmt.Sprintf("Service %d", i+1),
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   15000,
			LineTotal:   30000,
		})
	}
	return doc
}

func testOptions() Options {
	return Options{
		TaxLabel:      "GST (10%)",
		FooterABN:     "ABN : 50 679 172 948",
		BusinessName:  "Urbanvac Roof and Gutter Pty Ltd.",
		BusinessAddr1: "19 Colchester Ave",
		BusinessAddr2: "Cranbourne West 3977",
		BankLines:     [3]string{"Commbank BSB: 063 250", "A/C Name: Singh", "A/C: 1099 4913"},
	}
}

func TestRenderDrawsAllSections(t *testing.T) {
	rec := &recordingCanvas{}
	r := NewRenderer(testOptions(), func() Canvas { return rec })

	_, err := r.Render(context.Background(), testDocument(2))
	require.NoError(t, err)

	assert.Equal(t, 1, rec.pages)
	for _, want := range []string{
		"INVOICE", "J Smith", "0400 000 000", "3001", "15/07/2024", "15/08/2024",
		"DRAFT", "Urbanvac Roof and Gutter Pty Ltd.", "Commbank BSB: 063 250",
		"Service 1", "Service 2", "$150.00", "$300.00",
		"Subtotal: $520.00", "GST (10%): $52.00", "Total: $572.00",
		"Payment due within 30 days.", "Thank you for your business!",
		"ABN : 50 679 172 948",
	} {
		assert.True(t, rec.has(want), "missing %q", want)
	}
}

func TestRenderQuotationOmitsTaxLine(t *testing.T) {
	rec := &recordingCanvas{}
	r := NewRenderer(testOptions(), func() Canvas { return rec })

	doc := testDocument(1)
	doc.DocumentType = models.TypeQuotation
	doc.Tax = 0
	doc.Total = doc.Subtotal

	_, err := r.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, rec.has("QUOTATION"))
	assert.False(t, rec.has("GST"))
}

func TestRenderPageCountMatchesLayout(t *testing.T) {
	doc := testDocument(40)
	pages, err := Layout(len(doc.Items), true, DefaultMetrics())
	require.NoError(t, err)
	require.Greater(t, len(pages), 1)

	rec := &recordingCanvas{}
	r := NewRenderer(testOptions(), func() Canvas { return rec })
	_, err = r.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, len(pages), rec.pages)
	assert.True(t, rec.has("Service 40"))
}

func TestRenderStatusPrintedAsGiven(t *testing.T) {
	// the renderer does not second-guess lifecycle validity
	rec := &recordingCanvas{}
	r := NewRenderer(testOptions(), func() Canvas { return rec })
	doc := testDocument(1)
	doc.Status = models.StatusCancelled
	_, err := r.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, rec.has("CANCELLED"))
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer(testOptions(), nil) // real gofpdf backend
	doc := testDocument(12)

	first, err := r.Render(context.Background(), doc)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), doc)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(first, []byte("%PDF")))
	assert.True(t, bytes.Equal(first, second), "two renders of the same frozen document must be byte-identical")
}

func TestRenderCancelled(t *testing.T) {
	r := NewRenderer(testOptions(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, testDocument(3))
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, int64(3001), rerr.Number)
}

func TestRenderMaxPageGuard(t *testing.T) {
	opts := testOptions()
	opts.Metrics = DefaultMetrics()
	opts.Metrics.MaxPages = 2
	r := NewRenderer(opts, func() Canvas { return &recordingCanvas{} })

	_, err := r.Render(context.Background(), testDocument(200))
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "layout", rerr.Stage)
	assert.ErrorIs(t, err, ErrTooManyPages)
}
