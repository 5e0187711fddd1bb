package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Document types
const (
	TypeInvoice     = "invoice"
	TypeQuotation   = "quotation"
	TypeCashReceipt = "cash_receipt"
)

// Document statuses
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusPaid      = "paid"
	StatusOverdue   = "overdue"
	StatusCancelled = "cancelled"
)

// ValidType reports whether t is a known document type.
func ValidType(t string) bool {
	return t == TypeInvoice || t == TypeQuotation || t == TypeCashReceipt
}

func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// transitions encodes the document lifecycle: draft → sent → paid, with
// draft → cancelled and sent → overdue also legal. paid and cancelled are
// terminal.
var transitions = map[string][]string{
	StatusDraft:   {StatusSent, StatusCancelled},
	StatusSent:    {StatusPaid, StatusOverdue, StatusCancelled},
	StatusOverdue: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether moving a document from one status to another
// is legal. Same-status writes are allowed (idempotent updates).
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TitleFor maps a document type to the heading printed on the PDF.
func TitleFor(docType string) string {
	switch docType {
	case TypeQuotation:
		return "QUOTATION"
	case TypeCashReceipt:
		return "CASH RECEIPT"
	default:
		return "INVOICE"
	}
}

// PrefixFor maps a document type to the file-name prefix, e.g. INV-3001.pdf.
func PrefixFor(docType string) string {
	switch docType {
	case TypeQuotation:
		return "QUO"
	case TypeCashReceipt:
		return "REC"
	default:
		return "INV"
	}
}

// FileName is the artifact naming convention, e.g. INV-3001.pdf.
func (d *Document) FileName() string {
	return fmt.Sprintf("%s-%d.pdf", PrefixFor(d.DocumentType), d.DocumentNumber)
}

// Customer is embedded in Document; the record keeps its own copy of the
// contact details as they were at creation time.
type Customer struct {
	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"not null;index" json:"email"`
	Phone   string `gorm:"not null" json:"phone"`
	Address string `json:"address"`
}

// Document is an invoice, quotation, or cash receipt. Number and monetary
// totals are assigned at creation and never recomputed afterwards.
type Document struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	DocumentNumber int64      `gorm:"uniqueIndex;not null" json:"document_number"`
	DocumentType   string     `gorm:"not null;default:'invoice';index" json:"document_type"`
	Customer       Customer   `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	Items          []LineItem `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"items"`
	IssueDate      time.Time  `gorm:"not null" json:"issue_date"`
	DueDate        time.Time  `gorm:"not null" json:"due_date"`
	Currency       string     `gorm:"not null;default:'AUD'" json:"currency"`
	// Totals in minor units, frozen at creation.
	Subtotal    int64      `gorm:"not null" json:"subtotal"`
	Tax         int64      `gorm:"not null" json:"tax"`
	Total       int64      `gorm:"not null" json:"total"`
	Status      string     `gorm:"not null;default:'draft';index" json:"status"`
	Notes       string     `json:"notes"`
	PDFPath     string     `json:"pdf_path,omitempty"`
	EmailSent   bool       `gorm:"not null;default:false" json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// LineItem is one row of a document. LineTotal is derived from
// Quantity × UnitPrice; it is stored for querying but recomputed on every
// write path and never accepted from input.
type LineItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	DocumentID  uint            `gorm:"not null;index" json:"-"`
	Position    int             `gorm:"not null" json:"-"` // preserves item order
	Description string          `gorm:"not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"quantity"`
	UnitPrice   int64           `gorm:"not null" json:"unit_price"` // minor units
	LineTotal   int64           `gorm:"not null" json:"line_total"` // minor units, derived
}
