package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/urbanvac/invoicing/internal/mail"
	"github.com/urbanvac/invoicing/internal/models"
	"github.com/urbanvac/invoicing/internal/money"
	"github.com/urbanvac/invoicing/internal/storage"
	"github.com/urbanvac/invoicing/validation"
)

// DocumentRenderer is the slice of the pdf package the service needs.
type DocumentRenderer interface {
	Render(ctx context.Context, doc *models.Document) ([]byte, error)
}

// DocumentService drives the creation flow: validate, allocate the number,
// compute totals, persist, then render, store, and send on demand. The
// document is frozen once the create transaction commits; rendering never
// recomputes anything.
type DocumentService struct {
	db       *gorm.DB
	alloc    *NumberAllocator
	calc     *TotalsCalculator
	renderer DocumentRenderer
	store    storage.Store
	mailer   mail.Sender
	currency string
	timeout  time.Duration
}

func NewDocumentService(db *gorm.DB, alloc *NumberAllocator, calc *TotalsCalculator,
	renderer DocumentRenderer, store storage.Store, mailer mail.Sender,
	currency string, renderTimeout time.Duration) *DocumentService {
	if currency == "" {
		currency = "AUD"
	}
	if renderTimeout <= 0 {
		renderTimeout = 30 * time.Second
	}
	return &DocumentService{
		db: db, alloc: alloc, calc: calc, renderer: renderer,
		store: store, mailer: mailer, currency: currency, timeout: renderTimeout,
	}
}

type ItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   string          `json:"unit_price"` // major units, e.g. "150.00"
}

type CreateInput struct {
	DocumentType string          `json:"document_type"`
	Customer     models.Customer `json:"customer"`
	Items        []ItemInput     `json:"items"`
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      time.Time       `json:"due_date"`
	Currency     string          `json:"currency"`
	Notes        string          `json:"notes"`
}

// buildItems validates input and converts it to line items with derived
// totals. Runs before any number is allocated.
func (s *DocumentService) buildItems(in CreateInput, currency string) ([]models.LineItem, error) {
	v := validation.Violations{}
	if in.DocumentType != "" && !models.ValidType(in.DocumentType) {
		v["document_type"] = "unknown_type"
	}
	validation.Required("customer.name", in.Customer.Name, v)
	validation.Required("customer.phone", in.Customer.Phone, v)
	validation.Required("customer.email", in.Customer.Email, v)
	if _, ok := v["customer.email"]; !ok {
		validation.Email("customer.email", in.Customer.Email, v)
	}
	if len(in.Items) == 0 {
		v["items"] = "at_least_one_item_required"
	}

	items := make([]models.LineItem, 0, len(in.Items))
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		validation.Required(field+".description", it.Description, v)
		validation.NonNegativeDecimal(field+".quantity", it.Quantity, v)
		price, err := money.FromString(it.UnitPrice, currency)
		if errors.Is(err, money.ErrOverflow) {
			v[field+".unit_price"] = "amount_out_of_range"
			continue
		}
		if err != nil {
			v[field+".unit_price"] = "invalid_amount"
			continue
		}
		validation.NonNegativeAmount(field+".unit_price", price.Amount, v)
		item := models.LineItem{
			Position:    i,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   price.Amount,
		}
		lt, err := LineTotal(item, currency)
		if err != nil {
			v[field+".unit_price"] = "amount_out_of_range"
			continue
		}
		item.LineTotal = lt.Amount
		items = append(items, item)
	}
	if err := validation.NewError(v); err != nil {
		return nil, err
	}
	return items, nil
}

// Create runs the full creation flow. The number allocation commits before
// the document insert; if the insert fails the number stays burned (gap), it
// is never rolled back or reissued.
func (s *DocumentService) Create(ctx context.Context, in CreateInput) (*models.Document, error) {
	currency := in.Currency
	if currency == "" {
		currency = s.currency
	}
	items, err := s.buildItems(in, currency)
	if err != nil {
		return nil, err
	}

	number, err := s.alloc.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	docType := in.DocumentType
	if docType == "" {
		docType = models.TypeInvoice
	}
	totals, err := s.calc.Compute(items, docType, currency)
	if err != nil {
		return nil, err
	}

	issue := in.IssueDate
	if issue.IsZero() {
		issue = time.Now()
	}
	due := in.DueDate
	if due.IsZero() {
		due = issue.AddDate(0, 1, 0)
	}

	doc := &models.Document{
		DocumentNumber: number,
		DocumentType:   docType,
		Customer:       in.Customer,
		Items:          items,
		IssueDate:      issue,
		DueDate:        due,
		Currency:       currency,
		Subtotal:       totals.Subtotal.Amount,
		Tax:            totals.Tax.Amount,
		Total:          totals.Total.Amount,
		Status:         models.StatusDraft,
		Notes:          strings.TrimSpace(in.Notes),
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		log.Printf("document %d insert failed, number skipped: %v", number, err)
		return nil, fmt.Errorf("persist document %d: %w", number, err)
	}
	return doc, nil
}

// Update replaces the mutable parts of a document (customer, items, dates,
// notes) and recomputes totals. Number, type, and status are untouched.
func (s *DocumentService) Update(ctx context.Context, id uint, in CreateInput) (*models.Document, error) {
	doc, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	currency := in.Currency
	if currency == "" {
		currency = doc.Currency
	}
	items, err := s.buildItems(in, currency)
	if err != nil {
		return nil, err
	}
	totals, err := s.calc.Compute(items, doc.DocumentType, currency)
	if err != nil {
		return nil, err
	}

	doc.Customer = in.Customer
	doc.Currency = currency
	doc.Subtotal = totals.Subtotal.Amount
	doc.Tax = totals.Tax.Amount
	doc.Total = totals.Total.Amount
	doc.Notes = strings.TrimSpace(in.Notes)
	if !in.IssueDate.IsZero() {
		doc.IssueDate = in.IssueDate
	}
	if !in.DueDate.IsZero() {
		doc.DueDate = in.DueDate
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].DocumentID = doc.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		doc.Items = nil // avoid gorm re-saving associations alongside the row
		if err := tx.Save(doc).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update document %d: %w", doc.DocumentNumber, err)
	}
	doc.Items = items
	return doc, nil
}

// Load fetches a document with its items in entry order.
func (s *DocumentService) Load(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// RenderPDF renders the frozen document under the configured timeout, stores
// the artifact under its canonical file name, and records the path.
func (s *DocumentService) RenderPDF(ctx context.Context, id uint) (string, []byte, error) {
	doc, err := s.Load(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return s.renderAndStore(ctx, doc)
}

func (s *DocumentService) renderAndStore(ctx context.Context, doc *models.Document) (string, []byte, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	data, err := s.renderer.Render(rctx, doc)
	if err != nil {
		return "", nil, err
	}
	name := doc.FileName()
	path, err := s.store.Put(ctx, name, data)
	if err != nil {
		return "", nil, fmt.Errorf("store %s: %w", name, err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", doc.ID).Update("pdf_path", path).Error; err != nil {
		return "", nil, fmt.Errorf("record pdf path for %d: %w", doc.DocumentNumber, err)
	}
	doc.PDFPath = path
	return name, data, nil
}

// Send renders the document and hands it to the mail collaborator, then marks
// it sent (draft documents advance to "sent").
func (s *DocumentService) Send(ctx context.Context, id uint) (*models.Document, error) {
	doc, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	name, data, err := s.renderAndStore(ctx, doc)
	if err != nil {
		return nil, err
	}
	subject := fmt.Sprintf("%s %d", models.TitleFor(doc.DocumentType), doc.DocumentNumber)
	msg := mail.Message{
		To:             doc.Customer.Email,
		Subject:        subject,
		Body:           fmt.Sprintf("Please find attached %s.", name),
		AttachmentName: name,
		Attachment:     data,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send document %d: %w", doc.DocumentNumber, err)
	}

	now := time.Now()
	updates := map[string]any{"email_sent": true, "email_sent_at": now}
	if doc.Status == models.StatusDraft {
		updates["status"] = models.StatusSent
		doc.Status = models.StatusSent
	}
	if err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	doc.EmailSent = true
	doc.EmailSentAt = &now
	return doc, nil
}

// UpdateStatus enforces the lifecycle table; paid and cancelled are terminal.
func (s *DocumentService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Document, error) {
	if !models.ValidStatus(status) {
		return nil, validation.NewError(validation.Violations{"status": "unknown_status"})
	}
	doc, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(doc.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, status)
	}
	if doc.Status != status {
		if err := s.db.WithContext(ctx).Model(&models.Document{}).
			Where("id = ?", doc.ID).Update("status", status).Error; err != nil {
			return nil, err
		}
		doc.Status = status
	}
	return doc, nil
}

// NotFound reports whether err is the persistence layer's missing-record error.
func NotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
