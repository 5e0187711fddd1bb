package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/urbanvac/invoicing/httpx"
	"github.com/urbanvac/invoicing/internal/models"
	"github.com/urbanvac/invoicing/internal/services"
	"github.com/urbanvac/invoicing/pdf"
	"github.com/urbanvac/invoicing/validation"
)

const maxBodyBytes = 1 << 20

// DocumentHandler exposes the document API. Listing and deletion go straight
// to the DB; everything touching numbering, totals, or rendering goes through
// the service.
type DocumentHandler struct {
	DB    *gorm.DB
	Svc   *services.DocumentService
	Alloc *services.NumberAllocator
}

func NewDocumentHandler(db *gorm.DB, svc *services.DocumentService, alloc *services.NumberAllocator) *DocumentHandler {
	return &DocumentHandler{DB: db, Svc: svc, Alloc: alloc}
}

// NextNumber: GET /api/documents/next-number. Informational preview; the
// actual number is reserved atomically at creation.
func (h *DocumentHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	n, err := h.Alloc.Peek(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_read_counter", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"next_number": n})
}

// Create: POST /api/documents
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateInput
	if err := httpx.DecodeJSON(r, &in, maxBodyBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	doc, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

var unsafeSearch = regexp.MustCompile(`[^a-zA-Z0-9@. \-_]`)

// List: GET /api/documents?status=&type=&q=&page=&limit=
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}

	dbq := h.DB.WithContext(r.Context()).Model(&models.Document{})
	if s := r.URL.Query().Get("status"); s != "" {
		dbq = dbq.Where("status = ?", s)
	}
	if t := r.URL.Query().Get("type"); t != "" {
		dbq = dbq.Where("document_type = ?", t)
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		safe := unsafeSearch.ReplaceAllString(q, "")
		like := "%" + strings.ToLower(safe) + "%"
		cond := h.DB.Where("lower(customer_name) LIKE ?", like).
			Or("lower(customer_email) LIKE ?", like)
		if n, err := strconv.ParseInt(safe, 10, 64); err == nil {
			cond = cond.Or("document_number = ?", n)
		}
		dbq = dbq.Where(cond)
	}

	var total int64
	dbq.Count(&total)
	var docs []models.Document
	if err := dbq.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Order("created_at desc, id desc").Limit(limit).Offset(offset).Find(&docs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_documents", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": docs, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /api/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.Svc.Load(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Update: PUT /api/documents/{id}. Replaces content, recomputes totals,
// keeps the number, then re-renders the stored PDF.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.CreateInput
	if err := httpx.DecodeJSON(r, &in, maxBodyBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	doc, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if _, _, err := h.Svc.RenderPDF(r.Context(), doc.ID); err != nil {
		// document is updated; stale artifact is re-rendered on next download
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Delete: DELETE /api/documents/{id}. The document number is never reused.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	// one transaction for the document and its items; sqlite schemas created
	// by AutoMigrate do not cascade the way the postgres DDL does
	err := h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Document{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("document_id = ?", id).Delete(&models.LineItem{}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_document", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Send: POST /api/documents/{id}/send
func (h *DocumentHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.Svc.Send(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Download: GET /api/documents/{id}/download streams the rendered PDF.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	name, data, err := h.Svc.RenderPDF(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Status: PATCH /api/documents/{id}/status
func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := httpx.DecodeJSON(r, &req, maxBodyBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	doc, err := h.Svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}

// writeServiceError maps the error taxonomy onto status codes: validation
// failures are 400 and never allocated a number; allocation conflicts are
// retryable 503s; render failures are 500s on a possibly-persisted document.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	var rerr *pdf.RenderError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", verr.Violations)
	case errors.Is(err, services.ErrAllocationConflict):
		w.Header().Set("Retry-After", "1")
		httpx.JSONError(w, http.StatusServiceUnavailable, "allocation_conflict", nil)
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.JSONError(w, http.StatusConflict, "invalid_status_transition", nil)
	case errors.As(err, &rerr):
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed",
			map[string]any{"document_number": rerr.Number, "stage": rerr.Stage})
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
