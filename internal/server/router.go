package server

import (
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/urbanvac/invoicing/httpx"
	"github.com/urbanvac/invoicing/internal/config"
	"github.com/urbanvac/invoicing/internal/handlers"
	"github.com/urbanvac/invoicing/internal/mail"
	"github.com/urbanvac/invoicing/internal/services"
	"github.com/urbanvac/invoicing/internal/storage"
	"github.com/urbanvac/invoicing/pdf"
)

// New constructs the root http.Handler with the core wired together:
// allocator, totals calculator, renderer, storage, and mail collaborators.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		log.Printf("invalid TAX_RATE %q, using 0.10", cfg.TaxRate)
		taxRate = decimal.New(10, -2)
	}

	metrics := pdf.DefaultMetrics()
	metrics.RepeatHeader = cfg.RepeatHeader
	metrics.MaxPages = cfg.MaxPages
	renderer := pdf.NewRenderer(pdf.Options{
		Metrics:       metrics,
		AssetsDir:     cfg.AssetsDir,
		FooterABN:     cfg.FooterABN,
		TaxLabel:      taxLabel(taxRate),
		BusinessName:  cfg.BusinessName,
		BusinessAddr1: cfg.BusinessAddr1,
		BusinessAddr2: cfg.BusinessAddr2,
		BankLines:     cfg.BankLines,
	}, nil)

	alloc := services.NewNumberAllocator(db, cfg.StartNumber, cfg.AllocRetries)
	calc := services.NewTotalsCalculator(taxRate)
	svc := services.NewDocumentService(db, alloc, calc, renderer,
		storage.NewDir(cfg.StorageDir), mail.LogSender{}, cfg.Currency, cfg.RenderTimeout)

	return Routes(db, svc, alloc)
}

// Routes wires handlers onto a mux; split from New so tests can inject their
// own service wiring.
func Routes(db *gorm.DB, svc *services.DocumentService, alloc *services.NumberAllocator) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	dh := handlers.NewDocumentHandler(db, svc, alloc)
	mux.HandleFunc("GET /api/documents/next-number", dh.NextNumber)
	mux.HandleFunc("GET /api/documents", dh.List)
	mux.HandleFunc("POST /api/documents", dh.Create)
	mux.HandleFunc("GET /api/documents/{id}", dh.Get)
	mux.HandleFunc("PUT /api/documents/{id}", dh.Update)
	mux.HandleFunc("DELETE /api/documents/{id}", dh.Delete)
	mux.HandleFunc("POST /api/documents/{id}/send", dh.Send)
	mux.HandleFunc("GET /api/documents/{id}/download", dh.Download)
	mux.HandleFunc("PATCH /api/documents/{id}/status", dh.Status)

	return withRecover(withLogging(mux))
}

func taxLabel(rate decimal.Decimal) string {
	return "GST (" + rate.Shift(2).String() + "%)"
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
