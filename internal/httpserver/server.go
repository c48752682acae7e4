package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/invoiceflow/invoice-validator/constants"
	"github.com/invoiceflow/invoice-validator/internal/common"
	"github.com/invoiceflow/invoice-validator/internal/export"
	"github.com/invoiceflow/invoice-validator/internal/repository"
	"github.com/invoiceflow/invoice-validator/internal/validation"
)

// Server exposes the validation pipeline over HTTP.
type Server struct {
	validator *validation.Service
	exporter  *export.Service
	store     repository.DocumentStore
	health    func(context.Context) error
	logger    *slog.Logger

	validateTimeout time.Duration
}

type Option func(*Server)

// WithHealthCheck wires a backend liveness probe into /healthz.
func WithHealthCheck(fn func(context.Context) error) Option {
	return func(s *Server) { s.health = fn }
}

// WithValidateTimeout caps how long one validation request may run.
func WithValidateTimeout(d time.Duration) Option {
	return func(s *Server) { s.validateTimeout = d }
}

func New(validator *validation.Service, exporter *export.Service, store repository.DocumentStore, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		validator:       validator,
		exporter:        exporter,
		store:           store,
		logger:          logger,
		validateTimeout: 2 * time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/v1/validate", s.handleValidate)
	mux.HandleFunc("GET /api/v1/invoices", s.handleListInvoices)
	mux.HandleFunc("GET /api/v1/invoices/{name}", s.handleGetInvoice)
	mux.HandleFunc("GET /api/v1/export/validation.xlsx", s.handleExport)
	return s.withRequestLog(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type validateRequest struct {
	Doctype string `json:"doctype"`
	Name    string `json:"name"`
}

type validateResponse struct {
	Doctype string             `json:"doctype"`
	Name    string             `json:"name"`
	Result  *validation.Result `json:"result"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	if req.Doctype == "" {
		req.Doctype = constants.DoctypeLieferandoInvoice
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.validateTimeout)
	defer cancel()

	res, err := s.validator.Validate(ctx, req.Doctype, req.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Doctype: req.Doctype, Name: req.Name, Result: res})
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	doctype := r.URL.Query().Get("doctype")
	if doctype == "" {
		doctype = constants.DoctypeLieferandoInvoice
	}
	names, err := s.store.List(r.Context(), doctype)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctype": doctype, "names": names})
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	doctype := r.URL.Query().Get("doctype")
	if doctype == "" {
		doctype = constants.DoctypeLieferandoInvoice
	}
	doc, err := s.store.Get(r.Context(), doctype, r.PathValue("name"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doctype := r.URL.Query().Get("doctype")
	if doctype == "" {
		doctype = constants.DoctypeLieferandoInvoice
	}
	data, err := s.exporter.ExportValidationXLSX(r.Context(), doctype)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="validation-report.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("http.request",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrMissingReferenceText):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
