// Package api exposes the lending operations over HTTP.
//
// Business outcomes are always answered with 200 and a JSON result carrying
// "ok" and, on failure, "reason". Malformed requests get 400 and storage
// failures 500.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"library-lending/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Lending is the set of operations the HTTP layer adapts.
type Lending interface {
	Borrow(bookID, memberID string) (library.Result, error)
	Return(bookID, memberID string) (library.ReturnResult, error)
	Reserve(bookID, memberID string) (library.Result, error)
	CancelReservation(bookID, memberID string) (library.Result, error)
	ExtendLoan(bookID string, days int) (library.Result, error)
	Search(f library.SearchFilter) ([]*library.Book, error)
	OverdueBooks(asOf time.Time) ([]*library.Book, error)
	MemberSummary(memberID string) (library.MemberSummary, error)
	FindBook(id string) (*library.Book, bool, error)
	AllMembers() ([]*library.Member, error)
	CreateBook(id, title string) (library.Result, error)
	UpdateBook(id, title string) (library.Result, error)
	DeleteBook(id string) (library.Result, error)
	CreateMember(id, name string) (library.Result, error)
	UpdateMember(id, name string) (library.Result, error)
	DeleteMember(id string) (library.Result, error)
}

// Handler serves the lending API.
type Handler struct {
	lending  Lending
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler builds a Handler. A nil logger falls back to slog.Default.
func NewHandler(lending Lending, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{lending: lending, log: log, validate: validator.New(), now: time.Now}
}

// NewRouter mounts every route of h.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/books", func(r chi.Router) {
		r.Get("/", h.SearchBooks)
		r.Post("/", h.CreateBook)
		r.Get("/overdue", h.OverdueBooks)
		r.Get("/{id}", h.GetBook)
		r.Put("/{id}", h.UpdateBook)
		r.Delete("/{id}", h.DeleteBook)
	})
	r.Route("/members", func(r chi.Router) {
		r.Get("/", h.ListMembers)
		r.Post("/", h.CreateMember)
		r.Put("/{id}", h.UpdateMember)
		r.Delete("/{id}", h.DeleteMember)
		r.Get("/{id}/summary", h.MemberSummary)
	})
	r.Route("/loans", func(r chi.Router) {
		r.Post("/borrow", h.Borrow)
		r.Post("/return", h.Return)
		r.Post("/extend", h.ExtendLoan)
	})
	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", h.Reserve)
		r.Post("/cancel", h.CancelReservation)
	})
	return r
}

// respondJSON writes data with the given status.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode JSON response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		h.respondJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}
	h.respondJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON body into v. It reports false after answering the
// request itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	return h.decodeOr(w, r, v, library.Result{Reason: library.ReasonInvalidRequest})
}

// decodeOr is decode with the body sent when v fails validation.
func (h *Handler) decodeOr(w http.ResponseWriter, r *http.Request, v, invalid any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		h.log.Debug("invalid request", "path", r.URL.Path, "error", err)
		h.respondJSON(w, http.StatusOK, invalid)
		return false
	}
	return true
}
