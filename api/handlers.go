package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"library-lending/library"
)

type bookRequest struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
}

type memberRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

type renameRequest struct {
	Title string `json:"title"`
	Name  string `json:"name"`
}

type loanRequest struct {
	BookID   string `json:"book_id" validate:"required"`
	MemberID string `json:"member_id" validate:"required"`
}

type extendRequest struct {
	BookID string `json:"book_id" validate:"required"`
	Days   int    `json:"days"`
}

// result answers with a business result or a 500 for storage errors.
func (h *Handler) result(w http.ResponseWriter, r *http.Request, res any, err error) {
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// ------------------ Books ------------------

// SearchBooks handles GET /books?title=&available=&loaned_to=.
func (h *Handler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := library.SearchFilter{TitleContains: q.Get("title"), LoanedTo: q.Get("loaned_to")}
	if raw := q.Get("available"); raw != "" {
		avail, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, fmt.Errorf("invalid available filter %q", raw))
			return
		}
		f.AvailableOnly = &avail
	}
	books, err := h.lending.Search(f)
	h.result(w, r, books, err)
}

// OverdueBooks handles GET /books/overdue?as_of=YYYY-MM-DD (default today).
func (h *Handler) OverdueBooks(w http.ResponseWriter, r *http.Request) {
	asOf := h.now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, fmt.Errorf("invalid as_of date %q", raw))
			return
		}
		asOf = parsed
	}
	books, err := h.lending.OverdueBooks(asOf)
	h.result(w, r, books, err)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, ok, err := h.lending.FindBook(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		h.respondJSON(w, http.StatusNotFound, library.Result{Reason: library.ReasonBookNotFound})
		return
	}
	h.respondJSON(w, http.StatusOK, book)
}

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.lending.CreateBook(req.ID, req.Title)
	h.result(w, r, res, err)
}

func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.lending.UpdateBook(chi.URLParam(r, "id"), req.Title)
	h.result(w, r, res, err)
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	res, err := h.lending.DeleteBook(chi.URLParam(r, "id"))
	h.result(w, r, res, err)
}

// ------------------ Members ------------------

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.lending.AllMembers()
	if members == nil {
		members = []*library.Member{}
	}
	h.result(w, r, members, err)
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.lending.CreateMember(req.ID, req.Name)
	h.result(w, r, res, err)
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.lending.UpdateMember(chi.URLParam(r, "id"), req.Name)
	h.result(w, r, res, err)
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	res, err := h.lending.DeleteMember(chi.URLParam(r, "id"))
	h.result(w, r, res, err)
}

func (h *Handler) MemberSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.lending.MemberSummary(chi.URLParam(r, "id"))
	h.result(w, r, sum, err)
}

// ------------------ Circulation ------------------

func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.lending.Borrow(req.BookID, req.MemberID)
	h.result(w, r, res, err)
}

// Return failures carry no reason, not even for a malformed request.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if !h.decodeOr(w, r, &req, library.ReturnResult{}) {
		return
	}
	res, err := h.lending.Return(req.BookID, req.MemberID)
	h.result(w, r, res, err)
}

func (h *Handler) ExtendLoan(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.lending.ExtendLoan(req.BookID, req.Days)
	h.result(w, r, res, err)
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.lending.Reserve(req.BookID, req.MemberID)
	h.result(w, r, res, err)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.lending.CancelReservation(req.BookID, req.MemberID)
	h.result(w, r, res, err)
}
