package library

import (
	"slices"
	"time"
)

const (
	// DefaultBorrowLimit is the number of books a member may hold at once.
	DefaultBorrowLimit = 5
	// DefaultLoanDays is the loan period granted on borrow.
	DefaultLoanDays = 14
)

// Book is a physical copy on the library's shelves.
// LoanedTo is empty while the book is available; DueDate is set iff LoanedTo is.
// ReservationQueue holds member ids in priority order (earliest first).
type Book struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	LoanedTo         string     `json:"loaned_to,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	ReservationQueue []string   `json:"reservation_queue"`
}

// Member represents a registered library member.
// Loaned and reserved books are not stored on the member; they are derived
// from the books that reference it.
type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"` // Don't serialize password hash
}

// Available reports whether nobody currently holds the book.
func (b *Book) Available() bool { return b.LoanedTo == "" }

// QueuePosition returns the zero-based position of memberID in the queue, or -1.
func (b *Book) QueuePosition(memberID string) int {
	return slices.Index(b.ReservationQueue, memberID)
}

func (b *Book) enqueue(memberID string) {
	b.ReservationQueue = append(b.ReservationQueue, memberID)
}

// dequeue removes the first occurrence of memberID and reports whether it was present.
func (b *Book) dequeue(memberID string) bool {
	i := b.QueuePosition(memberID)
	if i < 0 {
		return false
	}
	b.ReservationQueue = slices.Delete(b.ReservationQueue, i, i+1)
	return true
}

func (b *Book) clearLoan() {
	b.LoanedTo = ""
	b.DueDate = nil
}

func (b *Book) clone() *Book {
	c := *b
	if b.DueDate != nil {
		d := *b.DueDate
		c.DueDate = &d
	}
	c.ReservationQueue = slices.Clone(b.ReservationQueue)
	if c.ReservationQueue == nil {
		c.ReservationQueue = []string{}
	}
	return &c
}

func (m *Member) clone() *Member {
	c := *m
	return &c
}

// Reason is the symbolic failure code carried by a failed result.
type Reason string

const (
	ReasonBookNotFound         Reason = "BOOK_NOT_FOUND"
	ReasonMemberNotFound       Reason = "MEMBER_NOT_FOUND"
	ReasonBorrowLimit          Reason = "BORROW_LIMIT"
	ReasonBookBorrowed         Reason = "BOOK_BORROWED"
	ReasonDuplicateReservation Reason = "DUPLICATE_RESERVATION"
	ReasonNotReserved          Reason = "NOT_RESERVED"
	ReasonInvalidExtension     Reason = "INVALID_EXTENSION"
	ReasonNotLoaned            Reason = "NOT_LOANED"
	ReasonInvalidRequest       Reason = "INVALID_REQUEST"
)

// Result is the outcome of a lending or administrative operation.
type Result struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
}

func success() Result { return Result{OK: true} }

func failure(r Reason) Result { return Result{Reason: r} }

// ReturnResult is the outcome of a return. Failures carry no reason.
// NextMemberID is the member the book was handed to, if any.
type ReturnResult struct {
	OK           bool   `json:"ok"`
	NextMemberID string `json:"next_member_id,omitempty"`
}

// ReservationPosition is a member's zero-based place in one book's queue.
type ReservationPosition struct {
	BookID   string `json:"book_id"`
	Position int    `json:"position"`
}

// MemberSummary lists what a member currently holds and waits for.
type MemberSummary struct {
	OK           bool                  `json:"ok"`
	Reason       Reason                `json:"reason,omitempty"`
	Loans        []*Book               `json:"loans"`
	Reservations []ReservationPosition `json:"reservations"`
}

// SearchFilter narrows Search results. Zero-valued fields are ignored.
type SearchFilter struct {
	TitleContains string
	AvailableOnly *bool
	LoanedTo      string
}
