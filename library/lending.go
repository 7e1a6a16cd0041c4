package library

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Policy holds the lending limits. Lowering BorrowLimit does not touch
// existing loans; members above it simply cannot borrow until they return.
type Policy struct {
	BorrowLimit int
	LoanDays    int
}

// DefaultPolicy is five books for fourteen days.
var DefaultPolicy = Policy{BorrowLimit: DefaultBorrowLimit, LoanDays: DefaultLoanDays}

// Option configures a LendingService.
type Option func(*LendingService)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option { return func(s *LendingService) { s.policy = p } }

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option { return func(s *LendingService) { s.now = now } }

// WithLogger sets the logger used for state changes.
func WithLogger(l *slog.Logger) Option { return func(s *LendingService) { s.log = l } }

// LendingService implements borrowing, returns, reservations and the
// cascades triggered by deleting books or members. Every operation reads what
// it needs from the repositories, mutates in memory and saves only the records
// it changed. Expected business failures are reported in the result; the
// error return is reserved for storage failures.
type LendingService struct {
	books   BookRepository
	members MemberRepository
	policy  Policy
	now     func() time.Time
	log     *slog.Logger
}

// NewLendingService wires the service to its repositories.
func NewLendingService(books BookRepository, members MemberRepository, opts ...Option) *LendingService {
	s := &LendingService{
		books:   books,
		members: members,
		policy:  DefaultPolicy,
		now:     time.Now,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// today is the current calendar date at midnight UTC.
func (s *LendingService) today() time.Time {
	return dateOf(s.now())
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *LendingService) defaultDueDate() time.Time {
	return s.today().AddDate(0, 0, s.policy.LoanDays)
}

func (s *LendingService) findBook(id string) (*Book, bool, error) {
	b, err := s.books.FindByID(id)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find book %s: %w", id, err)
	}
	return b, true, nil
}

func (s *LendingService) findMember(id string) (*Member, bool, error) {
	m, err := s.members.FindByID(id)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find member %s: %w", id, err)
	}
	return m, true, nil
}

// loanCounts maps member ids to the number of books they hold.
func loanCounts(books []*Book) map[string]int {
	counts := make(map[string]int)
	for _, b := range books {
		if !b.Available() {
			counts[b.LoanedTo]++
		}
	}
	return counts
}

func (s *LendingService) allBooks() ([]*Book, error) {
	books, err := s.books.FindAll()
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// LoanedBooks returns the books currently loaned to memberID.
func (s *LendingService) LoanedBooks(memberID string) ([]*Book, error) {
	books, err := s.allBooks()
	if err != nil {
		return nil, err
	}
	var loaned []*Book
	for _, b := range books {
		if b.LoanedTo == memberID {
			loaned = append(loaned, b)
		}
	}
	return loaned, nil
}

// CanBorrow reports whether the member exists and holds fewer books than the
// borrow limit. An unknown member is not eligible.
func (s *LendingService) CanBorrow(memberID string) (bool, error) {
	m, ok, err := s.findMember(memberID)
	if err != nil || !ok {
		return false, err
	}
	return s.CanMemberBorrow(m)
}

// CanMemberBorrow is CanBorrow for an already resolved member. A nil member is
// not eligible.
func (s *LendingService) CanMemberBorrow(m *Member) (bool, error) {
	if m == nil {
		return false, nil
	}
	loaned, err := s.LoanedBooks(m.ID)
	if err != nil {
		return false, err
	}
	return len(loaned) < s.policy.BorrowLimit, nil
}

// nextEligible walks the queue in order and returns the first member that
// still exists and is under the borrow limit according to counts. Ineligible
// entries are skipped but left in place. skip excludes one member id.
func (s *LendingService) nextEligible(b *Book, counts map[string]int, skip string) (string, error) {
	for _, id := range b.ReservationQueue {
		if id == skip {
			continue
		}
		_, ok, err := s.findMember(id)
		if err != nil {
			return "", err
		}
		if ok && counts[id] < s.policy.BorrowLimit {
			return id, nil
		}
	}
	return "", nil
}

// handOver gives b to the first eligible queued member, or frees it when
// there is none. The promoted member leaves the queue; the due date is kept
// until the new holder extends it.
func (s *LendingService) handOver(b *Book, counts map[string]int, skip string) (string, error) {
	next, err := s.nextEligible(b, counts, skip)
	if err != nil {
		return "", err
	}
	if next == "" {
		b.clearLoan()
		return "", nil
	}
	b.LoanedTo = next
	b.dequeue(next)
	counts[next]++
	return next, nil
}

// Borrow lends bookID to memberID for the policy's loan period.
//
// Checks run in a fixed order and the first failure wins: book exists, member
// exists, member is under the borrow limit, book is not lent out. A member at
// the limit therefore sees BORROW_LIMIT even when the book is already lent.
func (s *LendingService) Borrow(bookID, memberID string) (Result, error) {
	book, bookOK, err := s.findBook(bookID)
	if err != nil {
		return Result{}, err
	}
	member, memberOK, err := s.findMember(memberID)
	if err != nil {
		return Result{}, err
	}
	if !bookOK {
		return failure(ReasonBookNotFound), nil
	}
	if !memberOK {
		return failure(ReasonMemberNotFound), nil
	}
	eligible, err := s.CanBorrow(memberID)
	if err != nil {
		return Result{}, err
	}
	if !eligible {
		s.log.Debug("borrow refused", "book_id", bookID, "member_id", memberID, "reason", ReasonBorrowLimit)
		return failure(ReasonBorrowLimit), nil
	}
	if !book.Available() {
		s.log.Debug("borrow refused", "book_id", bookID, "member_id", memberID, "reason", ReasonBookBorrowed)
		return failure(ReasonBookBorrowed), nil
	}

	due := s.defaultDueDate()
	book.LoanedTo = member.ID
	book.DueDate = &due
	// A holder is never also waiting for the same book.
	book.dequeue(member.ID)
	if err := s.books.Save(book); err != nil {
		return Result{}, fmt.Errorf("save book %s: %w", bookID, err)
	}
	s.log.Info("book borrowed", "book_id", bookID, "member_id", memberID, "due_date", due.Format(time.DateOnly))
	return success(), nil
}

// Return takes bookID back from memberID and hands it to the first eligible
// member in its reservation queue. Unknown book, unknown member and a caller
// who is not the holder all produce the same bare failure.
func (s *LendingService) Return(bookID, memberID string) (ReturnResult, error) {
	book, bookOK, err := s.findBook(bookID)
	if err != nil {
		return ReturnResult{}, err
	}
	_, memberOK, err := s.findMember(memberID)
	if err != nil {
		return ReturnResult{}, err
	}
	if !bookOK || !memberOK || book.Available() || book.LoanedTo != memberID {
		return ReturnResult{}, nil
	}

	books, err := s.allBooks()
	if err != nil {
		return ReturnResult{}, err
	}
	next, err := s.handOver(book, loanCounts(books), memberID)
	if err != nil {
		return ReturnResult{}, err
	}
	if err := s.books.Save(book); err != nil {
		return ReturnResult{}, fmt.Errorf("save book %s: %w", bookID, err)
	}
	s.log.Info("book returned", "book_id", bookID, "member_id", memberID, "next_member_id", next)
	return ReturnResult{OK: true, NextMemberID: next}, nil
}

// Reserve puts memberID in bookID's queue. An available book with nobody
// waiting is borrowed straight away when the member is eligible.
func (s *LendingService) Reserve(bookID, memberID string) (Result, error) {
	book, bookOK, err := s.findBook(bookID)
	if err != nil {
		return Result{}, err
	}
	member, memberOK, err := s.findMember(memberID)
	if err != nil {
		return Result{}, err
	}
	if !bookOK {
		return failure(ReasonBookNotFound), nil
	}
	if !memberOK {
		return failure(ReasonMemberNotFound), nil
	}

	if len(book.ReservationQueue) == 0 && book.Available() {
		eligible, err := s.CanMemberBorrow(member)
		if err != nil {
			return Result{}, err
		}
		if eligible {
			return s.Borrow(bookID, memberID)
		}
	}

	if book.LoanedTo == memberID || book.QueuePosition(memberID) >= 0 {
		return failure(ReasonDuplicateReservation), nil
	}
	book.enqueue(memberID)
	if err := s.books.Save(book); err != nil {
		return Result{}, fmt.Errorf("save book %s: %w", bookID, err)
	}
	s.log.Info("book reserved", "book_id", bookID, "member_id", memberID, "position", len(book.ReservationQueue)-1)
	return success(), nil
}

// CancelReservation removes memberID from bookID's queue.
func (s *LendingService) CancelReservation(bookID, memberID string) (Result, error) {
	book, bookOK, err := s.findBook(bookID)
	if err != nil {
		return Result{}, err
	}
	_, memberOK, err := s.findMember(memberID)
	if err != nil {
		return Result{}, err
	}
	if !bookOK {
		return failure(ReasonBookNotFound), nil
	}
	if !memberOK {
		return failure(ReasonMemberNotFound), nil
	}
	if !book.dequeue(memberID) {
		return failure(ReasonNotReserved), nil
	}
	if err := s.books.Save(book); err != nil {
		return Result{}, fmt.Errorf("save book %s: %w", bookID, err)
	}
	s.log.Info("reservation cancelled", "book_id", bookID, "member_id", memberID)
	return success(), nil
}

// ExtendLoan moves the due date by days, which may be negative. A loan without
// a due date is extended from the default due date.
func (s *LendingService) ExtendLoan(bookID string, days int) (Result, error) {
	if days == 0 {
		return failure(ReasonInvalidExtension), nil
	}
	book, ok, err := s.findBook(bookID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return failure(ReasonBookNotFound), nil
	}
	if book.Available() {
		return failure(ReasonNotLoaned), nil
	}

	base := s.defaultDueDate()
	if book.DueDate != nil {
		base = *book.DueDate
	}
	due := base.AddDate(0, 0, days)
	book.DueDate = &due
	if err := s.books.Save(book); err != nil {
		return Result{}, fmt.Errorf("save book %s: %w", bookID, err)
	}
	s.log.Info("loan extended", "book_id", bookID, "days", days, "due_date", due.Format(time.DateOnly))
	return success(), nil
}

// Search returns the books matching every set field of f.
func (s *LendingService) Search(f SearchFilter) ([]*Book, error) {
	books, err := s.allBooks()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(f.TitleContains)
	matches := []*Book{}
	for _, b := range books {
		if needle != "" && !strings.Contains(strings.ToLower(b.Title), needle) {
			continue
		}
		// An available book never matches a holder filter.
		if f.LoanedTo != "" && (b.Available() || b.LoanedTo != f.LoanedTo) {
			continue
		}
		if f.AvailableOnly != nil && *f.AvailableOnly != b.Available() {
			continue
		}
		matches = append(matches, b)
	}
	return matches, nil
}

// OverdueBooks returns loaned books whose due date falls before asOf's date.
func (s *LendingService) OverdueBooks(asOf time.Time) ([]*Book, error) {
	books, err := s.allBooks()
	if err != nil {
		return nil, err
	}
	day := dateOf(asOf)
	overdue := []*Book{}
	for _, b := range books {
		if !b.Available() && b.DueDate != nil && b.DueDate.Before(day) {
			overdue = append(overdue, b)
		}
	}
	return overdue, nil
}

// MemberSummary lists the member's loans and their position in every queue
// they are waiting in.
func (s *LendingService) MemberSummary(memberID string) (MemberSummary, error) {
	_, ok, err := s.findMember(memberID)
	if err != nil {
		return MemberSummary{}, err
	}
	if !ok {
		return MemberSummary{Reason: ReasonMemberNotFound, Loans: []*Book{}, Reservations: []ReservationPosition{}}, nil
	}
	books, err := s.allBooks()
	if err != nil {
		return MemberSummary{}, err
	}
	summary := MemberSummary{OK: true, Loans: []*Book{}, Reservations: []ReservationPosition{}}
	for _, b := range books {
		if b.LoanedTo == memberID {
			summary.Loans = append(summary.Loans, b)
		}
		if pos := b.QueuePosition(memberID); pos >= 0 {
			summary.Reservations = append(summary.Reservations, ReservationPosition{BookID: b.ID, Position: pos})
		}
	}
	return summary, nil
}

// FindBook looks a book up by id.
func (s *LendingService) FindBook(id string) (*Book, bool, error) { return s.findBook(id) }

// FindMember looks a member up by id.
func (s *LendingService) FindMember(id string) (*Member, bool, error) { return s.findMember(id) }

// AllBooks lists every book.
func (s *LendingService) AllBooks() ([]*Book, error) { return s.allBooks() }

// AllMembers lists every member.
func (s *LendingService) AllMembers() ([]*Member, error) {
	members, err := s.members.FindAll()
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// CreateBook registers a book. An existing id only has its title replaced.
func (s *LendingService) CreateBook(id, title string) (Result, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(title) == "" {
		return failure(ReasonInvalidRequest), nil
	}
	book, ok, err := s.findBook(id)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		book = &Book{ID: id, ReservationQueue: []string{}}
	}
	book.Title = title
	if err := s.books.Save(book); err != nil {
		return Result{}, fmt.Errorf("save book %s: %w", id, err)
	}
	s.log.Info("book created", "book_id", id)
	return success(), nil
}

// UpdateBook replaces a book's title.
func (s *LendingService) UpdateBook(id, title string) (Result, error) {
	book, ok, err := s.findBook(id)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return failure(ReasonBookNotFound), nil
	}
	if strings.TrimSpace(title) == "" {
		return failure(ReasonInvalidRequest), nil
	}
	book.Title = title
	if err := s.books.Save(book); err != nil {
		return Result{}, fmt.Errorf("save book %s: %w", id, err)
	}
	return success(), nil
}

// DeleteBook removes a book. Its loan and queue go with it.
func (s *LendingService) DeleteBook(id string) (Result, error) {
	book, ok, err := s.findBook(id)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return failure(ReasonBookNotFound), nil
	}
	if err := s.books.Delete(book); err != nil {
		return Result{}, fmt.Errorf("delete book %s: %w", id, err)
	}
	s.log.Info("book deleted", "book_id", id, "loaned_to", book.LoanedTo, "queued", len(book.ReservationQueue))
	return success(), nil
}

// CreateMember registers a member. An existing id only has its name replaced.
func (s *LendingService) CreateMember(id, name string) (Result, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
		return failure(ReasonInvalidRequest), nil
	}
	member, ok, err := s.findMember(id)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		member = &Member{ID: id}
	}
	member.Name = name
	if err := s.members.Save(member); err != nil {
		return Result{}, fmt.Errorf("save member %s: %w", id, err)
	}
	s.log.Info("member created", "member_id", id)
	return success(), nil
}

// UpdateMember replaces a member's name.
func (s *LendingService) UpdateMember(id, name string) (Result, error) {
	member, ok, err := s.findMember(id)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return failure(ReasonMemberNotFound), nil
	}
	if strings.TrimSpace(name) == "" {
		return failure(ReasonInvalidRequest), nil
	}
	member.Name = name
	if err := s.members.Save(member); err != nil {
		return Result{}, fmt.Errorf("save member %s: %w", id, err)
	}
	return success(), nil
}

// DeleteMember hands every book the member holds to the next eligible member
// in that book's queue, drops the member from all other queues and then
// deletes the member record. Books are saved one at a time; a failed save
// leaves earlier handovers in place and the member undeleted.
func (s *LendingService) DeleteMember(id string) (Result, error) {
	member, ok, err := s.findMember(id)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return failure(ReasonMemberNotFound), nil
	}
	books, err := s.allBooks()
	if err != nil {
		return Result{}, err
	}

	counts := loanCounts(books)
	for _, b := range books {
		held := b.LoanedTo == id
		queued := b.dequeue(id)
		if !held && !queued {
			continue
		}
		if held {
			next, err := s.handOver(b, counts, id)
			if err != nil {
				return Result{}, err
			}
			s.log.Info("loan reassigned", "book_id", b.ID, "from_member_id", id, "next_member_id", next)
		}
		if err := s.books.Save(b); err != nil {
			return Result{}, fmt.Errorf("save book %s: %w", b.ID, err)
		}
	}

	if err := s.members.Delete(member); err != nil {
		return Result{}, fmt.Errorf("delete member %s: %w", id, err)
	}
	s.log.Info("member deleted", "member_id", id)
	return success(), nil
}
