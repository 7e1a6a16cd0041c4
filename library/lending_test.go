package library

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2024, time.March, 1, 15, 30, 0, 0, time.UTC)

func newService(t *testing.T, opts ...Option) (*LendingService, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	opts = append([]Option{WithClock(func() time.Time { return testToday })}, opts...)
	return NewLendingService(store.Books(), store.Members(), opts...), store
}

// requireOK returns a sink for (Result, error) pairs that fails the test
// unless the operation succeeded.
func requireOK(t *testing.T) func(Result, error) {
	return func(res Result, err error) {
		t.Helper()
		require.NoError(t, err)
		require.True(t, res.OK, "unexpected failure: %s", res.Reason)
	}
}

func seed(t *testing.T, svc *LendingService, books, members []string) {
	t.Helper()
	for _, id := range books {
		requireOK(t)(svc.CreateBook(id, "Title of "+id))
	}
	for _, id := range members {
		requireOK(t)(svc.CreateMember(id, "Name of "+id))
	}
}

func getBook(t *testing.T, store *MemoryStore, id string) *Book {
	t.Helper()
	b, err := store.Books().FindByID(id)
	require.NoError(t, err)
	return b
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fillLoans lends n fresh books to memberID.
func fillLoans(t *testing.T, svc *LendingService, memberID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-filler-%d", memberID, i)
		seed(t, svc, []string{id}, nil)
		requireOK(t)(svc.Borrow(id, memberID))
	}
}

func TestBorrowSetsHolderAndDueDate(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1"})

	requireOK(t)(svc.Borrow("b1", "m1"))

	b := getBook(t, store, "b1")
	assert.Equal(t, "m1", b.LoanedTo)
	require.NotNil(t, b.DueDate)
	assert.Equal(t, date(2024, time.March, 15), *b.DueDate)

	loans, err := svc.LoanedBooks("m1")
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "b1", loans[0].ID)
}

func TestBorrowFailures(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1", "m2"})
	requireOK(t)(svc.Borrow("b1", "m1"))

	tests := []struct {
		name   string
		bookID string
		member string
		want   Reason
	}{
		{"unknown book", "nope", "m1", ReasonBookNotFound},
		{"unknown book and member", "nope", "nobody", ReasonBookNotFound},
		{"unknown member", "b1", "nobody", ReasonMemberNotFound},
		{"already lent", "b1", "m2", ReasonBookBorrowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Borrow(tt.bookID, tt.member)
			require.NoError(t, err)
			assert.False(t, res.OK)
			assert.Equal(t, tt.want, res.Reason)
		})
	}
}

func TestBorrowLimitCheckedBeforeAvailability(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1", "m2"})
	fillLoans(t, svc, "m1", DefaultBorrowLimit)
	requireOK(t)(svc.Borrow("b1", "m2"))

	res, err := svc.Borrow("b1", "m1")
	require.NoError(t, err)
	assert.Equal(t, ReasonBorrowLimit, res.Reason)
}

func TestBorrowHonoursPolicy(t *testing.T) {
	svc, _ := newService(t, WithPolicy(Policy{BorrowLimit: 1, LoanDays: 7}))
	seed(t, svc, []string{"b1", "b2"}, []string{"m1"})
	requireOK(t)(svc.Borrow("b1", "m1"))

	res, err := svc.Borrow("b2", "m1")
	require.NoError(t, err)
	assert.Equal(t, ReasonBorrowLimit, res.Reason)

	b, _, err := svc.FindBook("b1")
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 8), *b.DueDate)
}

func TestCanBorrow(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc, nil, []string{"m1"})

	ok, err := svc.CanBorrow("m1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanBorrow("ghost")
	require.NoError(t, err)
	assert.False(t, ok, "unknown member must not be eligible")

	ok, err = svc.CanMemberBorrow(nil)
	require.NoError(t, err)
	assert.False(t, ok)

	fillLoans(t, svc, "m1", DefaultBorrowLimit)
	ok, err = svc.CanBorrow("m1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReturnByNonHolderChangesNothing(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1", "b2"}, []string{"m1", "m2"})
	requireOK(t)(svc.Borrow("b1", "m1"))
	before := getBook(t, store, "b1")

	cases := []struct{ book, member string }{
		{"b1", "m2"},
		{"b1", "ghost"},
		{"ghost", "m1"},
		{"b2", "m1"}, // never lent
	}
	for _, c := range cases {
		res, err := svc.Return(c.book, c.member)
		require.NoError(t, err)
		assert.Equal(t, ReturnResult{}, res, "return %s by %s", c.book, c.member)
	}
	assert.Equal(t, before, getBook(t, store, "b1"))
}

func TestReturnWithEmptyQueueFreesBook(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1"})
	requireOK(t)(svc.Borrow("b1", "m1"))

	res, err := svc.Return("b1", "m1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Empty(t, res.NextMemberID)

	b := getBook(t, store, "b1")
	assert.True(t, b.Available())
	assert.Nil(t, b.DueDate)
}

func TestReturnPromotesFirstEligibleAndKeepsSkippedEntries(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"holder", "full", "m2", "m3"})
	requireOK(t)(svc.Borrow("b1", "holder"))
	requireOK(t)(svc.Reserve("b1", "full"))
	requireOK(t)(svc.Reserve("b1", "m2"))
	requireOK(t)(svc.Reserve("b1", "m3"))
	fillLoans(t, svc, "full", DefaultBorrowLimit)

	res, err := svc.Return("b1", "holder")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "m2", res.NextMemberID)

	b := getBook(t, store, "b1")
	assert.Equal(t, "m2", b.LoanedTo)
	assert.Equal(t, []string{"full", "m3"}, b.ReservationQueue)
	require.NotNil(t, b.DueDate, "due date is carried over to the promoted holder")
	assert.Equal(t, date(2024, time.March, 15), *b.DueDate)
}

func TestReturnWithOnlyIneligibleQueueFreesBook(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"holder", "full"})
	requireOK(t)(svc.Borrow("b1", "holder"))
	requireOK(t)(svc.Reserve("b1", "full"))
	fillLoans(t, svc, "full", DefaultBorrowLimit)

	res, err := svc.Return("b1", "holder")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Empty(t, res.NextMemberID)

	b := getBook(t, store, "b1")
	assert.True(t, b.Available())
	assert.Nil(t, b.DueDate)
	assert.Equal(t, []string{"full"}, b.ReservationQueue)
}

func TestBorrowByQueuedMemberLeavesQueue(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"holder", "x", "y"})
	requireOK(t)(svc.Borrow("b1", "holder"))
	requireOK(t)(svc.Reserve("b1", "x"))
	requireOK(t)(svc.Reserve("b1", "y"))
	fillLoans(t, svc, "x", DefaultBorrowLimit)
	fillLoans(t, svc, "y", DefaultBorrowLimit)

	res, err := svc.Return("b1", "holder")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Empty(t, res.NextMemberID)

	ret, err := svc.Return("x-filler-0", "x")
	require.NoError(t, err)
	require.True(t, ret.OK)
	requireOK(t)(svc.Borrow("b1", "x"))

	b := getBook(t, store, "b1")
	assert.Equal(t, "x", b.LoanedTo)
	assert.Equal(t, []string{"y"}, b.ReservationQueue)

	sum, err := svc.MemberSummary("x")
	require.NoError(t, err)
	assert.Empty(t, sum.Reservations)
}

func TestReserveOnAvailableBookBorrows(t *testing.T) {
	viaReserve, reserveStore := newService(t)
	viaBorrow, borrowStore := newService(t)
	for _, svc := range []*LendingService{viaReserve, viaBorrow} {
		seed(t, svc, []string{"b1"}, []string{"m1"})
	}

	requireOK(t)(viaReserve.Reserve("b1", "m1"))
	requireOK(t)(viaBorrow.Borrow("b1", "m1"))

	assert.Equal(t, getBook(t, borrowStore, "b1"), getBook(t, reserveStore, "b1"))
}

func TestReserveQueuesWhenIneligible(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1"})
	fillLoans(t, svc, "m1", DefaultBorrowLimit)

	requireOK(t)(svc.Reserve("b1", "m1"))
	b := getBook(t, store, "b1")
	assert.True(t, b.Available())
	assert.Equal(t, []string{"m1"}, b.ReservationQueue)
}

func TestReserveTwiceIsDuplicate(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1", "m2"})
	requireOK(t)(svc.Borrow("b1", "m1"))
	requireOK(t)(svc.Reserve("b1", "m2"))

	res, err := svc.Reserve("b1", "m2")
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicateReservation, res.Reason)
	assert.Equal(t, []string{"m2"}, getBook(t, store, "b1").ReservationQueue)

	res, err = svc.Reserve("b1", "m1")
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicateReservation, res.Reason, "holder cannot queue for own book")
}

func TestReserveUnknownEntities(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1"})

	res, err := svc.Reserve("ghost", "m1")
	require.NoError(t, err)
	assert.Equal(t, ReasonBookNotFound, res.Reason)

	res, err = svc.Reserve("b1", "ghost")
	require.NoError(t, err)
	assert.Equal(t, ReasonMemberNotFound, res.Reason)
}

func TestCancelReservation(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1", "m2", "m3"})
	requireOK(t)(svc.Borrow("b1", "m1"))
	requireOK(t)(svc.Reserve("b1", "m2"))

	res, err := svc.CancelReservation("b1", "m3")
	require.NoError(t, err)
	assert.Equal(t, ReasonNotReserved, res.Reason)
	assert.Equal(t, []string{"m2"}, getBook(t, store, "b1").ReservationQueue)

	requireOK(t)(svc.CancelReservation("b1", "m2"))
	assert.Empty(t, getBook(t, store, "b1").ReservationQueue)

	res, err = svc.CancelReservation("ghost", "m2")
	require.NoError(t, err)
	assert.Equal(t, ReasonBookNotFound, res.Reason)
	res, err = svc.CancelReservation("b1", "ghost")
	require.NoError(t, err)
	assert.Equal(t, ReasonMemberNotFound, res.Reason)
}

func TestExtendLoan(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1", "b2"}, []string{"m1"})
	requireOK(t)(svc.Borrow("b1", "m1"))

	for _, id := range []string{"b1", "b2", "ghost"} {
		res, err := svc.ExtendLoan(id, 0)
		require.NoError(t, err)
		assert.Equal(t, ReasonInvalidExtension, res.Reason, id)
	}

	res, err := svc.ExtendLoan("ghost", 3)
	require.NoError(t, err)
	assert.Equal(t, ReasonBookNotFound, res.Reason)

	res, err = svc.ExtendLoan("b2", 3)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotLoaned, res.Reason)

	requireOK(t)(svc.ExtendLoan("b1", 7))
	assert.Equal(t, date(2024, time.March, 22), *getBook(t, store, "b1").DueDate)

	requireOK(t)(svc.ExtendLoan("b1", -10))
	assert.Equal(t, date(2024, time.March, 12), *getBook(t, store, "b1").DueDate)
}

func TestExtendLoanWithoutDueDateStartsFromDefault(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1"})
	require.NoError(t, store.Books().Save(&Book{ID: "b1", Title: "x", LoanedTo: "m1"}))

	requireOK(t)(svc.ExtendLoan("b1", 2))
	assert.Equal(t, date(2024, time.March, 17), *getBook(t, store, "b1").DueDate)
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	requireOK(t)(svc.CreateBook("b1", "The Go Programming Language"))
	requireOK(t)(svc.CreateBook("b2", "Go in Action"))
	requireOK(t)(svc.CreateBook("b3", "Dune"))
	seed(t, svc, nil, []string{"m1", "m2"})
	requireOK(t)(svc.Borrow("b2", "m1"))

	yes, no := true, false
	ids := func(books []*Book) []string {
		out := []string{}
		for _, b := range books {
			out = append(out, b.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter SearchFilter
		want   []string
	}{
		{"no filters", SearchFilter{}, []string{"b1", "b2", "b3"}},
		{"title case-insensitive", SearchFilter{TitleContains: "GO "}, []string{"b1", "b2"}},
		{"available only", SearchFilter{AvailableOnly: &yes}, []string{"b1", "b3"}},
		{"loaned only", SearchFilter{AvailableOnly: &no}, []string{"b2"}},
		{"loaned to holder", SearchFilter{LoanedTo: "m1"}, []string{"b2"}},
		{"loaned to someone else", SearchFilter{LoanedTo: "m2"}, []string{}},
		{"combined", SearchFilter{TitleContains: "go", AvailableOnly: &yes}, []string{"b1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestOverdueBooks(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc, []string{"b1", "b2", "b3"}, []string{"m1"})
	requireOK(t)(svc.Borrow("b1", "m1")) // due March 15
	requireOK(t)(svc.Borrow("b2", "m1"))
	requireOK(t)(svc.ExtendLoan("b2", 5)) // due March 20

	got, err := svc.OverdueBooks(date(2024, time.March, 15))
	require.NoError(t, err)
	assert.Empty(t, got, "due date equal to asOf is not overdue")

	got, err = svc.OverdueBooks(time.Date(2024, time.March, 16, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)

	got, err = svc.OverdueBooks(date(2024, time.April, 1))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemberSummary(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc, []string{"b1", "b2", "b3"}, []string{"m1", "m2", "m3"})
	requireOK(t)(svc.Borrow("b1", "m1"))
	requireOK(t)(svc.Borrow("b2", "m1"))
	requireOK(t)(svc.Reserve("b1", "m2"))
	requireOK(t)(svc.Reserve("b1", "m3"))
	requireOK(t)(svc.Reserve("b2", "m3"))

	sum, err := svc.MemberSummary("m3")
	require.NoError(t, err)
	assert.True(t, sum.OK)
	assert.Empty(t, sum.Loans)
	assert.Equal(t, []ReservationPosition{{BookID: "b1", Position: 1}, {BookID: "b2", Position: 0}}, sum.Reservations)

	sum, err = svc.MemberSummary("m1")
	require.NoError(t, err)
	require.Len(t, sum.Loans, 2)
	assert.Empty(t, sum.Reservations)

	sum, err = svc.MemberSummary("ghost")
	require.NoError(t, err)
	assert.False(t, sum.OK)
	assert.Equal(t, ReasonMemberNotFound, sum.Reason)
}

func TestDeleteMemberReassignsLoans(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1", "b2", "b3"}, []string{"gone", "m2", "m3"})
	requireOK(t)(svc.Borrow("b1", "gone"))
	requireOK(t)(svc.Borrow("b2", "gone"))
	requireOK(t)(svc.Borrow("b3", "m3"))
	requireOK(t)(svc.Reserve("b1", "m2"))
	requireOK(t)(svc.Reserve("b3", "gone"))

	requireOK(t)(svc.DeleteMember("gone"))

	b1 := getBook(t, store, "b1")
	assert.Equal(t, "m2", b1.LoanedTo)
	assert.Empty(t, b1.ReservationQueue)
	assert.True(t, getBook(t, store, "b2").Available())
	assert.Nil(t, getBook(t, store, "b2").DueDate)

	// The deleted member is purged from queues of books it did not hold.
	assert.Empty(t, getBook(t, store, "b3").ReservationQueue)

	_, err := store.Members().FindByID("gone")
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := svc.DeleteMember("gone")
	require.NoError(t, err)
	assert.Equal(t, ReasonMemberNotFound, res.Reason)
}

func TestDeleteMemberRespectsLimitAcrossBooks(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1", "b2"}, []string{"gone", "m2", "m3"})
	requireOK(t)(svc.Borrow("b1", "gone"))
	requireOK(t)(svc.Borrow("b2", "gone"))
	requireOK(t)(svc.Reserve("b1", "m2"))
	requireOK(t)(svc.Reserve("b2", "m2"))
	requireOK(t)(svc.Reserve("b2", "m3"))
	fillLoans(t, svc, "m2", DefaultBorrowLimit-1)

	requireOK(t)(svc.DeleteMember("gone"))

	assert.Equal(t, "m2", getBook(t, store, "b1").LoanedTo)
	b2 := getBook(t, store, "b2")
	assert.Equal(t, "m3", b2.LoanedTo, "m2 reached the limit with b1")
	assert.Equal(t, []string{"m2"}, b2.ReservationQueue)
}

// flakyBooks fails every Save of failID.
type flakyBooks struct {
	BookRepository
	failID string
}

func (f flakyBooks) Save(b *Book) error {
	if b.ID == f.failID {
		return errors.New("disk full")
	}
	return f.BookRepository.Save(b)
}

func TestDeleteMemberStopsAtFailedSave(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1", "b2"}, []string{"gone", "m2"})
	requireOK(t)(svc.Borrow("b1", "gone"))
	requireOK(t)(svc.Borrow("b2", "gone"))
	requireOK(t)(svc.Reserve("b1", "m2"))

	failing := NewLendingService(flakyBooks{store.Books(), "b2"}, store.Members(),
		WithClock(func() time.Time { return testToday }))
	_, err := failing.DeleteMember("gone")
	require.Error(t, err)

	assert.Equal(t, "m2", getBook(t, store, "b1").LoanedTo)
	assert.Equal(t, "gone", getBook(t, store, "b2").LoanedTo)
	_, err = store.Members().FindByID("gone")
	require.NoError(t, err, "member stays until every book is saved")

	requireOK(t)(svc.DeleteMember("gone"))
	assert.True(t, getBook(t, store, "b2").Available())
}

func TestStaleQueueEntryForMissingMemberIsSkipped(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1", "m2"})
	requireOK(t)(svc.Borrow("b1", "m1"))
	b := getBook(t, store, "b1")
	b.ReservationQueue = []string{"ghost", "m2"}
	require.NoError(t, store.Books().Save(b))

	res, err := svc.Return("b1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "m2", res.NextMemberID)
	assert.Equal(t, []string{"ghost"}, getBook(t, store, "b1").ReservationQueue)
}

func TestDeleteBook(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1", "b2"}, []string{"m1", "m2"})
	requireOK(t)(svc.Borrow("b1", "m1"))
	requireOK(t)(svc.Reserve("b1", "m2"))

	requireOK(t)(svc.DeleteBook("b1"))
	requireOK(t)(svc.DeleteBook("b2")) // no holder

	loans, err := svc.LoanedBooks("m1")
	require.NoError(t, err)
	assert.Empty(t, loans)
	sum, err := svc.MemberSummary("m2")
	require.NoError(t, err)
	assert.Empty(t, sum.Reservations)

	_, err = store.Books().FindByID("b1")
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := svc.DeleteBook("b1")
	require.NoError(t, err)
	assert.Equal(t, ReasonBookNotFound, res.Reason)
}

func TestCrudValidation(t *testing.T) {
	svc, store := newService(t)

	res, err := svc.CreateBook("", "t")
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidRequest, res.Reason)
	res, err = svc.CreateBook("b1", "")
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidRequest, res.Reason)
	res, err = svc.CreateMember("m1", " ")
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidRequest, res.Reason)

	res, err = svc.UpdateBook("ghost", "")
	require.NoError(t, err)
	assert.Equal(t, ReasonBookNotFound, res.Reason, "not-found wins over missing title")
	res, err = svc.UpdateMember("ghost", "x")
	require.NoError(t, err)
	assert.Equal(t, ReasonMemberNotFound, res.Reason)

	seed(t, svc, []string{"b1"}, []string{"m1"})
	res, err = svc.UpdateBook("b1", "")
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidRequest, res.Reason)

	requireOK(t)(svc.UpdateBook("b1", "Renamed"))
	requireOK(t)(svc.UpdateMember("m1", "Alice"))
	assert.Equal(t, "Renamed", getBook(t, store, "b1").Title)
	m, _, err := svc.FindMember("m1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", m.Name)
}

func TestCreateBookOnExistingIDKeepsLoan(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"b1"}, []string{"m1", "m2"})
	requireOK(t)(svc.Borrow("b1", "m1"))
	requireOK(t)(svc.Reserve("b1", "m2"))

	requireOK(t)(svc.CreateBook("b1", "New Title"))
	b := getBook(t, store, "b1")
	assert.Equal(t, "New Title", b.Title)
	assert.Equal(t, "m1", b.LoanedTo)
	assert.Equal(t, []string{"m2"}, b.ReservationQueue)
}

// Borrow limit reached by M1, then the book moves M2 -> M3 through the queue.
func TestLendingScenario(t *testing.T) {
	svc, store := newService(t)
	seed(t, svc, []string{"B1", "B2", "B3", "B4", "B5", "B6"}, []string{"M1", "M2", "M3", "M4", "M5", "M6"})
	for _, id := range []string{"B2", "B3", "B4", "B5", "B6"} {
		requireOK(t)(svc.Borrow(id, "M1"))
	}

	res, err := svc.Borrow("B1", "M1")
	require.NoError(t, err)
	assert.Equal(t, ReasonBorrowLimit, res.Reason)

	requireOK(t)(svc.Borrow("B1", "M2"))
	assert.Equal(t, "M2", getBook(t, store, "B1").LoanedTo)

	requireOK(t)(svc.Reserve("B1", "M3"))
	assert.Equal(t, 0, getBook(t, store, "B1").QueuePosition("M3"))

	ret, err := svc.Return("B1", "M2")
	require.NoError(t, err)
	assert.True(t, ret.OK)
	assert.Equal(t, "M3", ret.NextMemberID)
	assert.Equal(t, "M3", getBook(t, store, "B1").LoanedTo)
}
