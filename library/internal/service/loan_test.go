package service_test

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/errs"
	"github.com/Astemirdum/library-management/library/internal/model"
	"github.com/Astemirdum/library-management/library/internal/service"
)

type loanFixture struct {
	db    *memDB
	clock *clock
	pub   *recordingPublisher
	svc   *service.LoanService
}

func newLoanFixture(t *testing.T) *loanFixture {
	t.Helper()
	db := newMemDB()
	clk := newClock()
	pub := &recordingPublisher{}
	svc := service.NewLoanService(service.LoanDeps{
		Tx:        db,
		Users:     userRepo{db},
		Books:     bookRepo{db},
		Stock:     bookRepo{db},
		Loans:     loanRepo{db},
		Events:    eventRepo{db},
		Publisher: pub,
	}, service.DefaultLoanPolicy(), zap.NewNop(), service.WithClock(clk.Now))
	return &loanFixture{db: db, clock: clk, pub: pub, svc: svc}
}

func (f *loanFixture) user(active bool) model.User {
	return f.db.addUser(model.User{Email: "reader@example.com", IsActive: active})
}

func (f *loanFixture) book(quantity int) model.Book {
	return f.db.addBook(model.Book{Title: "Dune", Author: "Frank Herbert", Quantity: quantity})
}

func TestLoanService_BorrowAndReturnRestoresQuantity(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	ctx := context.Background()
	u, b := f.user(true), f.book(5)

	loan, err := f.svc.CreateLoan(ctx, u.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, 4, f.db.book(b.ID).Quantity)
	require.Equal(t, u.ID, loan.UserID)
	require.Equal(t, b.ID, loan.BookID)
	require.Equal(t, f.clock.Now(), loan.LoanDate)
	require.Equal(t, f.clock.Now().Add(14*24*time.Hour), loan.DueDate)
	require.Nil(t, loan.ReturnDate)
	require.False(t, loan.Extended)

	returned, err := f.svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnDate)
	require.Equal(t, 5, f.db.book(b.ID).Quantity)

	require.Equal(t, []model.LoanEventType{model.LoanCreated, model.LoanReturned}, f.pub.types())
}

func TestLoanService_CreateLoanRules(t *testing.T) {
	t.Parallel()
	type setup func(t *testing.T, f *loanFixture) (userID, bookID int)

	tests := []struct {
		name    string
		setup   setup
		wantErr error
		wantMsg string
	}{
		{
			name: "user not found",
			setup: func(t *testing.T, f *loanFixture) (int, int) {
				return 999, f.book(1).ID
			},
			wantErr: errs.ErrNotFound,
		},
		{
			name: "book not found",
			setup: func(t *testing.T, f *loanFixture) (int, int) {
				return f.user(true).ID, 999
			},
			wantErr: errs.ErrNotFound,
		},
		{
			name: "inactive user",
			setup: func(t *testing.T, f *loanFixture) (int, int) {
				return f.user(false).ID, f.book(1).ID
			},
			wantErr: errs.ErrInvalidState,
			wantMsg: "user inactive",
		},
		{
			name: "inactive user checked before stock",
			setup: func(t *testing.T, f *loanFixture) (int, int) {
				return f.user(false).ID, f.book(0).ID
			},
			wantErr: errs.ErrInvalidState,
			wantMsg: "user inactive",
		},
		{
			name: "no copies left",
			setup: func(t *testing.T, f *loanFixture) (int, int) {
				return f.user(true).ID, f.book(0).ID
			},
			wantErr: errs.ErrInvalidState,
			wantMsg: "book unavailable",
		},
		{
			name: "already borrowed",
			setup: func(t *testing.T, f *loanFixture) (int, int) {
				u, b := f.user(true), f.book(3)
				_, err := f.svc.CreateLoan(context.Background(), u.ID, b.ID)
				require.NoError(t, err)
				return u.ID, b.ID
			},
			wantErr: errs.ErrInvalidState,
			wantMsg: "already borrowed",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newLoanFixture(t)
			userID, bookID := tt.setup(t, f)
			before := f.db.loanCount()

			_, err := f.svc.CreateLoan(context.Background(), userID, bookID)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				require.EqualError(t, err, tt.wantMsg)
			}
			require.Equal(t, before, f.db.loanCount())
		})
	}
}

func TestLoanService_ZeroQuantityLeavesStock(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	u, b := f.user(true), f.book(0)

	_, err := f.svc.CreateLoan(context.Background(), u.ID, b.ID)
	require.ErrorIs(t, err, errs.ErrBookUnavailable)
	require.Equal(t, 0, f.db.book(b.ID).Quantity)
	require.Zero(t, f.db.loanCount())
	require.Empty(t, f.pub.types())
}

func TestLoanService_LoanLimit(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	ctx := context.Background()
	u := f.user(true)

	for i := 0; i < 5; i++ {
		_, err := f.svc.CreateLoan(ctx, u.ID, f.book(1).ID)
		require.NoError(t, err)
	}
	sixth := f.book(1)
	_, err := f.svc.CreateLoan(ctx, u.ID, sixth.ID)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	require.EqualError(t, err, "loan limit reached")
	require.Equal(t, 5, f.db.loanCount())
	require.Equal(t, 1, f.db.book(sixth.ID).Quantity)
}

func TestLoanService_LimitFollowsPolicy(t *testing.T) {
	t.Parallel()
	db := newMemDB()
	svc := service.NewLoanService(service.LoanDeps{
		Tx:    db,
		Users: userRepo{db},
		Books: bookRepo{db},
		Stock: bookRepo{db},
		Loans: loanRepo{db},
	}, service.LoanPolicy{MaxActive: 1}, zap.NewNop())
	ctx := context.Background()
	u := db.addUser(model.User{IsActive: true})

	_, err := svc.CreateLoan(ctx, u.ID, db.addBook(model.Book{Quantity: 1}).ID)
	require.NoError(t, err)
	_, err = svc.CreateLoan(ctx, u.ID, db.addBook(model.Book{Quantity: 1}).ID)
	require.ErrorIs(t, err, errs.ErrLoanLimit)
}

func TestLoanService_ReturnedLoansFreeTheLimit(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	ctx := context.Background()
	u, b := f.user(true), f.book(1)

	loan, err := f.svc.CreateLoan(ctx, u.ID, b.ID)
	require.NoError(t, err)
	_, err = f.svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	again, err := f.svc.CreateLoan(ctx, u.ID, b.ID)
	require.NoError(t, err)
	require.NotEqual(t, loan.ID, again.ID)
	require.Equal(t, 0, f.db.book(b.ID).Quantity)
}

func TestLoanService_ReturnTwice(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	ctx := context.Background()
	u, b := f.user(true), f.book(2)

	loan, err := f.svc.CreateLoan(ctx, u.ID, b.ID)
	require.NoError(t, err)
	returned, err := f.svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.ReturnLoan(ctx, loan.ID)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	require.EqualError(t, err, "already returned")
	require.Equal(t, 2, f.db.book(b.ID).Quantity)
	require.Equal(t, *returned.ReturnDate, *f.db.loan(loan.ID).ReturnDate)
}

func TestLoanService_ReturnNotFound(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	_, err := f.svc.ReturnLoan(context.Background(), 42)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLoanService_ExtendOnce(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	ctx := context.Background()
	u, b := f.user(true), f.book(1)

	loan, err := f.svc.CreateLoan(ctx, u.ID, b.ID)
	require.NoError(t, err)

	extended, err := f.svc.ExtendLoan(ctx, loan.ID, 7)
	require.NoError(t, err)
	require.True(t, extended.Extended)
	require.Equal(t, 7*24*time.Hour, extended.DueDate.Sub(loan.DueDate))

	_, err = f.svc.ExtendLoan(ctx, loan.ID, 7)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	require.EqualError(t, err, "already extended")
	require.Equal(t, extended.DueDate, f.db.loan(loan.ID).DueDate)
	require.Equal(t, []model.LoanEventType{model.LoanCreated, model.LoanExtended}, f.pub.types())
}

func TestLoanService_ExtendAcrossDSTChange(t *testing.T) {
	t.Parallel()
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	f := newLoanFixture(t)
	f.clock.Set(time.Date(2024, time.March, 10, 12, 0, 0, 0, berlin))
	ctx := context.Background()
	u, b := f.user(true), f.book(1)

	loan, err := f.svc.CreateLoan(ctx, u.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, 14*24*time.Hour, loan.DueDate.Sub(loan.LoanDate))

	// clocks go forward on 2024-03-31, inside the extension window
	extended, err := f.svc.ExtendLoan(ctx, loan.ID, 7)
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, extended.DueDate.Sub(loan.DueDate))
}

func TestLoanService_LoanedRecordsCannotBeRemoved(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	ctx := context.Background()
	u, b := f.user(true), f.book(5)
	users := service.NewUserService(userRepo{f.db}, zap.NewNop())
	books := service.NewBookService(f.db, bookRepo{f.db}, zap.NewNop())

	loan, err := f.svc.CreateLoan(ctx, u.ID, b.ID)
	require.NoError(t, err)

	_, err = users.Remove(ctx, u.ID)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	require.ErrorIs(t, err, errs.ErrHasLoans)
	_, err = books.Remove(ctx, b.ID)
	require.ErrorIs(t, err, errs.ErrHasLoans)

	_, err = f.svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Equal(t, 5, f.db.book(b.ID).Quantity)

	// returned loans are history and still pin the rows
	_, err = users.Remove(ctx, u.ID)
	require.ErrorIs(t, err, errs.ErrHasLoans)
	require.Equal(t, 1, f.db.loanCount())
}

func TestLoanService_ExtendRules(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *loanFixture, loanID int)
		days    int
		wantErr error
		wantMsg string
	}{
		{
			name: "overdue",
			prepare: func(_ *testing.T, f *loanFixture, _ int) {
				f.clock.Advance(15 * 24 * time.Hour)
			},
			days:    7,
			wantErr: errs.ErrInvalidState,
			wantMsg: "overdue",
		},
		{
			name: "returned",
			prepare: func(t *testing.T, f *loanFixture, loanID int) {
				_, err := f.svc.ReturnLoan(context.Background(), loanID)
				require.NoError(t, err)
			},
			days:    7,
			wantErr: errs.ErrAlreadyReturned,
		},
		{
			name:    "zero days",
			prepare: func(*testing.T, *loanFixture, int) {},
			days:    0,
			wantErr: errs.ErrInvalidExtension,
		},
		{
			name:    "above maximum",
			prepare: func(*testing.T, *loanFixture, int) {},
			days:    31,
			wantErr: errs.ErrInvalidExtension,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newLoanFixture(t)
			ctx := context.Background()
			loan, err := f.svc.CreateLoan(ctx, f.user(true).ID, f.book(1).ID)
			require.NoError(t, err)
			tt.prepare(t, f, loan.ID)

			_, err = f.svc.ExtendLoan(ctx, loan.ID, tt.days)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				require.EqualError(t, err, tt.wantMsg)
			}
			stored := f.db.loan(loan.ID)
			require.Equal(t, loan.DueDate, stored.DueDate)
			require.False(t, stored.Extended)
		})
	}
}

func TestLoanService_ExtendNotFound(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	_, err := f.svc.ExtendLoan(context.Background(), 7, 7)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLoanService_FailedInsertRollsBackStock(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	u, b := f.user(true), f.book(1)
	f.db.loanCreateErr = errors.New("connection reset")

	_, err := f.svc.CreateLoan(context.Background(), u.ID, b.ID)
	require.EqualError(t, err, "connection reset")
	require.Equal(t, 1, f.db.book(b.ID).Quantity)
	require.Empty(t, f.pub.types())
}

func TestLoanService_PublishFailureKeepsLoan(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	f.pub.err = errors.New("broker down")
	u, b := f.user(true), f.book(1)

	loan, err := f.svc.CreateLoan(context.Background(), u.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.db.loanCount())
	require.Equal(t, loan.ID, f.db.loan(loan.ID).ID)
}

func TestLoanService_ConcurrentBorrowOfLastCopy(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	b := f.book(1)
	const readers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  int
		errN int
	)
	for i := 0; i < readers; i++ {
		u := f.db.addUser(model.User{IsActive: true})
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateLoan(context.Background(), u.ID, b.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				return
			}
			if errors.Is(err, errs.ErrBookUnavailable) {
				errN++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, won)
	require.Equal(t, readers-1, errN)
	require.Equal(t, 0, f.db.book(b.ID).Quantity)
	require.Equal(t, 1, f.db.loanCount())
}

func TestLoanService_Listing(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	ctx := context.Background()
	alice, bob := f.user(true), f.db.addUser(model.User{Email: "bob@example.com", IsActive: true})

	first, err := f.svc.CreateLoan(ctx, alice.ID, f.book(1).ID)
	require.NoError(t, err)
	f.clock.Advance(10 * 24 * time.Hour)
	_, err = f.svc.CreateLoan(ctx, bob.ID, f.book(1).ID)
	require.NoError(t, err)

	mine, err := f.svc.ListByUser(ctx, alice.ID, 0, 100)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	require.Equal(t, first.ID, mine.Items[0].ID)

	all, err := f.svc.GetMulti(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, all.Items, 2)

	overdue, err := f.svc.ListOverdue(ctx, 0, 100)
	require.NoError(t, err)
	require.Empty(t, overdue.Items)
	require.NotNil(t, overdue.Items)

	f.clock.Advance(5 * 24 * time.Hour)
	overdue, err = f.svc.ListOverdue(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, overdue.Items, 1)
	require.Equal(t, first.ID, overdue.Items[0].ID)
}

func TestLoanService_Events(t *testing.T) {
	t.Parallel()
	f := newLoanFixture(t)
	ctx := context.Background()

	_, err := f.svc.Events(ctx, 1)
	require.ErrorIs(t, err, errs.ErrNotFound)

	loan, err := f.svc.CreateLoan(ctx, f.user(true).ID, f.book(1).ID)
	require.NoError(t, err)
	for _, e := range f.pub.events {
		require.NoError(t, f.svc.RecordEvent(ctx, e))
		require.NoError(t, f.svc.RecordEvent(ctx, e))
	}

	events, err := f.svc.Events(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, model.LoanCreated, events[0].EventType)
	require.Equal(t, loan.DueDate, events[0].DueDate)
}
