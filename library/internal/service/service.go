package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/library-management/library/internal/model"
)

// Transactor runs fn in one database transaction; repository calls made
// with the derived context take part in it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserLookup interface {
	Get(ctx context.Context, id int) (*model.User, error)
	LockByID(ctx context.Context, id int) (*model.User, error)
}

type UserRepository interface {
	UserLookup
	Create(ctx context.Context, fields map[string]any) (model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetMulti(ctx context.Context, skip, limit int) ([]model.User, error)
	Update(ctx context.Context, id int, changes map[string]any) (*model.User, error)
	Remove(ctx context.Context, id int) (*model.User, error)
}

type BookLookup interface {
	Get(ctx context.Context, id int) (*model.Book, error)
	LockByID(ctx context.Context, id int) (*model.Book, error)
}

// BookMutator changes stock; a nil book means the change would have
// made the quantity negative or the book is absent.
type BookMutator interface {
	AddQuantity(ctx context.Context, id, delta int) (*model.Book, error)
}

type BookRepository interface {
	BookLookup
	BookMutator
	Create(ctx context.Context, fields map[string]any) (model.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*model.Book, error)
	SearchByTitle(ctx context.Context, title string, skip, limit int) ([]model.Book, error)
	SearchByAuthor(ctx context.Context, author string, skip, limit int) ([]model.Book, error)
	GetMulti(ctx context.Context, skip, limit int) ([]model.Book, error)
	Update(ctx context.Context, id int, changes map[string]any) (*model.Book, error)
	Remove(ctx context.Context, id int) (*model.Book, error)
}

type LoanStore interface {
	Create(ctx context.Context, fields map[string]any) (model.Loan, error)
	Get(ctx context.Context, id int) (*model.Loan, error)
	LockByID(ctx context.Context, id int) (*model.Loan, error)
	Update(ctx context.Context, id int, changes map[string]any) (*model.Loan, error)
	CountOutstanding(ctx context.Context, userID int) (int, error)
	HasOutstanding(ctx context.Context, userID, bookID int) (bool, error)
	GetMulti(ctx context.Context, skip, limit int) ([]model.Loan, error)
	ListByUser(ctx context.Context, userID, skip, limit int) ([]model.Loan, error)
	ListOverdue(ctx context.Context, now time.Time, skip, limit int) ([]model.Loan, error)
}

type EventStore interface {
	Save(ctx context.Context, event model.LoanEvent) error
	ListByLoan(ctx context.Context, loanID int) ([]model.LoanEvent, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.LoanEvent) error
}

type Option func(*options)

type options struct {
	now      func() time.Time
	hashCost int
}

func defaultOptions() options {
	return options{
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithHashCost(cost int) Option {
	return func(o *options) {
		o.hashCost = cost
	}
}

func applyOptions(ops []Option) options {
	o := defaultOptions()
	for _, op := range ops {
		op(&o)
	}
	return o
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func named(log *zap.Logger, name string) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log.Named(name)
}
