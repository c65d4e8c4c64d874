package handler

import (
	"context"

	"github.com/Astemirdum/library-management/library/internal/model"
	"github.com/Astemirdum/library-management/library/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type UserService interface {
	Create(ctx context.Context, in model.UserCreate) (model.User, error)
	Get(ctx context.Context, id int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetMulti(ctx context.Context, skip, limit int) (model.ListUsers, error)
	Update(ctx context.Context, id int, in model.UserUpdate) (model.User, error)
	Remove(ctx context.Context, id int) (model.User, error)
	Authenticate(ctx context.Context, cred model.Credentials) (model.User, error)
}

type BookService interface {
	Create(ctx context.Context, in model.BookCreate) (model.Book, error)
	Get(ctx context.Context, id int) (model.Book, error)
	GetByISBN(ctx context.Context, isbn string) (model.Book, error)
	GetByTitle(ctx context.Context, title string, skip, limit int) ([]model.Book, error)
	GetByAuthor(ctx context.Context, author string, skip, limit int) ([]model.Book, error)
	GetMulti(ctx context.Context, skip, limit int) (model.ListBooks, error)
	Update(ctx context.Context, id int, in model.BookUpdate) (model.Book, error)
	Remove(ctx context.Context, id int) (model.Book, error)
	UpdateQuantity(ctx context.Context, id, delta int) (model.Book, error)
}

type LoanService interface {
	CreateLoan(ctx context.Context, userID, bookID int) (model.Loan, error)
	ReturnLoan(ctx context.Context, loanID int) (model.Loan, error)
	ExtendLoan(ctx context.Context, loanID, days int) (model.Loan, error)
	Get(ctx context.Context, id int) (model.Loan, error)
	GetMulti(ctx context.Context, skip, limit int) (model.ListLoans, error)
	ListByUser(ctx context.Context, userID, skip, limit int) (model.ListLoans, error)
	ListOverdue(ctx context.Context, skip, limit int) (model.ListLoans, error)
	Events(ctx context.Context, loanID int) ([]model.LoanEvent, error)
}

var (
	_ UserService = (*service.UserService)(nil)
	_ BookService = (*service.BookService)(nil)
	_ LoanService = (*service.LoanService)(nil)
)
