package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/errs"
	"github.com/Astemirdum/library-management/library/internal/model"
)

type BookService struct {
	log   *zap.Logger
	tx    Transactor
	books BookRepository
}

func NewBookService(tx Transactor, books BookRepository, log *zap.Logger) *BookService {
	return &BookService{
		log:   named(log, "books"),
		tx:    tx,
		books: books,
	}
}

func (s *BookService) Create(ctx context.Context, in model.BookCreate) (model.Book, error) {
	existing, err := s.books.GetByISBN(ctx, in.ISBN)
	if err != nil {
		return model.Book{}, err
	}
	if existing != nil {
		return model.Book{}, errors.Wrapf(errs.ErrDuplicateKey, "isbn %s", in.ISBN)
	}
	return s.books.Create(ctx, in.Fields())
}

func (s *BookService) Get(ctx context.Context, id int) (model.Book, error) {
	b, err := s.books.Get(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	if b == nil {
		return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %d", id)
	}
	return *b, nil
}

func (s *BookService) GetByISBN(ctx context.Context, isbn string) (model.Book, error) {
	b, err := s.books.GetByISBN(ctx, isbn)
	if err != nil {
		return model.Book{}, err
	}
	if b == nil {
		return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %s", isbn)
	}
	return *b, nil
}

func (s *BookService) GetByTitle(ctx context.Context, title string, skip, limit int) ([]model.Book, error) {
	books, err := s.books.SearchByTitle(ctx, title, skip, limit)
	if err != nil {
		return nil, err
	}
	return orEmpty(books), nil
}

func (s *BookService) GetByAuthor(ctx context.Context, author string, skip, limit int) ([]model.Book, error) {
	books, err := s.books.SearchByAuthor(ctx, author, skip, limit)
	if err != nil {
		return nil, err
	}
	return orEmpty(books), nil
}

func (s *BookService) GetMulti(ctx context.Context, skip, limit int) (model.ListBooks, error) {
	items, err := s.books.GetMulti(ctx, skip, limit)
	if err != nil {
		return model.ListBooks{}, err
	}
	return model.ListBooks{
		Paging: model.Paging{Skip: skip, Limit: limit},
		Items:  orEmpty(items),
	}, nil
}

func (s *BookService) Update(ctx context.Context, id int, in model.BookUpdate) (model.Book, error) {
	if in.ISBN != nil {
		other, err := s.books.GetByISBN(ctx, *in.ISBN)
		if err != nil {
			return model.Book{}, err
		}
		if other != nil && other.ID != id {
			return model.Book{}, errors.Wrapf(errs.ErrDuplicateKey, "isbn %s", *in.ISBN)
		}
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return model.Book{}, errs.ErrNegativeQuantity
	}
	b, err := s.books.Update(ctx, id, in.Changes())
	if err != nil {
		return model.Book{}, err
	}
	if b == nil {
		return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %d", id)
	}
	return *b, nil
}

func (s *BookService) Remove(ctx context.Context, id int) (model.Book, error) {
	b, err := s.books.Remove(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	if b == nil {
		return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %d", id)
	}
	return *b, nil
}

func (s *BookService) UpdateQuantity(ctx context.Context, id, delta int) (model.Book, error) {
	var updated model.Book
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.books.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if b == nil {
			return errors.Wrapf(errs.ErrNotFound, "book %d", id)
		}
		if b.Quantity+delta < 0 {
			return errs.ErrNegativeQuantity
		}
		res, err := s.books.AddQuantity(ctx, id, delta)
		if err != nil {
			return err
		}
		if res == nil {
			return errs.ErrNegativeQuantity
		}
		updated = *res
		return nil
	})
	if err != nil {
		return model.Book{}, err
	}
	return updated, nil
}
