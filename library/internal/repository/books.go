package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/model"
)

const booksTableName = `books`

var bookColumns = []string{"id", "title", "author", "isbn", "publication_year", "description", "quantity", "created_at"}

type BookRepository struct {
	crud[model.Book]
}

func NewBookRepository(db *pgxpool.Pool, log *zap.Logger) *BookRepository {
	return &BookRepository{crud: crud[model.Book]{
		db:      db,
		log:     log.Named("books"),
		table:   booksTableName,
		columns: bookColumns,
	}}
}

func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	query, args, err := r.selectQ().
		Where(sq.Eq{"isbn": isbn}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.one(ctx, query, args...)
}

func (r *BookRepository) SearchByTitle(ctx context.Context, title string, skip, limit int) ([]model.Book, error) {
	return r.many(ctx, r.selectQ().Where(sq.ILike{"title": containsPattern(title)}), skip, limit)
}

func (r *BookRepository) SearchByAuthor(ctx context.Context, author string, skip, limit int) ([]model.Book, error) {
	return r.many(ctx, r.selectQ().Where(sq.ILike{"author": containsPattern(author)}), skip, limit)
}

// AddQuantity shifts the stock by delta only while the result stays
// non-negative. A nil book means the row is absent or the guard failed.
func (r *BookRepository) AddQuantity(ctx context.Context, id, delta int) (*model.Book, error) {
	query, args, err := qb.Update(booksTableName).
		Set("quantity", sq.Expr("quantity + ?", delta)).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("quantity + ? >= 0", delta)).
		Suffix(r.returning()).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.one(ctx, query, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
