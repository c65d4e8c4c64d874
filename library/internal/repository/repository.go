package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/errs"
)

type Repository struct {
	*Transactor
	Users  *UserRepository
	Books  *BookRepository
	Loans  *LoanRepository
	Events *LoanEventRepository
}

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*Repository, error) {
	if db == nil {
		return nil, errors.New("nil pool")
	}
	log = log.Named("repo")
	return &Repository{
		Transactor: NewTransactor(db),
		Users:      NewUserRepository(db, log),
		Books:      NewBookRepository(db, log),
		Loans:      NewLoanRepository(db, log),
		Events:     NewLoanEventRepository(db, log),
	}, nil
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Transactor runs a function inside one database transaction. Repositories
// called with the derived context join that transaction.
type Transactor struct {
	db *pgxpool.Pool
}

func NewTransactor(db *pgxpool.Pool) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return pgx.BeginTxFunc(ctx, t.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func conn(ctx context.Context, db *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

// crud is the plain table mapping shared by the entity repositories.
// Absent rows come back as a nil pointer, not as an error.
type crud[T any] struct {
	db      *pgxpool.Pool
	log     *zap.Logger
	table   string
	columns []string
}

func (r *crud[T]) returning() string {
	return "returning " + strings.Join(r.columns, ", ")
}

func (r *crud[T]) selectQ() sq.SelectBuilder {
	return qb.Select(r.columns...).From(r.table)
}

func (r *crud[T]) Create(ctx context.Context, fields map[string]any) (T, error) {
	var zero T
	query, args, err := qb.Insert(r.table).
		SetMap(fields).
		Suffix(r.returning()).
		ToSql()
	if err != nil {
		return zero, err
	}
	item, err := r.one(ctx, query, args...)
	if err != nil {
		if !errors.Is(err, errs.ErrDuplicateKey) {
			r.log.Error("Create", zap.String("table", r.table), zap.String("q", query), zap.Error(err))
		}
		return zero, err
	}
	if item == nil {
		return zero, errors.Errorf("%s: insert returned no row", r.table)
	}
	return *item, nil
}

func (r *crud[T]) Get(ctx context.Context, id int) (*T, error) {
	query, args, err := r.selectQ().
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.one(ctx, query, args...)
}

// LockByID reads the row with FOR UPDATE; it only holds the lock inside WithinTx.
func (r *crud[T]) LockByID(ctx context.Context, id int) (*T, error) {
	query, args, err := r.selectQ().
		Where(sq.Eq{"id": id}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.one(ctx, query, args...)
}

func (r *crud[T]) GetMulti(ctx context.Context, skip, limit int) ([]T, error) {
	return r.many(ctx, r.selectQ(), skip, limit)
}

func (r *crud[T]) Count(ctx context.Context) (int, error) {
	return r.count(ctx, nil)
}

func (r *crud[T]) Update(ctx context.Context, id int, changes map[string]any) (*T, error) {
	if len(changes) == 0 {
		return r.Get(ctx, id)
	}
	query, args, err := qb.Update(r.table).
		SetMap(changes).
		Where(sq.Eq{"id": id}).
		Suffix(r.returning()).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.one(ctx, query, args...)
}

func (r *crud[T]) Remove(ctx context.Context, id int) (*T, error) {
	query, args, err := qb.Delete(r.table).
		Where(sq.Eq{"id": id}).
		Suffix(r.returning()).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.one(ctx, query, args...)
}

func (r *crud[T]) one(ctx context.Context, query string, args ...any) (*T, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	item, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err)
	}
	return item, nil
}

func (r *crud[T]) many(ctx context.Context, q sq.SelectBuilder, skip, limit int) ([]T, error) {
	q = q.OrderBy("id")
	if skip > 0 {
		q = q.Offset(uint64(skip))
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("many", zap.String("query", query), zap.Any("args", args))

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return items, nil
}

func (r *crud[T]) count(ctx context.Context, where sq.Sqlizer) (int, error) {
	q := qb.Select("count(*)").From(r.table)
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return errors.Wrap(errs.ErrDuplicateKey, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		// loans keep their user and book rows
		return errs.ErrHasLoans
	}
	return err
}
