package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/model"
)

const loansTableName = `loans`

var loanColumns = []string{"id", "user_id", "book_id", "loan_date", "due_date", "return_date", "extended"}

type LoanRepository struct {
	crud[model.Loan]
}

func NewLoanRepository(db *pgxpool.Pool, log *zap.Logger) *LoanRepository {
	return &LoanRepository{crud: crud[model.Loan]{
		db:      db,
		log:     log.Named("loans"),
		table:   loansTableName,
		columns: loanColumns,
	}}
}

func outstanding(userID int) sq.And {
	return sq.And{sq.Eq{"user_id": userID}, sq.Eq{"return_date": nil}}
}

func (r *LoanRepository) CountOutstanding(ctx context.Context, userID int) (int, error) {
	return r.count(ctx, outstanding(userID))
}

func (r *LoanRepository) HasOutstanding(ctx context.Context, userID, bookID int) (bool, error) {
	n, err := r.count(ctx, append(outstanding(userID), sq.Eq{"book_id": bookID}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *LoanRepository) ListByUser(ctx context.Context, userID, skip, limit int) ([]model.Loan, error) {
	return r.many(ctx, r.selectQ().Where(sq.Eq{"user_id": userID}), skip, limit)
}

func (r *LoanRepository) ListOverdue(ctx context.Context, now time.Time, skip, limit int) ([]model.Loan, error) {
	return r.many(ctx, r.selectQ().
		Where(sq.Eq{"return_date": nil}).
		Where(sq.Lt{"due_date": now}), skip, limit)
}
