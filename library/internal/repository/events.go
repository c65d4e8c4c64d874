package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/model"
)

type LoanEventRepository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewLoanEventRepository(db *pgxpool.Pool, log *zap.Logger) *LoanEventRepository {
	return &LoanEventRepository{
		db:  db,
		log: log.Named("loan_events"),
	}
}

// Save is idempotent on the event id, so redelivered messages are harmless.
func (r *LoanEventRepository) Save(ctx context.Context, event model.LoanEvent) error {
	const q = `insert into loan_events (id, loan_id, user_id, book_id, event_type, due_date, occurred_at)
	values (@id, @loan_id, @user_id, @book_id, @event_type, @due_date, @occurred_at)
	on conflict (id) do nothing`
	args := pgx.NamedArgs{
		"id":          event.ID,
		"loan_id":     event.LoanID,
		"user_id":     event.UserID,
		"book_id":     event.BookID,
		"event_type":  string(event.EventType),
		"due_date":    event.DueDate,
		"occurred_at": event.OccurredAt,
	}
	_, err := conn(ctx, r.db).Exec(ctx, q, args)
	return err
}

func (r *LoanEventRepository) ListByLoan(ctx context.Context, loanID int) ([]model.LoanEvent, error) {
	const q = `select id, loan_id, user_id, book_id, event_type, due_date, occurred_at
	from loan_events
	where loan_id = @loan_id
	order by occurred_at`
	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{"loan_id": loanID})
	if err != nil {
		return nil, err
	}
	events, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.LoanEvent])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return events, nil
}
