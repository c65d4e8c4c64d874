package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/errs"
	"github.com/Astemirdum/library-management/library/internal/model"
)

type LoanPolicy struct {
	Period           time.Duration `yaml:"period" envconfig:"LOAN_PERIOD" default:"336h"`
	MaxActive        int           `yaml:"maxActive" envconfig:"LOAN_MAX_ACTIVE" default:"5"`
	MaxExtensionDays int           `yaml:"maxExtensionDays" envconfig:"LOAN_MAX_EXTENSION_DAYS" default:"30"`
}

func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{
		Period:           14 * 24 * time.Hour,
		MaxActive:        5,
		MaxExtensionDays: 30,
	}
}

type LoanDeps struct {
	Tx        Transactor
	Users     UserLookup
	Books     BookLookup
	Stock     BookMutator
	Loans     LoanStore
	Events    EventStore
	Publisher EventPublisher
}

type LoanService struct {
	log    *zap.Logger
	deps   LoanDeps
	policy LoanPolicy
	opts   options
}

func NewLoanService(deps LoanDeps, policy LoanPolicy, log *zap.Logger, ops ...Option) *LoanService {
	def := DefaultLoanPolicy()
	if policy.Period <= 0 {
		policy.Period = def.Period
	}
	if policy.MaxActive <= 0 {
		policy.MaxActive = def.MaxActive
	}
	if policy.MaxExtensionDays <= 0 {
		policy.MaxExtensionDays = def.MaxExtensionDays
	}
	return &LoanService{
		log:    named(log, "loans"),
		deps:   deps,
		policy: policy,
		opts:   applyOptions(ops),
	}
}

// CreateLoan lends one copy of the book to the user. The user and book rows
// stay locked until the loan row is written.
func (s *LoanService) CreateLoan(ctx context.Context, userID, bookID int) (model.Loan, error) {
	var loan model.Loan
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.deps.Users.LockByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return errors.Wrapf(errs.ErrNotFound, "user %d", userID)
		}
		book, err := s.deps.Books.LockByID(ctx, bookID)
		if err != nil {
			return err
		}
		if book == nil {
			return errors.Wrapf(errs.ErrNotFound, "book %d", bookID)
		}
		if !user.IsActive {
			return errs.ErrUserInactive
		}
		if book.Quantity <= 0 {
			return errs.ErrBookUnavailable
		}
		borrowed, err := s.deps.Loans.HasOutstanding(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if borrowed {
			return errs.ErrAlreadyBorrowed
		}
		active, err := s.deps.Loans.CountOutstanding(ctx, userID)
		if err != nil {
			return err
		}
		if active >= s.policy.MaxActive {
			return errs.ErrLoanLimit
		}

		taken, err := s.deps.Stock.AddQuantity(ctx, bookID, -1)
		if err != nil {
			return err
		}
		if taken == nil {
			return errs.ErrBookUnavailable
		}
		now := s.opts.now()
		loan, err = s.deps.Loans.Create(ctx, map[string]any{
			"user_id":   userID,
			"book_id":   bookID,
			"loan_date": now,
			"due_date":  now.Add(s.policy.Period),
			"extended":  false,
		})
		if errors.Is(err, errs.ErrDuplicateKey) {
			return errs.ErrAlreadyBorrowed
		}
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}
	s.publish(ctx, model.LoanCreated, loan)
	return loan, nil
}

func (s *LoanService) ReturnLoan(ctx context.Context, loanID int) (model.Loan, error) {
	var loan model.Loan
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		l, err := s.deps.Loans.LockByID(ctx, loanID)
		if err != nil {
			return err
		}
		if l == nil {
			return errors.Wrapf(errs.ErrNotFound, "loan %d", loanID)
		}
		if !l.Outstanding() {
			return errs.ErrAlreadyReturned
		}
		book, err := s.deps.Stock.AddQuantity(ctx, l.BookID, 1)
		if err != nil {
			return err
		}
		if book == nil {
			return errors.Wrapf(errs.ErrNotFound, "book %d", l.BookID)
		}
		updated, err := s.deps.Loans.Update(ctx, loanID, map[string]any{
			"return_date": s.opts.now(),
		})
		if err != nil {
			return err
		}
		if updated == nil {
			return errors.Wrapf(errs.ErrNotFound, "loan %d", loanID)
		}
		loan = *updated
		return nil
	})
	if err != nil {
		return model.Loan{}, err
	}
	s.publish(ctx, model.LoanReturned, loan)
	return loan, nil
}

// ExtendLoan pushes the due date once. Returned and overdue loans cannot be extended.
func (s *LoanService) ExtendLoan(ctx context.Context, loanID, days int) (model.Loan, error) {
	var loan model.Loan
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		l, err := s.deps.Loans.LockByID(ctx, loanID)
		if err != nil {
			return err
		}
		if l == nil {
			return errors.Wrapf(errs.ErrNotFound, "loan %d", loanID)
		}
		if !l.Outstanding() {
			return errs.ErrAlreadyReturned
		}
		if l.Extended {
			return errs.ErrAlreadyExtended
		}
		if l.DueDate.Before(s.opts.now()) {
			return errs.ErrOverdue
		}
		if days < 1 || days > s.policy.MaxExtensionDays {
			return errs.ErrInvalidExtension
		}
		updated, err := s.deps.Loans.Update(ctx, loanID, map[string]any{
			"due_date": l.DueDate.Add(time.Duration(days) * 24 * time.Hour),
			"extended": true,
		})
		if err != nil {
			return err
		}
		if updated == nil {
			return errors.Wrapf(errs.ErrNotFound, "loan %d", loanID)
		}
		loan = *updated
		return nil
	})
	if err != nil {
		return model.Loan{}, err
	}
	s.publish(ctx, model.LoanExtended, loan)
	return loan, nil
}

func (s *LoanService) Get(ctx context.Context, id int) (model.Loan, error) {
	l, err := s.deps.Loans.Get(ctx, id)
	if err != nil {
		return model.Loan{}, err
	}
	if l == nil {
		return model.Loan{}, errors.Wrapf(errs.ErrNotFound, "loan %d", id)
	}
	return *l, nil
}

func (s *LoanService) GetMulti(ctx context.Context, skip, limit int) (model.ListLoans, error) {
	items, err := s.deps.Loans.GetMulti(ctx, skip, limit)
	if err != nil {
		return model.ListLoans{}, err
	}
	return listLoans(items, skip, limit), nil
}

func (s *LoanService) ListByUser(ctx context.Context, userID, skip, limit int) (model.ListLoans, error) {
	items, err := s.deps.Loans.ListByUser(ctx, userID, skip, limit)
	if err != nil {
		return model.ListLoans{}, err
	}
	return listLoans(items, skip, limit), nil
}

func (s *LoanService) ListOverdue(ctx context.Context, skip, limit int) (model.ListLoans, error) {
	items, err := s.deps.Loans.ListOverdue(ctx, s.opts.now(), skip, limit)
	if err != nil {
		return model.ListLoans{}, err
	}
	return listLoans(items, skip, limit), nil
}

func (s *LoanService) Events(ctx context.Context, loanID int) ([]model.LoanEvent, error) {
	if _, err := s.Get(ctx, loanID); err != nil {
		return nil, err
	}
	events, err := s.deps.Events.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return orEmpty(events), nil
}

// RecordEvent stores an event delivered by the broker.
func (s *LoanService) RecordEvent(ctx context.Context, event model.LoanEvent) error {
	return s.deps.Events.Save(ctx, event)
}

// publish runs after commit; a broker failure does not undo the loan change.
func (s *LoanService) publish(ctx context.Context, typ model.LoanEventType, loan model.Loan) {
	if s.deps.Publisher == nil {
		return
	}
	event := model.LoanEvent{
		ID:         uuid.NewString(),
		LoanID:     loan.ID,
		UserID:     loan.UserID,
		BookID:     loan.BookID,
		EventType:  typ,
		DueDate:    loan.DueDate,
		OccurredAt: s.opts.now(),
	}
	if err := s.deps.Publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish loan event",
			zap.String("type", string(typ)),
			zap.Int("loanID", loan.ID),
			zap.Error(err))
	}
}

func listLoans(items []model.Loan, skip, limit int) model.ListLoans {
	return model.ListLoans{
		Paging: model.Paging{Skip: skip, Limit: limit},
		Items:  orEmpty(items),
	}
}
