package errs

import (
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("incorrect email or password")
)

var (
	ErrUserInactive     = stateError("user inactive")
	ErrBookUnavailable  = stateError("book unavailable")
	ErrAlreadyBorrowed  = stateError("already borrowed")
	ErrLoanLimit        = stateError("loan limit reached")
	ErrAlreadyReturned  = stateError("already returned")
	ErrAlreadyExtended  = stateError("already extended")
	ErrOverdue          = stateError("overdue")
	ErrNegativeQuantity = stateError("quantity cannot be negative")
	ErrInvalidExtension = stateError("invalid extension days")
	ErrSelfDelete       = stateError("cannot delete the current user")
	ErrHasLoans         = stateError("record is referenced by loans")
)

// stateError is a business-rule violation; it matches ErrInvalidState.
type stateError string

func (e stateError) Error() string { return string(e) }

func (e stateError) Is(target error) bool { return target == ErrInvalidState }
