package model

import (
	"time"
)

type Paging struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

type ListUsers struct {
	Paging `json:",inline"`
	Items  []User `json:"items"`
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type ListLoans struct {
	Paging `json:",inline"`
	Items  []Loan `json:"items"`
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type UserCreate struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=255"`
	IsActive *bool  `json:"is_active"`
	IsAdmin  bool   `json:"is_admin"`
}

// UserUpdate carries only the fields present in the request.
type UserUpdate struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
}

// SelfUpdate strips the privilege flags a user may not change on their own account.
func (u UserUpdate) SelfUpdate() UserUpdate {
	u.IsActive = nil
	u.IsAdmin = nil
	return u
}

type Signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=255"`
}

// UserCreate turns a self-registration into an active, non-admin account.
func (s Signup) UserCreate() UserCreate {
	return UserCreate{
		Email:    s.Email,
		Password: s.Password,
		FullName: s.FullName,
	}
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Book struct {
	ID              int       `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Author          string    `json:"author" db:"author"`
	ISBN            string    `json:"isbn" db:"isbn"`
	PublicationYear int       `json:"publication_year" db:"publication_year"`
	Description     *string   `json:"description" db:"description"`
	Quantity        int       `json:"quantity" db:"quantity"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type BookCreate struct {
	Title           string  `json:"title" validate:"required,max=255"`
	Author          string  `json:"author" validate:"required,max=255"`
	ISBN            string  `json:"isbn" validate:"required,min=10,max=17"`
	PublicationYear int     `json:"publication_year" validate:"required,min=0,max=9999"`
	Description     *string `json:"description"`
	Quantity        int     `json:"quantity" validate:"min=0"`
}

type BookUpdate struct {
	Title           *string `json:"title" validate:"omitempty,max=255"`
	Author          *string `json:"author" validate:"omitempty,max=255"`
	ISBN            *string `json:"isbn" validate:"omitempty,min=10,max=17"`
	PublicationYear *int    `json:"publication_year" validate:"omitempty,min=0,max=9999"`
	Description     *string `json:"description"`
	Quantity        *int    `json:"quantity" validate:"omitempty,min=0"`
}

type QuantityChange struct {
	Delta int `json:"delta" validate:"required"`
}

type Loan struct {
	ID         int        `json:"id" db:"id"`
	UserID     int        `json:"user_id" db:"user_id"`
	BookID     int        `json:"book_id" db:"book_id"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date" db:"return_date"`
	Extended   bool       `json:"extended" db:"extended"`
}

// Outstanding reports whether the book has not been returned yet.
func (l Loan) Outstanding() bool {
	return l.ReturnDate == nil
}

func (l Loan) Overdue(now time.Time) bool {
	return l.Outstanding() && l.DueDate.Before(now)
}

type LoanCreateRequest struct {
	BookID int `json:"book_id" validate:"required,gt=0"`
	UserID int `json:"user_id" validate:"omitempty,gt=0"`
}

type LoanExtendRequest struct {
	ExtensionDays int `json:"extension_days" validate:"required,gt=0"`
}

type LoanEventType string

const (
	LoanCreated  LoanEventType = "loan_created"
	LoanReturned LoanEventType = "loan_returned"
	LoanExtended LoanEventType = "loan_extended"
)

type LoanEvent struct {
	ID         string        `json:"id" db:"id"`
	LoanID     int           `json:"loan_id" db:"loan_id"`
	UserID     int           `json:"user_id" db:"user_id"`
	BookID     int           `json:"book_id" db:"book_id"`
	EventType  LoanEventType `json:"event_type" db:"event_type"`
	DueDate    time.Time     `json:"due_date" db:"due_date"`
	OccurredAt time.Time     `json:"occurred_at" db:"occurred_at"`
}

// Changes maps the set fields to their column names.
func (u UserUpdate) Changes() map[string]any {
	changes := make(map[string]any)
	if u.Email != nil {
		changes["email"] = *u.Email
	}
	if u.FullName != nil {
		changes["full_name"] = *u.FullName
	}
	if u.IsActive != nil {
		changes["is_active"] = *u.IsActive
	}
	if u.IsAdmin != nil {
		changes["is_admin"] = *u.IsAdmin
	}
	return changes
}

func (b BookCreate) Fields() map[string]any {
	return map[string]any{
		"title":            b.Title,
		"author":           b.Author,
		"isbn":             b.ISBN,
		"publication_year": b.PublicationYear,
		"description":      b.Description,
		"quantity":         b.Quantity,
	}
}

func (b BookUpdate) Changes() map[string]any {
	changes := make(map[string]any)
	if b.Title != nil {
		changes["title"] = *b.Title
	}
	if b.Author != nil {
		changes["author"] = *b.Author
	}
	if b.ISBN != nil {
		changes["isbn"] = *b.ISBN
	}
	if b.PublicationYear != nil {
		changes["publication_year"] = *b.PublicationYear
	}
	if b.Description != nil {
		changes["description"] = *b.Description
	}
	if b.Quantity != nil {
		changes["quantity"] = *b.Quantity
	}
	return changes
}
