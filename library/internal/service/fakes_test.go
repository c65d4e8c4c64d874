package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/library-management/library/internal/errs"
	"github.com/Astemirdum/library-management/library/internal/model"
)

// memDB is an in-memory stand-in for the postgres repositories.
type memDB struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	nextID int
	users  map[int]model.User
	books  map[int]model.Book
	loans  map[int]model.Loan
	events []model.LoanEvent

	loanCreateErr error
}

func newMemDB() *memDB {
	return &memDB{
		users: make(map[int]model.User),
		books: make(map[int]model.Book),
		loans: make(map[int]model.Loan),
	}
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

func (db *memDB) addUser(u model.User) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u.ID = db.id()
	db.users[u.ID] = u
	return u
}

func (db *memDB) addBook(b model.Book) model.Book {
	db.mu.Lock()
	defer db.mu.Unlock()
	b.ID = db.id()
	db.books[b.ID] = b
	return b
}

func (db *memDB) book(id int) model.Book {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.books[id]
}

func (db *memDB) loan(id int) model.Loan {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.loans[id]
}

func (db *memDB) loanCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.loans)
}

// WithinTx serializes transactions and restores the previous state when fn fails.
func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	users, books, loans := clone(db.users), clone(db.books), clone(db.loans)
	db.mu.Unlock()

	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.users, db.books, db.loans = users, books, loans
		db.mu.Unlock()
		return err
	}
	return nil
}

func clone[T any](m map[int]T) map[int]T {
	out := make(map[int]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func page[T any](m map[int]T, keep func(T) bool, skip, limit int) []T {
	ids := make([]int, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	var out []T
	for i, id := range ids {
		if i < skip {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m[id])
	}
	return out
}

func ptr[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

type userRepo struct{ db *memDB }

func (r userRepo) Create(_ context.Context, f map[string]any) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == f["email"] {
			return model.User{}, errs.ErrDuplicateKey
		}
	}
	u := model.User{
		ID:           r.db.id(),
		Email:        f["email"].(string),
		PasswordHash: f["password_hash"].(string),
		FullName:     f["full_name"].(string),
		IsActive:     f["is_active"].(bool),
		IsAdmin:      f["is_admin"].(bool),
		CreatedAt:    time.Now(),
	}
	r.db.users[u.ID] = u
	return u, nil
}

func (r userRepo) Get(_ context.Context, id int) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	return ptr(u, ok), nil
}

func (r userRepo) LockByID(ctx context.Context, id int) (*model.User, error) {
	return r.Get(ctx, id)
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return ptr(u, true), nil
		}
	}
	return nil, nil
}

func (r userRepo) GetMulti(_ context.Context, skip, limit int) ([]model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return page(r.db.users, nil, skip, limit), nil
}

func (r userRepo) Update(_ context.Context, id int, changes map[string]any) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	for k, v := range changes {
		switch k {
		case "email":
			u.Email = v.(string)
		case "password_hash":
			u.PasswordHash = v.(string)
		case "full_name":
			u.FullName = v.(string)
		case "is_active":
			u.IsActive = v.(bool)
		case "is_admin":
			u.IsAdmin = v.(bool)
		}
	}
	r.db.users[id] = u
	return &u, nil
}

func (r userRepo) Remove(_ context.Context, id int) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.loans {
		if l.UserID == id {
			return nil, errs.ErrHasLoans
		}
	}
	u, ok := r.db.users[id]
	delete(r.db.users, id)
	return ptr(u, ok), nil
}

type bookRepo struct{ db *memDB }

func (r bookRepo) Create(_ context.Context, f map[string]any) (model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.books {
		if b.ISBN == f["isbn"] {
			return model.Book{}, errs.ErrDuplicateKey
		}
	}
	b := model.Book{
		ID:              r.db.id(),
		Title:           f["title"].(string),
		Author:          f["author"].(string),
		ISBN:            f["isbn"].(string),
		PublicationYear: f["publication_year"].(int),
		Description:     f["description"].(*string),
		Quantity:        f["quantity"].(int),
		CreatedAt:       time.Now(),
	}
	r.db.books[b.ID] = b
	return b, nil
}

func (r bookRepo) Get(_ context.Context, id int) (*model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.books[id]
	return ptr(b, ok), nil
}

func (r bookRepo) LockByID(ctx context.Context, id int) (*model.Book, error) {
	return r.Get(ctx, id)
}

func (r bookRepo) AddQuantity(_ context.Context, id, delta int) (*model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.books[id]
	if !ok || b.Quantity+delta < 0 {
		return nil, nil
	}
	b.Quantity += delta
	r.db.books[id] = b
	return &b, nil
}

func (r bookRepo) GetByISBN(_ context.Context, isbn string) (*model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.books {
		if b.ISBN == isbn {
			return ptr(b, true), nil
		}
	}
	return nil, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (r bookRepo) SearchByTitle(_ context.Context, title string, skip, limit int) ([]model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return page(r.db.books, func(b model.Book) bool { return containsFold(b.Title, title) }, skip, limit), nil
}

func (r bookRepo) SearchByAuthor(_ context.Context, author string, skip, limit int) ([]model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return page(r.db.books, func(b model.Book) bool { return containsFold(b.Author, author) }, skip, limit), nil
}

func (r bookRepo) GetMulti(_ context.Context, skip, limit int) ([]model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return page(r.db.books, nil, skip, limit), nil
}

func (r bookRepo) Update(_ context.Context, id int, changes map[string]any) (*model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.books[id]
	if !ok {
		return nil, nil
	}
	for k, v := range changes {
		switch k {
		case "title":
			b.Title = v.(string)
		case "author":
			b.Author = v.(string)
		case "isbn":
			b.ISBN = v.(string)
		case "publication_year":
			b.PublicationYear = v.(int)
		case "description":
			d := v.(string)
			b.Description = &d
		case "quantity":
			b.Quantity = v.(int)
		}
	}
	r.db.books[id] = b
	return &b, nil
}

func (r bookRepo) Remove(_ context.Context, id int) (*model.Book, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.loans {
		if l.BookID == id {
			return nil, errs.ErrHasLoans
		}
	}
	b, ok := r.db.books[id]
	delete(r.db.books, id)
	return ptr(b, ok), nil
}

type loanRepo struct{ db *memDB }

func (r loanRepo) Create(_ context.Context, f map[string]any) (model.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.loanCreateErr != nil {
		return model.Loan{}, r.db.loanCreateErr
	}
	l := model.Loan{
		ID:       r.db.id(),
		UserID:   f["user_id"].(int),
		BookID:   f["book_id"].(int),
		LoanDate: f["loan_date"].(time.Time),
		DueDate:  f["due_date"].(time.Time),
		Extended: f["extended"].(bool),
	}
	for _, other := range r.db.loans {
		if other.Outstanding() && other.UserID == l.UserID && other.BookID == l.BookID {
			return model.Loan{}, errs.ErrDuplicateKey
		}
	}
	r.db.loans[l.ID] = l
	return l, nil
}

func (r loanRepo) Get(_ context.Context, id int) (*model.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.loans[id]
	return ptr(l, ok), nil
}

func (r loanRepo) LockByID(ctx context.Context, id int) (*model.Loan, error) {
	return r.Get(ctx, id)
}

func (r loanRepo) Update(_ context.Context, id int, changes map[string]any) (*model.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.loans[id]
	if !ok {
		return nil, nil
	}
	for k, v := range changes {
		switch k {
		case "return_date":
			t := v.(time.Time)
			l.ReturnDate = &t
		case "due_date":
			l.DueDate = v.(time.Time)
		case "extended":
			l.Extended = v.(bool)
		}
	}
	r.db.loans[id] = l
	return &l, nil
}

func (r loanRepo) outstanding(keep func(model.Loan) bool) int {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, l := range r.db.loans {
		if l.Outstanding() && keep(l) {
			n++
		}
	}
	return n
}

func (r loanRepo) CountOutstanding(_ context.Context, userID int) (int, error) {
	return r.outstanding(func(l model.Loan) bool { return l.UserID == userID }), nil
}

func (r loanRepo) HasOutstanding(_ context.Context, userID, bookID int) (bool, error) {
	return r.outstanding(func(l model.Loan) bool { return l.UserID == userID && l.BookID == bookID }) > 0, nil
}

func (r loanRepo) GetMulti(_ context.Context, skip, limit int) ([]model.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return page(r.db.loans, nil, skip, limit), nil
}

func (r loanRepo) ListByUser(_ context.Context, userID, skip, limit int) ([]model.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return page(r.db.loans, func(l model.Loan) bool { return l.UserID == userID }, skip, limit), nil
}

func (r loanRepo) ListOverdue(_ context.Context, now time.Time, skip, limit int) ([]model.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return page(r.db.loans, func(l model.Loan) bool { return l.Overdue(now) }, skip, limit), nil
}

type eventRepo struct{ db *memDB }

func (r eventRepo) Save(_ context.Context, event model.LoanEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.events {
		if e.ID == event.ID {
			return nil
		}
	}
	r.db.events = append(r.db.events, event)
	return nil
}

func (r eventRepo) ListByLoan(_ context.Context, loanID int) ([]model.LoanEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.LoanEvent
	for _, e := range r.db.events {
		if e.LoanID == loanID {
			out = append(out, e)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []model.LoanEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event model.LoanEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []model.LoanEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.LoanEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
