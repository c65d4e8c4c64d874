package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/library-management/library/internal/errs"
	"github.com/Astemirdum/library-management/library/internal/model"
)

type UserService struct {
	log   *zap.Logger
	users UserRepository
	opts  options
}

func NewUserService(users UserRepository, log *zap.Logger, ops ...Option) *UserService {
	return &UserService{
		log:   named(log, "users"),
		users: users,
		opts:  applyOptions(ops),
	}
}

func (s *UserService) Create(ctx context.Context, in model.UserCreate) (model.User, error) {
	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return model.User{}, err
	}
	if existing != nil {
		return model.User{}, errors.Wrapf(errs.ErrDuplicateKey, "email %s", in.Email)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return model.User{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return s.users.Create(ctx, map[string]any{
		"email":         in.Email,
		"password_hash": hash,
		"full_name":     in.FullName,
		"is_active":     active,
		"is_admin":      in.IsAdmin,
	})
}

func (s *UserService) Get(ctx context.Context, id int) (model.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if u == nil {
		return model.User{}, errors.Wrapf(errs.ErrNotFound, "user %d", id)
	}
	return *u, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return model.User{}, err
	}
	if u == nil {
		return model.User{}, errors.Wrapf(errs.ErrNotFound, "user %s", email)
	}
	return *u, nil
}

func (s *UserService) GetMulti(ctx context.Context, skip, limit int) (model.ListUsers, error) {
	items, err := s.users.GetMulti(ctx, skip, limit)
	if err != nil {
		return model.ListUsers{}, err
	}
	return model.ListUsers{
		Paging: model.Paging{Skip: skip, Limit: limit},
		Items:  orEmpty(items),
	}, nil
}

func (s *UserService) Update(ctx context.Context, id int, in model.UserUpdate) (model.User, error) {
	if in.Email != nil {
		other, err := s.users.GetByEmail(ctx, *in.Email)
		if err != nil {
			return model.User{}, err
		}
		if other != nil && other.ID != id {
			return model.User{}, errors.Wrapf(errs.ErrDuplicateKey, "email %s", *in.Email)
		}
	}
	changes := in.Changes()
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return model.User{}, err
		}
		changes["password_hash"] = hash
	}
	u, err := s.users.Update(ctx, id, changes)
	if err != nil {
		return model.User{}, err
	}
	if u == nil {
		return model.User{}, errors.Wrapf(errs.ErrNotFound, "user %d", id)
	}
	return *u, nil
}

func (s *UserService) Remove(ctx context.Context, id int) (model.User, error) {
	u, err := s.users.Remove(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if u == nil {
		return model.User{}, errors.Wrapf(errs.ErrNotFound, "user %d", id)
	}
	return *u, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, cred model.Credentials) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, cred.Email)
	if err != nil {
		return model.User{}, err
	}
	if u == nil {
		return model.User{}, errs.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cred.Password)); err != nil {
		return model.User{}, errs.ErrUnauthorized
	}
	if !u.IsActive {
		return model.User{}, errs.ErrUserInactive
	}
	return *u, nil
}

func (s *UserService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.hashCost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt")
	}
	return string(b), nil
}
