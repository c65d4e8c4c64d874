package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/model"
)

const usersTableName = `users`

var userColumns = []string{"id", "email", "password_hash", "full_name", "is_active", "is_admin", "created_at"}

type UserRepository struct {
	crud[model.User]
}

func NewUserRepository(db *pgxpool.Pool, log *zap.Logger) *UserRepository {
	return &UserRepository{crud: crud[model.User]{
		db:      db,
		log:     log.Named("users"),
		table:   usersTableName,
		columns: userColumns,
	}}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query, args, err := r.selectQ().
		Where(sq.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.one(ctx, query, args...)
}
