package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type DB struct {
	Host     string `yaml:"host" envconfig:"DB_HOST" default:"localhost"`
	Port     string `yaml:"port" envconfig:"DB_PORT" default:"5432"`
	Username string `yaml:"user" envconfig:"DB_USER" default:"postgres"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	NameDB   string `yaml:"dbname" envconfig:"DB_NAME" default:"library"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE" default:"disable"`

	MaxConns        int32         `yaml:"maxConns" envconfig:"DB_MAX_CONNS" default:"8"`
	MinConns        int32         `yaml:"minConns" envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime" envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" envconfig:"DB_MAX_CONN_IDLE_TIME" default:"5m"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout" envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
}

func (cfg *DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     cfg.NameDB,
		RawQuery: url.Values{"sslmode": []string{cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewPostgresDB opens a pool and applies the embedded migrations.
func NewPostgresDB(ctx context.Context, cfg *DB, migrations fs.FS) (*pgxpool.Pool, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(pool, migrations); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func NewPool(ctx context.Context, cfg *DB) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func MigrateUp(pool *pgxpool.Pool, migrations fs.FS) error {
	return migrate(pool, migrations, func(db *sql.DB) error { return goose.Up(db, ".") })
}

func MigrateDown(pool *pgxpool.Pool, migrations fs.FS) error {
	return migrate(pool, migrations, func(db *sql.DB) error { return goose.Down(db, ".") })
}

func MigrateStatus(pool *pgxpool.Pool, migrations fs.FS) error {
	return migrate(pool, migrations, func(db *sql.DB) error { return goose.Status(db, ".") })
}

func migrate(pool *pgxpool.Pool, migrations fs.FS, run func(db *sql.DB) error) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose.SetDialect: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := run(db); err != nil {
		return fmt.Errorf("goose: %w", err)
	}
	return nil
}
