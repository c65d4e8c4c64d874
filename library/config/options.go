package config

import (
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/library-management/library/internal/service"
)

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}

func WithLoanPolicy(policy service.LoanPolicy) Option {
	return func(c *Config) {
		c.Loan = policy
	}
}
