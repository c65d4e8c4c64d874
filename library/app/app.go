package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-management/library/config"
	"github.com/Astemirdum/library-management/library/internal/handler"
	"github.com/Astemirdum/library-management/library/internal/queue"
	"github.com/Astemirdum/library-management/library/internal/repository"
	"github.com/Astemirdum/library-management/library/internal/server"
	"github.com/Astemirdum/library-management/library/internal/service"
	"github.com/Astemirdum/library-management/library/migrations"
	"github.com/Astemirdum/library-management/pkg/auth"
	"github.com/Astemirdum/library-management/pkg/circuit_breaker"
	"github.com/Astemirdum/library-management/pkg/kafka"
	"github.com/Astemirdum/library-management/pkg/logger"
	"github.com/Astemirdum/library-management/pkg/postgres"
)

const shutdownTimeout = 5 * time.Second

type publisher interface {
	service.EventPublisher
	Close() error
}

func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "library")
	defer log.Sync() //nolint:errcheck

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return errors.Wrap(err, "auth init")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return errors.Wrap(err, "db init")
	}
	defer db.Close()

	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return errors.Wrap(err, "repo")
	}

	var pub publisher = queue.Noop{}
	if cfg.Kafka.Enable {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return errors.Wrap(err, "kafka.NewProducer")
		}
		pub = queue.NewPublisher(producer, circuit_breaker.New(cfg.CircuitBreaker), kafka.LoanTopic, log)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Error("publisher close", zap.Error(err))
		}
	}()

	userSvc := service.NewUserService(repo.Users, log)
	bookSvc := service.NewBookService(repo.Transactor, repo.Books, log)
	loanSvc := service.NewLoanService(service.LoanDeps{
		Tx:        repo.Transactor,
		Users:     repo.Users,
		Books:     repo.Books,
		Stock:     repo.Books,
		Loans:     repo.Loans,
		Events:    repo.Events,
		Publisher: pub,
	}, cfg.Loan, log)

	h := handler.New(userSvc, bookSvc, loanSvc, tokens, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())

	var consumer sarama.ConsumerGroup
	if cfg.Kafka.Enable {
		if consumer, err = kafka.NewConsumer(cfg.Kafka, kafka.LoanConsumerGroup); err != nil {
			return errors.Wrap(err, "kafka.NewConsumer")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server start ON: ", zap.String("addr", srv.Addr()))
		return srv.Run()
	})
	if consumer != nil {
		g.Go(func() error {
			defer consumer.Close() //nolint:errcheck
			return kafka.Consume(gctx, consumer, handler.NewConsumer(loanSvc.RecordEvent, log), kafka.LoanTopic)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Debug("Graceful shutdown", zap.Error(context.Cause(gctx)))

		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(closeCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Graceful shutdown finished")
	return nil
}
