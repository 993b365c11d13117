package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	accountstore "github.com/DaniilOrchikov/blps-l1/internal/account/store"
	"github.com/DaniilOrchikov/blps-l1/internal/board"
	"github.com/DaniilOrchikov/blps-l1/internal/payment/gateway"
	paymentstore "github.com/DaniilOrchikov/blps-l1/internal/payment/store"
	"github.com/DaniilOrchikov/blps-l1/internal/platform/config"
	"github.com/DaniilOrchikov/blps-l1/internal/platform/httpserver"
	"github.com/DaniilOrchikov/blps-l1/internal/platform/logger"
	platformmetrics "github.com/DaniilOrchikov/blps-l1/internal/platform/metrics"
	"github.com/DaniilOrchikov/blps-l1/internal/platform/postgres"
	redisclient "github.com/DaniilOrchikov/blps-l1/internal/platform/redis"
	"github.com/DaniilOrchikov/blps-l1/internal/promotion"
	"github.com/DaniilOrchikov/blps-l1/internal/scheduler"
	httptransport "github.com/DaniilOrchikov/blps-l1/internal/transport/http"
	vacancymetrics "github.com/DaniilOrchikov/blps-l1/internal/vacancy/metrics"
	vacancyservice "github.com/DaniilOrchikov/blps-l1/internal/vacancy/service"
	vacancystore "github.com/DaniilOrchikov/blps-l1/internal/vacancy/store"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
	auditconsumer "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/consumer"
	auditpublisher "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/publisher"
	auditkafka "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/store/kafka"
	auditmemory "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/store/memory"
	auditpostgres "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/store/postgres"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/circuit"
)

const auditBufferSize = 1024

// main wires dependencies and keeps the process lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("jobboard exited", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional backends; nil fields mean "not configured".
type infra struct {
	db    *sql.DB
	redis *redisclient.Client
	kafka *auditkafka.Store
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backends.close()

	auditStore, err := newAuditStore(ctx, cfg, backends)
	if err != nil {
		return err
	}
	auditPub := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(auditBufferSize),
		auditpublisher.WithLogger(log),
	)
	defer auditPub.Close()

	var (
		vacancies vacancyservice.VacancyStore
		payments  interface {
			vacancyservice.PaymentStore
			gateway.PaymentStore
		}
		txOpt []vacancyservice.Option
	)
	switch {
	case backends.db != nil:
		vacancies = vacancystore.NewPostgres(backends.db)
		payments = paymentstore.NewPostgres(backends.db)
		txOpt = append(txOpt, vacancyservice.WithTx(newVacancyPostgresTx(backends.db)))
	default:
		vacancies = vacancystore.NewInMemory()
		payments = paymentstore.NewInMemory()
	}
	balances := newBalanceStore(backends)

	var cardOpts []gateway.StubOption
	if cfg.Payments.CardDeclineAll {
		cardOpts = append(cardOpts, gateway.WithDeclineAll())
	}
	payGateway, err := gateway.New(payments, balances, gateway.NewStubCardProcessor(cardOpts...), gateway.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init payment gateway: %w", err)
	}

	boardPublisher, err := board.NewGuarded(
		board.NewSimulated(board.WithLogger(log)),
		circuit.New("external-board",
			circuit.WithFailureThreshold(cfg.Board.FailureThreshold),
			circuit.WithCooldown(cfg.Board.Cooldown),
		),
		log,
	)
	if err != nil {
		return fmt.Errorf("init board publisher: %w", err)
	}

	opts := append([]vacancyservice.Option{
		vacancyservice.WithLogger(log),
		vacancyservice.WithAuditPublisher(auditPub),
		vacancyservice.WithMetrics(vacancymetrics.New()),
	}, txOpt...)
	workflow, err := vacancyservice.New(vacancies, payments, payGateway, boardPublisher, promotion.New(), opts...)
	if err != nil {
		return fmt.Errorf("init vacancy service: %w", err)
	}

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithMetrics(platformmetrics.New()),
	}
	if backends.redis != nil {
		schedOpts = append(schedOpts, scheduler.WithLocker(scheduler.NewRedisLocker(backends.redis.Client)))
	}
	runner, err := scheduler.New(workflow, cfg.Scheduler, schedOpts...)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	routerOpts := []httptransport.Option{httptransport.WithLogger(log)}
	if backends.db != nil {
		routerOpts = append(routerOpts, httptransport.WithHealthCheck("postgres", backends.db.PingContext))
	}
	if backends.redis != nil {
		routerOpts = append(routerOpts, httptransport.WithHealthCheck("redis", backends.redis.Health))
	}
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(routerOpts...))

	// with both kafka and postgres, audit events are also projected into
	// audit_events so they can be queried
	var projection *auditconsumer.Consumer
	if backends.kafka != nil && backends.db != nil && cfg.Kafka.ProjectionGroup != "" {
		projection, err = auditconsumer.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, cfg.Kafka.ProjectionGroup,
			auditconsumer.NewHandler(auditpostgres.New(backends.db), auditconsumer.WithLogger(log)))
		if err != nil {
			return fmt.Errorf("init audit projection: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(ctx)
	})
	if projection != nil {
		g.Go(func() error {
			return projection.Run(ctx)
		})
	}
	g.Go(func() error {
		log.InfoContext(ctx, "starting jobboard", "addr", cfg.Addr)
		return httpserver.Serve(ctx, srv)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("jobboard stopped")
	return nil
}

func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	backends := &infra{}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		backends.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			backends.close()
			return nil, err
		}
		log.InfoContext(ctx, "postgres connected")
	}

	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		backends.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client != nil {
		backends.redis = client
		log.InfoContext(ctx, "redis connected")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		store, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			backends.close()
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		backends.kafka = store
		log.InfoContext(ctx, "kafka audit sink configured", "topic", cfg.Kafka.AuditTopic)
	}
	return backends, nil
}

// newBalanceStore keeps balances in postgres whenever it holds the workflow
// state, so a withdrawal commits or rolls back with the payment and the PAID
// vacancy. Redis holds balances only in deployments without postgres.
func newBalanceStore(backends *infra) gateway.BalanceStore {
	switch {
	case backends.db != nil:
		return accountstore.NewPostgres(backends.db)
	case backends.redis != nil:
		return accountstore.NewRedis(backends.redis.Client)
	default:
		return accountstore.NewInMemory()
	}
}

// newAuditStore prefers kafka, then postgres, then memory.
func newAuditStore(ctx context.Context, cfg config.Server, backends *infra) (audit.Store, error) {
	switch {
	case backends.kafka != nil:
		if err := backends.kafka.EnsureTopic(ctx, 1, 1); err != nil {
			return nil, fmt.Errorf("ensure audit topic %s: %w", cfg.Kafka.AuditTopic, err)
		}
		return backends.kafka, nil
	case backends.db != nil:
		return auditpostgres.New(backends.db), nil
	default:
		return auditmemory.NewInMemoryStore(), nil
	}
}
