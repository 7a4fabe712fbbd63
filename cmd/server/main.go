package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/config"
	"github.com/iliyamo/travel-lottery/internal/database"
	"github.com/iliyamo/travel-lottery/internal/handler"
	"github.com/iliyamo/travel-lottery/internal/logging"
	"github.com/iliyamo/travel-lottery/internal/metrics"
	"github.com/iliyamo/travel-lottery/internal/queue"
	"github.com/iliyamo/travel-lottery/internal/repository"
	"github.com/iliyamo/travel-lottery/internal/repository/memstore"
	"github.com/iliyamo/travel-lottery/internal/router"
	"github.com/iliyamo/travel-lottery/internal/scheduler"
	"github.com/iliyamo/travel-lottery/internal/service"
)

// store is what the process needs from a storage driver.
type store interface {
	repository.Store
	repository.Accounts
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not read .env")
	}
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	if _, err := handler.EnsureOperator(ctx, st, cfg.BootstrapOperatorEmail, cfg.BootstrapOperatorPassword, cfg.BcryptCost, log); err != nil {
		log.WithError(err).Fatal("operator bootstrap failed")
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	opts := []service.Option{service.WithLogger(log)}
	amqpCfg := config.LoadAMQPConfig()
	if amqpCfg.Enabled {
		pub := service.NewAMQPPublisher(amqpCfg, log)
		go func() {
			if err := pub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("event publisher stopped")
			}
		}()
		opts = append(opts, service.WithPublisher(pub))
		if amqpCfg.ConsumerEnabled {
			consumer := queue.NewConsumer(amqpCfg, log)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("audit consumer stopped")
				}
			}()
		}
	}
	svc := service.New(st, opts...)

	schedCfg := config.LoadSchedulerConfig()
	if schedCfg.Enabled {
		sched, err := scheduler.New(schedCfg, svc, log)
		if err != nil {
			log.WithError(err).Fatal("scheduler setup failed")
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				log.WithError(err).Warn("scheduler shutdown")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(logging.RequestLogger(log))
	e.Use(metrics.Middleware())

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(cfg, st, log),
		Lotteries: handler.NewLotteryHandler(svc, log),
		Verify:    handler.NewVerifyHandler(svc, log),
		Admin:     handler.NewAdminHandler(svc, log),
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Log:       log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "storage": cfg.StorageDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
}

// openStore connects the configured storage driver.  MySQL schemas are
// migrated before the pool is opened.
func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (store, func()) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		return memstore.New(), func() {}
	}

	p := database.Params{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName}
	version, err := database.Migrate(p)
	if err != nil {
		log.WithError(err).Fatal("migrate failed")
	}
	log.WithField("version", version).Info("schema migrated")

	db, err := database.Open(ctx, p)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	return repository.NewMySQLStore(db), func() { _ = db.Close() }
}
