package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"bookstore-service/internal/api"
	"bookstore-service/internal/auth"
	"bookstore-service/internal/cache"
	"bookstore-service/internal/config"
	"bookstore-service/internal/entity"
	"bookstore-service/internal/events"
	"bookstore-service/internal/idempotency"
	"bookstore-service/internal/mailer"
	"bookstore-service/internal/repository"
	"bookstore-service/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	db, err := config.ConnectDB(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	bookRepo := repository.NewBookRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	var receipts mailer.Sender = mailer.Disabled{}
	if cfg.SMTP.Enabled {
		sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return err
		}
		receipts = sender
	}

	var publisher service.EventPublisher = events.Nop{}
	if w := cfg.NewKafkaWriter(); w != nil {
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing kafka writer")
			}
		}()
		publisher = events.NewPublisher(w)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Publishing order events")
	}

	// guard stays a nil interface when Redis is not configured.
	var guard service.IdempotencyGuard
	if rdb := cfg.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, idempotency keys are not enforced until it recovers")
		}
		guard = idempotency.NewRedisGuard(rdb, cfg.IdempotencyTTL)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)

	authService := service.NewAuthService(userRepo, auth.NewBcryptHasher(), tokens)
	bookService := service.NewBookService(bookRepo, cache.New[[]entity.Book](), cfg.CatalogCacheTTL)
	orderService := service.NewOrderService(orderRepo, bookRepo, userRepo, receipts, publisher, guard, cfg.StrictPaymentTransitions)

	e := api.NewRouter(api.RouterConfig{
		Tokens:      tokens,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
	}, api.Handlers{
		Auth:    api.NewAuthHandler(authService),
		Books:   api.NewBookHandler(bookService),
		Orders:  api.NewOrderHandler(orderService),
		Manager: api.NewManagerHandler(orderService, bookService),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
