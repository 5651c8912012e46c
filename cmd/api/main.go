package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/checkoff-auth/internal/application/auth"
	"github.com/checkoff-auth/internal/application/notification"
	"github.com/checkoff-auth/internal/application/otp"
	"github.com/checkoff-auth/internal/application/session"
	"github.com/checkoff-auth/internal/application/user"
	"github.com/checkoff-auth/internal/config"
	"github.com/checkoff-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/checkoff-auth/internal/infrastructure/jwt"
	"github.com/checkoff-auth/internal/infrastructure/memory"
	"github.com/checkoff-auth/internal/infrastructure/smtp"
	"github.com/checkoff-auth/internal/infrastructure/sns"
	"github.com/checkoff-auth/internal/observability"
	"github.com/checkoff-auth/internal/pkg/hasher"
	transporthttp "github.com/checkoff-auth/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// stores groups the four tables behind whichever backend is configured.
type stores struct {
	users   auth.UserStore
	lookups auth.LookupStore
	otps    otp.Store
	tokens  session.TokenStore
}

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}

	signer, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	sender, err := newSender(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	h := hasher.NewBcrypt(cfg.BcryptCost)
	sessions := session.NewService(session.ServiceDeps{
		Tokens:     st.tokens,
		Users:      st.users,
		Signer:     signer,
		Hasher:     h,
		RefreshTTL: cfg.RefreshTokenExpiry,
		Logger:     logger,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		Users:              st.users,
		Lookups:            st.lookups,
		OTP:                otp.NewService(otp.ServiceDeps{Store: st.otps, DefaultTTL: cfg.OTPTTL}),
		Sessions:           sessions,
		Notifier:           notification.NewService(sender),
		Hasher:             h,
		Metrics:            metrics,
		Logger:             logger,
		ClientHost:         cfg.ClientHost,
		OTPTTL:             cfg.OTPTTL,
		RequireActiveLogin: cfg.RequireActiveLogin,
	})

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Auth:     authSvc,
		Sessions: sessions,
		Users:    user.NewService(user.ServiceDeps{UserRepo: st.users, Hasher: h}),
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreBackend {
	case "memory":
		m := memory.New()
		return &stores{users: m.Users(), lookups: m.EmailLookups(), otps: m.OTPs(), tokens: m.RefreshTokens()}, nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("dynamo client: %w", err)
		}
		if cfg.DynamoBootstrap {
			dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		}
		return &stores{
			users:   dynamo.NewUserRepo(client, cfg.DynamoTables.Users),
			lookups: dynamo.NewEmailLookupRepo(client, cfg.DynamoTables.UserLookup),
			otps:    dynamo.NewOTPRepo(client, cfg.DynamoTables.OTPs),
			tokens:  dynamo.NewRefreshTokenRepo(client, cfg.DynamoTables.RefreshTokens),
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func newSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notification.Sender, error) {
	switch cfg.NotifyTransport {
	case "smtp":
		return smtp.NewMailer(cfg), nil
	case "sns":
		p, err := sns.NewEmailPublisher(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("sns publisher: %w", err)
		}
		return p, nil
	case "log":
		return notification.NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", cfg.NotifyTransport)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
