package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/thinkmirai/auth-gateway/internal/config"
	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/http/handler"
	"github.com/thinkmirai/auth-gateway/internal/http/router"
	"github.com/thinkmirai/auth-gateway/internal/identity"
	"github.com/thinkmirai/auth-gateway/internal/notify"
	"github.com/thinkmirai/auth-gateway/internal/observability"
	"github.com/thinkmirai/auth-gateway/internal/repository"
	"github.com/thinkmirai/auth-gateway/internal/security"
	"github.com/thinkmirai/auth-gateway/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	Server        *http.Server
	Observability *observability.Runtime
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	runtime, err := observability.InitRuntime(ctx, observability.RuntimeConfig{
		MetricsEnabled: cfg.OTELMetricsEnabled,
		OTLPEndpoint:   cfg.OTELExporterOTLPEndpoint,
		OTLPInsecure:   cfg.OTELExporterOTLPInsecure,
		ServiceName:    cfg.OTELServiceName,
		Environment:    cfg.OTELEnvironment,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.Session{},
		&domain.FailedLogin{},
		&domain.LoginHistory{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var redisClient *redis.Client
	var missCache service.IntrospectMissCache = service.NewInMemoryMissCache()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		missCache = service.NewRedisMissCache(redisClient, "introspect_miss")
	}

	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.MailConfigured() {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
	}

	provider := identity.NewHTTPClient(cfg.IdentityBaseURL)
	jwtMgr := security.NewJWTManager(cfg.TokenIssuer, cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	accounts := repository.NewAccountRepository(db)
	sessions := repository.NewSessionRepository(db)
	attempts := repository.NewAttemptRepository(db)
	history := repository.NewLoginHistoryRepository(db)

	tracker := service.NewAttemptTracker(attempts, accounts, cfg.MaxFailedAttempts, cfg.LockoutDuration)
	authService := service.NewAuthService(service.AuthServiceDeps{
		Accounts:    accounts,
		Sessions:    sessions,
		History:     history,
		Tracker:     tracker,
		Tokens:      jwtMgr,
		Verifier:    provider,
		Provisioner: provider,
		Notifier:    notifier,
		MissCache:   missCache,
	})
	sessionService := service.NewSessionService(accounts, sessions, history)

	mux := router.New(router.Dependencies{
		AuthHandler: handler.NewAuthHandler(authService, handler.CookieConfig{
			Secure:     cfg.CookieSecure,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		}),
		SessionHandler:   handler.NewSessionHandler(sessionService),
		JWTManager:       jwtMgr,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Redis:         redisClient,
		Server:        server,
		Observability: runtime,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr, "env", a.Config.Env)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close(ctx context.Context) {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", "error", err)
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		a.Logger.Warn("shutdown observability", "error", err)
	}
}
