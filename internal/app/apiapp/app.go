package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dmitrysorokin/mediapoints/backend/internal/config"
	s3infra "github.com/dmitrysorokin/mediapoints/backend/internal/infra/s3"
	tginfra "github.com/dmitrysorokin/mediapoints/backend/internal/infra/telegram"
	pgrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/postgres"
	redrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/redis"
	accsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/accounts"
	ratesvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/rate"
	subsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/submissions"
	verifsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/verification"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	var notifier subsvc.Notifier
	if bot, err := tginfra.NewBot(cfg.Bot.Token); err != nil {
		log.Warn("telegram init failed, moderation prompts disabled", zap.Error(err))
	} else {
		notifier = tginfra.NewModerationNotifier(bot, cfg.Bot.AdminChatID)
	}

	accountRepo := pgrepo.NewAccountRepo(pool)
	codeRepo := pgrepo.NewCodeRepo(pool)
	submissionRepo := pgrepo.NewSubmissionRepo(pool)
	windowRepo := redrepo.NewWindowRepo(redisClient)
	staging := subsvc.NewS3Staging(s3Client, cfg.S3.Bucket)

	limiter := ratesvc.NewLimiter(windowRepo, cfg.Verification.IssuePerMinute, cfg.Verification.IssuePer10Sec)
	accountService := accsvc.NewService(accountRepo)
	verificationService := verifsvc.NewService(codeRepo, limiter, cfg.Verification.CodeTTL)
	submissionService := subsvc.NewService(submissionRepo, accountService, staging, notifier, log, cfg.Media.MaxUploadBytes)

	RegisterRoutes(r, Dependencies{
		AccountService:      accountService,
		VerificationService: verificationService,
		SubmissionService:   submissionService,
		Logger:              log,
		Config:              cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
