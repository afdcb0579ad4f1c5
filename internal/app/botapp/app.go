package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dmitrysorokin/mediapoints/backend/internal/config"
	s3infra "github.com/dmitrysorokin/mediapoints/backend/internal/infra/s3"
	tginfra "github.com/dmitrysorokin/mediapoints/backend/internal/infra/telegram"
	"github.com/dmitrysorokin/mediapoints/backend/internal/jobs/cleanup"
	pgrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/postgres"
	redrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/redis"
	accsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/accounts"
	ratesvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/rate"
	subsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/submissions"
	verifsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/verification"
)

const (
	welcomeText = "🎉 Добро пожаловать!\n\n" +
		"Вы успешно зарегистрированы в системе.\n" +
		"Теперь вы можете отправлять медиа через приложение и зарабатывать баллы!"
	registerFirstText = "Отправьте /start, чтобы зарегистрироваться."
	genericErrorText  = "❌ Произошла ошибка. Попробуйте позже."
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	s3       *minio.Client
	bot      *tginfra.Bot

	accountService      *accsvc.Service
	verificationService *verifsvc.Service
	submissionService   *subsvc.Service
	cleanupJob          *cleanup.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	s3Client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init s3 for bot app: %w", err)
	}

	accountRepo := pgrepo.NewAccountRepo(pool)
	codeRepo := pgrepo.NewCodeRepo(pool)
	submissionRepo := pgrepo.NewSubmissionRepo(pool)
	windowRepo := redrepo.NewWindowRepo(redisClient)
	staging := subsvc.NewS3Staging(s3Client, cfg.S3.Bucket)

	limiter := ratesvc.NewLimiter(windowRepo, cfg.Verification.IssuePerMinute, cfg.Verification.IssuePer10Sec)
	accountService := accsvc.NewService(accountRepo)
	verificationService := verifsvc.NewService(codeRepo, limiter, cfg.Verification.CodeTTL)
	submissionService := subsvc.NewService(submissionRepo, accountService, staging, nil, logger, cfg.Media.MaxUploadBytes)
	cleanupJob := cleanup.New(codeRepo, staging, cfg.Verification.CodeRetention, cfg.Media.StagingRetention, logger)

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, update listener disabled")
	}

	return &App{
		cfg:                 cfg,
		logger:              logger,
		postgres:            pool,
		redis:               redisClient,
		s3:                  s3Client,
		bot:                 bot,
		accountService:      accountService,
		verificationService: verificationService,
		submissionService:   submissionService,
		cleanupJob:          cleanupJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnCommand:  a.handleCommand,
				OnCallback: a.handleCallback,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runCleanupLoop(ctx context.Context) error {
	if a.cleanupJob == nil {
		return nil
	}

	interval := a.cfg.Bot.CleanupInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	if err := a.cleanupJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cleanupJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.handleStart(ctx, update)
	case "points":
		return a.handlePoints(ctx, update)
	default:
		return nil
	}
}

// handleStart registers the chat on first contact and hands out a fresh
// login code either way. Reissuing invalidates any earlier unused code.
func (a *App) handleStart(ctx context.Context, update tginfra.CommandUpdate) error {
	identity := strconv.FormatInt(update.ChatID, 10)

	_, err := a.accountService.GetByIdentity(ctx, identity)
	isNew := errors.Is(err, accsvc.ErrAccountNotFound)
	if err != nil && !isNew {
		a.logger.Error("failed to look up account on /start", zap.Error(err), zap.String("identity", identity))
		return a.bot.SendText(ctx, update.ChatID, genericErrorText)
	}

	if isNew {
		if _, err := a.accountService.FindOrCreate(ctx, identity, update.Username); err != nil {
			a.logger.Error("failed to register account", zap.Error(err), zap.String("identity", identity))
			return a.bot.SendText(ctx, update.ChatID, "❌ Ошибка регистрации. Попробуйте позже.")
		}
		if err := a.bot.SendText(ctx, update.ChatID, welcomeText); err != nil {
			return err
		}
	}

	issued, err := a.verificationService.Issue(ctx, identity, update.Username)
	if err != nil {
		var tooMany *verifsvc.TooManyRequestsError
		if errors.As(err, &tooMany) {
			return a.bot.SendText(ctx, update.ChatID,
				fmt.Sprintf("⏳ Слишком много запросов кода. Попробуйте через %d сек.", tooMany.RetryAfterSec))
		}
		a.logger.Error("failed to issue login code", zap.Error(err), zap.String("identity", identity))
		return a.bot.SendText(ctx, update.ChatID, genericErrorText)
	}

	return a.bot.SendMarkdown(ctx, update.ChatID, a.loginCodeText(update.Username, issued.Code, isNew))
}

func (a *App) loginCodeText(username, code string, isNew bool) string {
	ttlMinutes := int(a.cfg.Verification.CodeTTL.Minutes())
	if ttlMinutes <= 0 {
		ttlMinutes = 10
	}

	var b strings.Builder
	if !isNew && strings.TrimSpace(username) != "" {
		fmt.Fprintf(&b, "👋 С возвращением, @%s!\n\n", username)
	}
	fmt.Fprintf(&b, "📱 Ваш код для входа:\n\n`%s`\n\n⏰ Код действителен %d минут.", code, ttlMinutes)
	return b.String()
}

func (a *App) handlePoints(ctx context.Context, update tginfra.CommandUpdate) error {
	identity := strconv.FormatInt(update.ChatID, 10)

	account, err := a.accountService.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, accsvc.ErrAccountNotFound) {
			return a.bot.SendText(ctx, update.ChatID, registerFirstText)
		}
		a.logger.Error("failed to load account balance", zap.Error(err), zap.String("identity", identity))
		return a.bot.SendText(ctx, update.ChatID, genericErrorText)
	}

	return a.bot.SendText(ctx, update.ChatID, fmt.Sprintf("💎 Ваши баллы: %d", account.Points))
}

// handleCallback settles a moderation verdict. A stale button press on an
// already decided submission is answered and otherwise ignored.
func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if a.bot == nil {
		return nil
	}

	decision, submissionID, err := subsvc.ParseDecisionToken(update.Data)
	if err != nil {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Неизвестное действие")
	}

	outcome, err := a.submissionService.Decide(ctx, decision, submissionID, update.UserID)
	if err != nil {
		switch {
		case errors.Is(err, subsvc.ErrAlreadyDecided):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Уже обработано")
		case errors.Is(err, subsvc.ErrSubmissionNotFound):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Заявка не найдена")
		}
		a.logger.Error("failed to settle moderation verdict",
			zap.Error(err), zap.Int64("submission_id", submissionID))
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Не удалось обработать")
	}

	if err := a.bot.AnswerCallback(ctx, update.CallbackID, verdictShortText(outcome)); err != nil {
		return err
	}
	if err := a.bot.SendText(ctx, update.ChatID, verdictAdminText(outcome)); err != nil {
		return err
	}

	a.notifySubmitter(ctx, outcome)
	return nil
}

// notifySubmitter tells the author about the verdict. Delivery here is best
// effort: the decision is already settled and must not be rolled back.
func (a *App) notifySubmitter(ctx context.Context, outcome subsvc.Outcome) {
	chatID, err := strconv.ParseInt(outcome.Account.Identity, 10, 64)
	if err != nil {
		a.logger.Warn("account identity is not a chat id", zap.String("identity", outcome.Account.Identity))
		return
	}

	if err := a.bot.SendText(ctx, chatID, verdictSubmitterText(outcome)); err != nil {
		a.logger.Warn("failed to notify submitter about verdict",
			zap.Error(err), zap.Int64("submission_id", outcome.Submission.ID))
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
