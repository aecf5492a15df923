package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"macrotrack/internal/api/v1/handler"
	"macrotrack/internal/config"
	"macrotrack/internal/metrics"
	"macrotrack/internal/middleware"
	"macrotrack/internal/notifier"
	"macrotrack/internal/pgmq"
	"macrotrack/internal/pubsub"
	"macrotrack/internal/repository"
	"macrotrack/internal/service"
	"macrotrack/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/coder/quartz"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

type stores struct {
	users   repository.UserRepository
	entries repository.EntryRepository
	usage   repository.UsageRepository
	pool    *pgxpool.Pool
}

// New builds the API handler. The returned cleanup flushes pending webhooks
// and closes every client New opened.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, nil, err
	}

	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")
	if cfg.JWTSecret == "" {
		return fail(fmt.Errorf("JWT_SECRET is required"))
	}
	verifier, err := util.NewVerifier(cfg.JWTAlg, cfg.JWTSecret)
	if err != nil {
		return fail(fmt.Errorf("JWT_ALG/JWT_SECRET: %w", err))
	}

	days, err := cfg.DayKeyConvention()
	if err != nil {
		return fail(err)
	}
	m := metrics.New()
	// Quota and day keys must follow the server's clock, never the client's.
	clock := quartz.NewReal()

	// 1. Storage
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	if st.pool != nil {
		closers = append(closers, st.pool.Close)
	}

	// 2. AI analyzer; the key comes from the environment or Secret Manager.
	var secrets service.SecretManagerService
	if cfg.GeminiAPIKey == "" && cfg.GeminiAPIKeySecret != "" {
		secrets, err = service.NewSecretManagerService(ctx, cfg.GCPProjectID, cfg.GCPCredentialsFile)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = secrets.Close() })
	}
	apiKey, err := service.ResolveAPIKey(ctx, cfg.GeminiAPIKey, cfg.GeminiAPIKeySecret, secrets)
	if err != nil {
		return fail(fmt.Errorf("resolving Gemini API key: %w", err))
	}
	analyzer, err := service.NewGeminiAnalyzer(service.GeminiOptions{
		APIKey:  apiKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: time.Duration(cfg.GeminiTimeoutSec) * time.Second,
	})
	if err != nil {
		return fail(err)
	}

	// 3. Meal photos
	var images service.ImageStore
	if cfg.S3Bucket != "" {
		s3Client, err := newS3Client(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		images = service.NewS3ImageStore(s3Client, cfg.S3Bucket, logger)
	} else {
		logger.Info().Msg("S3_BUCKET not set, meal photos will not be stored")
	}

	// 4. Webhook notifier
	n, closeNotifier, err := newNotifier(ctx, cfg, st.pool, m, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeNotifier)

	// 5. Services & handlers
	validate := validator.New(validator.WithRequiredStructEnabled())

	userSvc := service.NewUserService(st.users, logger)
	quotaSvc := service.NewQuotaService(st.usage, clock, days, cfg.FreeDailyAnalysisLimit, m, logger)
	analysisSvc := service.NewAnalysisService(analyzer, userSvc, quotaSvc, m, logger)
	entrySvc := service.NewEntryService(st.entries, userSvc, images, n, cfg.WebhookDefaultURL, clock, logger)
	historySvc := service.NewHistoryService(userSvc, st.entries, quotaSvc, clock, days, m, logger)

	userHandler := handler.NewUserHandler(userSvc, quotaSvc, validate, cfg.UpgradeURL, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisSvc, validate, cfg.UpgradeURL, logger)
	entryHandler := handler.NewEntryHandler(entrySvc, images, validate, logger)
	historyHandler := handler.NewHistoryHandler(historySvc, images, cfg.UpgradeURL, logger)

	// 6. Middleware
	authMiddleware := middleware.AuthMiddleware(verifier, logger)

	// 7. ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	analysisHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	entryHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	historyHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// 8. CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	logger.Info().Msg("Router initialized")
	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), cleanup, nil
}

// openStores connects to Postgres, or falls back to the in-memory store when
// DATABASE_URL is empty.
func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (stores, error) {
	if cfg.DBConnectionString == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store")
		mem := repository.NewMemoryStore()
		return stores{users: mem, entries: mem, usage: mem}, nil
	}

	pool, err := pgxpool.New(ctx, tuneDSN(cfg.DBConnectionString, cfg.IsDevelopment()))
	if err != nil {
		return stores{}, fmt.Errorf("failed to open DB pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("failed to ping DB: %w", err)
	}
	logger.Info().Msg("Database connection successful")

	return stores{
		users:   repository.NewUserRepo(pool),
		entries: repository.NewEntryRepo(pool),
		usage:   repository.NewUsageRepo(pool),
		pool:    pool,
	}, nil
}

// tuneDSN disables SSL for local development and, elsewhere, switches to the
// simple protocol so a transaction pooler like pgbouncer does not trip over
// server-side prepared statements.
func tuneDSN(dsn string, development bool) string {
	urlStyle := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	appendParam := func(param string) {
		switch {
		case !urlStyle:
			dsn += " " + param
		case strings.Contains(dsn, "?"):
			dsn += "&" + param
		default:
			dsn += "?" + param
		}
	}
	if development && !strings.Contains(dsn, "sslmode") {
		appendParam("sslmode=disable")
	}
	if !development && !strings.Contains(dsn, "default_query_exec_mode") {
		appendParam("default_query_exec_mode=simple_protocol")
	}
	return dsn
}

func newS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	return s3.NewFromConfig(s3Config, func(o *s3.Options) {
		if cfg.S3URL != "" {
			o.BaseEndpoint = aws.String(cfg.S3URL)
			o.UsePathStyle = true
		}
	}), nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}

// newNotifier builds the configured webhook backend wrapped in an async
// fire-and-forget layer. It returns a nil Notifier for NOTIFIER_BACKEND=none.
func newNotifier(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, m *metrics.Metrics, logger zerolog.Logger) (notifier.Notifier, func(), error) {
	timeout := time.Duration(cfg.WebhookTimeoutSec) * time.Second
	noop := func() {}

	switch cfg.NotifierBackend {
	case config.NotifierHTTP:
		a := notifier.NewAsync(notifier.NewHTTPNotifier(timeout), notifier.BackendHTTP, timeout, m, logger)
		return a, a.Close, nil

	case config.NotifierQueue:
		if pool == nil {
			return nil, noop, fmt.Errorf("NOTIFIER_BACKEND=queue requires DATABASE_URL")
		}
		db := stdlib.OpenDBFromPool(pool)
		a := notifier.NewAsync(notifier.NewQueueNotifier(pgmq.New(db), cfg.WebhookQueueName), notifier.BackendQueue, timeout, m, logger)
		return a, func() {
			a.Close()
			_ = db.Close()
		}, nil

	case config.NotifierPubSub:
		var opts []option.ClientOption
		if cfg.GCPCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
		}
		pub, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID, opts...)
		if err != nil {
			return nil, noop, err
		}
		a := notifier.NewAsync(notifier.NewPubSubNotifier(pub, cfg.WebhookTopic), notifier.BackendPubSub, timeout, m, logger)
		return a, func() {
			a.Close()
			_ = pub.Close()
		}, nil

	default:
		logger.Info().Msg("Webhook notifier disabled")
		return nil, noop, nil
	}
}
