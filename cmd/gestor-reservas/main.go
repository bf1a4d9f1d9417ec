package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/DavidTortosaaa/gestor-reservas/internal/auth"
	"github.com/DavidTortosaaa/gestor-reservas/internal/booking"
	"github.com/DavidTortosaaa/gestor-reservas/internal/config"
	"github.com/DavidTortosaaa/gestor-reservas/internal/db"
	"github.com/DavidTortosaaa/gestor-reservas/internal/email"
	"github.com/DavidTortosaaa/gestor-reservas/internal/handlers"
	"github.com/DavidTortosaaa/gestor-reservas/internal/httpx"
	"github.com/DavidTortosaaa/gestor-reservas/internal/inbox"
	"github.com/DavidTortosaaa/gestor-reservas/internal/kafkax"
	"github.com/DavidTortosaaa/gestor-reservas/internal/notify"
	"github.com/DavidTortosaaa/gestor-reservas/internal/otelx"
	"github.com/DavidTortosaaa/gestor-reservas/internal/outbox"
	"github.com/DavidTortosaaa/gestor-reservas/internal/runtime"
	"github.com/DavidTortosaaa/gestor-reservas/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "gestor-reservas")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	if isTruthy(config.String("MIGRATE_ON_START", "true")) {
		if err := db.Migrate(dbURL); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
		logger.Info("migrations applied")
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)
	store := storage.New(pool, outboxRepo)
	bookingSvc := booking.NewService(store, logger, nil)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	mailer := notify.NewMailer(email.NewSMTPSender(email.Config{
		Host: config.String("SMTP_HOST", "mailpit"),
		Port: config.String("SMTP_PORT", "1025"),
		From: config.String("SMTP_FROM", "no-reply@gestor-reservas.local"),
	}), logger)
	groupID := config.String("KAFKA_GROUP_ID", "gestor-reservas-notify")
	go notify.NewConsumer(logger, inboxRepo, notify.Config{
		Brokers: kafkaBrokers,
		GroupID: groupID,
		Topic:   booking.EventReservationCreated,
	}, mailer.HandleReservationCreated).Run(ctx)
	go notify.NewConsumer(logger, inboxRepo, notify.Config{
		Brokers: kafkaBrokers,
		GroupID: groupID,
		Topic:   booking.EventReservationStatusChanged,
	}, mailer.HandleStatusChanged).Run(ctx)

	jwtSecret := config.String("JWT_SECRET", "dev-secret")
	tokenTTL := config.Duration("TOKEN_TTL", 24*time.Hour)

	authH := handlers.NewAuthHandler(store, logger, jwtSecret, tokenTTL)
	profileH := handlers.NewProfileHandler(store, logger)
	bizH := handlers.NewBusinessHandler(store, logger)
	svcH := handlers.NewServiceHandler(store, logger)
	resH := handlers.NewReservationHandler(bookingSvc, logger)

	requireUser := auth.RequireUser(jwtSecret)
	optionalUser := auth.OptionalUser(jwtSecret)
	protected := func(h http.HandlerFunc) http.Handler { return requireUser(h) }

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	)

	mux.HandleFunc("POST /api/v1/auth/register", authH.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authH.Login)
	mux.Handle("GET /api/v1/auth/me", protected(authH.Me))

	mux.Handle("GET /api/v1/profile", protected(profileH.Get))
	mux.Handle("PATCH /api/v1/profile", protected(profileH.Update))

	mux.Handle("POST /api/v1/businesses", protected(bizH.Create))
	mux.Handle("GET /api/v1/businesses", optionalUser(http.HandlerFunc(bizH.List)))
	mux.Handle("GET /api/v1/businesses/nearby", protected(bizH.Nearby))
	mux.HandleFunc("GET /api/v1/businesses/{id}", bizH.Get)
	mux.Handle("PUT /api/v1/businesses/{id}", protected(bizH.Update))
	mux.Handle("DELETE /api/v1/businesses/{id}", protected(bizH.Delete))

	mux.Handle("GET /api/v1/businesses/{id}/reservations", protected(resH.ListByBusiness))

	mux.Handle("POST /api/v1/businesses/{id}/services", protected(svcH.Create))
	mux.HandleFunc("GET /api/v1/businesses/{id}/services", svcH.ListByBusiness)
	mux.Handle("PUT /api/v1/services/{id}", protected(svcH.Update))
	mux.Handle("DELETE /api/v1/services/{id}", protected(svcH.Delete))

	mux.HandleFunc("GET /api/v1/availability", resH.Availability)
	mux.Handle("POST /api/v1/reservations", protected(resH.Create))
	mux.Handle("GET /api/v1/reservations", protected(resH.List))
	mux.Handle("POST /api/v1/reservations/{id}/status", protected(resH.Status))
	mux.Handle("PATCH /api/v1/reservations/{id}", protected(resH.Cancel))

	bodyLimit := int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))
	requestTimeout := config.Duration("REQUEST_TIMEOUT", 10*time.Second)
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)

	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			AllowCredentials: isTruthy(config.String("CORS_ALLOW_CREDENTIALS", "false")),
			MaxAge:           config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
