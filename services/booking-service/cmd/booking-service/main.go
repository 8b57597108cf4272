package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JanselSanchez/bot-suite-sub000/libs/config"
	"github.com/JanselSanchez/bot-suite-sub000/libs/db"
	"github.com/JanselSanchez/bot-suite-sub000/libs/httpx"
	"github.com/JanselSanchez/bot-suite-sub000/libs/kafkax"
	otelx "github.com/JanselSanchez/bot-suite-sub000/libs/otel"
	"github.com/JanselSanchez/bot-suite-sub000/libs/runtime"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/calendar"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/engine"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/handlers"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/outbox"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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
	pool, err := db.OpenWithOptions(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	store := storage.NewBookingStore(pool, outboxRepo)
	calendarRepo := storage.NewCalendarRepository(pool)
	catalogRepo := storage.NewCatalogRepository(pool)
	settingsRepo := storage.NewSettingsRepository(pool)

	eng := engine.New(store, calendar.NewResolver(calendarRepo), logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(eng, store, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(eng, logger)
	adminHandler := handlers.NewAdminHandler(catalogRepo, calendarRepo, settingsRepo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}

	var publicLimit httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("PUBLIC_RATE_LIMIT", 60), time.Minute, "booking")
		publicLimit = limiter.Middleware(logger, true)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		publicLimit = httpx.NewRateLimiter(config.Int("PUBLIC_RATE_LIMIT", 60), time.Minute).Middleware()
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	public := func(h http.HandlerFunc) http.Handler {
		return publicLimit(h)
	}
	mux.Handle("/api/v1/public/slots", public(availabilityHandler.Slots))
	mux.Handle("/api/v1/public/book", public(bookingHandler.Create))

	mux.HandleFunc("/api/v1/bookings", bookingHandler.List)
	mux.HandleFunc("/api/v1/bookings/reschedule", bookingHandler.Reschedule)
	mux.HandleFunc("/api/v1/bookings/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/bookings/no-show", bookingHandler.NoShow)

	mux.HandleFunc("/api/v1/admin/services", adminHandler.Services)
	mux.HandleFunc("/api/v1/admin/resources", adminHandler.Resources)
	mux.HandleFunc("/api/v1/admin/service-resources", adminHandler.ServiceResources)
	mux.HandleFunc("/api/v1/admin/hours", adminHandler.Hours)
	mux.HandleFunc("/api/v1/admin/exceptions", adminHandler.Exceptions)
	mux.HandleFunc("/api/v1/admin/settings", adminHandler.Settings)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitOrigins(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", "X-Tenant-Id"},
			MaxAge:         10 * time.Minute,
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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

func splitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
