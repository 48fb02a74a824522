package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"furnishai-web/internal/config"
	"furnishai-web/internal/database"
	"furnishai-web/internal/handlers"
	"furnishai-web/internal/middleware"
	"furnishai-web/internal/repository"
	"furnishai-web/internal/router"
	"furnishai-web/internal/services"
	"furnishai-web/internal/views"
	"furnishai-web/internal/websocket"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stdout
	if cfg.IsProduction() {
		log.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	} else {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.Level = level
	return log
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log := newLogger(cfg)
	log.Info("starting FurnishAI web")

	// ──── Step 2: Backend Client ────
	backend := services.NewBackendClient(cfg.BackendURL, cfg.BackendTimeout)
	log.WithField("backend", cfg.BackendURL).Info("backend client configured")

	// ──── Step 3: Product Source ────
	var products services.ProductSource = backend
	if cfg.CatalogSource == config.CatalogSourcePostgres {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("PostgreSQL connection failed")
		}
		defer pool.Close()

		if err := database.RunMigrations(pool, log); err != nil {
			log.WithError(err).Fatal("database migration failed")
		}
		products = repository.NewProductRepo(pool)
		log.Info("catalogue served from PostgreSQL")
	}

	// ──── Step 4: Conversation Store ────
	var (
		conversations repository.ConversationRepository
		janitor       *services.SessionJanitor
		redisClients  *database.RedisClients
	)
	if cfg.RedisURL != "" {
		clients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("Redis connection failed")
		}
		defer clients.Close()
		redisClients = clients
		// Submits renew the flag while they wait; the TTL only reclaims
		// flags left behind by a crashed instance.
		inFlightTTL := 3 * services.InFlightRefreshInterval
		conversations = repository.NewRedisConversationRepo(clients.Store, cfg.SessionTTL, inFlightTTL)
		log.Info("conversations stored in Redis")
	} else {
		memRepo := repository.NewMemoryConversationRepo()
		conversations = memRepo
		janitor = services.NewSessionJanitor(memRepo, cfg.SessionTTL, cfg.SessionSweepInterval, log)
		janitor.Start()
		log.Info("conversations stored in memory")
	}

	// ──── Step 5: WebSocket Hub ────
	sessions := middleware.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL)
	var wsHub *websocket.Hub
	if redisClients != nil {
		wsHub = websocket.NewHub(redisClients.PubSub, sessions, log)
	} else {
		wsHub = websocket.NewHub(nil, sessions, log)
	}

	// ──── Step 6: Services & Handlers ────
	chatService := services.NewChatService(conversations, backend, wsHub, log)
	analyticsService := services.NewAnalyticsService(products, log)

	renderer, err := views.New(cfg.PlaceholderImageURL)
	if err != nil {
		log.WithError(err).Fatal("template parsing failed")
	}

	chatLimiter := middleware.NewRateLimiter(cfg.ChatRateLimit, time.Minute)
	infoHandler := handlers.NewInfoHandler(cfg)
	pageHandler := handlers.NewPageHandler(renderer, chatService, analyticsService, handlers.InfoEntries(cfg), sessions)
	chatHandler := handlers.NewChatHandler(chatService, sessions)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		log,
		sessions,
		chatLimiter,
		pageHandler,
		chatHandler,
		analyticsHandler,
		infoHandler,
		wsHub,
		cfg.FrontendURL,
	)

	// Submits wait on the backend, so writes must outlast its timeout.
	writeTimeout := cfg.BackendTimeout + 15*time.Second
	if cfg.BackendTimeout == 0 {
		writeTimeout = 0
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		if janitor != nil {
			janitor.Stop()
		}
		chatLimiter.Stop()
		wsHub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.WithFields(logrus.Fields{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Infof("FurnishAI web ready on http://localhost:%s", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.WithError(err).Fatal("server error")
	}
}
