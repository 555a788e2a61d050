package server

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"member-accounts/internal/config"
	"member-accounts/internal/events"
	"member-accounts/internal/handler"
	"member-accounts/internal/push"
	"member-accounts/internal/repository"
	"member-accounts/internal/security"
	"member-accounts/internal/service"
	"member-accounts/migrations"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Server represents the HTTP server
type Server struct {
	router    *mux.Router
	server    *http.Server
	db        *sql.DB
	redis     *redis.Client
	publisher interface{ Close() }
	transport *push.FCMTransport
	logger    *slog.Logger
	port      string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, stderrors.New("JWT_SECRET must be set")
	}

	// Initialize database connection
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Successfully connected to database")

	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Server{
		db:     db,
		logger: logger,
	}

	// Initialize store (Unit of Work)
	var storeOpts []repository.StoreOption
	if cfg.KeyStore == config.KeyStoreRedis {
		rdb, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.redis = rdb
		storeOpts = append(storeOpts, repository.WithKeyPairCache(repository.NewRedisKeyPairRepository(rdb, logger)))
		logger.Info("Caching key pairs in redis", "addr", cfg.RedisAddr)
	}
	store := repository.NewStore(db, logger, storeOpts...)

	var publisher service.EventPublisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.AccountEventsExchange, logger)
		if err != nil {
			s.closeResources()
			return nil, err
		}
		s.publisher = rabbit
		publisher = rabbit
	}

	var transport service.PushTransport = push.NewLogTransport(logger)
	if cfg.FCMCredentialsFile != "" || cfg.FCMProjectID != "" {
		fcm := push.NewFCMTransport(cfg.FCMCredentialsFile, cfg.FCMProjectID, logger)
		s.transport = fcm
		transport = fcm
	}

	var numbers security.AccountNumberGenerator = security.RandomNumberGenerator{Digits: security.AccountNumberDigits}
	if cfg.AccountNumberSource == config.AccountNumberSeed {
		numbers = security.SeedNumberGenerator{Seed: cfg.AccountNumberSeed}
	}

	// Initialize services
	keyService := service.NewKeyService(security.NewRSACipher(cfg.RSAKeyBits), logger)
	accountService := service.NewAccountService(store, keyService, security.NewBcryptHasher(cfg.BcryptCost), numbers, logger,
		service.WithEventPublisher(publisher),
		service.WithKeyRetention(cfg.KeyRetention),
	)
	notificationService := service.NewNotificationService(store, transport, logger)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	s.router = newRouter(logger, []byte(cfg.JWTSecret), healthHandler(db), accountHandler, notificationHandler)
	return s, nil
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// newRouter registers every route. Everything except /health requires a member token.
func newRouter(
	logger *slog.Logger,
	jwtSecret []byte,
	health http.HandlerFunc,
	accountHandler *handler.AccountHandler,
	notificationHandler *handler.NotificationHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/health", health).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(handler.AuthMiddleware(jwtSecret))

	// Account routes
	api.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	api.HandleFunc("/accounts", accountHandler.GetAccount).Methods("GET")
	api.HandleFunc("/accounts", accountHandler.DeleteAccount).Methods("DELETE")
	api.HandleFunc("/accounts/name", accountHandler.UpdateName).Methods("PATCH")
	api.HandleFunc("/accounts/password", accountHandler.UpdatePassword).Methods("PATCH")
	api.HandleFunc("/accounts/password/verify", accountHandler.VerifyPassword).Methods("POST")
	api.HandleFunc("/accounts/pay-date", accountHandler.UpdatePayDate).Methods("PATCH")
	api.HandleFunc("/accounts/min-amount", accountHandler.UpdateMinAmount).Methods("PATCH")

	// Push notification routes; members only ever reach their own stored token.
	api.HandleFunc("/fcm/token", notificationHandler.SaveToken).Methods("POST")
	api.HandleFunc("/fcm/token", notificationHandler.DeleteToken).Methods("DELETE")
	api.HandleFunc("/fcm/notify", notificationHandler.Notify).Methods("POST")

	return router
}

// loggingMiddleware adds request logging with a per-request id
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server, then waits for in-flight pushes and
// releases the backing connections.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	if s.transport != nil {
		s.transport.Wait()
	}

	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Failed to close redis client", "error", err)
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger builds the JSON logger used in production; port "0" means a test
// run and logs are discarded.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.ServerPort == "0" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	server, err := NewServer(cfg, NewLogger(cfg))
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
