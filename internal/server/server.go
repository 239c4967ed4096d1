package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"account-service/internal/config"
	"account-service/internal/events"
	"account-service/internal/handler"
	"account-service/internal/repository"
	"account-service/internal/service"
)

// Server wires the HTTP surface and the customer event consumer around the
// account service.
type Server struct {
	router         *mux.Router
	server         *http.Server
	db             *sql.DB
	redisClient    *redis.Client
	consumer       *events.Consumer
	consumerCancel context.CancelFunc
	logger         *slog.Logger
	port           string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("Successfully connected to database")
	}

	store := repository.NewStore(db, logger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	accountService := service.NewAccountService(store.Account(), rng, logger)
	accountHandler := handler.NewAccountHandler(accountService)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	// Account routes
	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.UpdateAccount).Methods("PUT")
	router.HandleFunc("/accounts/{account_id}", accountHandler.DeleteAccount).Methods("DELETE")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	s := &Server{
		router: router,
		db:     db,
		logger: logger,
	}

	// Customer event intake is optional; without a broker address the service
	// runs HTTP-only.
	if cfg.RedisAddr != "" {
		s.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		s.consumer = events.NewConsumer(s.redisClient, events.ConsumerConfig{
			Stream:   cfg.CustomerStream,
			Group:    cfg.ConsumerGroup,
			Consumer: cfg.ConsumerName,
		}, accountService, logger)
	}

	return s, nil
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
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

// Start starts the HTTP server on the specified port and, when a broker is
// configured, the customer event consumer.
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

	if s.logger != nil {
		s.logger.Info("Starting server", "port", s.port)
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Error("Server failed to start", "error", err)
			}
		}
	}()

	if s.consumer != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.consumerCancel = cancel
		go func() {
			if err := s.consumer.Start(ctx); err != nil && err != context.Canceled {
				if s.logger != nil {
					s.logger.Error("Customer event consumer stopped", "error", err)
				}
			}
		}()
	}

	return s.port, nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("Shutting down server")
	}

	if s.consumerCancel != nil {
		s.consumerCancel()
	}

	if s.redisClient != nil {
		s.redisClient.Close()
	}

	if s.db != nil {
		s.db.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
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

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	// Use a discard logger when the OS picks the port (test environment).
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return server, port, nil
}
