package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adelhazem/social-gateway/internal/config"
	"github.com/adelhazem/social-gateway/internal/gateway"
	"github.com/adelhazem/social-gateway/internal/storage"
	"github.com/adelhazem/social-gateway/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The gateway sits behind the main API's reverse proxy
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting real-time gateway",
		logger.Int("port", cfg.Gateway.Port),
		logger.Int("max_connections", cfg.Gateway.MaxConnections),
		logger.String("store_backend", cfg.Gateway.StoreBackend),
	)

	// Initialize the user store collaborator
	store, err := newUserStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize user store",
			logger.ErrorField(err),
		)
	}
	defer store.Close()

	// Initialize auth manager
	authManager := gateway.NewAuthManager(cfg.Gateway.JWTSecret)

	// Initialize hub
	hub := gateway.NewHub(cfg.Gateway, store)
	if err := hub.Start(); err != nil {
		logger.Fatal("Failed to start gateway hub",
			logger.ErrorField(err),
		)
	}
	defer hub.Stop()

	// Set up HTTP server
	router := mux.NewRouter()

	// WebSocket endpoint
	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(hub, authManager, w, r, cfg.Gateway)
	})

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})

	// Stats endpoint
	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := hub.GetStats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down real-time gateway")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("Real-time gateway stopped")
}

// newUserStore constructs the configured store backend
func newUserStore(cfg *config.Config) (storage.UserStore, error) {
	switch cfg.Gateway.StoreBackend {
	case "redis":
		return storage.NewRedisUserStore(cfg.Redis)
	default:
		return storage.NewPostgresUserStore(cfg.Database)
	}
}

// handleWebSocket admits or rejects a connecting transport
func handleWebSocket(hub *gateway.Hub, authManager *gateway.AuthManager, w http.ResponseWriter, r *http.Request, cfg config.GatewayConfig) {
	// Check max connections
	if hub.Registry().Count() >= cfg.MaxConnections {
		logger.Warn("Max connections reached, rejecting new connection",
			logger.Int("max_connections", cfg.MaxConnections),
		)
		http.Error(w, "Max connections reached", http.StatusServiceUnavailable)
		return
	}

	// Admission: a missing or malformed identity terminates the attempt
	// before any registry mutation
	userID, err := authManager.ResolveIdentity(r)
	if err != nil {
		logger.Warn("Rejecting connection without valid identity",
			logger.ErrorField(err),
			logger.String("remote_addr", r.RemoteAddr),
		)
		http.Error(w, "Identity required", http.StatusUnauthorized)
		return
	}

	// Upgrade connection to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade connection",
			logger.ErrorField(err),
		)
		return
	}

	sess := gateway.NewSession(uuid.New().String(), userID, conn, cfg.SendBufferSize)
	hub.Register(sess)

	logger.Info("WebSocket connection established",
		logger.String("session_id", sess.ID),
		logger.String("user_id", userID),
		logger.String("remote_addr", r.RemoteAddr),
	)
}
