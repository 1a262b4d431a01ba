package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/accounts"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/analytics"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/config"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/database"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/handlers"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/importer"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/logger"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/pricing"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin == config.Cfg.AllowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-User-ID, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Trade journal backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	pricing.SetDefaultCommission(config.Cfg.DefaultCommission)

	logger.L.Info("Initializing summary cache...")
	summaryCache := cache.New(15*time.Minute, 30*time.Minute)
	logger.L.Info("Summary cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	resolver := accounts.NewResolver(database.DB)
	aggregator := analytics.NewAggregator(database.DB, summaryCache)
	importService := importer.NewService(database.DB, resolver, aggregator, config.Cfg.MaxBatchRows)

	importHandler := handlers.NewImportHandler(importService)
	tradeHandler := handlers.NewTradeHandler(database.DB, aggregator)
	analyticsHandler := handlers.NewAnalyticsHandler(aggregator)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	withUser := func(handler http.HandlerFunc) http.Handler {
		return handlers.UserIDMiddleware(handler)
	}

	apiRouter.Handle("POST /api/trades/import", withUser(importHandler.HandleImportTrades))
	apiRouter.Handle("GET /api/trades", withUser(tradeHandler.HandleGetTrades))
	apiRouter.Handle("DELETE /api/trades/all", withUser(tradeHandler.HandleDeleteAllTrades))
	apiRouter.Handle("GET /api/analytics/summary", withUser(analyticsHandler.HandleGetSummary))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Trade journal backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
