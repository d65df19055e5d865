package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-server/config"
	"portfolio-server/core"
	"portfolio-server/files"
	"portfolio-server/handlers/api/health"
	"portfolio-server/handlers/api/works"
	"portfolio-server/handlers/auth"
	authMiddleware "portfolio-server/middleware"
	"portfolio-server/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func setupRouter(cfg *config.Config, svc *auth.Service, store core.WorkStore, fileStore files.Store) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	allowedOrigins := []string{"https://*", "http://*"}
	if cfg.FrontendURL != "" {
		allowedOrigins = []string{cfg.FrontendURL}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "Host", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Handle())
		r.Post("/login", auth.HandleLogin(svc))
		r.Get("/works", works.HandleList(store))

		// Mutating and admin-only routes require a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth(svc))
			r.Get("/verify-token", auth.HandleVerifyToken())
			r.Post("/works", works.HandleCreate(store, fileStore, cfg.Thumbnails))
			r.Put("/works/{id}", works.HandleUpdate(store))
			r.Delete("/works/{id}", works.HandleDelete(store, fileStore))
			r.Get("/stats", works.HandleStats(store, fileStore))
			r.Get("/backup", works.HandleBackup(store))
		})
	})

	r.Get("/uploads/{name}", works.HandleServeFile(fileStore))

	return r
}

func waitForShutdown(server *http.Server) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-signalC

	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", "", "The address to listen on. Defaults to :$PORT.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	addr := *listenAddress
	if addr == "" {
		addr = ":" + cfg.Port
	}

	svc := auth.NewService(cfg.SecretKey, cfg.AdminPassword)
	store := stores.GetStore(cfg)
	fileStore := files.GetStore(cfg)

	server := &http.Server{
		Addr:    addr,
		Handler: setupRouter(cfg, svc, store, fileStore),
	}

	go func() {
		logrus.WithField("addr", addr).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown(server)
}
