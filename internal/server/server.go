package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/retroshop/apiserver/config"
	"github.com/retroshop/apiserver/internal/db"
	"github.com/retroshop/apiserver/internal/handlers"
	"github.com/retroshop/apiserver/internal/services"
	"github.com/retroshop/apiserver/internal/storage"
	"github.com/retroshop/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	log        *zap.Logger
}

// New constructs a Server with its full dependency graph.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	imageStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := imageStorage.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure storage bucket: %w", err)
	}

	productRepo := store.NewProductRepository(dbConn)
	categoryRepo := store.NewCategoryRepository(dbConn)
	cartItemRepo := store.NewCartItemRepository(dbConn)
	profileRepo := store.NewProfileRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)

	sessionService := services.NewSessionService(userRepo, profileRepo, logger)
	cartService := services.NewCartService(cartItemRepo, logger)
	catalogService := services.NewCatalogService(productRepo, categoryRepo, imageStorage, logger)
	seedService := services.NewSeedService(userRepo, profileRepo, categoryRepo, productRepo, cfg.Admin, logger)

	authMiddleware := handlers.RequireAuth(jwtSecret)
	authHandler := handlers.NewAuthHandler(sessionService, jwtSecret)
	adminChain := []func(http.Handler) http.Handler{
		authMiddleware,
		authHandler.WithSession,
		handlers.RequireAdmin,
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, sessionService, jwtSecret)
	})
	router.Route("/products", func(r chi.Router) {
		handlers.ProductRouter(r, catalogService, adminChain...)
	})
	router.Route("/categories", func(r chi.Router) {
		handlers.CategoryRouter(r, catalogService)
	})
	router.Route("/cart", func(r chi.Router) {
		handlers.CartRouter(r, cartService, authMiddleware)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, seedService, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		log:        logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	_ = s.log.Sync()
	return s.httpServer.Close()
}
