package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/tersedak-care/apiserver/config"
	"github.com/tersedak-care/apiserver/internal/auth"
	"github.com/tersedak-care/apiserver/internal/content"
	"github.com/tersedak-care/apiserver/internal/db"
	"github.com/tersedak-care/apiserver/internal/handlers"
	"github.com/tersedak-care/apiserver/internal/logger"
	"github.com/tersedak-care/apiserver/internal/mq"
	"github.com/tersedak-care/apiserver/internal/observability"
	"github.com/tersedak-care/apiserver/internal/services"
	"github.com/tersedak-care/apiserver/internal/storage"
	"github.com/tersedak-care/apiserver/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const requestTimeout = 60 * time.Second

// Deps are the collaborators the router is built from. Storage may be nil
// when avatar uploads are disabled.
type Deps struct {
	Config  config.Config
	DB      *sqlx.DB
	Log     *logger.Logger
	Storage *storage.Storage
	MQ      *mq.MQ
	Catalog *content.Catalog
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer   *http.Server
	router       *chi.Mux
	db           *sqlx.DB
	mq           *mq.MQ
	log          *logger.Logger
	otelShutdown observability.ShutdownFunc
}

// New connects every configured backend and builds the HTTP server.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var cleanup cleanupStack
	otelShutdown := observability.InitOTel(ctx, cfg, log)
	cleanup.push(func() {
		if err := otelShutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	})

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		cleanup.run()
		return nil, fmt.Errorf("open database: %w", err)
	}
	cleanup.push(func() { _ = dbConn.Close() })

	objectStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		log.Info("object storage disabled, avatar uploads unavailable")
		objectStorage = nil
	case err != nil:
		cleanup.run()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	queue, err := mq.NewFromConfig(ctx, cfg.MQ, log)
	if err != nil {
		cleanup.run()
		return nil, fmt.Errorf("init mq: %w", err)
	}
	cleanup.push(func() { _ = queue.Close() })
	if !queue.Enabled() {
		log.Info("mq disabled, domain events are dropped")
	}

	catalog, err := content.Default()
	if err != nil {
		cleanup.run()
		return nil, err
	}

	router := NewRouter(Deps{
		Config:  cfg,
		DB:      dbConn,
		Log:     log,
		Storage: objectStorage,
		MQ:      queue,
		Catalog: catalog,
	})

	var handler http.Handler = router
	if cfg.OTel.Enabled {
		handler = otelhttp.NewHandler(router, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer:   httpServer,
		router:       router,
		db:           dbConn,
		mq:           queue,
		log:          log,
		otelShutdown: otelShutdown,
	}, nil
}

// cleanupStack releases what New acquired, newest first, when a later step
// fails. On success the Server owns those resources and Shutdown releases them.
type cleanupStack []func()

func (c *cleanupStack) push(fn func()) {
	*c = append(*c, fn)
}

func (c *cleanupStack) run() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i]()
	}
	*c = nil
}

// NewRouter wires repositories, services and handlers into a chi router.
func NewRouter(deps Deps) *chi.Mux {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	userRepo := store.NewUserRepository(deps.DB)
	progressRepo := store.NewProgressRepository(deps.DB)
	quizRepo := store.NewQuizRepository(deps.DB)
	bookmarkRepo := store.NewBookmarkRepository(deps.DB)

	var avatars services.AvatarStore
	if deps.Storage != nil {
		avatars = deps.Storage
	}
	var events services.EventPublisher
	if deps.MQ != nil {
		events = deps.MQ
	}

	userService := services.NewUserService(userRepo, avatars, events, log)
	progressService := services.NewProgressService(progressRepo, events)
	assessmentService := services.NewAssessmentService(quizRepo)
	bookmarkService := services.NewBookmarkService(bookmarkRepo)

	tokens := auth.NewTokens(deps.Config.Auth.JWTSecret, deps.Config.Auth.TokenTTL)
	authMiddleware := handlers.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(log),
		handlers.Recoverer(log),
		handlers.Timeout(requestTimeout),
	)
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)
	router.Get("/healthz", handlers.Healthz(deps.DB))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, tokens, deps.Config.Auth.CookieSecure, authMiddleware, log)
	})
	router.Route("/progress", func(r chi.Router) {
		handlers.ProgressRouter(r, progressService, authMiddleware, log)
	})
	router.Route("/assessment", func(r chi.Router) {
		handlers.AssessmentRouter(r, assessmentService, deps.Catalog, authMiddleware, log)
	})
	router.Route("/quiz", func(r chi.Router) {
		handlers.QuizRouter(r, assessmentService, authMiddleware, log)
	})
	router.Route("/bookmarks", func(r chi.Router) {
		handlers.BookmarkRouter(r, bookmarkService, authMiddleware, log)
	})
	router.Route("/content", func(r chi.Router) {
		handlers.ContentRouter(r, deps.Catalog)
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases every backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if closeErr := s.mq.Close(); closeErr != nil {
			s.log.Warn("close mq failed", "error", closeErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.otelShutdown != nil {
		if otelErr := s.otelShutdown(ctx); otelErr != nil {
			s.log.Warn("otel shutdown failed", "error", otelErr)
		}
	}
	return err
}
