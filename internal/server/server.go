package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/tgblog/apiserver/config"
	"github.com/tgblog/apiserver/internal/auth"
	"github.com/tgblog/apiserver/internal/cache"
	"github.com/tgblog/apiserver/internal/db"
	"github.com/tgblog/apiserver/internal/handlers"
	"github.com/tgblog/apiserver/internal/logutil"
	"github.com/tgblog/apiserver/internal/mq"
	"github.com/tgblog/apiserver/internal/services"
	"github.com/tgblog/apiserver/internal/store"
)

const defaultPort = 8000

// Server wraps the HTTP server, its router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	cache      *cache.PostCache
	queue      *mq.MQ
	logger     zerolog.Logger
}

type Option func(*options)

type options struct {
	clock  func() time.Time
	logger *zerolog.Logger
}

// WithClock overrides the time source used to issue and check tokens.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// New wires the API from cfg. A missing signing secret fails with
// auth.ErrMissingSecret before any resource is opened.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Server, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logutil.New(cfg.Log.Level, cfg.Log.Format)
	if o.logger != nil {
		logger = *o.logger
	}

	codec, err := auth.NewTokenCodec(cfg.Auth.SecretKey, auth.WithClock(o.clock))
	if err != nil {
		return nil, err
	}

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	credentials, err := seedCredentials(hasher, cfg.Auth)
	if err != nil {
		return nil, err
	}
	authenticator, err := auth.NewAuthenticator(credentials, hasher)
	if err != nil {
		return nil, err
	}

	dialect, err := db.Driver(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(cfg); err != nil {
			return nil, err
		}
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{db: dbConn, logger: logger}

	postOpts := []services.PostOption{}
	if cfg.Cache.Enabled {
		s.cache, err = cache.NewPostCache(ctx, cfg.Cache.TTL)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("post cache: %w", err)
		}
		postOpts = append(postOpts, services.WithPostCache(s.cache))
	}

	s.queue, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, err
	}
	if s.queue != nil {
		postOpts = append(postOpts, services.WithEventPublisher(s.queue, cfg.MQ.PostEventsChannel))
	}

	postService := services.NewPostService(store.NewPostRepository(dbConn, dialect), postOpts...)
	authHandler := handlers.NewAuthHandler(
		authenticator,
		codec,
		auth.NewSessionValidator(codec, credentials),
		cfg.Auth.AccessTokenTTL,
	)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logutil.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	handlers.HealthRouter(router)
	handlers.AuthRouter(router, authHandler)
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postService, authHandler.RequireAuth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = defaultPort
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info().
		Str("db_driver", dialect).
		Bool("post_cache", s.cache != nil).
		Str("mq_backend", cfg.MQ.Backend).
		Dur("token_ttl", cfg.Auth.AccessTokenTTL).
		Msg("server configured")

	return s, nil
}

func seedCredentials(hasher *auth.Hasher, cfg config.AuthConfig) (*auth.CredentialStore, error) {
	if cfg.AdminPasswordHash != "" {
		return auth.SeedCredentialStoreFromHash(cfg.AdminUsername, cfg.AdminPasswordHash)
	}
	return auth.SeedCredentialStore(hasher, cfg.AdminUsername, cfg.AdminPassword)
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the cache, broker and
// database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
