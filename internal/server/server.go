package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/nutrichef/backend/config"
	"github.com/pageza/nutrichef/backend/internal/api"
	"github.com/pageza/nutrichef/backend/internal/database"
	"github.com/pageza/nutrichef/backend/internal/logging"
	"github.com/pageza/nutrichef/backend/internal/middleware"
	"github.com/pageza/nutrichef/backend/internal/nutrition"
	"github.com/pageza/nutrichef/backend/internal/repository"
	"github.com/pageza/nutrichef/backend/internal/router"
	"github.com/pageza/nutrichef/backend/internal/service"
)

// Server represents the HTTP server and the connections it owns
type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
	redis  *redis.Client
	log    *zap.Logger
}

// New connects to the configured stores and wires the cooking API.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	log = logging.OrNop(log)

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db, cfg.Database.MigrationsDir, log); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &Server{db: db, log: log}

	// redis is optional unless sessions live there
	var rdb *redis.Client
	if cfg.Session.Store == "redis" || cfg.RateLimit.Enabled {
		rdb, err = database.NewRedisClient(ctx, cfg.Redis, log)
		switch {
		case err == nil:
			s.redis = rdb
		case cfg.Session.Store == "redis":
			closeDB(db)
			return nil, err
		default:
			log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		}
	}

	table, err := nutrition.LoadTable(cfg.Scoring.TablePath)
	if err != nil {
		s.close()
		return nil, err
	}
	calc, err := nutrition.NewCalculator(table)
	if err != nil {
		s.close()
		return nil, err
	}

	recipes := repository.NewRecipeRepository(db)
	catalog := repository.NewCatalogRepository(db)
	users := repository.NewUserRepository(db)

	var (
		sessions service.SessionStore
		locker   service.Locker
	)
	if s.redis != nil && cfg.Session.Store == "redis" {
		sessions = repository.NewRedisSessionStore(s.redis, cfg.Session.TTL)
		locker = repository.NewRedisLocker(s.redis, cfg.Session.LockTTL)
	} else {
		sessions = repository.NewGormSessionStore(db)
		locker = repository.NewKeyedMutex()
	}

	// a nil *S3Config must not reach the service as a non-nil interface
	var storage service.ObjectStore
	if cfg.Storage.Enabled() {
		s3cfg, err := config.NewS3Config(ctx, cfg.Storage)
		if err != nil {
			s.close()
			return nil, err
		}
		storage = s3cfg
	}

	checks := map[string]api.Pinger{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	var limiter *middleware.RateLimiter
	if s.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return s.redis.Ping(ctx).Err() }
		if cfg.RateLimit.Enabled {
			limiter = middleware.NewCookingRateLimiter(s.redis, cfg.RateLimit.Requests, cfg.RateLimit.Window, log)
		}
	}

	s.router = router.SetupRouter(router.Deps{
		Cooking:        service.NewCookingService(recipes, catalog, users, sessions, locker, calc, log),
		History:        service.NewHistoryService(recipes, catalog, storage, cfg.Storage.PresignExpiry, log),
		Tokens:         service.NewTokenService(cfg.JWT),
		Limiter:        limiter,
		Health:         api.NewHealthHandler(checks),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	s.http = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Info("server configured",
		zap.String("addr", s.http.Addr),
		zap.String("session_store", fmt.Sprintf("%T", sessions)),
		zap.Bool("rate_limit", limiter != nil),
		zap.Bool("history_export", storage != nil))
	return s, nil
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and closes its connections
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn("failed to close redis", zap.Error(err))
		}
	}
	closeDB(s.db)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
