package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"linku/backend/internal/api"
	"linku/backend/internal/api/handler"
	"linku/backend/internal/api/middleware"
	"linku/backend/internal/auth"
	"linku/backend/internal/catalog"
	"linku/backend/internal/chat"
	"linku/backend/internal/chathub"
	"linku/backend/internal/config"
	"linku/backend/internal/linku"
	"linku/backend/internal/localization"
	"linku/backend/internal/platform/logger"
	"linku/backend/internal/platform/tracing"
	"linku/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config, log *logger.Logger) (*gorm.DB, *redis.Client) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatal("failed to open database", "driver", cfg.Database.Driver, "error", err)
	}
	if cfg.Database.AutoMigrate {
		if err := storage.AutoMigrate(db); err != nil {
			log.Fatal("failed to run migrations", "error", err)
		}
	}

	// Redis is optional: without it the live bus stays process-local.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = chathub.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("failed to connect redis", "addr", cfg.Redis.Addr, "error", err)
		}
	}

	log.Info("dependencies ready", "db_driver", cfg.Database.Driver, "redis", rdb != nil)
	return db, rdb
}

func jwtSecret(cfg *config.Config, log *logger.Logger) string {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret
	}
	if cfg.Database.Driver != "sqlite" {
		log.Fatal("JWT_SECRET is required")
	}
	log.Warn("JWT_SECRET not set, using an ephemeral dev secret")
	return uuid.NewString()
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info("starting LinkU chat backend", "addr", cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal("failed to init tracing", "error", err)
	}

	db, rdb := setupDependencies(ctx, cfg, log)
	store := storage.NewStorageService(db, storage.WithLogger(log))
	posts := catalog.NewGormCatalog(db)

	bus := chathub.NewBus(log)
	var publisher chathub.Publisher = bus
	var relay *chathub.RedisRelay
	if rdb != nil {
		relay = chathub.NewRedisRelay(rdb, bus, log)
		publisher = relay
	}

	texts, err := localization.NewLocalizer(cfg.Locale)
	if err != nil {
		log.Fatal("failed to load translations", "error", err)
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Warn("unknown DISPLAY_TZ, using UTC", "tz", cfg.TimeZone, "error", err)
		loc = time.UTC
	}

	chatSvc := chat.NewService(store, posts, publisher, log)
	linkuSvc := linku.NewService(store, chatSvc, posts, texts, linku.WithLocation(loc), linku.WithLogger(log))

	resolver := auth.HandleResolverFunc(func(ctx context.Context, handle string) (uint, error) {
		u, err := store.FindUserByHandle(ctx, handle)
		if err != nil {
			return 0, err
		}
		return u.ID, nil
	})
	tokens := auth.NewJWTProvider(jwtSecret(cfg, log), cfg.Auth.Issuer, cfg.Auth.TokenTTL, resolver)
	authMW := middleware.NewAuthMiddleware(log, tokens)

	hcfg := handler.Config{
		Chat:     chatSvc,
		Linku:    linkuSvc,
		Bus:      bus,
		Auth:     authMW,
		WSBuffer: cfg.Bus.WSSendBuffer,
		Origins:  cfg.Server.AllowedOrigins,
		Log:      log,
	}
	if cfg.Auth.DevTokens {
		log.Warn("dev token endpoint enabled")
		hcfg.Tokens = tokens
	}
	rcfg := api.RouterConfig{
		Handler:        handler.NewHandler(hcfg),
		AuthMiddleware: authMW,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	}
	if cfg.Tracing.Enabled {
		rcfg.TraceService = cfg.Tracing.ServiceName
	}

	server := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        api.NewRouter(rcfg),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if rdb != nil {
			_ = rdb.Close()
		}
		if terr := shutdownTracing(shutdownCtx); terr != nil {
			log.Warn("tracing shutdown failed", "error", terr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
