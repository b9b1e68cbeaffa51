package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/civichub/internal/accounts"
	"github.com/geocoder89/civichub/internal/auth"
	"github.com/geocoder89/civichub/internal/cache"
	"github.com/geocoder89/civichub/internal/config"
	"github.com/geocoder89/civichub/internal/db"
	httpx "github.com/geocoder89/civichub/internal/http"
	"github.com/geocoder89/civichub/internal/http/handlers"
	"github.com/geocoder89/civichub/internal/observability"
	"github.com/geocoder89/civichub/internal/repo/memory"
	"github.com/geocoder89/civichub/internal/repo/postgres"
	"github.com/geocoder89/civichub/internal/security"
	"github.com/geocoder89/civichub/internal/storage"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	_ = godotenv.Load() // load .env if present

	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx := context.Background()

	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "civichub-api",
			Env:         cfg.Env,
			Endpoint:    cfg.OTELEndpoint,
			SampleRatio: cfg.OTELSampleRatio,
		})
		if err != nil {
			fatal(log, "tracer init failed", err)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// stores
	var (
		users      accounts.UserStore
		activities handlers.ActivitiesStore
		terms      handlers.TermsStore
		pings      []func(context.Context) error
	)

	switch cfg.StorageDriver {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DBURL, 10)
		if err != nil {
			fatal(log, "db connect failed", err)
		}
		defer pool.Close()

		users = postgres.NewUsersRepo(pool, prom)
		activities = postgres.NewActivitiesRepo(pool, prom)
		terms = postgres.NewTermsRepo(pool, prom)
		pings = append(pings, pool.Ping)
	default:
		log.Warn("using in-memory storage, data is lost on restart")

		memUsers := memory.NewUsersRepo()
		memTerms := memory.NewTermsRepo()
		users = memUsers
		terms = memTerms
		activities = memory.NewActivitiesRepo(memTerms)
	}

	// accounts
	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		fatal(log, "jwt setup failed", err)
	}

	hasher := security.NewPool(security.NewHasher(cfg.BcryptCost), cfg.HashWorkers).WithObserver(prom)
	svc := accounts.NewService(users, hasher, tokens, log)

	seedCtx, cancelSeed := config.WithTimeout(10 * time.Second)
	err = svc.EnsureAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
	cancelSeed()
	if err != nil {
		fatal(log, "admin seed failed", err)
	}

	// cache
	var store cache.Store
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		defer rc.Close()

		pctx, cancel := config.WithTimeout(3 * time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			fatal(log, "redis connect failed", err)
		}

		store = rc
		pings = append(pings, rc.Ping)
	} else {
		store = cache.NewMemory(cfg.CacheTTL)
	}

	// documents
	var (
		docs      storage.DocumentStore
		uploadDir string
	)
	switch cfg.DocumentDriver {
	case "s3":
		var s3 *storage.S3
		s3, err = storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		docs = storage.NewProtected(s3, storage.ProtectedConfig{})
	default:
		docs, err = storage.NewLocal(cfg.UploadDir, "/uploads")
		uploadDir = cfg.UploadDir
	}
	if err != nil {
		fatal(log, "document store setup failed", err)
	}

	var shuttingDown atomic.Bool

	// set up routers with the deps
	router := httpx.NewRouter(httpx.Deps{
		Env:             cfg.Env,
		Log:             log,
		Accounts:        svc,
		Activities:      activities,
		Terms:           terms,
		Documents:       docs,
		Cache:           store,
		Tokens:          tokens,
		Ping:            pingAll(pings),
		ShuttingDown:    shuttingDown.Load,
		Prom:            prom,
		Gatherer:        reg,
		CORSOrigins:     cfg.CORSOrigins,
		UploadDir:       uploadDir,
		UploadMaxBytes:  cfg.UploadMaxBytes,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: cfg.LoginRateWindow,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver, "documents", cfg.DocumentDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			fatal(log, "server failed", err)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	shuttingDown.Store(true)

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}

// pingAll backs /readyz with every external dependency in use.
func pingAll(pings []func(context.Context) error) func(context.Context) error {
	if len(pings) == 0 {
		return nil
	}

	return func(ctx context.Context) error {
		for _, ping := range pings {
			if err := ping(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
