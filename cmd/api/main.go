package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phonebook/internal/audit"
	"phonebook/internal/auth"
	"phonebook/internal/broadcast"
	"phonebook/internal/calls"
	"phonebook/internal/config"
	"phonebook/internal/contacts"
	"phonebook/internal/directory"
	"phonebook/internal/httpapi"
	"phonebook/internal/incoming"
	"phonebook/internal/routing"
	"phonebook/pkg/logger"
	"phonebook/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing dotenv file is fine; real env always wins.
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("dotenv load failed", "file", envFile, "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	rootCtx = logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresOptions{MaxConns: cfg.DB.MaxConns})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Live fan-out: Redis when configured so every instance sees every call.
	hub := broadcast.NewHub[calls.Details]()
	defer hub.Close()
	var publisher calls.Publisher = broadcast.Local[calls.Details]{Hub: hub}
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisOptions{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		relay := broadcast.NewRedisRelay(rdb, cfg.Redis.Channel, hub)
		go func() {
			if err := relay.Run(rootCtx); err != nil {
				log.Error("live relay stopped", "err", err)
			}
		}()
		publisher = relay
	}

	contactStore := contacts.NewStore(db)
	ruleStore := routing.NewStore(db)
	callStore := calls.NewStore(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	// Directory sync is optional.
	var (
		dirSync  contacts.DirectorySync = directory.Disabled{}
		resyncer httpapi.Resyncer       = directory.Disabled{}
		syncer   *directory.Syncer
		dirCheck httpapi.HealthChecker
	)
	if cfg.LDAPEnabled() {
		pool, err := directory.NewPool(directory.PoolConfig{
			URL:          cfg.LDAP.URL,
			BindDN:       cfg.LDAP.BindDN,
			BindPassword: cfg.LDAP.BindPassword,
			Size:         cfg.LDAP.PoolSize,
			Timeout:      cfg.Directory.Timeout,
		})
		if err != nil {
			log.Error("ldap pool init failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		reconciler := directory.NewReconciler(pool, cfg.LDAP.BaseDN)
		dirCheck = reconciler
		syncer = directory.NewSyncer(reconciler, contactStore, directory.SyncConfig{
			Workers:   cfg.Directory.Workers,
			QueueSize: cfg.Directory.QueueSize,
			Timeout:   cfg.Directory.Timeout,
		})
		syncer.Start()
		dirSync, resyncer = syncer, syncer
	} else {
		log.Warn("LDAP_URL not set, directory sync disabled")
	}

	contactSvc := contacts.NewService(contactStore, dirSync, auditSvc)
	incomingSvc := incoming.NewService(
		contacts.NewResolver(contactStore, ruleStore),
		calls.NewRecorder(callStore, publisher),
		dirSync,
	)

	h := httpapi.Handlers{
		DB:         db,
		Contacts:   contactSvc,
		Rules:      ruleStore,
		Calls:      callStore,
		Incoming:   incomingSvc,
		Live:       hub,
		Directory:  resyncer,
		Audit:      auditSvc,
		PageSize:   cfg.Lists.PageSize,
		LiveBuffer: cfg.Lists.LiveBuffer,

		DirectoryHealth: dirCheck,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(audit.CaptureClientIP())

	registerRoutes(r, h,
		auth.RequireAccessToken(authManager),
		auth.RequireBasic(cfg.Incoming.Username, cfg.Incoming.Password),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the live endpoint holds responses open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "ldap", cfg.LDAPEnabled(), "redis", cfg.RedisEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Ends open live streams so Shutdown does not wait on them.
	hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if syncer != nil {
		if err := syncer.Stop(shutdownCtx); err != nil {
			log.Error("directory sync drain failed", "err", err)
		}
	}
}
