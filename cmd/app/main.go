// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"video-gate-platform/internal/config"
	"video-gate-platform/internal/domain/ports/adapter"
	"video-gate-platform/internal/infra/api"
	apiv1 "video-gate-platform/internal/infra/api/apiv1"
	payAdapters "video-gate-platform/internal/infra/adapters/payment"
	"video-gate-platform/internal/infra/audit"
	pg "video-gate-platform/internal/infra/db/postgres"
	"video-gate-platform/internal/infra/logging"
	"video-gate-platform/internal/infra/metrics"
	red "video-gate-platform/internal/infra/redis"
	"video-gate-platform/internal/infra/sched"
	"video-gate-platform/internal/infra/security"
	"video-gate-platform/internal/infra/web"
	"video-gate-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.PoolSize))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	locker := red.NewLocker(redisClient)

	// ---- URL signing ----
	signKey := cfg.Security.URLSigningKey
	if len(signKey) < 16 {
		logger.Warn().Msg("security.url_signing_key not set; falling back to dev key (INSECURE)")
		signKey = "0123456789abcdef0123456789abcdef"
	}
	signer, err := security.NewURLSigner(signKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("url signer")
	}

	// ---- Repositories ----
	purchaseRepo := pg.NewPurchaseRepo(pool)
	assetRepo := pg.NewAssetRepo(pool)
	subRepo := pg.NewSubscriptionRepoCacheDecorator(pg.NewSubscriptionRepo(pool), redisClient, cfg.Redis.TTL)
	tm := pg.NewTxManager(pool)

	// ---- Audit sink ----
	sink := audit.NewSink(cfg.Audit.Buffer, cfg.Audit.Workers, logger)
	sink.Start(ctx)
	defer sink.Stop()

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev || cfg.Payment.Provider == "noop" {
		gateway = payAdapters.NewNoopGateway()
		logger.Warn().Msg("payment gateway: noop")
	} else {
		gateway, err = payAdapters.NewRazorpayGateway(
			cfg.Payment.Razorpay.KeyID,
			cfg.Payment.Razorpay.KeySecret,
			cfg.Payment.Razorpay.BaseURL,
			cfg.Payment.Razorpay.Timeout,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("razorpay gateway")
		}
	}

	// ---- Use cases ----
	accessUC := usecase.NewAccessUseCase(subRepo, purchaseRepo, assetRepo, signer, cfg.Access.URLTTL, logger)
	ledgerUC := usecase.NewLedgerUseCase(
		purchaseRepo, assetRepo, gateway, tm, accessUC, sink, locker,
		usecase.LedgerConfig{
			AccessWindow:       cfg.Access.Window,
			FallbackPriceMinor: cfg.Access.FallbackPriceMinor,
			Currency:           cfg.Access.Currency,
		},
		logger,
	)
	accessUC.RecordSubscriptionGrants(ledgerUC)
	catalogUC := usecase.NewCatalogUseCase(assetRepo, logger)
	statsUC := usecase.NewStatsUseCase(purchaseRepo, subRepo, logger)

	// ---- Public API server ----
	router := chi.NewRouter()
	router.Use(api.TraceID(logger))
	router.Use(api.Recover(logger))
	router.Use(api.RequestLog(logger))
	router.Use(api.Timeout(30 * time.Second))
	apiv1.RegisterAPIV1(router, apiv1.NewServer(ledgerUC, accessUC, logger))
	api.NewServer(ledgerUC, "/payment/callback", "").Register(router)

	publicSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: router}
	go func() {
		logger.Info().Str("addr", publicSrv.Addr).Msg("public api listening")
		if err := publicSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("public api server error")
		}
	}()

	// ---- Admin server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SecureCookie, "", cfg.Admin.CookieTTL)
	adminSrv := web.NewServer(ledgerUC, statsUC, catalogUC, subRepo, auth, cfg.Admin.APIKey, logger)
	adminMux := http.NewServeMux()
	adminSrv.RegisterRoutes(adminMux)
	adminMux.Handle("/metrics", promhttp.Handler())

	admin := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: adminMux}
	go func() {
		logger.Info().Str("addr", admin.Addr).Msg("admin api listening")
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	// ---- Background workers ----
	expiry := sched.NewExpiryWorker(cfg.Scheduler.SweepInterval, cfg.Scheduler.SweepBatch, ledgerUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	reaper := sched.NewPendingReaper(cfg.Scheduler.SweepInterval, 30*time.Minute, ledgerUC, logger)
	go func() { _ = reaper.Run(ctx) }()

	notifier := sched.NewRenewalNotifier(time.Hour, 3, subRepo, sink, logger)
	go func() { _ = notifier.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = publicSrv.Shutdown(shutdownCtx)
	_ = admin.Shutdown(shutdownCtx)
}
