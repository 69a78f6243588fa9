// Command server runs the page restoration API.
//
//	@title						Page Restore API
//	@version					1.0
//	@description				Upload scanned documents and photos, restore their pages with an image model, and pay per completed page.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-page-restore/internal/auth"
	"github.com/tbourn/go-page-restore/internal/blob"
	"github.com/tbourn/go-page-restore/internal/config"
	"github.com/tbourn/go-page-restore/internal/enhance"
	httpapi "github.com/tbourn/go-page-restore/internal/http"
	"github.com/tbourn/go-page-restore/internal/observability"
	"github.com/tbourn/go-page-restore/internal/payments"
	"github.com/tbourn/go-page-restore/internal/repo"
	"github.com/tbourn/go-page-restore/internal/services"
	"github.com/tbourn/go-page-restore/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := sysutil.ConfigureLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	blobs, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Blob.Backend).Msg("blob store")
	}

	gateway, err := enhance.NewVertexGateway(ctx, cfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("vertex gateway")
	}

	pricing, err := services.NewPricing(cfg.Ledger)
	if err != nil {
		log.Fatal().Err(err).Msg("pricing")
	}
	ledger := services.NewLedger(db, cfg.Ledger.FreePages)
	store := services.NewArtifactStore(db, blobs, cfg.Processing.MaxUploadPages, cfg.Processing.MaxUploadBytes)
	orch := services.NewOrchestrator(db, store, ledger, gateway, cfg.Processing)

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		if verifier, err = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer); err != nil {
			log.Fatal().Err(err).Msg("auth verifier")
		}
	} else if !cfg.Auth.HeaderIdentity {
		log.Warn().Msg("no JWT secret and header identity disabled: every API call will be rejected")
	}
	if cfg.Payments.WebhookSecret == "" {
		log.Warn().Msg("no webhook secret: payment webhooks will be rejected")
	}

	if n, err := orch.RecoverInterrupted(logger.WithContext(ctx)); err != nil {
		log.Fatal().Err(err).Msg("recover interrupted pages")
	} else if n > 0 {
		log.Info().Int64("pages", n).Msg("interrupted pages released")
	}

	gin.SetMode(cfg.GinMode)
	gin.DefaultWriter = io.Discard
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Services{
		DB:           db,
		Orchestrator: orch,
		Ledger:       ledger,
		Pricing:      pricing,
		Webhooks:     &payments.Processor{Secret: cfg.Payments.WebhookSecret, Ledger: ledger},
		Verifier:     verifier,
		Contact:      &services.ContactService{DB: db},
	}, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return logger.WithContext(context.Background()) },
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// Stop taking requests, then drain running batches, then flush telemetry.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := orch.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("batches interrupted at shutdown")
	}
	if err := gateway.Close(); err != nil {
		log.Warn().Err(err).Msg("close vertex client")
	}
	if c, ok := blobs.(io.Closer); ok {
		_ = c.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(context.Background()); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
}
