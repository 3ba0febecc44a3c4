package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/config"
	"github.com/inkwell/inkwell-api/internal/domain/ledger"
	"github.com/inkwell/inkwell-api/internal/domain/wallet"
	"github.com/inkwell/inkwell-api/internal/domain/webhook"
	"github.com/inkwell/inkwell-api/internal/middleware"
	"github.com/inkwell/inkwell-api/internal/pkg/coinbase"
	"github.com/inkwell/inkwell-api/internal/pkg/database"
	"github.com/inkwell/inkwell-api/internal/pkg/flutterwave"
	"github.com/inkwell/inkwell-api/internal/pkg/jwt"
	"github.com/inkwell/inkwell-api/internal/pkg/logger"
	"github.com/inkwell/inkwell-api/internal/pkg/notify"
	"github.com/inkwell/inkwell-api/internal/pkg/nowpayments"
	"github.com/inkwell/inkwell-api/internal/pkg/paystack"
	"github.com/inkwell/inkwell-api/internal/pkg/provider"
	"github.com/inkwell/inkwell-api/internal/pkg/receipt"
	"github.com/inkwell/inkwell-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	})

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	registry := provider.NewRegistry(cfg.CryptoProvider,
		provider.NewPaystackAdapter(paystack.Config{
			BaseURL:   cfg.PaystackBaseURL,
			SecretKey: cfg.PaystackSecretKey,
		}),
		provider.NewFlutterwaveAdapter(flutterwave.Config{
			BaseURL:   cfg.FlutterwaveBaseURL,
			SecretKey: cfg.FlutterwaveSecretKey,
			VerifHash: cfg.FlutterwaveHash,
		}),
		provider.NewNowPaymentsAdapter(nowpayments.Config{
			BaseURL: cfg.NowPaymentsBaseURL,
			APIKey:  cfg.NowPaymentsAPIKey,
			IPNKey:  cfg.NowPaymentsIPNKey,
		}),
		provider.NewCoinbaseAdapter(coinbase.Config{
			BaseURL:       cfg.CoinbaseBaseURL,
			APIKey:        cfg.CoinbaseAPIKey,
			WebhookSecret: cfg.CoinbaseWebhookKey,
		}),
	)

	notifier := notify.NewService(notify.Config{
		SendGridAPIKey: cfg.SendGridAPIKey,
		FromEmail:      cfg.FromEmail,
		FromName:       cfg.FromName,
	}, rdb)
	defer notifier.Close()

	var archiver ledger.Archiver
	if cfg.ReceiptArchive {
		r2, err := receipt.NewArchiver(context.Background(), receipt.Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2BucketName,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Receipt archive disabled")
		} else {
			archiver = r2
		}
	}

	walletRepo := wallet.NewPostgresRepository(db)
	walletService := wallet.NewService(walletRepo)
	walletHandler := wallet.NewHandler(walletService)

	ledgerRepo := ledger.NewPostgresRepository(db)
	ledgerService := ledger.NewService(
		ledgerRepo,
		walletService,
		registry,
		ledger.LogEffects{},
		notifier,
		archiver,
		ledger.ServiceConfig{
			FrontendURL: cfg.FrontendURL,
			BackendURL:  cfg.BackendURL,
		},
	)
	ledgerHandler := ledger.NewHandler(ledgerService)

	webhookRepo := webhook.NewPostgresRepository(db)
	webhookService := webhook.NewService(webhookRepo, registry, ledgerService)
	webhookHandler := webhook.NewHandler(webhookService)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Processor callbacks are authenticated by signature, not JWT
	r.Post("/webhooks/{provider}", webhookHandler.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtService))

			r.Post("/payments/initiate", ledgerHandler.Initiate)
			r.Get("/payments/verify/{reference}", ledgerHandler.Verify)
			r.Get("/payments", ledgerHandler.History)
			r.Get("/wallets", walletHandler.List)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}
