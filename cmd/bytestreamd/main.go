package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bytestream/internal/api"
	"bytestream/internal/config"
	"bytestream/internal/filestore"
	"bytestream/internal/mailer"
	"bytestream/internal/otel"
	"bytestream/internal/quota"
	"bytestream/pkg/blob"
	"bytestream/pkg/bus"
)

const serviceName = "bytestream"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	cleanup, err := otel.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	database, err := filestore.Connect(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer func() {
		if err := filestore.Close(database); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	store := filestore.New(database)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	blobClient, err := blob.New(ctx, blob.Config{
		Endpoint:       cfg.S3Endpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Region:         cfg.S3Region,
		DisableTLS:     cfg.S3DisableTLS,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init blob store")
	}

	limiter, err := quota.NewLimiter(store, quota.DefaultDailyLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("init upload quota")
	}

	janitor, err := quota.NewJanitor(store, cfg.AttemptRetention, 0, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init attempt janitor")
	}
	go janitor.Run(ctx)

	deps := &api.Store{
		Files: store,
		Quota: limiter,
		Blob:  blobClient,
	}

	if cfg.SMTPHost != "" {
		m, err := mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			BaseURL:  cfg.BaseURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("init mailer")
		}
		deps.Mailer = m
	} else {
		log.Warn().Msg("SMTP_HOST not set; /send-email is disabled")
	}

	if cfg.NATSURL != "" {
		eventBus, err := bus.New(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer eventBus.Close()
		deps.Bus = eventBus
	}

	app, err := api.New(deps, api.Config{
		BaseURL:        cfg.BaseURL,
		Bucket:         cfg.S3Bucket,
		AdminToken:     cfg.AdminToken,
		AllowedOrigins: cfg.AllowedOrigins,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init api")
	}

	handler, err := app.Routes()
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting bytestream")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}
