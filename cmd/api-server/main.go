package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sungwon/mail-gateway/internal/api"
	"github.com/sungwon/mail-gateway/internal/audit"
	"github.com/sungwon/mail-gateway/internal/auth"
	"github.com/sungwon/mail-gateway/internal/config"
	"github.com/sungwon/mail-gateway/internal/logger"
	"github.com/sungwon/mail-gateway/internal/objstore"
	"github.com/sungwon/mail-gateway/internal/pipeline"
	"github.com/sungwon/mail-gateway/internal/storage"
	"github.com/sungwon/mail-gateway/internal/transport"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromConfig(logger.Config{
		Level:     cfg.Logging.Level,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting mail gateway")

	store, err := objstore.New(objstore.Config{
		Type:        cfg.ObjStore.Type,
		Path:        cfg.ObjStore.Path,
		MaxBytes:    cfg.Limits.MaxAttachmentBytes,
		S3Bucket:    cfg.ObjStore.S3Bucket,
		S3Prefix:    cfg.ObjStore.S3Prefix,
		S3Endpoint:  cfg.ObjStore.S3Endpoint,
		S3Region:    cfg.ObjStore.S3Region,
		S3AccessKey: cfg.ObjStore.S3AccessKey,
		S3SecretKey: cfg.ObjStore.S3SecretKey,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize attachment store")
	}

	ctx := context.Background()

	var recorder audit.Recorder
	var ready func(ctx context.Context) error

	if cfg.Audit.Backend == "postgres" {
		db, err := storage.NewDB(
			ctx,
			cfg.Database.URL,
			cfg.Database.PoolMin,
			cfg.Database.PoolMax,
			cfg.Database.ConnectTimeout,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		log.Info().Msg("database connection established")

		recorder = audit.NewPostgresRecorder(db.Pool)
		ready = db.Ping
	} else {
		recorder, err = audit.New(audit.Config{
			Backend:     cfg.Audit.Backend,
			Path:        cfg.Audit.Path,
			S3Bucket:    cfg.Audit.S3Bucket,
			S3Prefix:    cfg.Audit.S3Prefix,
			S3Endpoint:  cfg.Audit.S3Endpoint,
			S3Region:    cfg.Audit.S3Region,
			S3AccessKey: cfg.Audit.S3AccessKey,
			S3SecretKey: cfg.Audit.S3SecretKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize audit store")
		}
	}

	relay := transport.New(transport.Config{
		Host:              cfg.SMTP.Host,
		Port:              cfg.SMTP.Port,
		UseSSL:            cfg.SMTP.UseSSL,
		UseStartTLS:       cfg.SMTP.UseStartTLS,
		CommandTimeout:    cfg.SMTP.CommandTimeout,
		SubmissionTimeout: cfg.SMTP.SubmissionTimeout,
	}, log)
	log.Info().Str("relay", relay.Describe()).Msg("SMTP relay configured")

	limits := pipeline.Limits{
		MaxRecipientLen:    cfg.Limits.MaxRecipientLen,
		MaxSubjectLen:      cfg.Limits.MaxSubjectLen,
		MaxBodyLen:         cfg.Limits.MaxBodyLen,
		MaxAttachments:     cfg.Limits.MaxAttachments,
		MaxAttachmentBytes: cfg.Limits.MaxAttachmentBytes,
	}

	p := pipeline.New(pipeline.Options{
		Store:  store,
		Sender: relay,
		Audit:  audit.NewLogger(recorder, log),
		Limits: limits,
		Identity: transport.Identity{
			AuthAddress:    cfg.SMTP.Sender,
			DisplayAddress: cfg.SenderDisplayAddress(),
			Password:       cfg.SMTP.Password,
		},
		SenderDomain: cfg.SMTP.SenderDomain,
		Log:          log,
	})

	verifier := auth.NewKeyVerifier(cfg.API.Key, cfg.API.KeyHash)
	if !verifier.Enabled() {
		log.Warn().Msg("no API key configured; send endpoints are unauthenticated")
	}

	router := api.NewRouter(api.RouterConfig{
		Pipeline: p,
		Limits:   limits,
		Verifier: verifier,
		Ready:    ready,
		Log:      log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
