package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"telecom-chat/internal/agent"
	"telecom-chat/internal/auth"
	"telecom-chat/internal/config"
	apphttp "telecom-chat/internal/http"
	"telecom-chat/internal/inference"
	"telecom-chat/internal/repository/memory"
	"telecom-chat/internal/repository/sqlstore"
	"telecom-chat/internal/service"
	"telecom-chat/internal/storage"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(cfg.Database.URL)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	records := service.NewRecordService(
		sqlstore.NewFileRepository(db),
		sqlstore.NewCDRRepository(db),
		sqlstore.NewRevenueRepository(db),
	)
	if err := records.Init(ctx); err != nil {
		logger.Fatalf("init record store: %v", err)
	}

	userRepo, err := memory.NewUserRepository(cfg.DomainUsers())
	if err != nil {
		logger.Fatalf("load credential table: %v", err)
	}
	userService := service.NewUserService(userRepo)

	issuer, err := auth.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("token issuer: %v", err)
	}

	if cfg.Model.Source != "" {
		if err := syncModel(ctx, cfg, logger); err != nil {
			logger.Fatalf("sync model weights: %v", err)
		}
	}

	pipeline, err := inference.Load(ctx, inference.Config{
		ModelPath:     cfg.Model.Path,
		ModelName:     cfg.ModelName(),
		BaseURL:       cfg.Model.BaseURL,
		APIKey:        cfg.Model.APIKey,
		Device:        cfg.Model.Device,
		DType:         cfg.Model.DType,
		MaxNewTokens:  cfg.Model.MaxNewTokens,
		Temperature:   cfg.Model.Temperature,
		MaxConcurrent: cfg.Model.MaxConcurrent,
		Timeout:       cfg.Model.Timeout,
		VerifyServer:  cfg.Model.VerifyServer,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatalf("load model: %v", err)
	}

	telecomAgent := agent.New(pipeline, agent.DefaultRegistry(), agent.Config{
		MaxSteps: cfg.Agent.MaxSteps,
		Logger:   logger,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, issuer, telecomAgent, records, pipeline, logger)
	handler.RegisterRoutes(router, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
	return nil
}

// syncModel mirrors model.source into model.path before the model is loaded.
func syncModel(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	bucket, prefix, err := storage.ParseS3URI(cfg.Model.Source)
	if err != nil {
		return err
	}
	store, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	n, err := store.DownloadPrefix(ctx, bucket, prefix, cfg.Model.Path)
	if err != nil {
		return err
	}
	logger.Infof("model weights synced from %s (%d files fetched)", cfg.Model.Source, n)
	return nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	return storage.NewS3Service(client, logger), nil
}
