package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bankledger/internal/auth"
	"bankledger/internal/config"
	"bankledger/internal/export"
	apphttp "bankledger/internal/http"
	"bankledger/internal/repository/sqlite"
	"bankledger/internal/service"
	"bankledger/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	accountRepo := sqlite.NewAccountRepository(db)
	ledgerRepo := sqlite.NewLedgerRepository(db)
	attemptRepo := sqlite.NewAttemptRepository(db)
	statementRepo := sqlite.NewStatementJobRepository(db)

	if err := accountRepo.Init(ctx); err != nil {
		logger.Fatalf("init account repository: %v", err)
	}
	if err := ledgerRepo.Init(ctx); err != nil {
		logger.Fatalf("init ledger repository: %v", err)
	}
	if err := attemptRepo.Init(ctx); err != nil {
		logger.Fatalf("init attempt repository: %v", err)
	}
	if err := statementRepo.Init(ctx); err != nil {
		logger.Fatalf("init statement repository: %v", err)
	}

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	accountService := service.NewAccountService(accountRepo, hasher)
	ledgerService := service.NewLedgerService(accountRepo, ledgerRepo)
	statementService := service.NewStatementService(statementRepo, accountRepo)

	loginThrottle := service.NewAttemptThrottle(
		attemptRepo,
		cfg.Auth.LoginAttemptLimit,
		time.Duration(cfg.Auth.LoginLockoutMinutes)*time.Minute,
		logger,
	)
	loginGate, err := service.NewCredentialGate(accountRepo.GetByEmail, hasher, loginThrottle, logger)
	if err != nil {
		logger.Fatalf("build login gate: %v", err)
	}

	// the banking lock has no expiry; it holds until support resets it
	bankingThrottle := service.NewAttemptThrottle(
		service.NewAccountAttemptStore(accountRepo),
		cfg.Auth.BankingAttemptLimit,
		0,
		logger,
	)
	bankingGate, err := service.NewCredentialGate(accountRepo.GetByUsername, hasher, bankingThrottle, logger)
	if err != nil {
		logger.Fatalf("build banking gate: %v", err)
	}

	authService := service.NewAuthService(loginGate, tokens)

	var storageSvc storage.Service
	var manager export.Manager
	if cfg.Storage.Bucket != "" {
		storageSvc, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}

		manager = export.NewManager(export.Config{
			SpoolDir:      cfg.Export.SpoolDir,
			MaxConcurrent: cfg.Export.MaxConcurrent,
			UploadOptions: storage.UploadOptions{
				Bucket:    cfg.Storage.Bucket,
				KeyPrefix: cfg.Storage.KeyPrefix,
			},
			Logger: logger,
		}, statementService, ledgerRepo, storageSvc)

		if err := manager.Start(ctx); err != nil {
			logger.Fatalf("start export manager: %v", err)
		}
		if err := manager.Resume(ctx); err != nil {
			logger.Warnf("resume statement jobs: %v", err)
		}
	} else {
		logger.Info("no storage bucket configured, statement export disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		accountService,
		ledgerService,
		authService,
		statementService,
		bankingGate,
		manager,
		storageSvc,
		cfg.Storage.Bucket,
		cfg.Export.SpoolDir,
		tokens,
	)
	handler.RegisterRoutes(router)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if manager != nil {
		manager.Shutdown()
	}

	logger.Info("bye")
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
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving statements to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
