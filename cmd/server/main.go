package main

import (
	"fmt"
	"log"

	"docslice/internal/classifier"
	"docslice/internal/classifier/claude"
	"docslice/internal/classifier/gemini"
	"docslice/internal/config"
	emailnoop "docslice/internal/email/noop"
	emailses "docslice/internal/email/ses"
	"docslice/internal/handler"
	"docslice/internal/pdf"
	"docslice/internal/port"
	"docslice/internal/repository/postgres"
	"docslice/internal/router"
	"docslice/internal/service"
	s3storage "docslice/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	sessionRepo := postgres.NewSessionRepo(db)
	auditRepo := postgres.NewAuditRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	classif, err := buildClassifier(&cfg.Classifier)
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}

	emailSender, err := buildEmailSender(&cfg.Email)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}

	// Initialize services
	authSvc := service.NewAuthService(cfg.Operator, cfg.JWT)
	sessionSvc := service.NewSessionService(
		sessionRepo, auditRepo, s3Client, pdf.NewPageSource(), classif, emailSender,
		cfg.S3, cfg.Email, cfg.Analysis,
	)

	// Initialize handlers
	authH := handler.NewAuthHandler(authSvc)
	sessionH := handler.NewSessionHandler(sessionSvc, cfg.S3.MaxFileSizeMB)
	segmentH := handler.NewSegmentHandler(sessionSvc)
	exportH := handler.NewExportHandler(sessionSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(authSvc, authH, sessionH, segmentH, exportH, healthH, cfg.CORS.AllowedOrigins)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// buildClassifier wires the primary provider, with the secondary as a
// rate-limit fallback when configured.
func buildClassifier(cfg *config.ClassifierConfig) (port.BoundaryClassifier, error) {
	classifier.RegisterProvider("gemini", func(pc *config.ClassifierProviderConfig) (port.BoundaryClassifier, error) {
		return gemini.NewClassifier(pc), nil
	})
	classifier.RegisterProvider("claude", func(pc *config.ClassifierProviderConfig) (port.BoundaryClassifier, error) {
		return claude.NewClassifier(pc), nil
	})

	primary, err := classifier.NewClassifier(&cfg.Primary)
	if err != nil {
		return nil, err
	}

	secondaryCfg := cfg.SecondaryConfig()
	if secondaryCfg == nil {
		return primary, nil
	}
	secondary, err := classifier.NewClassifier(secondaryCfg)
	if err != nil {
		return nil, err
	}

	return classifier.NewFallbackClassifier(
		[]port.BoundaryClassifier{primary, secondary},
		[]string{cfg.Primary.Provider, secondaryCfg.Provider},
	), nil
}

func buildEmailSender(cfg *config.EmailConfig) (port.EmailSender, error) {
	switch cfg.Provider {
	case "ses":
		return emailses.NewSESSender(cfg.Region, cfg.FromAddress)
	default:
		return emailnoop.NewNoopSender(), nil
	}
}
