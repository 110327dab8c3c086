package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/app"
	"github.com/autou/mailtriage/internal/database"
	"github.com/autou/mailtriage/internal/handlers"
	"github.com/autou/mailtriage/internal/ingest"
	"github.com/autou/mailtriage/internal/llm"
	"github.com/autou/mailtriage/internal/sendauth"
	"github.com/autou/mailtriage/internal/services"
	"github.com/autou/mailtriage/internal/triage"
	"github.com/autou/mailtriage/pkg/logger"
	"github.com/autou/mailtriage/pkg/mail"
)

// runtimeStack holds everything the server wires at boot.
type runtimeStack struct {
	db        *gorm.DB
	sendAuth  *sendauth.Service
	ingestor  *ingest.Ingestor
	suggester handlers.ReplySuggester
}

func buildRuntimeStack(cfg *app.Config) (*runtimeStack, error) {
	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{
		Enabled:  cfg.SMTP.Host != "",
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		UseTLS:   cfg.SMTP.UseTLS,
		Timeout:  cfg.SMTP.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	dispatcher, err := sendauth.NewDispatcher(db, mailer)
	if err != nil {
		return nil, fmt.Errorf("initialise dispatcher: %w", err)
	}

	sendAuth, err := sendauth.NewService(db, mailer, dispatcher, sendauth.Config{
		TTL: cfg.Send.TokenTTL,
		Limits: sendauth.Limits{
			RecipientHourly: cfg.Send.RecipientHourly,
			RecipientDaily:  cfg.Send.RecipientDaily,
			IPHourly:        cfg.Send.IPHourly,
		},
		DryRun: cfg.SMTP.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise send authorization: %w", err)
	}

	stack := &runtimeStack{db: db, sendAuth: sendAuth}

	emails, err := services.NewEmailService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise email service: %w", err)
	}
	scorer := triage.NewScorer(cfg.Triage.VIPSenders, cfg.Triage.VIPDomains)

	if cfg.IMAP.Host != "" && cfg.IMAP.User != "" {
		imapClient, err := ingest.NewIMAPClient(ingest.IMAPConfig{
			Host:     cfg.IMAP.Host,
			Port:     cfg.IMAP.Port,
			User:     cfg.IMAP.User,
			Password: cfg.IMAP.Password,
			Folder:   cfg.IMAP.Folder,
			StartTLS: cfg.IMAP.StartTLS,
			MarkSeen: cfg.IMAP.MarkSeen,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise imap client: %w", err)
		}
		stack.ingestor, err = ingest.NewIngestor(imapClient, emails, scorer)
		if err != nil {
			return nil, fmt.Errorf("initialise ingestor: %w", err)
		}
	} else {
		log.Info("imap not configured; mailbox ingestion disabled")
	}

	if strings.TrimSpace(cfg.Groq.APIKey) != "" {
		client, err := llm.NewClient(llm.Config{
			APIKey:  cfg.Groq.APIKey,
			Model:   cfg.Groq.Model,
			BaseURL: cfg.Groq.BaseURL,
			Timeout: cfg.Groq.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise groq client: %w", err)
		}
		stack.suggester = client
	} else {
		log.Info("groq api key not configured; canned reply suggestions in use")
	}

	return stack, nil
}

// Close drains in-flight work and releases the database handle.
func (s *runtimeStack) Close(log *zap.Logger) {
	if s == nil {
		return
	}
	if s.sendAuth != nil {
		s.sendAuth.Drain()
	}
	closeDatabase(s.db, log)
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := database.Config{
		Driver:   strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:     strings.TrimSpace(cfg.Database.Path),
		DSN:      strings.TrimSpace(cfg.Database.DSN),
		Host:     cfg.Database.Postgres.Host,
		Port:     cfg.Database.Postgres.Port,
		User:     cfg.Database.Postgres.Username,
		Password: cfg.Database.Postgres.Password,
		Name:     cfg.Database.Postgres.Database,
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.MigrateAndSeed(db, cfg.Send.AllowedRecipients); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
