package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/omriShneor/project_planner/internal/ask"
	"github.com/omriShneor/project_planner/internal/auth"
	"github.com/omriShneor/project_planner/internal/config"
	"github.com/omriShneor/project_planner/internal/database"
	"github.com/omriShneor/project_planner/internal/extract"
	"github.com/omriShneor/project_planner/internal/gcal"
	"github.com/omriShneor/project_planner/internal/jobs"
	"github.com/omriShneor/project_planner/internal/llm"
	"github.com/omriShneor/project_planner/internal/logging"
	"github.com/omriShneor/project_planner/internal/notify"
	"github.com/omriShneor/project_planner/internal/processor"
	"github.com/omriShneor/project_planner/internal/server"
	"github.com/omriShneor/project_planner/internal/timeutil"
)

func main() {
	app := &cli.App{
		Name:   "planner",
		Usage:  "Natural-language scheduling assistant backed by Google Calendar.",
		Action: runServe,
		Commands: []*cli.Command{
			serveCommand(),
			extractCommand(),
			horizonCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP server (default).",
		Action: runServe,
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Print the events a message would produce, without touching any calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Required: true, Usage: "The scheduling message."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			completer, err := initLLM(cfg)
			if err != nil {
				return err
			}

			loc, _ := timeutil.ResolveLocation(cfg.Timezone)
			extractor := extract.New(completer, extract.WithLogger(logger))

			ctx, cancel := context.WithTimeout(c.Context, cfg.LLMTimeout)
			defer cancel()
			result := extractor.Extract(ctx, c.String("text"), time.Now().In(loc))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"kind":   result.Kind,
				"events": result.Events,
				"reply":  result.Reply,
			})
		},
	}
}

func horizonCommand() *cli.Command {
	return &cli.Command{
		Name:  "horizon",
		Usage: "Print the last day a question's search window covers.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Required: true, Usage: "The question."},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			loc, _ := timeutil.ResolveLocation(cfg.Timezone)
			end := timeutil.ResolveSearchEnd(c.String("query"), time.Now().In(loc))
			fmt.Println(end.Format(timeutil.DateLayout))
			return nil
		},
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat), nil
}

func runServe(c *cli.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	loc, fellBack := timeutil.ResolveLocation(cfg.Timezone)
	if fellBack {
		logger.Warn("timezone not usable, falling back to UTC", "timezone", cfg.Timezone)
	}

	// Phase 1: Core infrastructure
	db, err := database.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	oauthCfg, err := gcal.LoadOAuthConfig(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("loading google credentials: %w", err)
	}

	authService, err := initAuth(db, oauthCfg, cfg, logger)
	if err != nil {
		return err
	}

	// Phase 2: Language model and pipeline
	completer, err := initLLM(cfg)
	if err != nil {
		return err
	}
	logger.Info("language model configured", "provider", cfg.LLMProvider, "model", llm.ModelName(completer))

	notifyService := initNotifyService(cfg, logger)

	proc := processor.New(
		extract.New(completer, extract.WithLogger(logger)),
		db,
		ask.New(completer, logger),
		processor.Config{
			Location:        loc,
			LLMTimeout:      cfg.LLMTimeout,
			CalendarTimeout: cfg.CalendarTimeout,
		},
		processor.WithNotifier(notifyService),
		processor.WithLogger(logger),
	)

	// Phase 3: Background jobs and HTTP
	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddSessionCleanup(cfg.CleanupSchedule, authService); err != nil {
		return err
	}
	scheduler.Start()

	srv := server.New(server.Config{
		Auth:      authService,
		History:   db,
		Processor: proc,
		Calendars: func(ctx context.Context, ts oauth2.TokenSource) (server.UserCalendar, error) {
			client, err := gcal.NewClient(ctx, ts, cfg.CalendarID, loc.String())
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		Location:     loc,
		Port:         cfg.HTTPPort,
		BaseURL:      cfg.BaseURL,
		SecureCookie: cfg.SecureCookie,
		Logger:       logger,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	waitForShutdown(c.Context, logger, errCh, srv, scheduler, notifyService)
	return nil
}

func initAuth(db *database.DB, oauthCfg *oauth2.Config, cfg *config.Config, logger *slog.Logger) (*auth.Service, error) {
	secret, derived, err := cfg.TokenKey(oauthCfg.ClientSecret)
	if err != nil {
		return nil, err
	}
	if derived {
		logger.Warn("dev mode: PLANNER_ENCRYPTION_KEY not set, deriving token key from the OAuth client secret")
	}

	encryptor, err := auth.NewEncryptor(secret)
	if err != nil {
		return nil, fmt.Errorf("creating token encryptor: %w", err)
	}
	return auth.NewService(db.DB, oauthCfg, encryptor, auth.WithLogger(logger)), nil
}

func initLLM(cfg *config.Config) (llm.Completer, error) {
	completer, err := llm.New(llm.Config{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		Temperature: llm.Temperature(cfg.LLMTemperature),
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring language model: %w", err)
	}
	return completer, nil
}

func initNotifyService(cfg *config.Config, logger *slog.Logger) *notify.Service {
	var emailNotifier notify.Notifier
	if resend := notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom, cfg.BaseURL); resend != nil {
		emailNotifier = resend
		logger.Info("email notification service configured (Resend)")
	}
	return notify.NewService(emailNotifier, logger)
}

func waitForShutdown(ctx context.Context, logger *slog.Logger, errCh <-chan error, srv *server.Server, scheduler *jobs.Scheduler, notifyService *notify.Service) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("HTTP server error", "error", err)
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	scheduler.Stop(shutdownCtx)
	notifyService.Wait()
}
