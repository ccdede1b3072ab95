package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eventmanager/config"
	"eventmanager/internal/adapters/auth"
	"eventmanager/internal/adapters/email"
	"eventmanager/internal/clock"
	deliveryhttp "eventmanager/internal/delivery/http"
	"eventmanager/internal/delivery/http/controllers"
	"eventmanager/internal/delivery/http/middleware"
	"eventmanager/internal/metrics"
	"eventmanager/internal/repository/postgres"
	"eventmanager/internal/services"
	"eventmanager/internal/validation"
)

func newServeCommand() *cobra.Command {
	var port string
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and handle graceful shutdown on SIGINT/SIGTERM.

Examples:
  # Start with configuration from the environment
  eventsapi serve

  # Apply pending migrations, then serve on port 9090
  eventsapi serve --migrate --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), port, migrateFirst)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default: $PORT or 8080)")
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, port string, migrateFirst bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if port != "" {
		cfg.Port = port
	}
	logger := config.NewLogger()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrateFirst {
		if err := postgres.MigrateUp(cfg.DBUrl); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := postgres.Open(openCtx, cfg.DBUrl)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := metrics.RegisterDBStats(db); err != nil {
		logger.Warn("db stats collector not registered", "err", err)
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mail.Provider,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
		SES: email.SESConfig{
			Region:             cfg.Mail.AWSRegion,
			AccessKeyID:        cfg.Mail.AWSAccessKeyID,
			SecretAccessKey:    cfg.Mail.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Mail.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	emailService := metrics.InstrumentEmailService(services.NewEmailService(mailer, email.NewTemplateRenderer(), logger))

	clk := clock.NewSystem()
	eventService := metrics.InstrumentEventService(services.NewEventService(services.EventServiceDeps{
		Events:                   postgres.NewEventRepository(db),
		Speakers:                 postgres.NewSpeakerRepository(db),
		EventSpeakers:            postgres.NewEventSpeakerRepository(db),
		Locations:                postgres.NewLocationRepository(db),
		Registrations:            postgres.NewRegistrationRepository(db),
		Tx:                       postgres.NewTransactor(db),
		Email:                    emailService,
		Clock:                    clk,
		Logger:                   logger,
		Timeout:                  cfg.ContextTimeout,
		EnforceLocationConflicts: cfg.EnforceLocationConflicts,
	}))

	catalog, err := validation.NewCatalog(cfg.DefaultLocale)
	if err != nil {
		return fmt.Errorf("message catalog: %w", err)
	}
	authenticator := middleware.NewAuthenticator(auth.NewJWTVerifier(cfg.JWTSecret), catalog, logger)
	eventController := controllers.NewEventController(logger, eventService, validation.New(clk), catalog)

	handler := deliveryhttp.NewRouter(ctx, deliveryhttp.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   middleware.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
	}, logger, catalog, authenticator, eventController, deliveryhttp.Health(db))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
