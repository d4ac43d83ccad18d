package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicflow/clinicflow/internal/config"
	"github.com/clinicflow/clinicflow/internal/domain/account"
	"github.com/clinicflow/clinicflow/internal/domain/appointment"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/prescription"
	"github.com/clinicflow/clinicflow/internal/domain/visit"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/platform/filestore"
	"github.com/clinicflow/clinicflow/internal/platform/i18n"
	"github.com/clinicflow/clinicflow/internal/platform/middleware"
	"github.com/clinicflow/clinicflow/internal/platform/pdf"
	"github.com/clinicflow/clinicflow/internal/platform/reminder"
	"github.com/clinicflow/clinicflow/internal/platform/sms"
	"github.com/clinicflow/clinicflow/internal/platform/validation"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicflow-server",
		Short: "Practice management API for a solo medical practice",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(remindCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// doctorCmd creates the practice's doctor account from the command line.
// There is no self-service signup; accounts are provisioned by the operator.
func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Manage doctor accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a doctor account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")
			specialization, _ := cmd.Flags().GetString("specialization")
			license, _ := cmd.Flags().GetString("license")
			phone, _ := cmd.Flags().GetString("phone")
			locale, _ := cmd.Flags().GetString("locale")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
			svc := account.NewService(
				account.NewDoctorRepoPG(pool),
				account.NewAvailabilityRepoPG(pool),
				issuer,
			)

			d, err := svc.CreateDoctor(ctx, account.CreateDoctorParams{
				Email:          email,
				Password:       password,
				FirstName:      firstName,
				LastName:       lastName,
				Specialization: specialization,
				LicenseNumber:  license,
				Phone:          phone,
				Locale:         locale,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created doctor %s (%s)\n", d.FullName(), d.ID)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Login email (required)")
	createCmd.Flags().String("password", "", "Initial password (required)")
	createCmd.Flags().String("first-name", "", "First name (required)")
	createCmd.Flags().String("last-name", "", "Last name (required)")
	createCmd.Flags().String("specialization", "", "Medical specialization")
	createCmd.Flags().String("license", "", "Medical license number")
	createCmd.Flags().String("phone", "", "Contact phone")
	createCmd.Flags().String("locale", "fr", "Preferred locale (en or fr)")
	cmd.AddCommand(createCmd)

	return cmd
}

// remindCmd runs one reminder sweep immediately and exits, for cron-style
// deployments where the in-process scheduler is not wanted.
func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send appointment reminders for tomorrow and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			translator := i18n.New(cfg.DefaultLocale)
			sender := sms.NewClient(cfg.SMSAPIKey, cfg.SMSUsername, cfg.SMSSenderID, cfg.SMSBaseURL, logger)
			sweeper := reminder.NewSweeper(
				appointment.NewRepoPG(pool), sender, translator,
				cfg.ClinicName, cfg.Location(), logger,
			)
			return sweeper.Run(ctx)
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Shared platform pieces
	translator := i18n.New(cfg.DefaultLocale)
	renderer := pdf.NewRenderer(translator, cfg.ClinicName, cfg.ClinicAddress, cfg.ClinicPhone)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	maxFileBytes := cfg.MaxFileSizeMB * 1024 * 1024
	files := filestore.NewPGStore(pool, maxFileBytes)

	// Domain services
	accountSvc := account.NewService(
		account.NewDoctorRepoPG(pool),
		account.NewAvailabilityRepoPG(pool),
		issuer,
	)
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	visitSvc := visit.NewService(
		visit.NewRepoPG(pool),
		visit.NewVitalRepoPG(pool),
		patientSvc,
		accountSvc,
		renderer,
	)
	prescriptionSvc := prescription.NewService(
		prescription.NewMedicationRepoPG(pool),
		prescription.NewTemplateRepoPG(pool),
		prescription.NewRepoPG(pool),
		visitSvc,
		patientSvc,
		accountSvc,
		renderer,
	)
	appointmentRepo := appointment.NewRepoPG(pool)
	appointmentSvc := appointment.NewService(appointmentRepo, patientSvc)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(middleware.BodyLimit("1M", fmt.Sprintf("%dM", cfg.MaxFileSizeMB)))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks stay outside authentication.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	jwtMiddleware := auth.JWTMiddleware(issuer)

	// Login and refresh are public; everything else under /api requires a
	// valid token.
	authGroup := e.Group("/api/auth")
	account.NewHandler(accountSvc).RegisterRoutes(authGroup, jwtMiddleware)

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	api := e.Group("/api")
	api.Use(jwtMiddleware)
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(middleware.Audit(logger))

	patient.NewHandler(patientSvc, files).RegisterRoutes(api)
	visit.NewHandler(visitSvc, translator).RegisterRoutes(api)
	prescription.NewHandler(prescriptionSvc, translator).RegisterRoutes(api)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)

	// Daily SMS reminder sweep
	sender := sms.NewClient(cfg.SMSAPIKey, cfg.SMSUsername, cfg.SMSSenderID, cfg.SMSBaseURL, logger)
	sweeper := reminder.NewSweeper(appointmentRepo, sender, translator, cfg.ClinicName, cfg.Location(), logger)
	scheduler := sweeper.Start()
	defer scheduler.Stop()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
