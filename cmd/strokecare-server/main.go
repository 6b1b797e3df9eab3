package main

import (
	"context"
	"errors"
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
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/strokecare/api/internal/config"
	"github.com/strokecare/api/internal/domain/admin"
	"github.com/strokecare/api/internal/domain/analytics"
	"github.com/strokecare/api/internal/domain/appointment"
	"github.com/strokecare/api/internal/domain/identity"
	"github.com/strokecare/api/internal/domain/patient"
	"github.com/strokecare/api/internal/domain/securitylog"
	"github.com/strokecare/api/internal/platform/auth"
	"github.com/strokecare/api/internal/platform/db"
	"github.com/strokecare/api/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "strokecare-server",
		Short: "Stroke care administration API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

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

			count, err := db.NewMigrator(pool, dir).Up(ctx)
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

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
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

// identityDirectory adapts the account service to the resolver the
// scheduling domain accepts, keeping the dependency one-way.
type identityDirectory struct {
	users *identity.Service
}

func (d identityDirectory) Lookup(ctx context.Context, userID string) (string, string, error) {
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return u.FirstName + " " + u.LastName, u.Role, nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// The relational store is always required: the audit log lives there
	// regardless of which backend serves the other entities.
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to postgres")

	var mongoDB *mongo.Database
	if cfg.NeedsMongo() {
		client, err := db.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to mongodb")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		mongoDB = client.Database(cfg.MongoDBName)
		logger.Info().Msg("connected to mongodb")
	}

	// Repositories, chosen per entity at startup.
	var userRepo identity.Repository
	if cfg.UsersBackend == "mongo" {
		if err := identity.EnsureMongoIndexes(ctx, mongoDB); err != nil {
			logger.Fatal().Err(err).Msg("failed to create user indexes")
		}
		userRepo = identity.NewRepoMongo(mongoDB)
	} else {
		userRepo = identity.NewRepoPG(pool)
	}

	var patientRepo patient.Repository
	if cfg.PatientsBackend == "mongo" {
		if err := patient.EnsureMongoIndexes(ctx, mongoDB); err != nil {
			logger.Fatal().Err(err).Msg("failed to create patient indexes")
		}
		patientRepo = patient.NewRepoMongo(mongoDB)
	} else {
		patientRepo = patient.NewRepoPG(pool)
	}

	var apptRepo appointment.Repository
	if cfg.AppointmentsBackend == "mongo" {
		if err := appointment.EnsureMongoIndexes(ctx, mongoDB); err != nil {
			logger.Fatal().Err(err).Msg("failed to create appointment indexes")
		}
		apptRepo = appointment.NewRepoMongo(mongoDB)
	} else {
		apptRepo = appointment.NewRepoPG(pool)
	}

	// Services
	auditSvc := securitylog.NewService(securitylog.NewRepoPG(pool), logger)
	userSvc := identity.NewService(userRepo)
	signer := auth.NewTokenSigner(cfg.JWTSecret, time.Duration(cfg.TokenTTLHrs)*time.Hour)
	authSvc := identity.NewAuthService(userSvc, signer, auditSvc)
	scorer := patient.NewScorer(cfg.RiskMedium, cfg.RiskHigh)
	patientSvc := patient.NewService(patientRepo, scorer)
	apptSvc := appointment.NewService(apptRepo, identityDirectory{users: userSvc})

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	authMW := auth.Middleware(authSvc)
	api := e.Group("/api")
	authed := api.Group("", authMW)
	adminOnly := api.Group("", authMW, auth.RequireRole(identity.RoleAdmin))

	identityHandler := identity.NewHandler(userSvc, authSvc, auditSvc)
	identityHandler.RegisterAuthRoutes(api.Group("/auth"), authMW)
	identityHandler.RegisterDirectoryRoutes(authed)
	identityHandler.RegisterAdminRoutes(adminOnly)
	patient.NewHandler(patientSvc, userSvc, auditSvc).RegisterRoutes(api, authed)
	appointment.NewHandler(apptSvc, auditSvc).RegisterRoutes(authed)
	securitylog.NewHandler(auditSvc).RegisterRoutes(adminOnly, authed)
	admin.NewHandler(userSvc, patientSvc, apptSvc).RegisterRoutes(adminOnly)
	analytics.NewHandler(patientSvc).RegisterRoutes(authed)

	// Start and wait for shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
