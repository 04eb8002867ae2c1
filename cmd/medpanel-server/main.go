package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medpanel/medpanel/internal/config"
	"github.com/medpanel/medpanel/internal/domain/appointment"
	"github.com/medpanel/medpanel/internal/domain/identity"
	"github.com/medpanel/medpanel/internal/domain/patient"
	"github.com/medpanel/medpanel/internal/domain/prescription"
	"github.com/medpanel/medpanel/internal/platform/backup"
	"github.com/medpanel/medpanel/internal/platform/cache"
	"github.com/medpanel/medpanel/internal/platform/db"
	"github.com/medpanel/medpanel/internal/platform/middleware"
	"github.com/medpanel/medpanel/internal/platform/monitor"
	"github.com/medpanel/medpanel/internal/platform/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medpanel-server",
		Short: "Medical office panel API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())

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

			_, pool, err := openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
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

			_, pool, err := openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(context.Background())
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

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create a development doctor account (testdoctor / TestPass123!)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := identity.NewService(identity.NewRepo(pool), session.NewLoginLimiter(), monitor.Nop())
			doctor, err := svc.Register(context.Background(), identity.RegisterRequest{
				Username:     "testdoctor",
				Email:        "testdoctor@example.com",
				Password:     "TestPass123!",
				Nombre:       "Doctor de Prueba",
				Especialidad: "Medicina General",
			})
			if errors.Is(err, identity.ErrDuplicate) {
				fmt.Println("Seed account already exists.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Created doctor %d (testdoctor).\n", doctor.ID)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export data to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			tables, _ := cmd.Flags().GetStringSlice("tables")

			cfg, pool, err := openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg)
			exporter := backup.NewExporter(pool, backup.DefaultRegistry(), cfg.ExportDir, logger)
			path, err := exporter.Export(context.Background(), tables, format)
			if err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("format", backup.FormatJSON, "Export format: csv, json, xml or sql")
	cmd.Flags().StringSlice("tables", nil, "Tables to export (default: all)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import data from a previously exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			cfg, pool, err := openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg)
			importer := backup.NewImporter(pool, backup.DefaultRegistry(), logger)
			res, err := importer.Import(context.Background(), args[0], format)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d, updated %d, skipped %d, errors %d.\n",
				res.Imported, res.Updated, res.Skipped, res.Errors)
			return nil
		},
	}
	cmd.Flags().String("format", backup.FormatJSON, "Import format: csv, json or xml")
	return cmd
}

func openPool() (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(context.Background(), db.Config{
		URL:      cfg.ResolvedDatabaseURL(),
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.Config{
		URL:             cfg.ResolvedDatabaseURL(),
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	mon := monitor.New(monitor.Config{
		Dir:        cfg.LogDir,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	var store cache.Store
	switch cfg.CacheBackend {
	case "file":
		store, err = cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open file cache")
		}
	default:
		store = cache.NewMemoryStore()
	}
	defer store.Close()

	sessions := session.NewManager(session.Config{
		IdleTimeout:  time.Duration(cfg.SessionIdleTimeout) * time.Second,
		FormTokenTTL: time.Duration(cfg.CSRFTokenTTL) * time.Second,
		Secure:       !cfg.IsDev(),
	})
	limiter := session.NewLoginLimiter()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler(mon)

	// Global middleware
	e.Use(middleware.Recovery(mon))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(monitor.AccessLog(mon))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID", session.CSRFHeader, session.CSRFFormHeader},
		AllowCredentials: true,
	}))

	api := e.Group("/api")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg, mon))

	authed := e.Group("/api")
	authed.Use(middleware.RateLimit(rateLimitCfg, mon))
	authed.Use(session.RequireAuth(sessions, mon))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	// Domain wiring
	identitySvc := identity.NewService(identity.NewRepo(pool), limiter, mon)
	identityHandler := identity.NewHandler(identitySvc, sessions, mon)
	identityHandler.RegisterRoutes(api, authed)

	patientRepo := patient.NewRepo(pool)
	patientSvc := patient.NewService(patientRepo, mon).WithCache(store, time.Minute)
	patientHandler := patient.NewHandler(patientSvc, mon)
	patientHandler.RegisterRoutes(authed)

	apptSvc := appointment.NewService(appointment.NewRepo(pool), patientRepo, mon)
	apptHandler := appointment.NewHandler(apptSvc, mon)
	apptHandler.RegisterRoutes(authed)

	rxSvc := prescription.NewService(prescription.NewRepo(pool), patientRepo, mon)
	rxHandler := prescription.NewHandler(rxSvc, mon)
	rxHandler.RegisterRoutes(authed)

	// Expired sessions pile up until swept.
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					logger.Debug().Int("sessions", n).Msg("swept expired sessions")
				}
			}
		}
	}()

	// Start server
	go func() {
		addr := ":" + strings.TrimPrefix(cfg.Port, ":")
		logger.Info().Str("addr", addr).Msg("server listening")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		return err
	}
	return nil
}

// jsonErrorHandler keeps every error response JSON-shaped, including the
// router's own 404 and 405.
func jsonErrorHandler(mon *monitor.Monitor) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "Error interno del servidor"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch code {
			case http.StatusNotFound:
				msg = "Recurso no encontrado"
			case http.StatusMethodNotAllowed:
				msg = "Método no permitido"
			case http.StatusRequestEntityTooLarge:
				msg = "Datos inválidos"
			default:
				if s, ok := he.Message.(string); ok {
					msg = s
				}
			}
		}
		if code == http.StatusInternalServerError {
			mon.Error(err, "unhandled error", map[string]any{
				"path":   c.Request().URL.Path,
				"method": c.Request().Method,
			})
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}
