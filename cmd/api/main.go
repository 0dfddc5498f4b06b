package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/config"
	appHTTP "github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/cron"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/database"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/render"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/report"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/sse"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/storage"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/upstream"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/repository/postgresql"
	serviceAuth "github.com/cmlabs-hris/discipline-dashboard-go/internal/service/auth"
	serviceExport "github.com/cmlabs-hris/discipline-dashboard-go/internal/service/export"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := appHTTP.NewLogger(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Render pipeline
	renderCfg, err := render.NewConfig(cfg.Render.Profile, cfg.Render.ChromiumPath, cfg.Render.ServerlessChromiumPath)
	if err != nil {
		log.Fatal("Failed to resolve render profile: ", err)
	}
	launcher, err := render.NewLauncher(cfg.Render.Engine, renderCfg)
	if err != nil {
		log.Fatal("Failed to initialize renderer: ", err)
	}
	supervisor := render.NewSupervisor(launcher,
		render.WithMaxRetries(cfg.Render.MaxRetries),
		render.WithBackoffBase(cfg.Render.BackoffBase),
	)
	assembler, err := report.NewAssembler(report.Assets{
		HeaderImageURL: cfg.Report.HeaderImageURL,
		FooterImageURL: cfg.Report.FooterImageURL,
		SchoolName:     cfg.Report.SchoolName,
	})
	if err != nil {
		log.Fatal("Failed to load report templates: ", err)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.CookieName, cfg.IsProduction())
	api := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)

	hub := sse.NewHub()
	exportOpts := []serviceExport.Option{serviceExport.WithEvents(hub)}

	// Optional export archive
	var pruner appHTTP.Pruner
	var scheduler *cron.Scheduler
	if cfg.Archive.Enabled {
		db, err := database.NewPostgreSQLDB(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			log.Fatal("Failed to connect to database: ", err)
		}
		defer db.Close()

		if err := postgresql.EnsureExportRunSchema(ctx, db); err != nil {
			log.Fatal("Failed to prepare export_runs table: ", err)
		}

		var fileStorage storage.FileStorage
		switch cfg.Storage.Type {
		case "local":
			fileStorage, err = storage.NewLocalStorage(cfg.Storage.BasePath)
			if err != nil {
				log.Fatal("Failed to initialize local storage: ", err)
			}
		default:
			log.Fatal("Unsupported storage types: ", cfg.Storage.Type)
		}

		runRepo := postgresql.NewExportRunRepository(db)
		exportOpts = append(exportOpts, serviceExport.WithArchive(runRepo, fileStorage))

		archiveJobs := cron.NewArchiveJobs(runRepo, fileStorage, cfg.Archive.RetentionDays)
		pruner = archiveJobs
		scheduler = cron.NewScheduler(ctx)
		archiveJobs.RegisterJobs(scheduler)
		scheduler.Start()
	}

	authService := serviceAuth.NewAuthService(api, JWTService)
	exportService := serviceExport.NewExportService(assembler, supervisor, exportOpts...)

	authHandler := appHTTP.NewAuthHandler(JWTService, authService)
	exportHandler := appHTTP.NewExportHandler(exportService, pruner, hub)
	resourceHandler := appHTTP.NewResourceHandler(JWTService, api)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:      logger,
			FrontendURL: cfg.App.FrontendURL,
			Health: appHTTP.HealthInfo{
				Engine:  supervisor.Engine(),
				Profile: string(renderCfg.Profile),
				Archive: cfg.Archive.Enabled,
			},
		},
		JWTService,
		authHandler,
		exportHandler,
		resourceHandler,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running",
			"addr", server.Addr,
			"engine", supervisor.Engine(),
			"profile", renderCfg.Profile,
			"max_retries", cfg.Render.MaxRetries,
			"archive", cfg.Archive.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// In-flight exports may still be rendering.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	slog.Info("Server stopped")
}
