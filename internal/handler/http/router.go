package http

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/user"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

const (
	appName    = "discipline-dashboard"
	appVersion = "v1.0.0"

	// maxRequestBody caps JSON bodies read by the export and proxy handlers.
	maxRequestBody = 1 << 20
)

// NewLogger builds the process-wide JSON logger in ECS shape.
func NewLogger(env, level string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", appName),
		slog.String("version", appVersion),
		slog.String("env", env),
	)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// HealthInfo is reported by GET /healthz.
type HealthInfo struct {
	Engine  string `json:"engine"`
	Profile string `json:"profile"`
	Archive bool   `json:"archive"`
}

type RouterConfig struct {
	Logger      *slog.Logger
	FrontendURL string
	Health      HealthInfo
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, authHandler AuthHandler, exportHandler ExportHandler, resourceHandler ResourceHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length"},
		MaxAge:           300,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, cfg.Health)
	})

	// Path used by the dashboard front end
	r.Group(func(r chi.Router) {
		r.Use(JWTService.Verifier())
		r.Use(middleware.AuthRequired(JWTService))
		r.Use(middleware.RequireRoles(user.RoleAdmin, user.RoleCounselor))
		r.Post("/api/attendance/export-pdf", exportHandler.ExportPDF)
	})

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(JWTService.Verifier())
			r.Use(middleware.AuthRequired(JWTService))

			r.Get("/auth/me", authHandler.Me)

			r.Route("/attendance/export", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionAttendanceExport))
				r.Post("/pdf", exportHandler.ExportPDF)
				r.Post("/xlsx", exportHandler.ExportXLSX)
			})

			r.Route("/exports", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionExportHistory))
				r.Get("/", exportHandler.ListRuns)
				r.Get("/events", exportHandler.Events)
				r.Get("/{id}/file", exportHandler.DownloadRun)

				// Admin only
				r.With(middleware.AdminOnly).Post("/prune", exportHandler.PruneRuns)
			})

			r.Route("/{resource:(?:"+strings.Join(Resources, "|")+")}", func(r chi.Router) {
				r.Get("/", resourceHandler.List)
				r.Post("/", resourceHandler.Create)
				r.Get("/{id}", resourceHandler.Get)
				r.Put("/{id}", resourceHandler.Update)
				r.Delete("/{id}", resourceHandler.Delete)
			})
		})
	})
	return r
}
