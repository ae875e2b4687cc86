package handlers

import (
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/rs/cors"

	"statusboard/app/internal/auth"
	"statusboard/app/internal/board"
	"statusboard/app/internal/ratelimit"
	"statusboard/app/internal/refresh"
	"statusboard/app/internal/security"
)

// Deps are the collaborators the routes are wired to
type Deps struct {
	Source           MonitorSource
	Board            *board.Board
	Hub              *Hub
	Pages            *Pages
	Auth             *auth.Auth
	OnIncidentChange IncidentHook
	LoopStatus       func() refresh.Status
	CORSOrigins      []string
}

// SetupRoutes configures all HTTP routes and middlewares
func SetupRoutes(d Deps) http.Handler {
	sentryMiddleware := sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})

	// Public API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /api/monitors", HandleMonitors(d.Source))
	api.HandleFunc("GET /api/monitor/{id}", HandleMonitor(d.Source))
	api.HandleFunc("GET /api/board", HandleBoard(d.Board))
	api.HandleFunc("GET /api/incidents", HandleIncidents())
	api.HandleFunc("GET /api/health", HandleHealth(d.LoopStatus))

	// Admin API routes (with authentication)
	admin := http.NewServeMux()
	admin.HandleFunc("POST /api/admin/incidents", d.Auth.RequireAuth(HandleCreateIncident(d.OnIncidentChange)))
	admin.HandleFunc("DELETE /api/admin/incidents/{id}", d.Auth.RequireAuth(HandleDeleteIncident(d.OnIncidentChange)))
	admin.HandleFunc("GET /api/admin/logs", d.Auth.RequireAuth(HandleLogs()))
	admin.HandleFunc("DELETE /api/admin/logs", d.Auth.RequireAuth(HandleClearLogs()))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	// Main router
	mux := http.NewServeMux()
	mux.Handle("/api/admin/", ratelimit.AdminLimiter.Middleware(security.ClientIP)(admin))
	mux.Handle("/api/", ratelimit.APILimiter.Middleware(security.ClientIP)(corsMiddleware.Handler(api)))
	mux.Handle("GET /static/", HandleStatic())
	mux.HandleFunc("GET /monitor/{id}", d.Pages.HandleMonitorPage())
	mux.HandleFunc("GET /{$}", d.Pages.HandleIndex())
	mux.HandleFunc("/", d.Pages.HandleNotFound())

	// the websocket needs the raw connection, so it bypasses the wrapping middlewares
	root := http.NewServeMux()
	root.Handle("GET /ws", d.Hub.Handler())
	root.Handle("/", security.SecureHeaders(GzipMiddleware(sentryMiddleware.Handle(mux))))
	return root
}
