package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/garnizeh/crackedclub/internal/config"
	"github.com/garnizeh/crackedclub/internal/metrics"
	"github.com/garnizeh/crackedclub/internal/session"
	"github.com/garnizeh/crackedclub/pkg/repository"
)

// Deps are the collaborators the HTTP layer needs beyond configuration.
type Deps struct {
	Sessions *session.Store
	Factory  session.Factory
	Apps     repository.ApplicationRepo
	Waitlist repository.WaitlistRepo
	DB       Pinger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func SetupRoutes(cfg *config.Config, version, buildTime string, d Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware(d.Metrics))
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{DB: d.DB, Gatherer: d.Gatherer}
	joinHandler := NewJoinHandler(d.Factory, cfg.Submission.Timeout, d.Metrics)
	waitlistHandler := NewWaitlistHandler(cfg.Submission.Timeout, d.Metrics)
	pageHandler := NewPageHandler(joinHandler, waitlistHandler, cfg.Join.TwitterOptional, cfg.Join.ShowWaitlist)
	adminHandler := NewAdminHandler(d.Apps, d.Waitlist, cfg.Admin.Email, cfg.Admin.PasswordHash, cfg.JWTSecret, cfg.TokenDuration)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods(http.MethodGet)
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", systemHandler.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/applications", joinHandler.SubmitOnce).Methods(http.MethodPost)
	r.HandleFunc("/v1/admin/signin", adminHandler.Signin).Methods(http.MethodPost)

	// Landing page, session bound
	withSession := SessionMiddleware(d.Sessions, cfg.Session.CookieName, cfg.Session.SecureCookie)
	page := r.NewRoute().Subrouter()
	page.Use(withSession)
	page.HandleFunc("/", pageHandler.Index).Methods(http.MethodGet)
	page.HandleFunc("/join", pageHandler.Submit).Methods(http.MethodPost)
	page.HandleFunc("/join/open", pageHandler.Open).Methods(http.MethodPost)
	page.HandleFunc("/join/close", pageHandler.Close).Methods(http.MethodPost)
	page.HandleFunc("/waitlist", pageHandler.Waitlist).Methods(http.MethodPost)

	// API v1 session routes
	joinV1 := r.PathPrefix("/v1/join").Subrouter()
	joinV1.Use(withSession)
	joinV1.HandleFunc("", joinHandler.View).Methods(http.MethodGet)
	joinV1.HandleFunc("/open", joinHandler.Open).Methods(http.MethodPost)
	joinV1.HandleFunc("/close", joinHandler.Close).Methods(http.MethodPost)
	joinV1.HandleFunc("/fields/{name}", joinHandler.SetField).Methods(http.MethodPut)
	joinV1.HandleFunc("/toggle", joinHandler.Toggle).Methods(http.MethodPost)
	joinV1.HandleFunc("/submit", joinHandler.Submit).Methods(http.MethodPost)

	sessV1 := r.PathPrefix("/v1").Subrouter()
	sessV1.Use(withSession)
	sessV1.HandleFunc("/waitlist", waitlistHandler.Join).Methods(http.MethodPost)
	sessV1.HandleFunc("/notifications", waitlistHandler.Notifications).Methods(http.MethodGet)

	// API v1 admin routes
	adminV1 := r.PathPrefix("/v1/admin").Subrouter()
	adminV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))
	adminV1.HandleFunc("/applications", adminHandler.ListApplications).Methods(http.MethodGet)
	adminV1.HandleFunc("/applications/{id}", adminHandler.GetApplication).Methods(http.MethodGet)
	adminV1.HandleFunc("/waitlist", adminHandler.ListWaitlist).Methods(http.MethodGet)

	return r
}
