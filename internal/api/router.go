// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/authz"
	"github.com/sdenike/fauxdash/internal/middleware"
)

// Router wires handlers and middleware into an http.Handler.
type Router struct {
	handler       *Handler
	sessions      *auth.SessionMiddleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
	staticDir     string
}

// NewRouter creates a router. staticDir may be empty.
func NewRouter(handler *Handler, sessions *auth.SessionMiddleware, authorizer *authz.Middleware, chiMW *ChiMiddleware, staticDir string) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		sessions:      sessions,
		authz:         authorizer,
		chiMiddleware: chiMW,
		staticDir:     staticDir,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order.
	r.Use(middleware.RequestID)
	r.Use(router.chiMiddleware.RealIP())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Compression)
		r.Use(router.sessions.Authenticate)
		r.Use(router.authz.AuthorizeRequest)

		router.healthRoutes(r)
		router.authRoutes(r)
		router.dashboardRoutes(r)
		router.itemRoutes(r)
		router.settingsRoutes(r)
		router.analyticsRoutes(r)
		router.adminRoutes(r)

		r.Get("/ws", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	if router.staticDir != "" {
		r.Handle("/*", spaHandler(router.staticDir))
	}

	return r
}

func (router *Router) healthRoutes(r chi.Router) {
	r.Get("/health", router.handler.Health)
	r.Get("/health/ready", router.handler.HealthReady)
}

func (router *Router) authRoutes(r chi.Router) {
	h := router.handler
	r.Route("/auth", func(r chi.Router) {
		r.Get("/status", h.AuthStatus)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/setup", h.Setup)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/password", h.ChangePassword)
		r.Post("/token", h.IssueToken)
		r.Get("/oidc/login", h.OIDCLogin)
		r.Get("/oidc/callback", h.OIDCCallback)
	})
}

func (router *Router) dashboardRoutes(r chi.Router) {
	h := router.handler
	r.Get("/dashboard", h.Dashboard)
	r.Get("/search", h.Search)

	r.Post("/track/click", h.TrackClick)
	r.Post("/track/pageview", h.TrackPageview)
	r.Get("/go/{kind}/{id}", h.Redirect)
}

func (router *Router) itemRoutes(r chi.Router) {
	h := router.handler

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Post("/reorder", h.ReorderCategories)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})

	r.Route("/bookmarks", func(r chi.Router) {
		r.Get("/", h.ListBookmarks)
		r.Post("/", h.CreateBookmark)
		r.Post("/reorder", h.ReorderBookmarks)
		r.Get("/{id}", h.GetBookmark)
		r.Put("/{id}", h.UpdateBookmark)
		r.Delete("/{id}", h.DeleteBookmark)
	})

	r.Route("/services", func(r chi.Router) {
		r.Get("/", h.ListServices)
		r.Post("/", h.CreateService)
		r.Post("/reorder", h.ReorderServices)
		r.Get("/{id}", h.GetService)
		r.Put("/{id}", h.UpdateService)
		r.Delete("/{id}", h.DeleteService)
		r.Post("/{id}/check", h.CheckService)
	})
}

func (router *Router) settingsRoutes(r chi.Router) {
	h := router.handler
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Get("/appearance", h.GetAppearance)
	r.Put("/appearance", h.UpdateAppearance)
	r.Get("/themes", h.ListThemes)
	r.Get("/search-engines", h.ListSearchEngines)
	r.Get("/icons", h.SearchIcons)

	r.Route("/favicons", func(r chi.Router) {
		r.Post("/fetch", h.FetchFavicon)
		r.Post("/upload", h.UploadFavicon)
		r.Get("/{file}", h.ServeFavicon)
	})
}

func (router *Router) analyticsRoutes(r chi.Router) {
	h := router.handler
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/summary", h.AnalyticsSummary)
		r.Get("/top", h.AnalyticsTop)
		r.Get("/daily", h.AnalyticsDaily)
		r.Get("/countries", h.AnalyticsCountries)
		r.Get("/hourly", h.AnalyticsHourly)
		r.Get("/recent", h.AnalyticsRecent)
	})
}

func (router *Router) adminRoutes(r chi.Router) {
	h := router.handler

	r.Get("/export/{kind}.csv", h.ExportItems)
	r.Post("/import/{kind}", h.ImportItems)

	r.Route("/backups", func(r chi.Router) {
		r.Get("/", h.ListBackups)
		r.Post("/", h.CreateBackup)
		r.Get("/{id}", h.GetBackup)
		r.Delete("/{id}", h.DeleteBackup)
		r.Get("/{id}/download", h.DownloadBackup)
		r.Post("/{id}/restore", h.RestoreBackup)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Put("/{id}", h.UpdateUser)
		r.Put("/{id}/password", h.ResetUserPassword)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// spaHandler serves files from dir and falls back to index.html for
// client-side routes.
func spaHandler(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if strings.HasPrefix(clean, "/api/") {
			NewResponseWriter(w, r).NotFound("route not found")
			return
		}
		full := filepath.Join(dir, filepath.FromSlash(clean))
		if info, err := os.Stat(full); err != nil || info.IsDir() && clean != "/" {
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		if strings.HasPrefix(clean, "/assets/") {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}
		fileServer.ServeHTTP(w, r)
	})
}
