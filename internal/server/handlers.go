package server

import (
	"authsession/internal/handlers"
	"authsession/internal/middlewares"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter wires the host API. proxy may be nil when no upstream API is configured.
func setupRouter(ctx *middlewares.AppContext, proxy http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.MetricsMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(middlewares.AppContextMiddleware(ctx))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ctx.Config.CORS.AllowedOrigins,
		AllowedMethods:   ctx.Config.CORS.AllowedMethods,
		AllowedHeaders:   ctx.Config.CORS.AllowedHeaders,
		ExposedHeaders:   ctx.Config.CORS.ExposedHeaders,
		AllowCredentials: ctx.Config.CORS.AllowCredentials,
		MaxAge:           ctx.Config.CORS.MaxAgeSeconds,
	}))

	r.Get(ctx.Config.Server.CallbackPath, ctx.HandlerFunc(handlers.GETCallbackHandler))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", ctx.HandlerFunc(handlers.AuthStatusHandler))
			r.Get("/resume", ctx.HandlerFunc(handlers.GETResumeHandler))
			r.Post("/login", ctx.HandlerFunc(handlers.POSTLoginHandler))
			r.Post("/logout", ctx.HandlerFunc(handlers.POSTLogoutHandler))
			r.Post("/check", ctx.HandlerFunc(handlers.POSTCheckHandler))
			r.Post("/retry", ctx.HandlerFunc(handlers.POSTRetryHandler))
		})

		r.Route("/session", func(r chi.Router) {
			r.Use(middlewares.RequireSession)
			r.Get("/token", ctx.HandlerFunc(handlers.GETTokenHandler))
		})

		r.Route("/v1", func(r chi.Router) {
			r.Get("/health", ctx.HandlerFunc(handlers.HandlerHealth))
		})
	})

	if proxy != nil {
		prefix := ctx.Config.API.PathPrefix
		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireSession)
			r.Handle(prefix+"/*", http.StripPrefix(prefix, proxy))
		})
	}

	return r
}

func setupDebugRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/debug", middleware.Profiler())

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
