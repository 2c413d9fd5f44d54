package server

import (
	"authsession/internal/apiclient"
	"authsession/internal/auth"
	"authsession/internal/config"
	"authsession/internal/handlers"
	"authsession/internal/jobs"
	"authsession/internal/metrics"
	"authsession/internal/middlewares"
	"authsession/internal/navigation"
	"authsession/internal/renewal"
	"authsession/internal/session"
	"authsession/internal/store"
	"authsession/internal/version"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisprometheus/v9"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	appCtx      *middlewares.AppContext
	httpServer  *http.Server
	debugServer *http.Server
	backend     *store.Backend
	jobManager  *jobs.JobManager
	ctx         context.Context
	cancel      context.CancelFunc
}

func New(cfg *config.Config) (*Server, error) {
	logger := setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())

	backend, err := store.NewKV(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if backend.Redis != nil && cfg.Server.Debug != nil && cfg.Server.Debug.Enabled {
		collector := redisprometheus.NewCollector(metrics.Namespace, "store", backend.Redis)
		if err := prometheus.Register(collector); err != nil {
			logger.Debug("failed to register redis store collector: already registered", "error", err)
		}
	}

	credentials := store.NewCredentialStore(backend, logger)

	httpClient := &http.Client{Timeout: cfg.Session.ExchangeTimeout}

	oauth2Config, err := auth.NewOAuth2Config(ctx, cfg.OAuth2, httpClient)
	if err != nil {
		cancel()
		_ = backend.Close()
		return nil, err
	}

	frame, err := setupFrame(cfg, logger)
	if err != nil {
		cancel()
		_ = backend.Close()
		return nil, err
	}

	navigator := navigation.NewTracker(cfg.Session.DefaultPath, logger)

	controller := session.NewController(
		credentials,
		auth.NewLauncher(oauth2Config, cfg.OAuth2.Prompt),
		auth.NewExchanger(oauth2Config, httpClient),
		navigator,
		frame,
		session.Options{
			RefreshThreshold:    cfg.Session.RefreshThreshold,
			DefaultPath:         cfg.Session.DefaultPath,
			ExchangeTimeout:     cfg.Session.ExchangeTimeout,
			UseRefreshToken:     cfg.Session.UseRefreshToken,
			ExcludedReturnPaths: []string{cfg.Server.CallbackPath},
		},
		logger,
	)

	jobManager := jobs.NewJobManager(logger)
	jobManager.Register(controller)
	jobManager.Register(session.NewMonitor(controller, cfg.Session.CheckInterval, logger))

	proxy, err := setupUpstreamProxy(cfg, controller, logger)
	if err != nil {
		cancel()
		_ = backend.Close()
		return nil, err
	}

	appCtx := middlewares.NewAppContext(ctx, cfg, logger, controller, frame, navigator)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: setupRouter(appCtx, proxy),
	}

	var debugServer *http.Server
	if cfg.Server.Debug != nil && cfg.Server.Debug.Enabled {
		debugServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Debug.Host, cfg.Server.Debug.Port),
			Handler: setupDebugRouter(),
		}
	}

	return &Server{
		cfg:         cfg,
		logger:      logger,
		appCtx:      appCtx,
		httpServer:  httpServer,
		debugServer: debugServer,
		backend:     backend,
		jobManager:  jobManager,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// setupFrame builds the renewal frame. Only the external origin may post
// messages to it.
func setupFrame(cfg *config.Config, logger *slog.Logger) (*renewal.Frame, error) {
	frame := renewal.NewFrame(config.Origin(cfg.Server.ExternalURL), cfg.Renewal.Timeout, logger)

	if cfg.Renewal.Loader == "http" {
		loader, err := renewal.NewHTTPLoader(&http.Client{Timeout: cfg.Renewal.Timeout}, cfg.OAuth2.RedirectURI, frame)
		if err != nil {
			return nil, fmt.Errorf("failed to create renewal loader: %w", err)
		}
		frame.UseLoader(loader)
	}

	return frame, nil
}

func setupUpstreamProxy(cfg *config.Config, source apiclient.SessionSource, logger *slog.Logger) (http.Handler, error) {
	if cfg.API.UpstreamURL == "" {
		return nil, nil
	}

	target, err := url.Parse(cfg.API.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}

	transport := apiclient.NewTransport(nil, source, logger.With("component", "upstream_proxy"))
	return handlers.NewUpstreamProxy(target, transport, logger), nil
}

func (s *Server) Start() error {
	s.jobManager.Start(s.ctx)

	go func() {
		s.logger.Info("Server Started", "port", s.cfg.Server.Port, "external_url", s.cfg.Server.ExternalURL, "version", version.Get().String())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed to start", "error", err)
			s.cancel()
		}
	}()

	if s.debugServer != nil {
		go func() {
			s.logger.Info("Metrics server starting", "address", s.debugServer.Addr)
			if err := s.debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Metrics server failed to start", "error", err)
				s.cancel()
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		s.logger.Info("Shutdown signal received")
	case <-s.ctx.Done():
		s.logger.Info("Context canceled")
	case err := <-s.jobManager.Failures():
		s.logger.Error("Background job failed", "error", err)
	}

	return s.Shutdown()
}

func (s *Server) Shutdown() error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("Shutting Down Server")

	var shutdownErr error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		shutdownErr = err
	}

	if s.debugServer != nil {
		if err := s.debugServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Debug server forced to shutdown", "error", err)
		}
	}

	s.jobManager.Shutdown(shutdownCtx)
	s.cancel()

	if err := s.backend.Close(); err != nil {
		s.logger.Error("failed to close credential store", "error", err)
	}

	s.logger.Info("Server Exited")
	return shutdownErr
}
