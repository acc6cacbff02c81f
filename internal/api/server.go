// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/ratelimit"
	"github.com/wallet-insights/internal/service"
	"github.com/wallet-insights/internal/types"
)

// Service interfaces for dependency injection and testing

// AuthServiceInterface defines the account and token operations
type AuthServiceInterface interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	ValidateToken(ctx context.Context, token string) service.TokenValidation
	Authenticate(ctx context.Context, token string) (*models.PublicUser, error)
	Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error)
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID string) error
}

// ProfileServiceInterface defines the preference and wallet operations
type ProfileServiceInterface interface {
	GetPreferences(ctx context.Context, userID string) (*models.InvestmentPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, update *models.PreferencesUpdate) (*models.InvestmentPreferences, error)
	GetConnectedWallets(ctx context.Context, userID string) ([]*models.ConnectedWallet, error)
	AddConnectedWallet(ctx context.Context, userID string, input models.NewWallet) (*models.ConnectedWallet, error)
	RemoveConnectedWallet(ctx context.Context, userID, walletID string) error
	SetPrimaryWallet(ctx context.Context, userID, walletID string) (*models.ConnectedWallet, error)
	ListWalletsWithBalances(ctx context.Context, userID string) ([]models.WalletView, error)
}

// AnalysisServiceInterface defines the analysis and price operations
type AnalysisServiceInterface interface {
	GenerateFullAnalysis(ctx context.Context, userID, walletAddress string, chain types.Blockchain) (*models.WalletAnalysis, error)
	GetAnalysisHistory(ctx context.Context, userID string, opts service.HistoryOptions) (*service.AnalysisHistory, error)
	GetAnalysis(ctx context.Context, userID, id string) (*models.WalletAnalysis, error)
	GetQuickSummary(ctx context.Context, userID, id string) (string, error)
	GetCurrentPrices(ctx context.Context) (types.CurrentPrices, error)
	GetPriceHistory(ctx context.Context, chain types.Blockchain, days int) ([]types.PricePoint, error)
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	auth       AuthServiceInterface
	profiles   ProfileServiceInterface
	analysis   AnalysisServiceInterface
	limiters   *ratelimit.Set
	checks     map[string]HealthCheck
	logger     *logging.Logger
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigin   string
}

// Dependencies are the collaborators a Server routes to. Limiters may be nil
// to disable rate limiting.
type Dependencies struct {
	Auth         AuthServiceInterface
	Profiles     ProfileServiceInterface
	Analysis     AnalysisServiceInterface
	Limiters     *ratelimit.Set
	HealthChecks map[string]HealthCheck
	Logger       *logging.Logger
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		router:   mux.NewRouter(),
		auth:     deps.Auth,
		profiles: deps.Profiles,
		analysis: deps.Analysis,
		limiters: deps.Limiters,
		checks:   deps.HealthChecks,
		logger:   logger,
		config:   config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(MetricsMiddleware)
	s.router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(handleNotFound)

	s.setupRoutes()

	// Outermost first; these also cover unmatched routes.
	s.handler = LoggingMiddleware(s.logger)(
		RecoveryMiddleware(
			CORSMiddleware(s.config.AllowedOrigin)(
				CompressionMiddleware(s.router))))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api", handleIndex).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()

	// Auth endpoints
	api.Handle("/auth/register", s.public(s.limitAuth(s.handleRegister))).Methods(http.MethodPost)
	api.Handle("/auth/login", s.public(s.limitAuth(s.handleLogin))).Methods(http.MethodPost)
	api.Handle("/auth/validate", s.public(http.HandlerFunc(s.handleValidateToken))).Methods(http.MethodPost)
	api.Handle("/auth/refresh", s.public(s.limitAuth(s.handleRefresh))).Methods(http.MethodPost)
	api.Handle("/auth/password", s.protected(http.HandlerFunc(s.handleUpdatePassword))).Methods(http.MethodPatch)
	api.Handle("/auth/account", s.protected(http.HandlerFunc(s.handleDeleteAccount))).Methods(http.MethodDelete)

	// User endpoints
	api.Handle("/user/profile", s.protected(http.HandlerFunc(s.handleGetProfile))).Methods(http.MethodGet)
	api.Handle("/user/preferences", s.protected(http.HandlerFunc(s.handleGetPreferences))).Methods(http.MethodGet)
	api.Handle("/user/preferences", s.protected(http.HandlerFunc(s.handleUpdatePreferences))).Methods(http.MethodPatch)

	// Wallet endpoints
	api.Handle("/wallets", s.protected(http.HandlerFunc(s.handleListWallets))).Methods(http.MethodGet)
	api.Handle("/wallets/connect", s.protected(http.HandlerFunc(s.handleConnectWallet))).Methods(http.MethodPost)
	api.Handle("/wallets/{id}", s.protected(http.HandlerFunc(s.handleDisconnectWallet))).Methods(http.MethodDelete)
	api.Handle("/wallets/{id}/primary", s.protected(http.HandlerFunc(s.handleSetPrimaryWallet))).Methods(http.MethodPatch)

	// Analysis endpoints; history is registered before {id} so it wins the match
	api.Handle("/analysis/generate", s.protected(s.limitAI(s.handleGenerateAnalysis))).Methods(http.MethodPost)
	api.Handle("/analysis/history", s.protected(http.HandlerFunc(s.handleAnalysisHistory))).Methods(http.MethodGet)
	api.Handle("/analysis/{id}", s.protected(http.HandlerFunc(s.handleGetAnalysis))).Methods(http.MethodGet)
	api.Handle("/analysis/{id}/summary", s.protected(s.limitAI(s.handleAnalysisSummary))).Methods(http.MethodGet)

	// Price endpoints
	api.Handle("/prices", s.public(http.HandlerFunc(s.handleCurrentPrices))).Methods(http.MethodGet)
	api.Handle("/prices/{coin}/history", s.public(http.HandlerFunc(s.handlePriceHistory))).Methods(http.MethodGet)
}

// public applies the general limiter keyed by client IP.
func (s *Server) public(h http.Handler) http.Handler {
	return s.limit(ratelimit.General, keyByUserOrIP)(h)
}

// protected requires a valid access token, then applies the general limiter
// keyed by user.
func (s *Server) protected(h http.Handler) http.Handler {
	return AuthMiddleware(s.auth)(s.limit(ratelimit.General, keyByUserOrIP)(h))
}

func (s *Server) limitAuth(h http.HandlerFunc) http.Handler {
	return s.limit(ratelimit.Auth, keyByIP)(h)
}

func (s *Server) limitAI(h http.HandlerFunc) http.Handler {
	return s.limit(ratelimit.AI, keyByUserOrIP)(h)
}

func (s *Server) limit(name string, key keyFunc) func(http.Handler) http.Handler {
	if s.limiters == nil {
		return passthrough
	}

	var l ratelimit.Limiter
	switch name {
	case ratelimit.General:
		l = s.limiters.General
	case ratelimit.Auth:
		l = s.limiters.Auth
	case ratelimit.AI:
		l = s.limiters.AI
	}
	if l == nil {
		return passthrough
	}
	return RateLimitMiddleware(l, key)
}

func passthrough(next http.Handler) http.Handler { return next }

// handleHealth reports the state of each dependency. Any failing check turns
// the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := types.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}
	code := http.StatusOK

	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status.Services = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				logging.FromContext(r.Context()).WithError(err).WithField("service", name).Warn("Health check failed")
				status.Services[name] = "unavailable"
				status.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status.Services[name] = "ok"
		}
	}

	respondJSON(w, code, status)
}

// handleIndex lists the public endpoints.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Wallet Insights API",
		"version": "0.1.0",
		"endpoints": map[string]map[string]string{
			"auth": {
				"register":       "POST /api/auth/register",
				"login":          "POST /api/auth/login",
				"validate":       "POST /api/auth/validate",
				"refresh":        "POST /api/auth/refresh",
				"updatePassword": "PATCH /api/auth/password",
				"deleteAccount":  "DELETE /api/auth/account",
			},
			"user": {
				"profile":           "GET /api/user/profile",
				"preferences":       "GET /api/user/preferences",
				"updatePreferences": "PATCH /api/user/preferences",
			},
			"wallets": {
				"list":       "GET /api/wallets",
				"connect":    "POST /api/wallets/connect",
				"disconnect": "DELETE /api/wallets/:id",
				"setPrimary": "PATCH /api/wallets/:id/primary",
			},
			"analysis": {
				"generate": "POST /api/analysis/generate",
				"history":  "GET /api/analysis/history",
				"get":      "GET /api/analysis/:id",
				"summary":  "GET /api/analysis/:id/summary",
			},
			"prices": {
				"current": "GET /api/prices",
				"history": "GET /api/prices/:coin/history",
			},
		},
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, ErrCodeRouteNotFound, fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path), nil)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
