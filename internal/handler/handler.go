package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/finvault/transaction-service/internal/config"
	"github.com/finvault/transaction-service/internal/middleware"
	"github.com/finvault/transaction-service/internal/service"
)

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RateSource provides the current central-bank key rate.
type RateSource interface {
	GetKeyRate() (float64, error)
}

// Handler translates HTTP requests into service calls.
type Handler struct {
	auth  *service.AuthService
	txs   *service.TransactionService
	db    Pinger
	rates RateSource
	log   *logrus.Logger
}

// NewHandler initializes a new handler. rates may be nil when the
// key-rate integration is not configured.
func NewHandler(auth *service.AuthService, txs *service.TransactionService, db Pinger, rates RateSource, log *logrus.Logger) *Handler {
	return &Handler{auth: auth, txs: txs, db: db, rates: rates, log: log}
}

// NewRouter wires all routes with rate limiting, CORS and bearer-token
// auth on the transaction endpoints.
func NewRouter(h *Handler, verifier middleware.TokenVerifier, limiter middleware.Limiter, cfg *config.Config, log *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit, cfg.RateWindow, log))

	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")
	if h.rates != nil {
		r.HandleFunc("/rates/key-rate", h.KeyRate).Methods("GET")
	}

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(verifier, log))
	authRouter.HandleFunc("/auth/me", h.Me).Methods("GET")
	authRouter.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	authRouter.HandleFunc("/transactions/summary", h.Summary).Methods("GET")
	authRouter.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
	authRouter.HandleFunc("/transactions/{id}", h.UpdateTransaction).Methods("PUT", "PATCH")
	authRouter.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods("DELETE")

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedHosts,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})(r)
}

// Health reports service and database liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Errorf("Health check database ping failed: %v", err)
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// KeyRate returns the current central-bank key rate
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.GetKeyRate()
	if err != nil {
		h.log.Errorf("Failed to get key rate: %v", err)
		writeError(w, http.StatusBadGateway, "key rate unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"key_rate": rate})
}
