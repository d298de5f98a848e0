package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finpulse/internal/core"
	"finpulse/internal/log"
	"finpulse/internal/services"
)

// Consumer-side views of the service layer, kept narrow so handlers are
// testable with small stubs.
type (
	BalanceResolver interface {
		Resolve(ctx context.Context, ownerID string, accountID int64) (core.BalanceResolution, error)
		SetOverride(ctx context.Context, ownerID string, accountID int64, balance core.Money, note string, now time.Time) error
		ClearOverride(ctx context.Context, ownerID string, accountID int64) error
	}

	ProgressReader interface {
		Progress(ctx context.Context, ownerID string, budgetID int64, now time.Time) (core.Budget, core.BudgetProgress, error)
	}

	SummaryReader interface {
		Summarize(ctx context.Context, ownerID string, granularity core.Granularity, windowSize int, now time.Time) []core.PeriodTotals
		Dashboard(ctx context.Context, ownerID string, now time.Time) services.DashboardData
		InvalidateDashboard(ownerID string)
	}

	TransactionRecorder interface {
		Record(ctx context.Context, t core.Transaction) (int64, error)
	}
)

type Server struct {
	http.Server

	balances     BalanceResolver
	budgets      ProgressReader
	summaries    SummaryReader
	transactions TransactionRecorder
	logger       *log.Logger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, balances BalanceResolver, budgets ProgressReader,
	summaries SummaryReader, transactions TransactionRecorder, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           log.Middleware(logger)(mux),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		balances:     balances,
		budgets:      budgets,
		summaries:    summaries,
		transactions: transactions,
		logger:       logger.WithComponent(log.ComponentHTTP),
		rateLimiter:  newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/accounts/{id}/balance", s.requireOwner(s.handleGetBalance))
	mux.HandleFunc("PUT /api/accounts/{id}/balance/override", s.requireOwner(s.handleSetOverride))
	mux.HandleFunc("DELETE /api/accounts/{id}/balance/override", s.requireOwner(s.handleClearOverride))
	mux.HandleFunc("GET /api/budgets/{id}/progress", s.requireOwner(s.handleBudgetProgress))
	mux.HandleFunc("GET /api/summary", s.requireOwner(s.handleSummary))
	mux.HandleFunc("GET /api/dashboard", s.requireOwner(s.handleDashboard))
	mux.HandleFunc("POST /api/transactions", s.requireOwner(s.handleCreateTransaction))

	return s
}

// Shutdown stops the server and its rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requireOwner extracts the caller identity from the X-Owner-ID header and
// applies write rate limiting. Authentication proper lives upstream; the
// header is trusted here.
func (s *Server) requireOwner(next func(w http.ResponseWriter, r *http.Request, ownerID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := r.Header.Get(OwnerHeader)
		if ownerID == "" {
			writeError(w, http.StatusBadRequest, "missing "+OwnerHeader+" header")
			return
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ownerID) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldOwnerID, ownerID, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next(w, r, ownerID)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
