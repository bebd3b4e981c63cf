// Package http exposes the request path: account, transaction, budget, and
// receipt-scan endpoints behind header-based identity and a per-user rate
// limit. Authentication happens upstream; this layer trusts the identity
// headers set by the proxy.
package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/insights"
	"fintrack/internal/services"
)

// UserResolver turns identity headers into a stored user.
type UserResolver interface {
	EnsureUser(ctx context.Context, email, name string) (core.User, error)
}

// ReceiptScanner extracts a draft transaction from a receipt image.
type ReceiptScanner interface {
	ScanReceipt(ctx context.Context, imageData []byte, mimeType string) (insights.ReceiptData, error)
}

type Server struct {
	users        UserResolver
	accounts     *services.AccountService
	transactions *services.TransactionService
	budgets      *services.BudgetService
	scanner      ReceiptScanner
	limiter      *rateLimiter
	httpServer   *http.Server
}

// NewServer wires the API routes. scanner may be nil, which disables the
// receipt-scan endpoint.
func NewServer(
	addr string,
	users UserResolver,
	accounts *services.AccountService,
	transactions *services.TransactionService,
	budgets *services.BudgetService,
	scanner ReceiptScanner,
	rateLimitPerMinute int,
) *Server {
	s := &Server{
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		budgets:      budgets,
		scanner:      scanner,
		limiter:      newRateLimiter(rateLimitPerMinute),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/accounts", s.api(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts", s.api(s.handleListAccounts))
	mux.HandleFunc("GET /api/accounts/{id}", s.api(s.handleGetAccount))
	mux.HandleFunc("POST /api/accounts/{id}/default", s.api(s.handleSetDefaultAccount))

	mux.HandleFunc("POST /api/transactions", s.api(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.api(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.api(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.api(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.api(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budget", s.api(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.api(s.handlePutBudget))

	mux.HandleFunc("POST /api/receipts/scan", s.api(s.handleScanReceipt))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      withSecurityHeaders(withRequestLog(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// api chains the middleware every authenticated route shares.
func (s *Server) api(h http.HandlerFunc) http.HandlerFunc {
	return s.withIdentity(s.withRateLimit(h))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the rate limiter's cleanup goroutine and drains in-flight
// requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stop()
	return s.httpServer.Shutdown(ctx)
}
