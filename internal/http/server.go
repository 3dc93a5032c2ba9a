// Package http exposes the JSON API: period summaries, transaction,
// account, category and budget writes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Options tunes the server's cache and rate limiting.
type Options struct {
	CacheTTL           time.Duration
	CacheSize          int
	RateLimitPerMinute int
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 30 * time.Second
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 256
	}
	if o.RateLimitPerMinute <= 0 {
		o.RateLimitPerMinute = 120
	}
	return o
}

type Server struct {
	http.Server

	store        backend.Store
	transactions *services.TransactionService
	budgets      *services.BudgetService
	accounts     *services.AccountService

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	headers  *security.HeadersMiddleware
	resolver *security.ProxyResolver

	// summaryCache holds computed summaries keyed by owner, window and
	// write generation; a write bumps the owner's generation so stale
	// entries are simply never looked up again and age out via TTL.
	summaryCache *cache.LRUCache[aggregate.Summary]
	cacheManager *cache.Manager

	mu          sync.Mutex
	generations map[string]uint64

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store backend.Store, tx *services.TransactionService, budgets *services.BudgetService, accounts *services.AccountService, opts Options) *Server {
	opts = opts.withDefaults()
	mux := http.NewServeMux()

	resolver := security.NewProxyResolver()
	s := &Server{
		store:        store,
		transactions: tx,
		budgets:      budgets,
		accounts:     accounts,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		tracer:       trace.NewMiddleware(resolver.ClientIP),
		headers:      security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		resolver:     resolver,
		summaryCache: cache.NewLRUCache[aggregate.Summary](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
		generations:  make(map[string]uint64),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/budgets/progress", s.handleBudgetProgress)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/restore", s.handleRestoreTransaction)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleSaveAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleSaveCategory)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleSetBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.headers.Middleware(s.tracer.Middleware(s.withRateLimit(mux))),
	}
	return s
}

// withRateLimit applies per-client rate limiting to mutating requests.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.resolver.ClientIP, nil)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// generation returns the owner's current write generation.
func (s *Server) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[owner]
}

// bumpGeneration invalidates every cached summary for the owner.
func (s *Server) bumpGeneration(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[owner]++
}

func summaryCacheKey(owner string, gen uint64, windowKey string) string {
	return fmt.Sprintf("%s|%d|%s", owner, gen, windowKey)
}

// Shutdown stops the cleanup goroutines and the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
