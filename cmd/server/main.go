package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/lib/pq"

	"github.com/claimgate/compliance/catalog"
	"github.com/claimgate/compliance/internal/config"
	"github.com/claimgate/compliance/internal/logger"
	"github.com/claimgate/compliance/internal/metrics"
	"github.com/claimgate/compliance/rules"
)

// Server wires the compliance engine, its catalog store, and the HTTP API.
type Server struct {
	store   rules.RuleStore
	engine  *rules.Engine
	metrics *metrics.Metrics
	router  *chi.Mux
	db      *sql.DB // nil when running on the in-memory store
}

// NewServer builds the store per config (Postgres when DATABASE_URL is set,
// otherwise in-memory seeded from the catalog file), wraps it in the snapshot
// cache, and mounts the routes.
func NewServer(cfg config.Server, m *metrics.Metrics) (*Server, error) {
	s := &Server{metrics: m}

	var base rules.RuleStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		s.db = db
		base = rules.NewPostgresRuleStore(db)
		logger.Info("using postgres rule store")
	} else {
		mem := rules.NewInMemoryRuleStore()
		if err := seedFromCatalog(mem, cfg.CatalogPath); err != nil {
			return nil, err
		}
		base = mem
		logger.Info("using in-memory rule store", "catalog", cfg.CatalogPath)
	}

	s.store = rules.NewCachedRuleStore(base, rules.NewInMemoryRulesCache(rules.CacheConfig{TTL: cfg.CacheTTL}))
	s.engine = rules.NewEngine(s.store)
	s.setupRoutes()
	return s, nil
}

func seedFromCatalog(store rules.RuleStore, path string) error {
	seeded, err := catalog.Load(path)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	for _, rule := range seeded {
		if err := store.Add(context.Background(), rule); err != nil {
			return fmt.Errorf("seed rule %s: %w", rule.ID, err)
		}
	}
	logger.Info("seeded rule catalog", "rules", len(seeded))
	return nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(statusCounter)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/validate", s.handleValidate)

	r.Route("/api/v1/jurisdictions/{code}", func(r chi.Router) {
		r.Get("/fee-cap", s.handleFeeCap)
		r.Get("/eligibility", s.handleEligibility)
		r.Get("/notices", s.handleNotices)
	})

	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/", s.handleCreateRule)
		r.Route("/{ruleId}", func(r chi.Router) {
			r.Get("/", s.handleGetRule)
			r.Put("/", s.handleUpdateRule)
			r.Delete("/", s.handleDeleteRule)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusCounter feeds response classes into the logging counters.
func statusCounter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.CountHTTPStatus(ww.Status())
	})
}

func (s *Server) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func main() {
	cfg := config.FromEnv()

	if err := logger.Setup(cfg.ServiceName); err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}

	server, err := NewServer(cfg, metrics.New())
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	defer server.Close()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown error: %v\n", err)
	}
}
