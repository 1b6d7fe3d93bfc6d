// Package adminserver exposes the storage engine's operational
// surface over HTTP: health, a JSON stats snapshot, a Prometheus
// scrape endpoint, a manual GC trigger, a page inspector, and a
// websocket stream of periodic stats pushes. Routing follows the
// teacher's chi-based admin console (pkg/server/server.go), narrowed
// from a document-database REST API to this engine's own operational
// surface.
package adminserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/heap"
	"github.com/relcore-db/relcore/pkg/metrics"
	"github.com/relcore-db/relcore/pkg/mvcc"
	"github.com/relcore-db/relcore/pkg/storage"
)

// Config holds the admin server's listen address and timeouts.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns reasonable timeouts for local/operational use.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:         addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the engine's operational HTTP surface.
type Server struct {
	cfg       Config
	cat       *catalog.Catalog
	txnMgr    *mvcc.TransactionManager
	pool      *storage.BufferPool
	collector *metrics.Collector
	exporter  *metrics.PrometheusExporter

	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time
}

// New builds an admin server wired to the engine's catalog,
// transaction manager, buffer pool, and metrics collector.
func New(cfg Config, cat *catalog.Catalog, txnMgr *mvcc.TransactionManager, pool *storage.BufferPool, collector *metrics.Collector) *Server {
	s := &Server{
		cfg:       cfg,
		cat:       cat,
		txnMgr:    txnMgr,
		pool:      pool,
		collector: collector,
		exporter:  metrics.NewPrometheusExporter(collector, "relcore"),
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.routes()

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/stats", s.handleStats)
	s.router.Get("/metrics", s.handleMetrics)
	s.router.Post("/txn/gc", s.handleGC)
	s.router.Get("/pages/{id}", s.handlePage)
	s.router.Get("/ws/stats", s.handleStatsStream)
}

// ListenAndServe blocks serving HTTP until the context is cancelled or
// a fatal server error occurs, then shuts the server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if err := s.exporter.WriteMetrics(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":     s.collector.Snapshot(),
		"buffer_pool": s.pool.Stats(),
		"watermark":   s.txnMgr.GetWatermark(),
		"tables":      s.cat.ListTables(),
	})
}

// handleGC runs one GarbageCollection pass over every table heap in
// the catalog and reports what it found, for operators who don't want
// to wait for a background sweep.
func (s *Server) handleGC(w http.ResponseWriter, r *http.Request) {
	heaps := s.tableHeaps()
	s.txnMgr.GarbageCollection(heaps)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tables_scanned": len(heaps),
		"watermark":      s.txnMgr.GetWatermark(),
	})
}

func (s *Server) tableHeaps() []*heap.TableHeap {
	names := s.cat.ListTables()
	heaps := make([]*heap.TableHeap, 0, len(names))
	for _, name := range names {
		if info, ok := s.cat.GetTable(name); ok {
			heaps = append(heaps, info.Heap)
		}
	}
	return heaps
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
