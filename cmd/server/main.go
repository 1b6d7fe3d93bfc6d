package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relcore-db/relcore/pkg/adminserver"
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/heap"
	"github.com/relcore-db/relcore/pkg/metrics"
	"github.com/relcore-db/relcore/pkg/mvcc"
	"github.com/relcore-db/relcore/pkg/queryapi"
	"github.com/relcore-db/relcore/pkg/storage"
)

func main() {
	dataFile := flag.String("data-file", "./data/relcore.db", "Path to the database file")
	bufferPoolSize := flag.Int("buffer-pool-size", 1000, "Buffer pool size in pages (1 page = 4KB)")
	lruK := flag.Int("lru-k", 2, "K for the LRU-K eviction policy")
	adminAddr := flag.String("admin-addr", ":8080", "Admin HTTP server listen address")
	queryAddr := flag.String("query-addr", ":8081", "Read-only GraphQL server listen address")
	gcInterval := flag.Duration("gc-interval", 30*time.Second, "Interval between background garbage collection passes")
	flag.Parse()

	logger := log.New(os.Stdout, "relcore: ", log.LstdFlags)

	diskCfg := storage.DefaultDiskManagerConfig()
	dm, err := storage.NewDiskManager(*dataFile, diskCfg)
	if err != nil {
		logger.Fatalf("failed to open disk manager: %v", err)
	}

	pool := storage.NewBufferPool(*bufferPoolSize, dm, *lruK)
	defer pool.Shutdown()

	cat := catalog.New(pool)
	txnMgr := mvcc.NewTransactionManager()
	collector := metrics.NewCollector()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runGCLoop(ctx, logger, txnMgr, cat, collector, *gcInterval)

	admin := adminserver.New(adminserver.DefaultConfig(*adminAddr), cat, txnMgr, pool, collector)

	queryHandler, err := queryapi.NewHandler(cat, txnMgr)
	if err != nil {
		logger.Fatalf("failed to build query API handler: %v", err)
	}
	queryMux := http.NewServeMux()
	queryMux.Handle("/query", queryHandler)
	queryServer := &http.Server{Addr: *queryAddr, Handler: queryMux}

	errCh := make(chan error, 2)
	go func() {
		logger.Printf("admin server listening on %s", *adminAddr)
		errCh <- admin.ListenAndServe(ctx)
	}()
	go func() {
		logger.Printf("query API listening on %s", *queryAddr)
		if err := queryServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Printf("server error: %v", err)
	case sig := <-sigCh:
		logger.Printf("received signal %v, shutting down", sig)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := queryServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("query API shutdown error: %v", err)
	}
}

// runGCLoop periodically sweeps every table heap for collectable undo
// logs without an operator triggering it manually through /txn/gc, and
// logs each completed pass. The pass is not recorded in the metrics
// collector.
func runGCLoop(ctx context.Context, logger *log.Logger, txnMgr *mvcc.TransactionManager, cat *catalog.Catalog, collector *metrics.Collector, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			heaps := tableHeaps(cat)
			txnMgr.GarbageCollection(heaps)
			logger.Printf("garbage collection pass complete: %d tables, watermark=%d", len(heaps), txnMgr.GetWatermark())
		case <-ctx.Done():
			return
		}
	}
}

func tableHeaps(cat *catalog.Catalog) []*heap.TableHeap {
	names := cat.ListTables()
	heaps := make([]*heap.TableHeap, 0, len(names))
	for _, name := range names {
		if info, ok := cat.GetTable(name); ok {
			heaps = append(heaps, info.Heap)
		}
	}
	return heaps
}
