// Command ttlcached is the process entry point wiring the cache engine,
// job runner, and a thin HTTP server together. It mirrors the shutdown
// order of original_source/lwan/main.c's lwan_shutdown /
// lwan_job_thread_shutdown pairing: server first, then cache.Destroy
// (which drains synchronously), then the job runner.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lattice-run/ttlcache/internal/cache"
	"github.com/lattice-run/ttlcache/internal/config"
	"github.com/lattice-run/ttlcache/internal/httpserver"
	"github.com/lattice-run/ttlcache/internal/jobrunner"
	"github.com/lattice-run/ttlcache/internal/status"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ch := status.NewDevelopment()
	ch.Infof("ttlcached: starting, listen=%s root=%s cache-ttl=%s", cfg.Listen, cfg.Root, cfg.CacheTTL)

	runner := jobrunner.New(ch)
	runner.Init()

	demoCache := cache.Create(runner, httpserver.GreetingConstructor, httpserver.GreetingDestructor, nil, cfg.CacheTTL)
	demoCache.SetStatusChannel(ch)

	registry := prometheus.NewRegistry()
	registry.MustRegister(cache.NewCollector("demo", demoCache))

	addr := lwanListenToHTTP(cfg.Listen)
	srv := httpserver.New(addr, ch)
	srv.Router().Get("/", httpserver.HelloWorld(demoCache))
	srv.Router().Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv.Router().Mount("/files/", http.StripPrefix("/files/", httpserver.FileServer(cfg.Root)))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			ch.Errorf("httpserver: %v", err)
		}
	case <-sigCh:
		ch.Infof("ttlcached: shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		ch.Perror("httpserver shutdown", err)
	}

	demoCache.Destroy()
	runner.Shutdown()

	return nil
}

// lwanListenToHTTP translates lwan's "*:8080"-style listener spec (kept
// as the config surface for continuity with original_source/lwan/main.c)
// into the ":8080" form net/http.Server expects.
func lwanListenToHTTP(listen string) string {
	if len(listen) > 0 && listen[0] == '*' {
		return listen[1:]
	}
	return listen
}
