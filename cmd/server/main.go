package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cantina/cmd/server/config"
	"cantina/internal/adapters/rest"
	"cantina/internal/catalog"
	"cantina/internal/observability"
	"cantina/internal/orders"
	"cantina/internal/realtime"
	"cantina/internal/reliability"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context) error {
	httpCfg, err := config.LoadHTTP()
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	stores, err := buildCatalogStores(ctx, metrics)
	if err != nil {
		return err
	}
	defer stores.cleanup()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	events := orders.FanoutPublisher{
		orders.LogPublisher{Logf: log.Printf},
		orders.BroadcastPublisher{Ch: hub.Broadcast},
	}
	workflow := orders.NewWorkflow(stores.products, orders.NewStore(), orders.WorkflowOptions{
		Events:  events,
		Metrics: metrics,
		Logf:    log.Printf,
	})

	server := rest.NewServer(rest.Options{
		Products:   stores.products,
		Categories: stores.categories,
		Menu:       catalog.NewMenuService(stores.products, stores.categories),
		Workflow:   workflow,
		Hub:        hub,
		Breakers:   stores.breakers,
		Logf:       log.Printf,
	})

	var limiter *reliability.RateLimiter
	if httpCfg.RateLimitInterval > 0 && httpCfg.RateLimitBurst > 0 {
		limiter = reliability.NewRateLimiter(httpCfg.RateLimitInterval, httpCfg.RateLimitBurst, metrics.AddRateLimitWait)
	}

	apiSrv := &http.Server{
		Addr:    httpCfg.Addr,
		Handler: withTelemetry(server.Routes(), limiter, metrics),
	}

	obsSrv, err := startObservabilityServer(metrics)
	if err != nil {
		return err
	}

	log.Printf("API server listening on %s", httpCfg.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("api shutdown: %v", err)
		}
		if obsSrv != nil {
			_ = obsSrv.Shutdown(shutdownCtx)
		}
		return nil
	case err := <-errCh:
		if obsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = obsSrv.Shutdown(shutdownCtx)
		}
		return err
	}
}

func startObservabilityServer(metrics *observability.Metrics) (*http.Server, error) {
	cfg, err := config.LoadObservability()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(metrics))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("observability server error: %v", err)
		}
	}()

	return srv, nil
}
