package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/marcelsud/vendor-relay/config"
	"github.com/marcelsud/vendor-relay/dispatch"
	"github.com/marcelsud/vendor-relay/internal/app"
	"github.com/marcelsud/vendor-relay/internal/http/chi"
	"github.com/marcelsud/vendor-relay/metrics"
	"github.com/marcelsud/vendor-relay/relay"
	"github.com/marcelsud/vendor-relay/targets"
	"github.com/marcelsud/vendor-relay/webhook"
)

const TIMEOUT = 30 * time.Second

/* “a porta de entrada e saída da minha aplicação”
* É no main.go que é feita toda a “amarração” dos demais pacotes:
* ledger, relay, scheduler e a camada HTTP.
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	comps, err := app.New(ctx, "vendor-relay", cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer comps.Close(context.Background())
	logger := comps.Logger

	loader := targets.NewLoader()
	if err := loader.Load(cfg.RelayTargetsFile); err != nil {
		fmt.Println(err)
		return
	}
	logger.Info().Int("targets", len(loader.List())).Msg("relay targets loaded")

	var collector metrics.Collector
	if comps.Redis != nil {
		collector = metrics.NewRedisCollector(comps.Redis, loader)
	}
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(context.Background())

	forwarder := relay.NewForwarder(loader, cfg.RelaySecret, cfg.GetRelayTimeout(), logger)
	forwarder.Recorder = exporter

	webhookService := webhook.NewService(cfg.WhatsAppAppSecret, comps.Ledger, forwarder, cfg.GetIdempotencyTTL(), logger)
	webhookService.Recorder = exporter

	scheduler := comps.Scheduler(exporter)

	var background sync.WaitGroup
	if cfg.DispatchEnabled {
		runner := dispatch.NewRunner(scheduler, cfg.GetDispatchInterval(), logger)
		runner.Heartbeater = comps.Heartbeater("primary")
		background.Add(1)
		go func() {
			defer background.Done()
			runner.Run(ctx)
		}()
	}

	r := chi.WebhookHandlers(ctx, chi.Options{
		Webhook:       webhookService,
		Targets:       loader,
		Ticker:        scheduler,
		Logs:          comps.Logs,
		Metrics:       exporter.ServeHTTP(),
		VerifyToken:   cfg.WhatsAppVerifyToken,
		DispatchToken: cfg.DispatchCheckToken,
		MaxBodyBytes:  cfg.GetMaxBodyBytes(),
		LogLevel:      cfg.LogLevel,
	})
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, forwarder, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	background.Wait()
	if err != nil {
		fmt.Println(err)
		return
	}
}

// shutdown stops accepting requests, then drains the fan-outs already acknowledged
func shutdown(server *http.Server, forwarder *relay.Forwarder, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	if err != nil {
		errShutdown <- fmt.Errorf("Forcing closing the server")
		return
	}
	fmt.Printf("\nShutting down server...\n")

	if err := forwarder.Wait(ctxTimeout); err != nil {
		errShutdown <- fmt.Errorf("relay fan-outs still running: %w", err)
		return
	}
	errShutdown <- nil
}
