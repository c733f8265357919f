package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/marcelsud/vendor-relay/config"
	"github.com/marcelsud/vendor-relay/dispatch"
	"github.com/marcelsud/vendor-relay/internal/app"
)

/* watchdog - backup caller of the dispatch scheduler
 * Posts to WATCHDOG_API_URL/v1/dispatch/check every WATCHDOG_INTERVAL_MINUTES.
 * With -local it ticks in-process when the API cannot be reached; the shared
 * Redis ledger keeps those ticks from duplicating the API's sends.
 */

func main() {
	local := flag.Bool("local", false, "tick in-process when the API is unreachable")
	flag.Parse()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	comps, err := app.New(ctx, "vendor-relay-watchdog", cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer comps.Close(context.Background())

	ticker := &dispatch.Fallback{
		Primary: dispatch.NewRemoteTicker(cfg.WatchdogAPIURL, cfg.DispatchCheckToken),
		Logger:  comps.Logger,
	}
	if *local {
		if comps.Redis == nil {
			fmt.Println("-local requires IDEMPOTENCY_BACKEND=redis")
			return
		}
		ticker.Secondary = comps.Scheduler(nil)
	}

	runner := dispatch.NewRunner(ticker, cfg.GetWatchdogInterval(), comps.Logger)
	runner.Heartbeater = comps.Heartbeater("watchdog")
	if err := runner.Run(ctx); err != nil {
		fmt.Println(err)
	}
}
