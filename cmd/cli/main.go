package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/marcelsud/vendor-relay/config"
	"github.com/marcelsud/vendor-relay/internal/app"
)

/* cli - runs a single dispatch tick and prints the report
 * Usage: go run cmd/cli/main.go [-at 2024-05-18T04:30:00Z]
 */

func main() {
	at := flag.String("at", "", "tick time (RFC3339), default now")
	flag.Parse()

	now := time.Now()
	if *at != "" {
		parsed, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Println(err)
			return
		}
		now = parsed
	}

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx := context.Background()
	comps, err := app.New(ctx, "vendor-relay-cli", cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer comps.Close(ctx)

	report, err := comps.Scheduler(nil).Tick(ctx, now)
	if err != nil {
		fmt.Println(err)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Println(err)
	}
}
