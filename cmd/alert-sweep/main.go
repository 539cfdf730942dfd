package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"bitbucket.org/campodata/agroledger_backend/workflow"
)

// Cron entrypoint: evaluates due-date and pending-order alert rules for every
// active firm. Safe to schedule aggressively; the per-firm redis lock and the
// alert dedup index keep overlapping runs harmless.
func main() {
	firmID := flag.String("firm-id", "", "Optional: sweep only one firm (uuid string). If empty, sweeps all active firms.")
	asOf := flag.String("as-of", "", "Optional: evaluation date (YYYY-MM-DD). Defaults to today.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	today := time.Now()
	if strings.TrimSpace(*asOf) != "" {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(*asOf))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of date: %v\n", err)
			os.Exit(1)
		}
		today = d
	}

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "AlertSweep")

	var firmIds []string
	if strings.TrimSpace(*firmID) != "" {
		firmIds = []string{strings.TrimSpace(*firmID)}
	} else {
		var err error
		firmIds, err = workflow.ListActiveFirmIds(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list firms: %v\n", err)
			os.Exit(1)
		}
	}
	if len(firmIds) == 0 {
		fmt.Fprintln(os.Stderr, "no active firms to sweep")
		return
	}

	for _, id := range firmIds {
		firmCtx := utils.SetFirmIdInContext(ctx, id)
		if err := workflow.RunAlertSweepWithLock(firmCtx, id, today); err != nil {
			fmt.Fprintf(os.Stderr, "firm %s: sweep failed: %v\n", id, err)
			continue
		}
		fmt.Printf("firm %s: sweep done\n", id)
	}
}
