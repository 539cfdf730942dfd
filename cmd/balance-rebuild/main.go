package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/models"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"bitbucket.org/campodata/agroledger_backend/workflow"
)

// Ops entrypoint: recomputes the daily balance table and the account header
// balance for one account, one firm, or everything. Use after replaying dead
// outbox events or fixing bad postings by hand.
func main() {
	firmID := flag.String("firm-id", "", "Optional: rebuild only one firm (uuid string). If empty, rebuilds all active firms.")
	accountID := flag.Int("account-id", 0, "Optional: rebuild only one account. Requires -firm-id.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "BalanceRebuild")

	if *accountID > 0 && strings.TrimSpace(*firmID) == "" {
		fmt.Fprintln(os.Stderr, "-account-id requires -firm-id")
		os.Exit(1)
	}

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

	for _, id := range firmIds {
		firmCtx := utils.SetFirmIdInContext(ctx, id)

		var accountIds []int
		if *accountID > 0 {
			accountIds = []int{*accountID}
		} else {
			err := db.WithContext(firmCtx).Model(&models.FinancialAccount{}).
				Where("firm_id = ?", id).
				Pluck("id", &accountIds).Error
			if err != nil {
				fmt.Fprintf(os.Stderr, "firm %s: failed to list accounts: %v\n", id, err)
				continue
			}
		}

		for _, acc := range accountIds {
			if err := models.RebuildDailyBalances(firmCtx, id, acc); err != nil {
				fmt.Fprintf(os.Stderr, "firm %s account %d: rebuild failed: %v\n", id, acc, err)
				continue
			}
			fmt.Printf("firm %s account %d: rebuilt\n", id, acc)
		}
	}
}
