package utils

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"tenx/database"
	"tenx/models"
)

// Funder tops an account up to the configured minimum balance.
type Funder interface {
	EnsureFunded(ctx context.Context, address string) error
}

// StartFundingScheduler keeps every registered account solvent for
// transaction fees by sweeping all users on an hourly cron.
func StartFundingScheduler(funder Funder) {
	log.Println("[FUNDING-SCHEDULER] Initializing funding scheduler...")

	c := cron.New()

	c.AddFunc("@every 1h", func() {
		log.Println("[FUNDING-SCHEDULER] Running account funding sweep...")
		TopUpAccounts(funder)
	})

	c.Start()
	log.Println("[FUNDING-SCHEDULER] Funding scheduler started - runs hourly")
}

// TopUpAccounts funds every user account below the minimum balance.
func TopUpAccounts(funder Funder) {
	db := database.Database.Db

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		log.Printf("[FUNDING-SCHEDULER] Error fetching users: %v", err)
		return
	}

	for _, user := range users {
		if user.AccountAddress == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := funder.EnsureFunded(ctx, user.AccountAddress)
		cancel()
		if err != nil {
			log.Printf("[FUNDING-SCHEDULER] Error funding account for %s: %v", user.Username, err)
			continue
		}
	}

	log.Printf("[FUNDING-SCHEDULER] Funding sweep finished for %d users", len(users))
}
