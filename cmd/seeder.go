package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"reconciliation_alerts", "notifications", "provider_payouts", "bookings", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			Email            string
			FullName         string
			Role             string
			ProcessorAccount string
		}{
			{"alice@mail.com", "Alice Customer", "customer", ""},
			{"ben@mail.com", "Ben Customer", "customer", ""},
			{"priya@mail.com", "Priya Plumbing", "provider", "acct_priya_001"},
			{"tom@mail.com", "Tom Tiling", "provider", "acct_tom_002"},
			// Not yet onboarded with the processor, completion must fail.
			{"newguy@mail.com", "New Provider", "provider", ""},
		}

		for _, u := range users {
			var exists int
			row := db.Raw("SELECT 1 FROM users WHERE email = ?", u.Email).Row()
			if err := row.Scan(&exists); err == nil {
				fmt.Printf("user %s already exists\n", u.Email)
				continue
			}

			var accountID interface{}
			if u.ProcessorAccount != "" {
				accountID = u.ProcessorAccount
			}

			if err := db.Exec(
				"INSERT INTO users (email, full_name, password_hash, role, processor_account_id, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, true, now(), now())",
				u.Email, u.FullName, string(hash), u.Role, accountID).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Printf("Seeded %s user: %s\n", u.Role, u.Email)
		}

		userID := func(email string) int64 {
			var id int64
			if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&id); err != nil {
				log.Fatalf("failed to lookup user %s: %v", email, err)
			}
			return id
		}

		alice := userID("alice@mail.com")
		ben := userID("ben@mail.com")
		priya := userID("priya@mail.com")
		tom := userID("tom@mail.com")
		newguy := userID("newguy@mail.com")

		bookings := []struct {
			CustomerID    int64
			ProviderID    int64
			ServiceID     int64
			Status        string
			PaymentStatus string
			TotalAmount   int64
			IntentID      string
		}{
			// Ready to complete: funds escrowed, service in progress.
			{alice, priya, 1, "in_progress", "funds_held_in_escrow", 10000, "pi_seed_0001"},
			{alice, tom, 2, "confirmed", "funds_held_in_escrow", 9999, "pi_seed_0002"},
			// Pending, declinable and refundable.
			{ben, priya, 3, "pending", "funds_held_in_escrow", 4500, "pi_seed_0003"},
			// Provider without a payout account; completion must fail.
			{ben, newguy, 4, "confirmed", "funds_held_in_escrow", 7500, "pi_seed_0004"},
			// Payment authorization still settling.
			{alice, tom, 5, "confirmed", "authorized", 12550, "pi_seed_0005"},
		}

		for _, b := range bookings {
			var exists int
			row := db.Raw("SELECT 1 FROM bookings WHERE payment_intent_id = ?", b.IntentID).Row()
			if err := row.Scan(&exists); err == nil {
				continue
			}

			commission := (b.TotalAmount*cfg.Payment.CommissionPercent + 50) / 100
			if err := db.Exec(
				`INSERT INTO bookings (customer_id, provider_id, service_id, status, payment_status,
				 total_amount, amount_held_for_provider, platform_fee_held, payment_intent_id,
				 respond_by, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, now() + interval '48 hours', now(), now())`,
				b.CustomerID, b.ProviderID, b.ServiceID, b.Status, b.PaymentStatus,
				b.TotalAmount, b.TotalAmount-commission, commission, b.IntentID).Error; err != nil {
				log.Fatalf("failed to insert booking %s: %v", b.IntentID, err)
			}
			fmt.Printf("Seeded booking %s (%s, %s)\n", b.IntentID, b.Status, b.PaymentStatus)
		}

		fmt.Println("Seed data ready, all passwords are:", password)
	},
}
