package core

import (
	"fmt"
	"log"

	"github.com/clairelabs/claire-server/internal/auth"
	"github.com/clairelabs/claire-server/internal/config"
	"github.com/clairelabs/claire-server/internal/store"
)

// SeedAccounts provisions the configured account slots at startup. A new
// account is created for an unknown email; an existing account has its
// display name and password hash resynchronized with the current
// configuration.
func SeedAccounts(db *store.SQLiteStore, accounts []config.SeedAccount) error {
	for _, account := range accounts {
		name := account.FullName
		if name == "" {
			name = account.Email
		}

		hash, err := auth.HashPassword(account.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for seeded account %s: %w", account.Email, err)
		}

		existing, err := db.GetUserByEmail(account.Email)
		if err != nil {
			return fmt.Errorf("failed to look up seeded account %s: %w", account.Email, err)
		}

		if existing == nil {
			user, err := db.CreateUser(account.Email, name, hash, "")
			if err != nil {
				return fmt.Errorf("failed to create seeded account %s: %w", account.Email, err)
			}
			log.Printf("Seeded new account %s (id %d)", user.Email, user.ID)
			continue
		}

		if err := db.UpdateUserCredentials(existing.ID, name, hash); err != nil {
			return fmt.Errorf("failed to resync seeded account %s: %w", account.Email, err)
		}
		log.Printf("Resynced seeded account %s (id %d)", existing.Email, existing.ID)
	}
	return nil
}
