package seed

import (
	"context"
	"errors"

	"eyeshield/config"
	usersController "eyeshield/internal/controllers/users"
	"eyeshield/internal/database"
	"eyeshield/internal/logger"
	. "eyeshield/internal/models"
	"eyeshield/internal/repositories"
)

// Seed creates the administrator account named in config. An existing
// account is left untouched.
func Seed(db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding administrator account")

	if config.SeedAdminUsername == "" || config.SeedAdminPassword == "" {
		log.Warn("SEED_ADMIN_USERNAME or SEED_ADMIN_PASSWORD not set, skipping")
		return nil
	}

	users := usersController.New(repositories.NewUser(db))
	_, err := users.Create(context.Background(), config.SeedAdminUsername, config.SeedAdminPassword, RoleAdmin)
	switch {
	case errors.Is(err, usersController.ErrUserExists):
		log.Info("User already exists", "username", config.SeedAdminUsername)
	case err != nil:
		return log.Err("failed to create user", err, "username", config.SeedAdminUsername)
	default:
		log.Info("Seeded user", "username", config.SeedAdminUsername)
	}

	return nil
}
