package main

import (
	"fmt"
	"os"
	"strconv"

	"eyeshield/cmd/migration/initialize"
	"eyeshield/cmd/migration/seed"
	"eyeshield/config"
	"eyeshield/internal/database"
	"eyeshield/internal/logger"
)

const usage = "usage: migration [up | down <steps> | init | seed]"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run opens the database, which applies pending migrations, then performs
// the requested command.
func run(args []string) error {
	log := logger.New("migration").Function("run")

	config, err := config.InitConfig()
	if err != nil {
		return log.Err("failed to initialize config", err)
	}
	logger.Init(config.GeneralEnvironment, config.LogLevel)

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	db, err := database.New(config)
	if err != nil {
		return log.Err("failed to open database", err)
	}
	defer db.Close()

	switch command {
	case "up":
		log.Info("Migrations up to date")
		return nil
	case "down":
		steps := 1
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil || steps < 1 {
				return log.ErrMsg(usage)
			}
		}
		return db.Rollback(steps)
	case "init":
		return initialize.InitializeTables(db, config, log)
	case "seed":
		return seed.Seed(db, config, log)
	}

	return log.ErrMsg(usage)
}
