package initialize

import (
	"context"
	"os"

	"eyeshield/config"
	"eyeshield/internal/database"
	"eyeshield/internal/logger"
	"eyeshield/internal/repositories"
)

// InitializeTables prepares what a fresh install needs beyond the schema:
// the export and image directories, and a sanity read of the record table.
func InitializeTables(db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("InitializeTables")
	log.Info("Initializing essential production data")

	for _, dir := range []string{config.ExportDir, config.ImageDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return log.Err("failed to create directory", err, "dir", dir)
		}
	}

	count, err := repositories.NewScreeningRecord(db).Count(context.Background())
	if err != nil {
		return log.Err("failed to read screening records", err)
	}

	log.Info("Table initialization complete", "screeningRecords", count)
	return nil
}
