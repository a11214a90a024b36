package database

import (
	migrate "github.com/rubenv/sql-migrate"
)

const migrationDialect = "sqlite3"

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_patient_records",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS patient_records (
					id             INTEGER PRIMARY KEY AUTOINCREMENT,
					created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					patient_id     TEXT NOT NULL CHECK (patient_id <> ''),
					name           TEXT NOT NULL CHECK (name <> ''),
					birthdate      TEXT NOT NULL DEFAULT '',
					age            INTEGER,
					sex            TEXT NOT NULL DEFAULT '',
					contact        TEXT NOT NULL DEFAULT '',
					eye            TEXT NOT NULL DEFAULT '',
					diabetes_type  TEXT NOT NULL DEFAULT '',
					duration_years INTEGER NOT NULL DEFAULT 0,
					hba1c          TEXT NOT NULL DEFAULT '',
					prev_treatment TEXT NOT NULL DEFAULT 'No',
					notes          TEXT NOT NULL DEFAULT '',
					result         TEXT NOT NULL DEFAULT '',
					confidence     TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX IF NOT EXISTS idx_patient_records_patient_id ON patient_records (patient_id)`,
			},
			Down: []string{
				`DROP INDEX IF EXISTS idx_patient_records_patient_id`,
				`DROP TABLE IF EXISTS patient_records`,
			},
		},
		{
			Id: "0002_users",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS users (
					id            TEXT PRIMARY KEY,
					created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					username      TEXT NOT NULL,
					role          TEXT NOT NULL CHECK (role IN ('clinician', 'admin', 'viewer')),
					password_hash TEXT NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (username)`,
			},
			Down: []string{
				`DROP INDEX IF EXISTS idx_users_username`,
				`DROP TABLE IF EXISTS users`,
			},
		},
		{
			Id: "0003_patient_id_sequences",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS patient_id_sequences (
					day        TEXT PRIMARY KEY,
					last_value INTEGER NOT NULL
				)`,
			},
			Down: []string{
				`DROP TABLE IF EXISTS patient_id_sequences`,
			},
		},
		{
			// Rows written before the finding column existed only carry the
			// free-text label. The stub analyzer's negative label is the only
			// one mapped here; everything else stays unclassified.
			Id: "0004_patient_records_finding",
			Up: []string{
				`ALTER TABLE patient_records ADD COLUMN finding TEXT NOT NULL DEFAULT ''`,
				`UPDATE patient_records SET finding = 'negative' WHERE result = 'No DR Detected'`,
			},
			Down: []string{
				`ALTER TABLE patient_records DROP COLUMN finding`,
			},
		},
	},
}

// Migrate applies every pending migration. Safe to call on each start.
func (s *DB) Migrate() error {
	log := s.log.Function("Migrate")

	sqlDB, err := s.SQL.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	applied, err := migrate.Exec(sqlDB, migrationDialect, migrations, migrate.Up)
	if err != nil {
		return log.Err("failed to apply migrations", err)
	}

	log.Info("Migrations applied", "count", applied)
	return nil
}

// Rollback reverts up to steps migrations, most recent first.
func (s *DB) Rollback(steps int) error {
	log := s.log.Function("Rollback")

	sqlDB, err := s.SQL.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	reverted, err := migrate.ExecMax(sqlDB, migrationDialect, migrations, migrate.Down, steps)
	if err != nil {
		return log.Err("failed to roll back migrations", err, "steps", steps)
	}

	log.Info("Migrations rolled back", "count", reverted)
	return nil
}
