package repositories

import (
	"context"

	"eyeshield/internal/database"
	"eyeshield/internal/logger"
	. "eyeshield/internal/models"
	"eyeshield/internal/services"

	"gorm.io/gorm"
)

type PatientSequenceRepository interface {
	Next(ctx context.Context, day string) (int, error)
	Current(ctx context.Context, day string) (int, error)
}

type patientSequenceRepository struct {
	db                 database.DB
	transactionService *services.TransactionService
	log                logger.Logger
}

func NewPatientSequence(
	db database.DB,
	transactionService *services.TransactionService,
) PatientSequenceRepository {
	return &patientSequenceRepository{
		db:                 db,
		transactionService: transactionService,
		log:                logger.New("patientSequenceRepository"),
	}
}

func (r *patientSequenceRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

// Next increments day's counter and returns the new value. The first call
// for a day returns 1.
func (r *patientSequenceRepository) Next(ctx context.Context, day string) (int, error) {
	log := r.log.Function("Next")

	var next int
	err := r.transactionService.Execute(ctx, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		if err := db.Exec(
			`INSERT INTO patient_id_sequences (day, last_value) VALUES (?, 1)
			 ON CONFLICT (day) DO UPDATE SET last_value = last_value + 1`,
			day,
		).Error; err != nil {
			return err
		}

		var sequence PatientSequence
		if err := db.First(&sequence, "day = ?", day).Error; err != nil {
			return err
		}

		next = sequence.LastValue
		return nil
	})
	if err != nil {
		return 0, log.Err("failed to advance patient sequence", err, "day", day)
	}

	return next, nil
}

// Current returns the last value handed out for day, 0 when none was.
func (r *patientSequenceRepository) Current(ctx context.Context, day string) (int, error) {
	log := r.log.Function("Current")

	var sequence PatientSequence
	err := r.getDB(ctx).Where("day = ?", day).Limit(1).Find(&sequence).Error
	if err != nil {
		return 0, log.Err("failed to read patient sequence", err, "day", day)
	}

	return sequence.LastValue, nil
}
