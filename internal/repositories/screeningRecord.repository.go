package repositories

import (
	"context"

	"eyeshield/internal/database"
	"eyeshield/internal/logger"
	. "eyeshield/internal/models"
	"eyeshield/internal/services"

	"gorm.io/gorm"
)

// ScreeningRecordRepository is append-only: there is no update or delete.
type ScreeningRecordRepository interface {
	Create(ctx context.Context, record *ScreeningRecord) error
	GetAll(ctx context.Context) ([]ScreeningRecord, error)
	Count(ctx context.Context) (int64, error)
}

type screeningRecordRepository struct {
	db  database.DB
	log logger.Logger
}

func NewScreeningRecord(db database.DB) ScreeningRecordRepository {
	return &screeningRecordRepository{
		db:  db,
		log: logger.New("screeningRecordRepository"),
	}
}

func (r *screeningRecordRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

// Create returns only after the row is committed.
func (r *screeningRecordRepository) Create(ctx context.Context, record *ScreeningRecord) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(record).Error; err != nil {
		return log.Err("failed to create screening record", err, "patientID", record.PatientID)
	}

	return nil
}

// GetAll returns every record in insertion order.
func (r *screeningRecordRepository) GetAll(ctx context.Context) ([]ScreeningRecord, error) {
	log := r.log.Function("GetAll")

	var records []ScreeningRecord
	if err := r.getDB(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, log.Err("failed to get screening records", err)
	}

	return records, nil
}

func (r *screeningRecordRepository) Count(ctx context.Context) (int64, error) {
	log := r.log.Function("Count")

	var count int64
	if err := r.getDB(ctx).Model(&ScreeningRecord{}).Count(&count).Error; err != nil {
		return 0, log.Err("failed to count screening records", err)
	}

	return count, nil
}
