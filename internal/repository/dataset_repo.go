package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/insights/internal/domain"
	"gorm.io/gorm"
)

// datasetRecord is the persisted form of a dataset. Position keeps
// the store's display order.
type datasetRecord struct {
	domain.Dataset
	Position  int `gorm:"index:idx_datasets_position"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (datasetRecord) TableName() string {
	return "datasets"
}

// DatasetRepository handles dataset persistence. It satisfies store.Fetcher.
type DatasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository creates a new DatasetRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *DatasetRepository: repository instance bound to db.
func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// FetchAll returns every dataset in stored display order.
func (r *DatasetRepository) FetchAll(ctx context.Context) ([]domain.Dataset, error) {
	var records []datasetRecord
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	out := make([]domain.Dataset, len(records))
	for i, rec := range records {
		out[i] = rec.Dataset
	}
	return out, nil
}

// GetByID retrieves a dataset by its ID.
// Returns gorm.ErrRecordNotFound when absent.
func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	var rec datasetRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec.Dataset, nil
}

// ReplaceAll makes the table mirror datasets exactly, in one transaction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - datasets: full sequence in display order.
// Returns:
//   - error: non-nil if any statement fails; the table is then unchanged.
func (r *DatasetRepository) ReplaceAll(ctx context.Context, datasets []domain.Dataset) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&datasetRecord{}).Error; err != nil {
			return fmt.Errorf("clear datasets: %w", err)
		}
		if len(datasets) == 0 {
			return nil
		}
		records := make([]datasetRecord, len(datasets))
		for i, ds := range datasets {
			records[i] = datasetRecord{Dataset: ds.Clone(), Position: i}
		}
		if err := tx.CreateInBatches(records, 100).Error; err != nil {
			return fmt.Errorf("insert datasets: %w", err)
		}
		return nil
	})
}

// Count returns the number of stored datasets.
func (r *DatasetRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&datasetRecord{}).Count(&count).Error
	return count, err
}

// IsNotFound reports whether err is gorm's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
