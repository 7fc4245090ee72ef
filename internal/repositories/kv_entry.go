package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/ats-scanner/internal/models"
)

type kvEntryRepository struct {
	db *gorm.DB
}

// NewKVEntryRepository stores values in the kv_entries table.
func NewKVEntryRepository(db *gorm.DB) KeyValueStore {
	return &kvEntryRepository{db: db}
}

// Get implements KeyValueStore.
func (r *kvEntryRepository) Get(ctx context.Context, key string) (string, error) {
	var entry models.KVEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to find kv entry: %w", err)
	}

	return entry.Value, nil
}

// Set implements KeyValueStore.
func (r *kvEntryRepository) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert kv entry: %w", err)
	}

	return nil
}

// Delete implements KeyValueStore.
func (r *kvEntryRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete kv entry: %w", err)
	}

	return nil
}
