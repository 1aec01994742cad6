package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type entry struct {
	Key       string `gorm:"column:entry_key;primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (entry) TableName() string {
	return "kv_entries"
}

// GormStore keeps values in a local SQLite file, the closest thing to
// on-device storage.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return e.Value, true, nil
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	e := entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&entry{}).Error
}

func (s *GormStore) ListKeys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	err := s.db.WithContext(ctx).Model(&entry{}).Order("entry_key").Pluck("entry_key", &keys).Error
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
