package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/engine/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record 存档记录模型
type Record struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     []byte
	UpdatedAt time.Time
}

// SqliteStore 基于本地 SQLite 文件的存档仓库
type SqliteStore struct {
	db     *gorm.DB
	logger logging.Logger
	path   string
}

// NewSqliteStore 打开（或创建）path 指向的数据库文件。
// 表结构在 Startup 阶段迁移。
func NewSqliteStore(path string, logger logging.Logger) (*SqliteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database '%s': %w", path, err)
	}
	return &SqliteStore{
		db:     db,
		logger: logger.WithCategory("Storage"),
		path:   path,
	}, nil
}

// Startup 执行自动迁移
func (s *SqliteStore) Startup() error {
	if err := s.db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("storage: auto migrate failed for '%s': %w", s.path, err)
	}
	s.logger.Info(fmt.Sprintf("Sqlite store ready at '%s'", s.path))
	return nil
}

// Shutdown 关闭底层连接
func (s *SqliteStore) Shutdown() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("storage: failed to get sql.DB: %w", err)
	}
	s.logger.Info("Closing sqlite store")
	return sqlDB.Close()
}

func (s *SqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).Take(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read key '%s': %w", key, err)
	}
	return rec.Value, nil
}

func (s *SqliteStore) Set(ctx context.Context, key string, value []byte) error {
	rec := Record{Key: key, Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("storage: failed to write key '%s': %w", key, err)
	}
	return nil
}

func (s *SqliteStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&Record{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("storage: failed to delete key '%s': %w", key, err)
	}
	return nil
}

func (s *SqliteStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list keys: %w", err)
	}
	return keys, nil
}
