package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rulercosta/neuralwired/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingService 提供站点键值设置的读取、写入与删除。
type SettingService struct {
	db *gorm.DB
}

// NewSettingService 构造 SettingService。
func NewSettingService(gdb *gorm.DB) *SettingService {
	return &SettingService{db: gdb}
}

// Get 返回指定键的值，不存在时返回 ErrSettingNotFound。
func (s *SettingService) Get(ctx context.Context, key string) (string, error) {
	var record db.Setting
	if err := s.db.WithContext(ctx).Where("key = ?", strings.TrimSpace(key)).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSettingNotFound
		}
		return "", storeError("get setting", err)
	}
	return record.Value, nil
}

// GetOrDefault 读取设置，不存在时返回 fallback。
func (s *SettingService) GetOrDefault(ctx context.Context, key, fallback string) (string, error) {
	value, err := s.Get(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return fallback, nil
	}
	return value, err
}

// All 返回全部设置。
func (s *SettingService) All(ctx context.Context) (map[string]string, error) {
	var records []db.Setting
	if err := s.db.WithContext(ctx).Order("key asc").Find(&records).Error; err != nil {
		return nil, storeError("load settings", err)
	}

	result := make(map[string]string, len(records))
	for _, record := range records {
		result[record.Key] = record.Value
	}
	return result, nil
}

// Set 写入单个设置，已存在时覆盖。
func (s *SettingService) Set(ctx context.Context, editor Editor, key, value string) error {
	if err := requireEditor(editor); err != nil {
		return err
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return ErrSettingKeyRequired
	}

	if err := upsertSetting(s.db.WithContext(ctx), trimmedKey, value); err != nil {
		return storeError("set setting", err)
	}
	return nil
}

// SetMany 在同一事务中写入多个设置，任一失败则全部回滚。
func (s *SettingService) SetMany(ctx context.Context, editor Editor, values map[string]string) error {
	if err := requireEditor(editor); err != nil {
		return err
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		if strings.TrimSpace(key) == "" {
			return ErrSettingKeyRequired
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			if err := upsertSetting(tx, strings.TrimSpace(key), values[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeError("set settings", err)
	}
	return nil
}

// Delete 删除设置，返回值表示删除前该键是否存在。
func (s *SettingService) Delete(ctx context.Context, editor Editor, key string) (bool, error) {
	if err := requireEditor(editor); err != nil {
		return false, err
	}

	result := s.db.WithContext(ctx).Where("key = ?", strings.TrimSpace(key)).Delete(&db.Setting{})
	if result.Error != nil {
		return false, storeError("delete setting", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.Setting{Key: key, Value: value}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error
}
