package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gmb_connect_v1_202601/internal/model"
)

// ErrSettingNotFound 设置项不存在
var ErrSettingNotFound = errors.New("setting not found")

// ==================== 接口定义 ====================

// SettingRepository 设置仓储接口
// Value 按 JSON 序列化，调用方传强类型结构体
type SettingRepository interface {
	// Get 读取设置并反序列化到 out，不存在时返回 ErrSettingNotFound
	Get(ctx context.Context, key string, out interface{}) error
	// Put 按 key 插入或整体覆盖
	Put(ctx context.Context, key string, value interface{}) error
}

// ==================== 仓储实现 ====================

// settingRepo 设置仓储实现
type settingRepo struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓储
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepo{db: db}
}

func (r *settingRepo) Get(ctx context.Context, key string, out interface{}) error {
	var setting model.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSettingNotFound
		}
		return err
	}
	return json.Unmarshal(setting.Value, out)
}

func (r *settingRepo) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	setting := model.Setting{Key: key, Value: raw}

	// key 冲突时覆盖 value，等价 upsert
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}
