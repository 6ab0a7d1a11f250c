package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"gmb_connect_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// LocationRepository 地点仓储接口
type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) error
	// GetByLocationID 按谷歌地点 ID 查找，不存在时返回 (nil, nil)
	GetByLocationID(ctx context.Context, locationID string) (*model.Location, error)
	Update(ctx context.Context, loc *model.Location) error
	List(ctx context.Context) ([]model.Location, error)
	Count(ctx context.Context) (int64, error)
	// Truncate 整表清空，选中地点变更时调用
	Truncate(ctx context.Context) error
}

// ==================== 仓储实现 ====================

// locationRepo 地点仓储实现
type locationRepo struct {
	db *gorm.DB
}

// NewLocationRepository 创建地点仓储
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) Create(ctx context.Context, loc *model.Location) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *locationRepo) GetByLocationID(ctx context.Context, locationID string) (*model.Location, error) {
	var loc model.Location
	err := r.db.WithContext(ctx).Where("location_id = ?", locationID).First(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

func (r *locationRepo) Update(ctx context.Context, loc *model.Location) error {
	return r.db.WithContext(ctx).Save(loc).Error
}

func (r *locationRepo) List(ctx context.Context) ([]model.Location, error) {
	var locs []model.Location
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}

func (r *locationRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Location{}).Count(&count).Error
	return count, err
}

func (r *locationRepo) Truncate(ctx context.Context) error {
	// 硬删除，地点表整体重建，不走软删除
	return r.db.WithContext(ctx).Exec("DELETE FROM locations").Error
}
