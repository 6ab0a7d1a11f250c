package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gmb_connect_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// UserRepository 管理账号仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *model.SysUser) error
	// GetByUsername 不存在时返回 (nil, nil)
	GetByUsername(ctx context.Context, username string) (*model.SysUser, error)
	GetByID(ctx context.Context, id int64) (*model.SysUser, error)
	Count(ctx context.Context) (int64, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}

// ==================== 仓储实现 ====================

// userRepo 管理账号仓储实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepository 创建管理账号仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.SysUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.SysUser, error) {
	var user model.SysUser
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.SysUser, error) {
	var user model.SysUser
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SysUser{}).Count(&count).Error
	return count, err
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.SysUser{}).
		Where("id = ?", id).
		Update("last_login_at", &now).Error
}
