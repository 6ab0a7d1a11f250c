package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/repository"
)

// ErrInvalidFrequency 同步频率不在枚举范围内
var ErrInvalidFrequency = errors.New("invalid update frequency")

// Rescheduler 定时任务重排接口，由 task 层实现
type Rescheduler interface {
	Reschedule(frequency string) error
}

// ==================== SettingsService 设置管理 ====================

// SettingsService 设置管理服务
// 负责强类型设置的读写和联动副作用：
//   - 选中地点变更 => 清空评价表和地点表，避免展示旧地点的评价
//   - 同步频率变更 => 重排定时任务
type SettingsService struct {
	settingRepo  repository.SettingRepository
	reviewRepo   repository.ReviewRepository
	locationRepo repository.LocationRepository

	// rescheduler 在定时任务初始化后注入，可为空（测试场景）
	rescheduler Rescheduler
}

// NewSettingsService 创建设置管理服务
func NewSettingsService(
	settingRepo repository.SettingRepository,
	reviewRepo repository.ReviewRepository,
	locationRepo repository.LocationRepository,
) *SettingsService {
	return &SettingsService{
		settingRepo:  settingRepo,
		reviewRepo:   reviewRepo,
		locationRepo: locationRepo,
	}
}

// SetRescheduler 注入定时任务重排器
func (s *SettingsService) SetRescheduler(r Rescheduler) {
	s.rescheduler = r
}

// ==================== 地点设置 ====================

// GetLocationSettings 读取地点设置，不存在时返回默认值
func (s *SettingsService) GetLocationSettings(ctx context.Context) (*model.LocationSettings, error) {
	settings := &model.LocationSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyLocations, settings); err != nil &&
		!errors.Is(err, repository.ErrSettingNotFound) {
		return nil, err
	}
	normalizeLocationSettings(settings)
	return settings, nil
}

// normalizeLocationSettings 给未填的筛选项补默认值
// 表单允许不填最低星级和最大条数，零值不能让展示接口变成无界查询
func normalizeLocationSettings(settings *model.LocationSettings) {
	if settings.RatingMin <= 0 {
		settings.RatingMin = 1
	}
	if settings.ReviewsMax <= 0 {
		settings.ReviewsMax = 50
	}
}

// SaveLocationSettings 保存地点设置
// 选中地点从 A 换到 B（A 非空且 A != B）时先清空本地评价和地点，
// 避免下次同步前还在展示旧地点的数据
func (s *SettingsService) SaveLocationSettings(ctx context.Context, settings *model.LocationSettings) error {
	old := &model.LocationSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyLocations, old); err != nil &&
		!errors.Is(err, repository.ErrSettingNotFound) {
		return err
	}

	if old.LocationName != "" && old.LocationName != settings.LocationName {
		if err := s.reviewRepo.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate reviews: %w", err)
		}
		if err := s.locationRepo.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate locations: %w", err)
		}
		log.Printf("[Settings] 选中地点由 %q 变更为 %q，本地评价已清空", old.LocationName, settings.LocationName)
	}

	normalizeLocationSettings(settings)
	return s.settingRepo.Put(ctx, model.SettingKeyLocations, settings)
}

// ==================== 评价设置 ====================

// GetReviewSettings 读取评价设置，不存在时返回默认值
func (s *SettingsService) GetReviewSettings(ctx context.Context) (*model.ReviewSettings, error) {
	settings := &model.ReviewSettings{UpdateFrequency: model.FrequencyDaily}
	if err := s.settingRepo.Get(ctx, model.SettingKeyReviews, settings); err != nil &&
		!errors.Is(err, repository.ErrSettingNotFound) {
		return nil, err
	}
	if settings.UpdateFrequency == "" {
		settings.UpdateFrequency = model.FrequencyDaily
	}
	return settings, nil
}

// SaveReviewSettings 保存评价设置（管理端只提交 update_frequency）
// 聚合指标归同步任务所有，这里强制保留旧值；频率变更时重排定时任务
func (s *SettingsService) SaveReviewSettings(ctx context.Context, settings *model.ReviewSettings) error {
	if !model.ValidFrequency(settings.UpdateFrequency) {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, settings.UpdateFrequency)
	}

	old, err := s.GetReviewSettings(ctx)
	if err != nil {
		return err
	}

	// 聚合字段不允许表单覆盖
	settings.AverageRating = old.AverageRating
	settings.TotalReviewCount = old.TotalReviewCount
	settings.LastSyncedOn = old.LastSyncedOn

	if err := s.settingRepo.Put(ctx, model.SettingKeyReviews, settings); err != nil {
		return err
	}

	if settings.UpdateFrequency != old.UpdateFrequency && s.rescheduler != nil {
		if err := s.rescheduler.Reschedule(settings.UpdateFrequency); err != nil {
			return fmt.Errorf("reschedule sync job: %w", err)
		}
		log.Printf("[Settings] 同步频率由 %q 变更为 %q，定时任务已重排", old.UpdateFrequency, settings.UpdateFrequency)
	}

	return nil
}
