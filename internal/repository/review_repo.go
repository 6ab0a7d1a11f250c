package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gmb_connect_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// ReviewRepository 评价仓储接口
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	// GetByReviewID 按谷歌评价 ID 查找，不存在时返回 (nil, nil)
	GetByReviewID(ctx context.Context, reviewID string) (*model.Review, error)
	// UpdateContent 只更新同步内容字段，永远不碰 is_hidden
	UpdateContent(ctx context.Context, reviewID string, content *ReviewContent) error
	// SetHidden 管理员隐藏/取消隐藏，按内部主键批量操作
	SetHidden(ctx context.Context, ids []int64, hidden bool) error

	// 列表查询
	List(ctx context.Context, filter ReviewFilter) ([]model.Review, int64, error)

	Count(ctx context.Context) (int64, error)
	// Truncate 整表清空，选中地点变更时调用
	Truncate(ctx context.Context) error
}

// ReviewContent 同步可以写入的内容字段集合
// is_hidden 故意不在这里，保证它只能被 SetHidden 改动
type ReviewContent struct {
	EndpointName        string
	Comment             *string
	StarRating          int
	UpdateTime          time.Time
	ReviewerDisplayName string
	ProfilePhotoURL     string
}

// ==================== 过滤条件 ====================

// ReviewFilter 评价过滤条件
// OrderBy 来自调用方的查询参数，必须过白名单
type ReviewFilter struct {
	RatingMin     int     // 0 表示不筛选
	IncludeHidden bool    // false 时只返回未隐藏的
	IDs           []int64 // 非空时按内部主键筛选
	OrderBy       string  // 默认 update_time
	Order         string  // asc / desc，默认 desc
	Page          int
	PageSize      int // 0 表示不分页
}

// 排序列白名单，挡掉用户可控参数里的注入
var reviewSortColumns = map[string]bool{
	"id":                    true,
	"update_time":           true,
	"star_rating":           true,
	"reviewer_display_name": true,
}

// ErrInvalidSortColumn 排序列不在白名单内
var ErrInvalidSortColumn = errors.New("invalid sort column")

// ==================== 仓储实现 ====================

// reviewRepo 评价仓储实现
type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepository 创建评价仓储
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepo) GetByReviewID(ctx context.Context, reviewID string) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).Where("review_id = ?", reviewID).First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepo) UpdateContent(ctx context.Context, reviewID string, content *ReviewContent) error {
	return r.db.WithContext(ctx).Model(&model.Review{}).
		Where("review_id = ?", reviewID).
		Updates(map[string]interface{}{
			"endpoint_name":         content.EndpointName,
			"comment":               content.Comment,
			"star_rating":           content.StarRating,
			"update_time":           content.UpdateTime,
			"reviewer_display_name": content.ReviewerDisplayName,
			"profile_photo_url":     content.ProfilePhotoURL,
		}).Error
}

func (r *reviewRepo) SetHidden(ctx context.Context, ids []int64, hidden bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Review{}).
		Where("id IN ?", ids).
		Update("is_hidden", hidden).Error
}

func (r *reviewRepo) List(ctx context.Context, filter ReviewFilter) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Review{})

	if filter.RatingMin > 0 {
		query = query.Where("star_rating >= ?", filter.RatingMin)
	}
	if !filter.IncludeHidden {
		query = query.Where("is_hidden = ?", false)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 排序列白名单校验
	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "update_time"
	}
	if !reviewSortColumns[orderBy] {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidSortColumn, filter.OrderBy)
	}
	order := "DESC"
	if filter.Order == "asc" {
		order = "ASC"
	}
	query = query.Order(orderBy + " " + order)

	// 分页
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if err := query.Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Review{}).Count(&count).Error
	return count, err
}

func (r *reviewRepo) Truncate(ctx context.Context) error {
	// 硬删除，评价表整体重建，不走软删除
	return r.db.WithContext(ctx).Exec("DELETE FROM reviews").Error
}
