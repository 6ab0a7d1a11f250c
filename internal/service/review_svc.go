package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"gmb_connect_v1_202601/internal/middleware"
	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/repository"
	"gmb_connect_v1_202601/pkg/gmb"
)

// ErrNoLocationSelected 没有选中地点
// 属于配置错误，直接上报，不重试
var ErrNoLocationSelected = errors.New("no location selected")

// 星级枚举词 -> 整数
// 不认识的词属于数据错误，绝不静默兜底
var starRatingWords = map[string]int{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// SyncError 同步失败摘要
// 带着底层错误明细返回给触发方，已经落库的 upsert 不回滚
type SyncError struct {
	Message string
	Entries []string
}

func (e *SyncError) Error() string {
	return e.Message
}

// SyncOptions 评价同步的显式参数
// 为零值时回落到持久化的地点设置
type SyncOptions struct {
	RatingMin  int
	ReviewsMax int
}

// SyncResult 一次评价同步的结果
// Errors 收集被跳过的坏记录（星级词不识别、时间解析失败等）
type SyncResult struct {
	Message    string   `json:"message"`
	Total      int      `json:"total"`
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	Skipped    int      `json:"skipped"`
	RatingMin  int      `json:"rating_min"`
	ReviewsMax int      `json:"reviews_max"`
	Errors     []string `json:"errors,omitempty"`
}

// ==================== ReviewService 评价同步 ====================

// ReviewService 评价同步服务
// 分页拉取选中地点的全部评价，按 review_id 幂等 upsert，
// 成功后回写聚合指标（平均分/总数/最后同步时间）
type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	settingRepo repository.SettingRepository
	locationSvc *LocationService
	auth        *AuthService
	gmbCfg      *gmb.Config
}

// NewReviewService 创建评价同步服务
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	settingRepo repository.SettingRepository,
	locationSvc *LocationService,
	auth *AuthService,
	gmbCfg *gmb.Config,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		settingRepo: settingRepo,
		locationSvc: locationSvc,
		auth:        auth,
		gmbCfg:      gmbCfg,
	}
}

// SyncReviews 执行一次完整的评价同步
//
// 1. 从持久化设置解析目标地点，显式参数只做回落；没有选中地点是配置错误
// 2. 要求会话已授权
// 3. 先跑一遍地点同步（评价同步依赖地点表是新的）
// 4. 按 totalReviewCount 分页拉完；token 提前断档按异常处理
// 5. 逐页 upsert：坏记录跳过并计入 Errors，不中断整批；
//    is_hidden 是本地字段，更新路径永远不碰
// 6. 全部成功后回写 average_rating（1 位小数）/ total_review_count / last_synced_on
//
// 拉取中途失败时，已落库的 upsert 保持原样，返回 *SyncError 摘要
func (s *ReviewService) SyncReviews(ctx context.Context, opts *SyncOptions) (*SyncResult, error) {
	result := &SyncResult{}

	// -------- 解析地点与默认参数 --------
	locSettings := &model.LocationSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyLocations, locSettings); err != nil &&
		!errors.Is(err, repository.ErrSettingNotFound) {
		return nil, err
	}
	if locSettings.LocationName == "" {
		return nil, ErrNoLocationSelected
	}

	result.RatingMin = locSettings.RatingMin
	result.ReviewsMax = locSettings.ReviewsMax
	if opts != nil {
		if opts.RatingMin > 0 {
			result.RatingMin = opts.RatingMin
		}
		if opts.ReviewsMax > 0 {
			result.ReviewsMax = opts.ReviewsMax
		}
	}

	// -------- 授权检查 --------
	hc, err := s.auth.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	client := gmb.NewClient(hc, s.gmbCfg)

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return nil, s.summarize(result, err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	// 单账号假设：永远取第一个
	account := accounts[0]

	// -------- 地点同步前置 --------
	// 地点同步有自己的互斥锁；拿不到说明别的触发方正在刷新地点表，
	// 跳过前置同步即可，不必为省一次拉取让整个评价同步失败
	guard := middleware.GetGuard()
	if guard.TryAcquire(middleware.SyncTypeLocations).Acquired {
		_, err := s.locationSvc.SyncLocations(ctx)
		guard.Release(middleware.SyncTypeLocations)
		if err != nil {
			return nil, s.summarize(result, err)
		}
	} else {
		log.Printf("[Sync] 地点同步正在执行中，评价同步跳过前置地点刷新")
	}

	// -------- 分页拉取并逐页 upsert --------
	parent := account.Name + "/" + locSettings.LocationName

	resp, err := client.ListReviews(ctx, parent, "")
	if err != nil {
		return nil, s.summarize(result, err)
	}
	s.applyPage(ctx, resp.Reviews, result)

	for result.Total < resp.TotalReviewCount {
		if resp.NextPageToken == "" {
			return nil, s.summarize(result, fmt.Errorf(
				"review pagination exhausted early: got %d of %d", result.Total, resp.TotalReviewCount))
		}

		resp, err = client.ListReviews(ctx, parent, resp.NextPageToken)
		if err != nil {
			return nil, s.summarize(result, err)
		}
		if len(resp.Reviews) == 0 {
			return nil, s.summarize(result, fmt.Errorf(
				"review pagination stalled: got %d of %d", result.Total, resp.TotalReviewCount))
		}
		s.applyPage(ctx, resp.Reviews, result)
	}

	// -------- 回写聚合指标 --------
	if err := s.saveAggregates(ctx, resp); err != nil {
		return nil, s.summarize(result, err)
	}

	result.Message = "评价同步完成"
	return result, nil
}

// ==================== 内部方法 ====================

// applyPage 把一页评价 upsert 进库
// 单条失败只计数不中断，每条 upsert 独立提交
func (s *ReviewService) applyPage(ctx context.Context, reviews []gmb.Review, result *SyncResult) {
	for i := range reviews {
		result.Total++
		created, err := s.upsertReview(ctx, &reviews[i])
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("review %s: %v", reviews[i].ReviewID, err))
			log.Printf("[Sync] 评价 %s 跳过: %v", reviews[i].ReviewID, err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
}

// upsertReview 按 review_id 插入或更新单条评价
// 返回是否新建
func (s *ReviewService) upsertReview(ctx context.Context, review *gmb.Review) (bool, error) {
	rating, ok := starRatingWords[review.StarRating]
	if !ok {
		return false, fmt.Errorf("unrecognized star rating %q", review.StarRating)
	}

	updateTime, err := time.Parse(time.RFC3339, review.UpdateTime)
	if err != nil {
		return false, fmt.Errorf("malformed update time %q: %v", review.UpdateTime, err)
	}

	var comment *string
	if review.Comment != "" {
		comment = &review.Comment
	}

	var displayName, photoURL string
	if review.Reviewer != nil {
		displayName = review.Reviewer.DisplayName
		photoURL = review.Reviewer.ProfilePhotoURL
	}

	existing, err := s.reviewRepo.GetByReviewID(ctx, review.ReviewID)
	if err != nil {
		return false, err
	}

	if existing != nil {
		// 更新只覆盖内容字段，is_hidden 保持管理员设置
		return false, s.reviewRepo.UpdateContent(ctx, review.ReviewID, &repository.ReviewContent{
			EndpointName:        review.Name,
			Comment:             comment,
			StarRating:          rating,
			UpdateTime:          updateTime,
			ReviewerDisplayName: displayName,
			ProfilePhotoURL:     photoURL,
		})
	}

	return true, s.reviewRepo.Create(ctx, &model.Review{
		ReviewID:            review.ReviewID,
		EndpointName:        review.Name,
		Comment:             comment,
		StarRating:          rating,
		UpdateTime:          updateTime,
		ReviewerDisplayName: displayName,
		ProfilePhotoURL:     photoURL,
		IsHidden:            false,
	})
}

// saveAggregates 回写聚合指标，只覆盖同步负责的字段
func (s *ReviewService) saveAggregates(ctx context.Context, last *gmb.ListReviewsResponse) error {
	settings := &model.ReviewSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyReviews, settings); err != nil &&
		!errors.Is(err, repository.ErrSettingNotFound) {
		return err
	}

	settings.AverageRating = math.Round(last.AverageRating*10) / 10
	settings.TotalReviewCount = last.TotalReviewCount
	settings.LastSyncedOn = time.Now().Format("2006-01-02 15:04:05")

	return s.settingRepo.Put(ctx, model.SettingKeyReviews, settings)
}

// summarize 把底层错误包成同步摘要
// 摘要文案按错误类别区分：授权被拒才提示检查凭证，
// 分页断档等数据问题不能误导管理员去改凭证；
// 谷歌 API 错误把明细列表一并带出去
func (s *ReviewService) summarize(result *SyncResult, err error) error {
	message := "同步评价失败，本次拉取的数据可能不完整，请稍后重试"

	var apiErr *gmb.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			message = "同步评价失败，请检查客户端凭证后重试"
		} else {
			message = "谷歌接口返回错误，同步评价失败"
		}
	}

	syncErr := &SyncError{
		Message: message,
		Entries: append([]string{err.Error()}, result.Errors...),
	}

	if apiErr != nil {
		for _, entry := range apiErr.Errors {
			syncErr.Entries = append(syncErr.Entries, fmt.Sprintf("%s: %s", entry.Reason, entry.Message))
		}
	}

	return syncErr
}
