package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gmb_connect_v1_202601/internal/middleware"
	"gmb_connect_v1_202601/internal/service"
)

// ==================== SyncController 同步控制器 ====================

// SyncController 手动同步控制器
type SyncController struct {
	reviewService   *service.ReviewService
	locationService *service.LocationService
}

// NewSyncController 创建同步控制器
func NewSyncController(reviewService *service.ReviewService, locationService *service.LocationService) *SyncController {
	return &SyncController{
		reviewService:   reviewService,
		locationService: locationService,
	}
}

// SyncReviewsRequest 手动评价同步参数
// 两个字段都可省略，省略时使用持久化的地点设置
type SyncReviewsRequest struct {
	RatingMin  int `json:"rating_min" binding:"omitempty,min=1,max=5"`
	ReviewsMax int `json:"reviews_max" binding:"omitempty,min=1"`
}

// SyncReviews 手动触发评价同步
// @Summary 手动触发评价同步
// @Tags Sync
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SyncReviewsRequest false "同步参数"
// @Success 200 {object} service.SyncResult
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{} "需要重新授权"
// @Failure 409 {object} map[string]interface{} "同步进行中"
// @Router /admin/sync/reviews [post]
func (c *SyncController) SyncReviews(ctx *gin.Context) {
	var req SyncReviewsRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "参数错误: " + err.Error(),
			})
			return
		}
	}

	// 与定时任务共用一把锁，同一时刻只允许一个评价同步
	guard := middleware.GetGuard()
	acquired := guard.TryAcquire(middleware.SyncTypeReviews)
	if !acquired.Acquired {
		ctx.JSON(http.StatusConflict, gin.H{
			"code":    409,
			"message": "同步任务正在执行中，请稍后再试",
		})
		return
	}
	defer guard.Release(middleware.SyncTypeReviews)

	opts := &service.SyncOptions{
		RatingMin:  req.RatingMin,
		ReviewsMax: req.ReviewsMax,
	}
	result, err := c.reviewService.SyncReviews(ctx.Request.Context(), opts)
	if err != nil {
		respondSyncError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": result.Message,
		"data":    result,
	})
}

// SyncLocations 手动触发地点同步
// @Summary 手动触发地点同步
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{} "需要重新授权"
// @Failure 409 {object} map[string]interface{} "同步进行中"
// @Router /admin/sync/locations [post]
func (c *SyncController) SyncLocations(ctx *gin.Context) {
	guard := middleware.GetGuard()
	acquired := guard.TryAcquire(middleware.SyncTypeLocations)
	if !acquired.Acquired {
		ctx.JSON(http.StatusConflict, gin.H{
			"code":    409,
			"message": "同步任务正在执行中，请稍后再试",
		})
		return
	}
	defer guard.Release(middleware.SyncTypeLocations)

	locations, err := c.locationService.SyncLocations(ctx.Request.Context())
	if err != nil {
		respondSyncError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "地点同步完成",
		"data":    gin.H{"total": len(locations)},
	})
}
