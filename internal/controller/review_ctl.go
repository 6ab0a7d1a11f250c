package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gmb_connect_v1_202601/internal/api/dto"
	"gmb_connect_v1_202601/internal/repository"
	"gmb_connect_v1_202601/internal/service"
)

// ==================== ReviewController 评价控制器 ====================

// ReviewController 评价控制器
type ReviewController struct {
	reviewRepo      repository.ReviewRepository
	settingsService *service.SettingsService
}

// NewReviewController 创建评价控制器
func NewReviewController(reviewRepo repository.ReviewRepository, settingsService *service.SettingsService) *ReviewController {
	return &ReviewController{
		reviewRepo:      reviewRepo,
		settingsService: settingsService,
	}
}

// ==================== 后台管理接口 ====================

// List 评价列表（后台）
// @Summary 评价列表
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param rating_min query int false "最低星级"
// @Param include_hidden query bool false "是否包含已隐藏"
// @Param ids query string false "指定评价 ID 列表，逗号分隔"
// @Param order_by query string false "排序列"
// @Param order query string false "asc / desc"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/reviews [get]
func (c *ReviewController) List(ctx *gin.Context) {
	filter := repository.ReviewFilter{
		RatingMin:     queryInt(ctx, "rating_min", 0),
		IncludeHidden: ctx.Query("include_hidden") == "true",
		IDs:           queryIDList(ctx, "ids"),
		OrderBy:       ctx.Query("order_by"),
		Order:         ctx.Query("order"),
		Page:          queryInt(ctx, "page", 1),
		PageSize:      queryInt(ctx, "page_size", 20),
	}

	reviews, total, err := c.reviewRepo.List(ctx.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSortColumn) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的排序列",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"total":     total,
			"page":      filter.Page,
			"page_size": filter.PageSize,
			"list":      reviews,
		},
	})
}

// Hide 批量隐藏评价
// 隐藏是本地动作，不回写谷歌
// @Summary 批量隐藏评价
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.HideReviewsRequest true "评价 ID 列表"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/reviews/hide [post]
func (c *ReviewController) Hide(ctx *gin.Context) {
	c.setHidden(ctx, true, "评价已隐藏")
}

// Unhide 批量取消隐藏评价
// @Summary 批量取消隐藏评价
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.HideReviewsRequest true "评价 ID 列表"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/reviews/unhide [post]
func (c *ReviewController) Unhide(ctx *gin.Context) {
	c.setHidden(ctx, false, "评价已恢复显示")
}

func (c *ReviewController) setHidden(ctx *gin.Context, hidden bool, okMessage string) {
	var req dto.HideReviewsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	if err := c.reviewRepo.SetHidden(ctx.Request.Context(), req.IDs, hidden); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": okMessage,
		"data":    gin.H{"count": len(req.IDs)},
	})
}

// Aggregate 聚合指标
// @Summary 评价聚合指标
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /admin/reviews/aggregate [get]
func (c *ReviewController) Aggregate(ctx *gin.Context) {
	settings, err := c.settingsService.GetReviewSettings(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"average_rating":     settings.AverageRating,
			"total_review_count": settings.TotalReviewCount,
			"last_synced_on":     settings.LastSyncedOn,
		},
	})
}

// ==================== 对外展示接口 ====================

// Display 评价展示列表（免认证）
// 按持久化的地点设置过滤：最低星级 + 最大条数，已隐藏的不出现；
// ids 参数可以指定只展示某几条（嵌入页面挑选固定评价的场景）
// @Summary 评价展示列表
// @Tags Review
// @Produce json
// @Param ids query string false "指定评价 ID 列表，逗号分隔"
// @Success 200 {object} map[string]interface{}
// @Router /reviews [get]
func (c *ReviewController) Display(ctx *gin.Context) {
	locSettings, err := c.settingsService.GetLocationSettings(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	filter := repository.ReviewFilter{
		RatingMin:     locSettings.RatingMin,
		IncludeHidden: false,
		IDs:           queryIDList(ctx, "ids"),
		OrderBy:       "update_time",
		Order:         "desc",
		Page:          1,
		PageSize:      locSettings.ReviewsMax,
	}

	reviews, _, err := c.reviewRepo.List(ctx.Request.Context(), filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	reviewSettings, err := c.settingsService.GetReviewSettings(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"average_rating":     reviewSettings.AverageRating,
			"total_review_count": reviewSettings.TotalReviewCount,
			"list":               reviews,
		},
	})
}

// ==================== 辅助函数 ====================

// queryInt 解析整型查询参数，非法值回落到默认值
func queryInt(ctx *gin.Context, key string, def int) int {
	raw := ctx.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryIDList 解析逗号分隔的 ID 列表参数，非法片段直接丢弃
func queryIDList(ctx *gin.Context, key string) []int64 {
	raw := ctx.Query(key)
	if raw == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
