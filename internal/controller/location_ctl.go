package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gmb_connect_v1_202601/internal/repository"
	"gmb_connect_v1_202601/internal/service"
)

// ==================== LocationController 地点控制器 ====================

// LocationController 地点控制器
type LocationController struct {
	locationRepo    repository.LocationRepository
	locationService *service.LocationService
}

// NewLocationController 创建地点控制器
func NewLocationController(locationRepo repository.LocationRepository, locationService *service.LocationService) *LocationController {
	return &LocationController{
		locationRepo:    locationRepo,
		locationService: locationService,
	}
}

// List 地点列表
// 本地表为空时先从谷歌拉一次再返回，供设置页的地点下拉框使用
// @Summary 地点列表
// @Tags Location
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{} "需要重新授权"
// @Router /admin/locations [get]
func (c *LocationController) List(ctx *gin.Context) {
	locations, err := c.locationRepo.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	if len(locations) == 0 {
		if _, err := c.locationService.SyncLocations(ctx.Request.Context()); err != nil {
			respondSyncError(ctx, err)
			return
		}

		locations, err = c.locationRepo.List(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{
				"code":    500,
				"message": err.Error(),
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"total": len(locations),
			"list":  locations,
		},
	})
}

// ==================== 共享错误处理 ====================

// respondSyncError 把同步链路上的错误翻译成 HTTP 响应
// 授权类错误带上跳转链接，引导管理员重新授权
func respondSyncError(ctx *gin.Context, err error) {
	var authErr *service.AuthRequiredError
	if errors.As(err, &authErr) {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "谷歌授权已失效，请重新授权",
			"data":    gin.H{"auth_url": authErr.AuthURL},
		})
		return
	}

	if errors.Is(err, service.ErrNotConfigured) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请先填写客户端凭证",
		})
		return
	}

	if errors.Is(err, service.ErrNoLocationSelected) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "请先在设置中选择一个地点",
		})
		return
	}

	var syncErr *service.SyncError
	if errors.As(err, &syncErr) {
		ctx.JSON(http.StatusBadGateway, gin.H{
			"code":    502,
			"message": syncErr.Message,
			"data":    gin.H{"errors": syncErr.Entries},
		})
		return
	}

	ctx.JSON(http.StatusInternalServerError, gin.H{
		"code":    500,
		"message": err.Error(),
	})
}
