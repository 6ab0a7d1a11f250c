package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gmb_connect_v1_202601/internal/api/dto"
	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/service"
)

// ==================== SettingsController 设置控制器 ====================

// SettingsController 插件设置控制器
type SettingsController struct {
	credService     *service.CredentialService
	settingsService *service.SettingsService
}

// NewSettingsController 创建设置控制器
func NewSettingsController(credService *service.CredentialService, settingsService *service.SettingsService) *SettingsController {
	return &SettingsController{
		credService:     credService,
		settingsService: settingsService,
	}
}

// ==================== 凭证 ====================

// GetCredentials 获取客户端凭证
// 回显落库原文（密文形态），表单原样回传时服务端幂等跳过二次加密
// @Summary 获取客户端凭证
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /admin/settings/credentials [get]
func (c *SettingsController) GetCredentials(ctx *gin.Context) {
	creds, err := c.credService.LoadStored(ctx.Request.Context())
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
			"client_id":     creds.ClientID,
			"client_secret": creds.ClientSecret,
			"redirect_uri":  creds.RedirectURI,
			"configured":    creds.Configured(),
			"authorized":    creds.AccessToken != nil,
		},
	})
}

// SaveCredentials 保存客户端凭证
// @Summary 保存客户端凭证
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CredentialsRequest true "凭证信息"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/settings/credentials [put]
func (c *SettingsController) SaveCredentials(ctx *gin.Context) {
	var req dto.CredentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	creds := &model.CredentialSettings{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
	}
	if err := c.credService.Save(ctx.Request.Context(), creds); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "凭证保存成功",
	})
}

// ==================== 地点设置 ====================

// GetLocationSettings 获取地点设置
// @Summary 获取地点设置
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.LocationSettings
// @Router /admin/settings/location [get]
func (c *SettingsController) GetLocationSettings(ctx *gin.Context) {
	settings, err := c.settingsService.GetLocationSettings(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": settings,
	})
}

// SaveLocationSettings 保存地点设置
// 切换选中地点会清空本地地点表和评价表
// @Summary 保存地点设置
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.LocationSettingsRequest true "地点设置"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/settings/location [put]
func (c *SettingsController) SaveLocationSettings(ctx *gin.Context) {
	var req dto.LocationSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	settings := &model.LocationSettings{
		LocationName: req.LocationName,
		RatingMin:    req.RatingMin,
		ReviewsMax:   req.ReviewsMax,
	}
	if err := c.settingsService.SaveLocationSettings(ctx.Request.Context(), settings); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "地点设置保存成功",
	})
}

// ==================== 评价设置 ====================

// GetReviewSettings 获取评价设置（含聚合指标）
// @Summary 获取评价设置
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ReviewSettings
// @Router /admin/settings/reviews [get]
func (c *SettingsController) GetReviewSettings(ctx *gin.Context) {
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
		"data": settings,
	})
}

// SaveReviewSettings 保存评价设置
// 频率变化会同步调整定时任务调度
// @Summary 保存评价设置
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ReviewSettingsRequest true "评价设置"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/settings/reviews [put]
func (c *SettingsController) SaveReviewSettings(ctx *gin.Context) {
	var req dto.ReviewSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	settings := &model.ReviewSettings{UpdateFrequency: req.UpdateFrequency}
	if err := c.settingsService.SaveReviewSettings(ctx.Request.Context(), settings); err != nil {
		if errors.Is(err, service.ErrInvalidFrequency) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的同步频率",
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
		"code":    0,
		"message": "评价设置保存成功",
	})
}
