package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gmb_connect_v1_202601/internal/service"
)

// ==================== AuthController 谷歌授权控制器 ====================

// AuthController 谷歌 OAuth 授权控制器
type AuthController struct {
	authService *service.AuthService
}

// NewAuthController 创建授权控制器
func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// GetAuthURL 获取授权跳转链接
// @Summary 获取谷歌授权跳转链接
// @Tags GoogleAuth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "凭证未配置"
// @Router /admin/auth/url [get]
func (c *AuthController) GetAuthURL(ctx *gin.Context) {
	authURL, err := c.authService.AuthURL(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNotConfigured) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "请先填写客户端凭证",
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
		"data": gin.H{"auth_url": authURL},
	})
}

// Callback 谷歌授权回调
// @Summary 谷歌授权回调
// @Tags GoogleAuth
// @Produce json
// @Param code query string true "授权码"
// @Param state query string true "防 CSRF 随机串"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{} "state 校验失败"
// @Router /auth/google/callback [get]
func (c *AuthController) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "缺少 code 或 state 参数",
		})
		return
	}

	if err := c.authService.HandleCallback(ctx.Request.Context(), code, state); err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			ctx.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "授权状态校验失败，请重新发起授权",
			})
			return
		}
		ctx.JSON(http.StatusBadGateway, gin.H{
			"code":    502,
			"message": "换取 Token 失败: " + err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "谷歌账号授权成功",
	})
}

// Status 查询授权状态
// @Summary 查询谷歌授权状态
// @Tags GoogleAuth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /admin/auth/status [get]
func (c *AuthController) Status(ctx *gin.Context) {
	state, err := c.authService.State(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{"state": state},
	})
}
