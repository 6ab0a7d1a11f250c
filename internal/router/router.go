package router

import (
	"github.com/gin-gonic/gin"

	"gmb_connect_v1_202601/internal/controller"
	"gmb_connect_v1_202601/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	userCtl *controller.UserController,
	authCtl *controller.AuthController,
	settingsCtl *controller.SettingsController,
	locationCtl *controller.LocationController,
	reviewCtl *controller.ReviewController,
	syncCtl *controller.SyncController) {

	api := r.Group("/api")
	{
		// 免认证路由
		auth := api.Group("/auth")
		{
			// POST /api/auth/login
			auth.POST("/login", userCtl.Login)
			auth.POST("/refresh", userCtl.RefreshToken)

			// GET /api/auth/google/callback
			// 谷歌回调无法带 JWT，靠 state 随机串防伪造
			auth.GET("/google/callback", authCtl.Callback)
		}

		// 对外评价展示，给前台挂件用
		// GET /api/reviews
		api.GET("/reviews", reviewCtl.Display)

		// 后台管理路由，JWT 保护
		admin := api.Group("/admin", middleware.JWTAuth())
		{
			// 谷歌授权
			admin.GET("/auth/url", authCtl.GetAuthURL)
			admin.GET("/auth/status", authCtl.Status)

			// 设置
			settings := admin.Group("/settings")
			{
				settings.GET("/credentials", settingsCtl.GetCredentials)
				settings.PUT("/credentials", settingsCtl.SaveCredentials)
				settings.GET("/location", settingsCtl.GetLocationSettings)
				settings.PUT("/location", settingsCtl.SaveLocationSettings)
				settings.GET("/reviews", settingsCtl.GetReviewSettings)
				settings.PUT("/reviews", settingsCtl.SaveReviewSettings)
			}

			// 地点
			admin.GET("/locations", locationCtl.List)

			// 评价管理
			reviews := admin.Group("/reviews")
			{
				reviews.GET("", reviewCtl.List)
				reviews.GET("/aggregate", reviewCtl.Aggregate)
				reviews.POST("/hide", reviewCtl.Hide)
				reviews.POST("/unhide", reviewCtl.Unhide)
			}

			// 手动同步
			sync := admin.Group("/sync")
			{
				sync.POST("/reviews",
					middleware.SyncInProgress(middleware.SyncTypeReviews),
					syncCtl.SyncReviews)
				sync.POST("/locations",
					middleware.SyncInProgress(middleware.SyncTypeLocations),
					syncCtl.SyncLocations)
			}
		}
	}
}
