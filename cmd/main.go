package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gmb_connect_v1_202601/internal/controller"
	"gmb_connect_v1_202601/internal/middleware"
	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/repository"
	"gmb_connect_v1_202601/internal/router"
	"gmb_connect_v1_202601/internal/service"
	"gmb_connect_v1_202601/internal/task"
	"gmb_connect_v1_202601/pkg/database"
	"gmb_connect_v1_202601/pkg/gmb"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化 JWT 配置
	initJWT()

	// 3. 初始化依赖
	deps := initDependencies(db)

	// 4. 初始化默认管理员
	initAdmin(deps)

	// 5. 启动定时任务
	syncTask := initTasks(deps)
	defer syncTask.Stop()

	// 6. 初始化路由
	r := gin.Default()
	router.InitRoutes(r,
		deps.Controllers.User,
		deps.Controllers.Auth,
		deps.Controllers.Settings,
		deps.Controllers.Location,
		deps.Controllers.Review,
		deps.Controllers.Sync,
	)

	// 7. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Setting  repository.SettingRepository
	Location repository.LocationRepository
	Review   repository.ReviewRepository
	User     repository.UserRepository
}

// Services 服务集合
type Services struct {
	Credential *service.CredentialService
	Auth       *service.AuthService
	Location   *service.LocationService
	Review     *service.ReviewService
	Settings   *service.SettingsService
	User       *service.UserService
}

// Controllers 控制器集合
type Controllers struct {
	User     *controller.UserController
	Auth     *controller.AuthController
	Settings *controller.SettingsController
	Location *controller.LocationController
	Review   *controller.ReviewController
	Sync     *controller.SyncController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		&database.Config{
			Driver: getEnv("DB_DRIVER", "postgres"),
			DSN: getEnv("DB_DSN",
				"host=localhost user=postgres password=postgres dbname=gmb_connect port=5432 sslmode=disable"),
		},
		&model.SysUser{},
		&model.Setting{},
		&model.Location{},
		&model.Review{},
	)
}

// initJWT 初始化 JWT 配置
func initJWT() {
	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		log.Println("警告: 未设置 JWT_SECRET，使用默认密钥（仅限本地开发）")
		return
	}

	cfg := middleware.DefaultJWTConfig()
	cfg.SecretKey = secret
	middleware.SetJWTConfig(cfg)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Setting:  repository.NewSettingRepository(db),
		Location: repository.NewLocationRepository(db),
		Review:   repository.NewReviewRepository(db),
		User:     repository.NewUserRepository(db),
	}

	// -------- Service 层 --------
	masterKey := getEnv("GMBC_MASTER_KEY", "")
	if masterKey == "" {
		log.Fatal("必须设置 GMBC_MASTER_KEY 环境变量（凭证加密主密钥）")
	}

	gmbCfg := gmb.DefaultConfig()

	services := &Services{}
	services.Credential = service.NewCredentialService(repos.Setting, masterKey)
	services.Auth = service.NewAuthService(services.Credential)
	services.Location = service.NewLocationService(repos.Location, services.Auth, gmbCfg)
	services.Review = service.NewReviewService(repos.Review, repos.Setting, services.Location, services.Auth, gmbCfg)
	services.Settings = service.NewSettingsService(repos.Setting, repos.Review, repos.Location)
	services.User = service.NewUserService(repos.User)

	// -------- Controller 层 --------
	controllers := &Controllers{
		User:     controller.NewUserController(services.User),
		Auth:     controller.NewAuthController(services.Auth),
		Settings: controller.NewSettingsController(services.Credential, services.Settings),
		Location: controller.NewLocationController(repos.Location, services.Location),
		Review:   controller.NewReviewController(repos.Review, services.Settings),
		Sync:     controller.NewSyncController(services.Review, services.Location),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initAdmin 初始化默认管理员账号
func initAdmin(deps *Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	username := getEnv("ADMIN_USERNAME", "admin")
	password := getEnv("ADMIN_PASSWORD", "")
	if password == "" {
		log.Println("警告: 未设置 ADMIN_PASSWORD，跳过默认管理员初始化")
		return
	}

	if err := deps.Services.User.EnsureAdmin(ctx, username, password); err != nil {
		log.Fatalf("默认管理员初始化失败: %v", err)
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) *task.ReviewSyncTask {
	syncTask := task.NewReviewSyncTask(deps.Services.Review, deps.Services.Settings)

	// 频率变更后由设置服务回调重建调度
	deps.Services.Settings.SetRescheduler(syncTask)

	if err := syncTask.Start(); err != nil {
		log.Fatalf("无法启动评价同步定时任务: %v", err)
	}

	log.Println("定时任务已启动")
	return syncTask
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// getEnv 读取环境变量，不存在时返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
