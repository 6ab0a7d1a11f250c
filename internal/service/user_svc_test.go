package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmb_connect_v1_202601/internal/api/dto"
	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/repository"
)

// ==================== 测试辅助 ====================

func setupUserService(t *testing.T) (*UserService, repository.UserRepository) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.SysUser{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	return NewUserService(userRepo), userRepo
}

func createTestUser(t *testing.T, userRepo repository.UserRepository, username, password string, active bool) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	err = userRepo.Create(context.Background(), &model.SysUser{
		Username: username,
		Password: string(hash),
		Role:     model.RoleAdmin,
		IsActive: active,
	})
	if err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
}

// ==================== 单元测试 ====================

func TestUserService_Login(t *testing.T) {
	svc, userRepo := setupUserService(t)
	createTestUser(t, userRepo, "admin", "正确密码", true)
	ctx := context.Background()

	resp, err := svc.Login(ctx, &dto.LoginRequest{Username: "admin", Password: "正确密码"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("登录成功但没有下发 token")
	}
	if resp.User == nil || resp.User.Username != "admin" {
		t.Errorf("user = %+v", resp.User)
	}

	// 最后登录时间已更新
	user, _ := userRepo.GetByUsername(ctx, "admin")
	if user.LastLoginAt == nil {
		t.Error("last_login_at 没有更新")
	}
}

func TestUserService_LoginWrongPassword(t *testing.T) {
	svc, userRepo := setupUserService(t)
	createTestUser(t, userRepo, "admin", "正确密码", true)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "错误密码"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}

	// 不存在的用户与密码错误返回同一个错误，不泄露用户是否存在
	_, err = svc.Login(context.Background(), &dto.LoginRequest{Username: "nobody", Password: "x"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestUserService_LoginDisabled(t *testing.T) {
	svc, userRepo := setupUserService(t)
	createTestUser(t, userRepo, "admin", "密码", false)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "密码"})
	if !errors.Is(err, ErrUserDisabled) {
		t.Errorf("err = %v, want ErrUserDisabled", err)
	}
}

func TestUserService_RefreshToken(t *testing.T) {
	svc, userRepo := setupUserService(t)
	createTestUser(t, userRepo, "admin", "密码", true)
	ctx := context.Background()

	resp, err := svc.Login(ctx, &dto.LoginRequest{Username: "admin", Password: "密码"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	refreshed, err := svc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("刷新后没有下发 access token")
	}

	// access token 不能当 refresh token 用
	if _, err := svc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.AccessToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}

	// 伪造 token
	if _, err := svc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: "garbage"}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestUserService_EnsureAdmin(t *testing.T) {
	svc, userRepo := setupUserService(t)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "admin", "bootstrap-pass"); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	user, _ := userRepo.GetByUsername(ctx, "admin")
	if user == nil || user.Role != model.RoleAdmin || !user.IsActive {
		t.Fatalf("默认管理员创建错误: %+v", user)
	}

	// 已有账号时不重复创建
	if err := svc.EnsureAdmin(ctx, "admin2", "other"); err != nil {
		t.Fatalf("二次调用失败: %v", err)
	}
	count, _ := userRepo.Count(ctx)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	// 能用初始化密码登录
	if _, err := svc.Login(ctx, &dto.LoginRequest{Username: "admin", Password: "bootstrap-pass"}); err != nil {
		t.Errorf("初始化密码登录失败: %v", err)
	}
}
