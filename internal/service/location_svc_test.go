package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/repository"
	"gmb_connect_v1_202601/pkg/gmb"
)

// ==================== 测试辅助 ====================

// newSyncTestDB 建一个带全部业务表的内存库
func newSyncTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Setting{}, &model.Location{}, &model.Review{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

// authorizedAuthService 准备好一个已授权的会话
func authorizedAuthService(t *testing.T, settingRepo repository.SettingRepository) *AuthService {
	creds := NewCredentialService(settingRepo, "unit-test-master-key")
	ctx := context.Background()

	if err := creds.Save(ctx, &model.CredentialSettings{ClientID: "id", ClientSecret: "secret"}); err != nil {
		t.Fatalf("保存凭证失败: %v", err)
	}
	if err := creds.SaveToken(ctx, &oauth2.Token{
		AccessToken: "test-at", RefreshToken: "test-rt", Expiry: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("保存 token 失败: %v", err)
	}

	return NewAuthService(creds)
}

// newLocationServer 伪造账号 + 地点两个谷歌端点
// pages 按 pageToken 顺序返回，token 为页下标字符串
func newLocationServer(t *testing.T, pages []gmb.ListLocationsResponse) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/accounts":
			json.NewEncoder(w).Encode(gmb.ListAccountsResponse{
				Accounts: []gmb.Account{{Name: "accounts/1", AccountName: "测试账号"}},
			})
		case strings.HasSuffix(r.URL.Path, "/locations"):
			idx := 0
			if token := r.URL.Query().Get("pageToken"); token != "" {
				idx = int(token[0] - '0')
			}
			if idx >= len(pages) {
				t.Errorf("请求了不存在的页: %d", idx)
				idx = len(pages) - 1
			}
			json.NewEncoder(w).Encode(pages[idx])
		default:
			t.Errorf("未知请求路径: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testGmbConfig(baseURL string) *gmb.Config {
	cfg := gmb.DefaultConfig()
	cfg.AccountBaseURL = baseURL
	cfg.InfoBaseURL = baseURL
	cfg.ReviewBaseURL = baseURL
	return cfg
}

// ==================== 单元测试 ====================

func TestLocationService_SyncLocations(t *testing.T) {
	db := newSyncTestDB(t)
	settingRepo := repository.NewSettingRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	srv := newLocationServer(t, []gmb.ListLocationsResponse{
		{
			Locations: []gmb.Location{
				{Name: "locations/100", Title: "总店", Metadata: &gmb.LocationMetadata{
					NewReviewURI: "https://g.page/r/abc/review",
					MapsURI:      "https://maps.google.com/?cid=100",
				}},
				{Name: "locations/200", Title: "分店"},
			},
			TotalSize: 2,
		},
	})

	svc := NewLocationService(locationRepo, authorizedAuthService(t, settingRepo), testGmbConfig(srv.URL))
	ctx := context.Background()

	locations, err := svc.SyncLocations(ctx)
	if err != nil {
		t.Fatalf("地点同步失败: %v", err)
	}
	if len(locations) != 2 {
		t.Errorf("拉到 %d 个地点, want 2", len(locations))
	}

	stored, err := locationRepo.List(ctx)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("入库 %d 行, want 2", len(stored))
	}

	found, _ := locationRepo.GetByLocationID(ctx, "100")
	if found == nil || found.Title != "总店" {
		t.Fatalf("地点 100 入库错误: %+v", found)
	}
	if found.NewReviewURI != "https://g.page/r/abc/review" {
		t.Errorf("new_review_uri = %s", found.NewReviewURI)
	}

	// 重跑是 upsert，不产生重复行
	if _, err := svc.SyncLocations(ctx); err != nil {
		t.Fatalf("重复同步失败: %v", err)
	}
	count, _ := locationRepo.Count(ctx)
	if count != 2 {
		t.Errorf("重复同步后 count = %d, want 2", count)
	}
}

func TestLocationService_SyncLocationsPaginated(t *testing.T) {
	db := newSyncTestDB(t)
	settingRepo := repository.NewSettingRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	srv := newLocationServer(t, []gmb.ListLocationsResponse{
		{
			Locations:     []gmb.Location{{Name: "locations/1", Title: "A"}, {Name: "locations/2", Title: "B"}},
			NextPageToken: "1",
			TotalSize:     3,
		},
		{
			Locations: []gmb.Location{{Name: "locations/3", Title: "C"}},
			TotalSize: 3,
		},
	})

	svc := NewLocationService(locationRepo, authorizedAuthService(t, settingRepo), testGmbConfig(srv.URL))

	locations, err := svc.SyncLocations(context.Background())
	if err != nil {
		t.Fatalf("地点同步失败: %v", err)
	}
	if len(locations) != 3 {
		t.Errorf("拉到 %d 个地点, want 3", len(locations))
	}
}

func TestLocationService_PaginationExhaustedEarly(t *testing.T) {
	db := newSyncTestDB(t)
	settingRepo := repository.NewSettingRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	// 报告总数 5 但第一页只有 2 条且没有下一页 token，必须报错
	srv := newLocationServer(t, []gmb.ListLocationsResponse{
		{
			Locations: []gmb.Location{{Name: "locations/1", Title: "A"}, {Name: "locations/2", Title: "B"}},
			TotalSize: 5,
		},
	})

	svc := NewLocationService(locationRepo, authorizedAuthService(t, settingRepo), testGmbConfig(srv.URL))

	if _, err := svc.SyncLocations(context.Background()); err == nil {
		t.Error("分页断档应该报错而不是静默截断")
	}
}

func TestLocationService_SkipsMalformedName(t *testing.T) {
	db := newSyncTestDB(t)
	settingRepo := repository.NewSettingRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	srv := newLocationServer(t, []gmb.ListLocationsResponse{
		{
			Locations: []gmb.Location{
				{Name: "locations/1", Title: "正常"},
				{Name: "bad-name", Title: "坏数据"},
			},
			TotalSize: 2,
		},
	})

	svc := NewLocationService(locationRepo, authorizedAuthService(t, settingRepo), testGmbConfig(srv.URL))

	// 坏记录跳过，整批不中断
	if _, err := svc.SyncLocations(context.Background()); err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	count, _ := locationRepo.Count(context.Background())
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
