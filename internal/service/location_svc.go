package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/repository"
	"gmb_connect_v1_202601/pkg/gmb"
)

// ErrNoAccounts 授权账号下没有任何 GBP 账号
var ErrNoAccounts = errors.New("no business accounts available")

// ==================== LocationService 地点同步 ====================

// LocationService 地点同步服务
// 分页拉取地点列表，按 location_id 幂等 upsert 入库
type LocationService struct {
	locationRepo repository.LocationRepository
	auth         *AuthService
	gmbCfg       *gmb.Config
}

// NewLocationService 创建地点同步服务
// gmbCfg 为 nil 时使用谷歌官方端点
func NewLocationService(locationRepo repository.LocationRepository, auth *AuthService, gmbCfg *gmb.Config) *LocationService {
	return &LocationService{
		locationRepo: locationRepo,
		auth:         auth,
		gmbCfg:       gmbCfg,
	}
}

// SyncLocations 执行一次完整的地点同步
// 1. 要求会话已授权，否则原样返回配置/授权错误
// 2. 取账号列表的第一个账号（单账号假设，见下）
// 3. 按 totalSize 分页拉完所有地点
// 4. 逐条 upsert；重复执行不产生重复行
//
// 返回拉到的完整地点列表，评价同步也依赖这个方法
func (s *LocationService) SyncLocations(ctx context.Context) ([]gmb.Location, error) {
	hc, err := s.auth.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	client := gmb.NewClient(hc, s.gmbCfg)

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	// 已知限制：每个部署只支持一个 GBP 账号，永远取第一个
	account := accounts[0]

	locations, err := s.fetchAllLocations(ctx, client, account.Name)
	if err != nil {
		return nil, err
	}

	skipped := 0
	for i := range locations {
		if err := s.upsertLocation(ctx, &locations[i]); err != nil {
			// 单条数据问题不中断整批，记录后继续
			log.Printf("[Sync] 地点 %q 入库失败: %v", locations[i].Name, err)
			skipped++
		}
	}
	if skipped > 0 {
		log.Printf("[Sync] 地点同步完成，共 %d 条，跳过 %d 条", len(locations), skipped)
	}

	return locations, nil
}

// ==================== 内部方法 ====================

// fetchAllLocations 按页累积直到数量达到服务端报告的 totalSize
// 页没拉够却没有下一页 token 属于异常状态，必须报错而不是静默截断
func (s *LocationService) fetchAllLocations(ctx context.Context, client *gmb.Client, account string) ([]gmb.Location, error) {
	resp, err := client.ListLocations(ctx, account, "")
	if err != nil {
		return nil, err
	}

	locations := resp.Locations
	for len(locations) < resp.TotalSize {
		if resp.NextPageToken == "" {
			return nil, fmt.Errorf("location pagination exhausted early: got %d of %d", len(locations), resp.TotalSize)
		}

		resp, err = client.ListLocations(ctx, account, resp.NextPageToken)
		if err != nil {
			return nil, err
		}
		if len(resp.Locations) == 0 {
			return nil, fmt.Errorf("location pagination stalled: got %d of %d", len(locations), resp.TotalSize)
		}
		locations = append(locations, resp.Locations...)
	}

	return locations, nil
}

// upsertLocation 按 location_id 插入或更新单个地点
func (s *LocationService) upsertLocation(ctx context.Context, loc *gmb.Location) error {
	locationID, err := resourceID(loc.Name)
	if err != nil {
		return err
	}

	var newReviewURI, mapsURI string
	if loc.Metadata != nil {
		newReviewURI = loc.Metadata.NewReviewURI
		mapsURI = loc.Metadata.MapsURI
	}

	existing, err := s.locationRepo.GetByLocationID(ctx, locationID)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.Name = loc.Name
		existing.Title = loc.Title
		existing.NewReviewURI = newReviewURI
		existing.MapsURI = mapsURI
		return s.locationRepo.Update(ctx, existing)
	}

	return s.locationRepo.Create(ctx, &model.Location{
		LocationID:   locationID,
		Name:         loc.Name,
		Title:        loc.Title,
		NewReviewURI: newReviewURI,
		MapsURI:      mapsURI,
	})
}

// resourceID 取资源名最后一段，如 "locations/123" -> "123"
func resourceID(name string) (string, error) {
	idx := strings.LastIndex(name, "/")
	if idx < 0 || idx == len(name)-1 {
		return "", fmt.Errorf("malformed resource name: %q", name)
	}
	return name[idx+1:], nil
}
