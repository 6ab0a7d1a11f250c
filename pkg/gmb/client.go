package gmb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// 谷歌 Business Profile 相关服务的默认地址
const (
	DefaultAccountBaseURL = "https://mybusinessaccountmanagement.googleapis.com/v1"
	DefaultInfoBaseURL    = "https://mybusinessbusinessinformation.googleapis.com/v1"
	DefaultReviewBaseURL  = "https://mybusiness.googleapis.com/v4"
)

// LocationPageSize 地点分页大小，与原接口调用保持一致
const LocationPageSize = 100

// LocationReadMask 地点字段掩码，限制每页返回的字段，降低响应体积
const LocationReadMask = "name,labels,languageCode,storeCode,title,websiteUri,metadata," +
	"latlng,categories,storefrontAddress,regularHours,specialHours,serviceArea," +
	"openInfo,profile,relationshipData,moreHours,serviceItems"

// Config 客户端配置
// 测试时把三个 BaseURL 指到 httptest 服务即可
type Config struct {
	AccountBaseURL string
	InfoBaseURL    string
	ReviewBaseURL  string
	Timeout        time.Duration
	RetryCount     int
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		AccountBaseURL: DefaultAccountBaseURL,
		InfoBaseURL:    DefaultInfoBaseURL,
		ReviewBaseURL:  DefaultReviewBaseURL,
		Timeout:        30 * time.Second, // 每页请求必须有超时上限，防止拖死触发方
		RetryCount:     0,                // 同步失败直接上报，不做静默重试
	}
}

// Client 谷歌 Business Profile API 客户端
// 底层 http.Client 由 OAuth 会话管理器提供（已带授权）
type Client struct {
	http *resty.Client
	cfg  *Config
}

// NewClient 创建客户端
// hc: 已授权的 http.Client；cfg 为 nil 时使用默认配置
func NewClient(hc *http.Client, cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := resty.NewWithClient(hc)
	c.SetTimeout(cfg.Timeout)
	c.SetRetryCount(cfg.RetryCount)

	return &Client{http: c, cfg: cfg}
}

// APIError 谷歌 API 明确拒绝的错误
// 保留 message + 明细列表，供同步结果摘要展示
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Errors     []ErrorEntry
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google api error %d: %s", e.StatusCode, e.Message)
}

// ListAccounts 列出当前授权账号可管理的 GBP 账号
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var out ListAccountsResponse

	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.cfg.AccountBaseURL + "/accounts")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}

	return out.Accounts, nil
}

// ListLocations 按页列出账号下的地点
// account: 账号资源名 "accounts/{id}"；pageToken 为空表示第一页
func (c *Client) ListLocations(ctx context.Context, account, pageToken string) (*ListLocationsResponse, error) {
	var out ListLocationsResponse

	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"readMask": LocationReadMask,
			"pageSize": strconv.Itoa(LocationPageSize),
			"orderBy":  "title",
		})
	if pageToken != "" {
		req.SetQueryParam("pageToken", pageToken)
	}

	resp, err := req.Get(c.cfg.InfoBaseURL + "/" + account + "/locations")
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ListReviews 按页列出地点下的评价
// parent: "accounts/{a}/locations/{l}"；pageToken 为空表示第一页
func (c *Client) ListReviews(ctx context.Context, parent, pageToken string) (*ListReviewsResponse, error) {
	var out ListReviewsResponse

	req := c.http.R().SetContext(ctx)
	if pageToken != "" {
		req.SetQueryParam("pageToken", pageToken)
	}

	resp, err := req.Get(c.cfg.ReviewBaseURL + "/" + parent + "/reviews")
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// decode 统一处理响应解析
// 非 200 响应按谷歌标准错误体解析成 APIError
func (c *Client) decode(resp *resty.Response, out interface{}) error {
	if resp.StatusCode() != http.StatusOK {
		apiErr := &APIError{
			StatusCode: resp.StatusCode(),
			Message:    resp.Status(),
		}

		var body errorBody
		if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
			apiErr.Message = body.Error.Message
			apiErr.Status = body.Error.Status
			apiErr.Errors = body.Error.Errors
		}

		return apiErr
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
