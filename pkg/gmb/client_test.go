package gmb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ==================== 测试辅助 ====================

// newTestClient 把三个 BaseURL 都指到同一个 httptest 服务
func newTestClient(srv *httptest.Server) *Client {
	cfg := &Config{
		AccountBaseURL: srv.URL,
		InfoBaseURL:    srv.URL,
		ReviewBaseURL:  srv.URL,
		Timeout:        5 * time.Second,
	}
	return NewClient(srv.Client(), cfg)
}

// ==================== 账号列表 ====================

func TestClient_ListAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accounts":[{"name":"accounts/100","accountName":"测试账号","type":"PERSONAL"}]}`))
	}))
	defer srv.Close()

	accounts, err := newTestClient(srv).ListAccounts(context.Background())
	assert.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, "accounts/100", accounts[0].Name)
	assert.Equal(t, "测试账号", accounts[0].AccountName)
}

// ==================== 地点分页参数 ====================

func TestClient_ListLocationsQueryParams(t *testing.T) {
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"locations":[{"name":"locations/1","title":"店铺一"}],"totalSize":1}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)

	// 第一页不带 pageToken
	resp, err := client.ListLocations(context.Background(), "accounts/100", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, resp.TotalSize)
	assert.Equal(t, LocationReadMask, gotQuery["readMask"][0])
	assert.Equal(t, "100", gotQuery["pageSize"][0])
	assert.Equal(t, "title", gotQuery["orderBy"][0])
	assert.Empty(t, gotQuery["pageToken"])

	// 后续页带 pageToken
	_, err = client.ListLocations(context.Background(), "accounts/100", "tok-2")
	assert.NoError(t, err)
	assert.Equal(t, "tok-2", gotQuery["pageToken"][0])
}

// ==================== 评价分页参数 ====================

func TestClient_ListReviewsPageToken(t *testing.T) {
	var gotPath string
	var gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("pageToken")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reviews":[{"reviewId":"rv-1","starRating":"FIVE"}],"averageRating":4.8,"totalReviewCount":12,"nextPageToken":"tok-next"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).ListReviews(context.Background(), "accounts/100/locations/1", "tok-1")
	assert.NoError(t, err)
	assert.Equal(t, "/accounts/100/locations/1/reviews", gotPath)
	assert.Equal(t, "tok-1", gotToken)
	assert.Equal(t, 4.8, resp.AverageRating)
	assert.Equal(t, 12, resp.TotalReviewCount)
	assert.Equal(t, "tok-next", resp.NextPageToken)
	assert.Equal(t, "FIVE", resp.Reviews[0].StarRating)
}

// ==================== 错误响应解析 ====================

func TestClient_DecodeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED","errors":[{"domain":"global","reason":"forbidden","message":"Forbidden"}]}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListAccounts(context.Background())
	assert.Error(t, err)

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr), "错误类型应为 APIError")
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.Status)
	assert.Equal(t, "The caller does not have permission", apiErr.Message)
	assert.Len(t, apiErr.Errors, 1)
	assert.Equal(t, "forbidden", apiErr.Errors[0].Reason)
}

// ==================== 非标准错误体 ====================

func TestClient_DecodeAPIErrorFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broken"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListAccounts(context.Background())

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	// 非 JSON 错误体时退回 HTTP 状态行
	assert.NotEmpty(t, apiErr.Message)
}
