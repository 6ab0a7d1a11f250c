package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"gmb_connect_v1_202601/internal/model"
)

// ==================== 测试辅助 ====================

// newTokenServer 伪造谷歌 token 端点
// 每次请求返回递增的 access token，可选下发 refresh token
func newTokenServer(t *testing.T, refreshToken string) (*httptest.Server, *int) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token 端点收到 %s 请求", r.Method)
		}
		calls++

		w.Header().Set("Content-Type", "application/json")
		body := `{"access_token":"at-` + strings.Repeat("x", calls) + `","token_type":"Bearer","expires_in":3600`
		if refreshToken != "" {
			body += `,"refresh_token":"` + refreshToken + `"`
		}
		body += `}`
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func setupAuthService(t *testing.T, tokenURL string) (*AuthService, *CredentialService) {
	creds := NewCredentialService(setupSettingRepo(t), "unit-test-master-key")
	auth := NewAuthService(creds)
	auth.SetEndpoint(oauth2.Endpoint{
		AuthURL:  tokenURL + "/auth",
		TokenURL: tokenURL + "/token",
	})
	return auth, creds
}

// ==================== 单元测试 ====================

func TestAuthService_StateMachine(t *testing.T) {
	auth, creds := setupAuthService(t, "http://127.0.0.1:0")
	ctx := context.Background()

	state, err := auth.State(ctx)
	if err != nil {
		t.Fatalf("状态查询失败: %v", err)
	}
	if state != SessionUnconfigured {
		t.Errorf("state = %s, want unconfigured", state)
	}

	// 配置凭证 -> unauthorized
	if err := creds.Save(ctx, &model.CredentialSettings{ClientID: "id", ClientSecret: "secret"}); err != nil {
		t.Fatalf("保存凭证失败: %v", err)
	}
	state, _ = auth.State(ctx)
	if state != SessionUnauthorized {
		t.Errorf("state = %s, want unauthorized", state)
	}

	// 有效 token -> authorized
	if err := creds.SaveToken(ctx, &oauth2.Token{
		AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("保存 token 失败: %v", err)
	}
	state, _ = auth.State(ctx)
	if state != SessionAuthorized {
		t.Errorf("state = %s, want authorized", state)
	}

	// 过期 token -> expired
	if err := creds.SaveToken(ctx, &oauth2.Token{
		AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("保存 token 失败: %v", err)
	}
	state, _ = auth.State(ctx)
	if state != SessionExpired {
		t.Errorf("state = %s, want expired", state)
	}
}

func TestAuthService_GetClientUnconfigured(t *testing.T) {
	auth, _ := setupAuthService(t, "http://127.0.0.1:0")

	if _, err := auth.GetClient(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestAuthService_GetClientNeedsAuthorization(t *testing.T) {
	auth, creds := setupAuthService(t, "http://127.0.0.1:0")
	ctx := context.Background()

	if err := creds.Save(ctx, &model.CredentialSettings{
		ClientID: "id", ClientSecret: "secret", RedirectURI: "https://example.com/cb",
	}); err != nil {
		t.Fatalf("保存凭证失败: %v", err)
	}

	_, err := auth.GetClient(ctx)
	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthRequiredError", err)
	}
	if authErr.AuthURL == "" {
		t.Error("授权链接为空")
	}
	// offline + consent 保证下发 refresh token
	if !strings.Contains(authErr.AuthURL, "access_type=offline") {
		t.Errorf("授权链接缺少 access_type=offline: %s", authErr.AuthURL)
	}
	if !strings.Contains(authErr.AuthURL, "prompt=") {
		t.Errorf("授权链接缺少 prompt 参数: %s", authErr.AuthURL)
	}
}

func TestAuthService_GetClientRefreshesExpiredToken(t *testing.T) {
	srv, calls := newTokenServer(t, "")
	auth, creds := setupAuthService(t, srv.URL)
	ctx := context.Background()

	if err := creds.Save(ctx, &model.CredentialSettings{ClientID: "id", ClientSecret: "secret"}); err != nil {
		t.Fatalf("保存凭证失败: %v", err)
	}
	if err := creds.SaveToken(ctx, &oauth2.Token{
		AccessToken: "expired-at", RefreshToken: "rt-1", Expiry: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("保存 token 失败: %v", err)
	}

	if _, err := auth.GetClient(ctx); err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if *calls != 1 {
		t.Errorf("token 端点调用次数 = %d, want 1", *calls)
	}

	// 新 token 已持久化，且存量 refresh token 没被空响应覆盖
	loaded, err := creds.Load(ctx)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if loaded.AccessToken.AccessToken == "expired-at" {
		t.Error("过期 token 没有被刷新")
	}
	if loaded.AccessToken.RefreshToken != "rt-1" {
		t.Errorf("refresh_token = %s, want rt-1", loaded.AccessToken.RefreshToken)
	}

	state, _ := auth.State(ctx)
	if state != SessionAuthorized {
		t.Errorf("刷新后 state = %s, want authorized", state)
	}
}

func TestAuthService_GetClientExpiredNoRefreshToken(t *testing.T) {
	auth, creds := setupAuthService(t, "http://127.0.0.1:0")
	ctx := context.Background()

	if err := creds.Save(ctx, &model.CredentialSettings{ClientID: "id", ClientSecret: "secret"}); err != nil {
		t.Fatalf("保存凭证失败: %v", err)
	}
	if err := creds.SaveToken(ctx, &oauth2.Token{
		AccessToken: "expired-at", Expiry: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("保存 token 失败: %v", err)
	}

	// 没有 refresh token 只能重新授权
	_, err := auth.GetClient(ctx)
	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthRequiredError", err)
	}
}

func TestAuthService_GetClientRefreshRejected(t *testing.T) {
	// token 端点明确拒绝刷新（refresh token 已被吊销）
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	}))
	t.Cleanup(srv.Close)

	auth, creds := setupAuthService(t, srv.URL)
	ctx := context.Background()

	if err := creds.Save(ctx, &model.CredentialSettings{
		ClientID: "id", ClientSecret: "secret", RedirectURI: "https://example.com/cb",
	}); err != nil {
		t.Fatalf("保存凭证失败: %v", err)
	}
	if err := creds.SaveToken(ctx, &oauth2.Token{
		AccessToken: "expired-at", RefreshToken: "rt-revoked", Expiry: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("保存 token 失败: %v", err)
	}

	// 刷新被拒应该直接下发新授权链接，而不是裸错误
	_, err := auth.GetClient(ctx)
	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthRequiredError", err)
	}
	if authErr.AuthURL == "" {
		t.Error("授权链接为空")
	}

	// 被吊销的 token 已清掉，会话回到未授权状态
	loaded, err := creds.Load(ctx)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if loaded.AccessToken != nil {
		t.Errorf("被拒的 token 应该被清掉: %+v", loaded.AccessToken)
	}
	state, _ := auth.State(ctx)
	if state != SessionUnauthorized {
		t.Errorf("刷新被拒后 state = %s, want unauthorized", state)
	}
}

func TestAuthService_HandleCallback(t *testing.T) {
	srv, _ := newTokenServer(t, "rt-fresh")
	auth, creds := setupAuthService(t, srv.URL)
	ctx := context.Background()

	if err := creds.Save(ctx, &model.CredentialSettings{ClientID: "id", ClientSecret: "secret"}); err != nil {
		t.Fatalf("保存凭证失败: %v", err)
	}

	// state 没发过，拒绝
	if err := auth.HandleCallback(ctx, "code-1", "forged-state"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}

	// 正常流程：先拿授权链接（内部缓存 state），再回调
	authURL, err := auth.AuthURL(ctx)
	if err != nil {
		t.Fatalf("生成授权链接失败: %v", err)
	}
	state := extractQueryParam(t, authURL, "state")

	if err := auth.HandleCallback(ctx, "code-1", state); err != nil {
		t.Fatalf("回调处理失败: %v", err)
	}

	loaded, err := creds.Load(ctx)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if loaded.AccessToken == nil || loaded.AccessToken.RefreshToken != "rt-fresh" {
		t.Errorf("token 没有持久化: %+v", loaded.AccessToken)
	}

	// state 一次性使用
	if err := auth.HandleCallback(ctx, "code-2", state); !errors.Is(err, ErrInvalidState) {
		t.Errorf("重放 state 应该被拒: %v", err)
	}
}

// extractQueryParam 从 URL 里取查询参数
func extractQueryParam(t *testing.T, rawURL, key string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("解析 URL 失败: %v", err)
	}
	value := u.Query().Get(key)
	if value == "" {
		t.Fatalf("URL 缺少参数 %s: %s", key, rawURL)
	}
	return value
}
