package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/pkg/utils"
)

// GBP 授权范围，与谷歌后台配置保持一致
var gbpScopes = []string{
	"https://www.googleapis.com/auth/business.manage",
	"https://www.googleapis.com/auth/plus.business.manage",
}

// SessionState OAuth 会话状态
type SessionState string

const (
	SessionUnconfigured SessionState = "unconfigured" // 未填写 client_id/client_secret
	SessionUnauthorized SessionState = "unauthorized" // 已配置但没有 token
	SessionAuthorized   SessionState = "authorized"   // token 有效
	SessionExpired      SessionState = "expired"      // token 已过期，待刷新
)

// ErrNotConfigured 凭证未配置
// 调用方收到后不应该发起任何网络请求
var ErrNotConfigured = errors.New("oauth client not configured")

// ErrInvalidState 回调里的 state 校验失败（超时或伪造）
var ErrInvalidState = errors.New("invalid or expired oauth state")

// AuthRequiredError 需要用户重新走授权流程
// 携带授权跳转链接，由调用方引导用户访问
type AuthRequiredError struct {
	AuthURL string
}

func (e *AuthRequiredError) Error() string {
	return "authorization required, visit auth url to connect"
}

// ==================== AuthService OAuth 会话管理器 ====================

// AuthService OAuth 会话管理器
// 状态机: unconfigured -> unauthorized -> authorized -> expired
//   - expired + refresh token => 刷新后回到 authorized
//   - expired 无 refresh token => 回到 unauthorized，下发新授权链接
//
// 每次成功换取/刷新 token 都通过 CredentialService 持久化
type AuthService struct {
	creds *CredentialService

	// endpoint 默认谷歌官方端点，测试时指向 httptest 服务
	endpoint oauth2.Endpoint
}

// NewAuthService 创建会话管理器
func NewAuthService(creds *CredentialService) *AuthService {
	return &AuthService{
		creds:    creds,
		endpoint: google.Endpoint,
	}
}

// SetEndpoint 覆盖 OAuth 端点（仅测试用）
func (s *AuthService) SetEndpoint(endpoint oauth2.Endpoint) {
	s.endpoint = endpoint
}

// State 返回当前会话状态
func (s *AuthService) State(ctx context.Context) (SessionState, error) {
	creds, err := s.creds.Load(ctx)
	if err != nil {
		return "", err
	}

	switch {
	case !creds.Configured():
		return SessionUnconfigured, nil
	case creds.AccessToken == nil || creds.AccessToken.AccessToken == "":
		return SessionUnauthorized, nil
	case tokenExpired(creds.AccessToken):
		return SessionExpired, nil
	default:
		return SessionAuthorized, nil
	}
}

// GetClient 返回可直接使用的已授权 http.Client
//
// 可能的结果：
//   - ErrNotConfigured: 凭证未配置，不允许发起网络请求
//   - *AuthRequiredError: 没有 token 或刷新无望，携带新授权链接
//   - token 过期且有 refresh token: 先行刷新并持久化；
//     刷新被明确拒绝时清掉存量 token 回到未授权，同样下发授权链接
func (s *AuthService) GetClient(ctx context.Context) (*http.Client, error) {
	creds, err := s.creds.Load(ctx)
	if err != nil {
		return nil, err
	}

	if !creds.Configured() {
		return nil, ErrNotConfigured
	}

	conf := s.oauthConfig(creds)
	token := creds.AccessToken

	// 还没授权过，下发授权链接
	if token == nil || token.AccessToken == "" {
		return nil, s.authRequired(conf)
	}

	if tokenExpired(token) {
		if token.RefreshToken == "" {
			// 没有 refresh token，只能重新授权，不落库任何东西
			return nil, s.authRequired(conf)
		}

		// 刷新并持久化；谷歌明确拒绝（invalid_grant、token 被吊销）时
		// 作废存量 token 回到未授权，下发新授权链接，不再反复重试刷新
		refreshed, err := conf.TokenSource(ctx, token).Token()
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) {
				if clearErr := s.creds.ClearToken(ctx); clearErr != nil {
					return nil, clearErr
				}
				return nil, s.authRequired(conf)
			}
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}
		if err := s.creds.SaveToken(ctx, refreshed); err != nil {
			return nil, err
		}
		token = refreshed
	}

	// 包一层持久化 TokenSource：长同步过程中的自动续期也要落库
	src := &persistingTokenSource{
		ctx:   ctx,
		src:   conf.TokenSource(ctx, token),
		creds: s.creds,
		last:  token,
	}
	return oauth2.NewClient(ctx, src), nil
}

// AuthURL 生成授权跳转链接并缓存 state
func (s *AuthService) AuthURL(ctx context.Context) (string, error) {
	creds, err := s.creds.Load(ctx)
	if err != nil {
		return "", err
	}
	if !creds.Configured() {
		return "", ErrNotConfigured
	}
	return s.buildAuthURL(s.oauthConfig(creds))
}

// HandleCallback 处理谷歌授权回调，换取 token 并持久化
// 换取响应里带 error 字段时是致命授权失败，原样上报，不重试
func (s *AuthService) HandleCallback(ctx context.Context, code, state string) error {
	if _, ok := utils.GetCache(state); !ok {
		return ErrInvalidState
	}

	creds, err := s.creds.Load(ctx)
	if err != nil {
		return err
	}
	if !creds.Configured() {
		return ErrNotConfigured
	}

	token, err := s.oauthConfig(creds).Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	if err := s.creds.SaveToken(ctx, token); err != nil {
		return err
	}

	utils.DeleteCache(state)
	return nil
}

// ==================== 内部方法 ====================

func (s *AuthService) oauthConfig(creds *model.CredentialSettings) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       gbpScopes,
		Endpoint:     s.endpoint,
	}
}

func (s *AuthService) authRequired(conf *oauth2.Config) error {
	url, err := s.buildAuthURL(conf)
	if err != nil {
		return err
	}
	return &AuthRequiredError{AuthURL: url}
}

func (s *AuthService) buildAuthURL(conf *oauth2.Config) (string, error) {
	state, err := utils.GenerateRandomString(16)
	if err != nil {
		return "", err
	}
	utils.SetCache(state, "oauth_state")

	// offline + consent，保证首次授权下发 refresh token
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account consent"),
	), nil
}

// tokenExpired 过期判断，留 30 秒余量
func tokenExpired(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return false
	}
	return time.Now().After(token.Expiry.Add(-30 * time.Second))
}

// persistingTokenSource 包装 TokenSource，token 变化时写回凭证存储
type persistingTokenSource struct {
	ctx   context.Context
	src   oauth2.TokenSource
	creds *CredentialService
	last  *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	if p.last == nil || token.AccessToken != p.last.AccessToken {
		if err := p.creds.SaveToken(p.ctx, token); err != nil {
			return nil, err
		}
		p.last = token
	}

	return token, nil
}
