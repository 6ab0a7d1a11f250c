package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"gmb_connect_v1_202601/internal/model"
	"gmb_connect_v1_202601/internal/repository"
	"gmb_connect_v1_202601/pkg/utils"
)

// ErrCredentialsCorrupt 凭证解密失败
// 属于致命配置错误，直接上报给调用方，不重试
var ErrCredentialsCorrupt = errors.New("credentials corrupt")

// ==================== CredentialService 凭证存储 ====================

// CredentialService 凭证存储服务
// client_id / client_secret 落库前用进程级主密钥做 AES-GCM 加密，
// redirect_uri 和 access_token 明文存储。
// Save / SaveToken 共用一把锁，保证表单保存和 Token 刷新不会互相覆盖
type CredentialService struct {
	settingRepo repository.SettingRepository
	masterKey   []byte
	mu          sync.Mutex
}

// NewCredentialService 创建凭证存储服务
// masterKeyMaterial: 任意长度的密钥素材（来自环境变量），内部派生 AES-256 密钥
func NewCredentialService(settingRepo repository.SettingRepository, masterKeyMaterial string) *CredentialService {
	return &CredentialService{
		settingRepo: settingRepo,
		masterKey:   utils.DeriveKey(masterKeyMaterial),
	}
}

// Save 加密并保存凭证
// 已经是信封格式的值原样放行，保证重复提交表单不会二次加密
func (s *CredentialService) Save(ctx context.Context, creds *model.CredentialSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := &model.CredentialSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyCredentials, stored); err != nil &&
		!errors.Is(err, repository.ErrSettingNotFound) {
		return err
	}

	sanitized, err := s.sanitize(creds)
	if err != nil {
		return err
	}

	// 表单不带 token，保留现有 token，避免保存设置把授权弄丢
	if sanitized.AccessToken == nil {
		sanitized.AccessToken = stored.AccessToken
	}

	return s.settingRepo.Put(ctx, model.SettingKeyCredentials, sanitized)
}

// Load 读取并解密凭证
// 设置不存在时返回空结构体（字段全为空串），不报错
func (s *CredentialService) Load(ctx context.Context) (*model.CredentialSettings, error) {
	creds := &model.CredentialSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyCredentials, creds); err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return &model.CredentialSettings{}, nil
		}
		return nil, err
	}

	var err error
	if creds.ClientID, err = s.decryptField(creds.ClientID); err != nil {
		return nil, err
	}
	if creds.ClientSecret, err = s.decryptField(creds.ClientSecret); err != nil {
		return nil, err
	}

	return creds, nil
}

// LoadStored 读取落库原文（密文形态），供设置表单回显
// 表单把密文原样提交回来时 Save 的幂等处理会放行
func (s *CredentialService) LoadStored(ctx context.Context) (*model.CredentialSettings, error) {
	creds := &model.CredentialSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyCredentials, creds); err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return &model.CredentialSettings{}, nil
		}
		return nil, err
	}
	return creds, nil
}

// SaveToken 持久化 OAuth Token
// 谷歌只在首次授权下发 refresh token，后续刷新响应里没有它，
// 所以存量 refresh token 绝不能被空值覆盖
func (s *CredentialService) SaveToken(ctx context.Context, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := &model.CredentialSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyCredentials, stored); err != nil &&
		!errors.Is(err, repository.ErrSettingNotFound) {
		return err
	}

	if token.RefreshToken == "" && stored.AccessToken != nil {
		token.RefreshToken = stored.AccessToken.RefreshToken
	}
	stored.AccessToken = token

	return s.settingRepo.Put(ctx, model.SettingKeyCredentials, stored)
}

// ClearToken 作废已存的 OAuth Token
// 刷新被谷歌明确拒绝后调用，让会话回到未授权状态重新走授权流程
func (s *CredentialService) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := &model.CredentialSettings{}
	if err := s.settingRepo.Get(ctx, model.SettingKeyCredentials, stored); err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return nil
		}
		return err
	}

	stored.AccessToken = nil
	return s.settingRepo.Put(ctx, model.SettingKeyCredentials, stored)
}

// ==================== 内部方法 ====================

// sanitize 生成加密后的落库副本，不改动入参
func (s *CredentialService) sanitize(creds *model.CredentialSettings) (*model.CredentialSettings, error) {
	out := *creds

	var err error
	if out.ClientID, err = s.encryptField(out.ClientID); err != nil {
		return nil, err
	}
	if out.ClientSecret, err = s.encryptField(out.ClientSecret); err != nil {
		return nil, err
	}

	return &out, nil
}

func (s *CredentialService) encryptField(value string) (string, error) {
	if value == "" || utils.IsEncrypted(value) {
		return value, nil
	}
	return utils.EncryptString(value, s.masterKey)
}

func (s *CredentialService) decryptField(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	plain, err := utils.DecryptString(value, s.masterKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialsCorrupt, err)
	}
	return plain, nil
}
