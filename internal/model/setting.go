package model

import (
	"gorm.io/datatypes"
	"golang.org/x/oauth2"
)

// 设置分组 Key 常量
const (
	SettingKeyCredentials = "credentials"
	SettingKeyLocations   = "locations"
	SettingKeyReviews     = "reviews"
)

// 同步频率枚举
const (
	FrequencyHourly        = "hourly"
	FrequencyTwiceDaily    = "twicedaily"
	FrequencyDaily         = "daily"
	FrequencyWeekly        = "weekly"
	FrequencyEveryTwoWeeks = "every_two_weeks"
	FrequencyMonthly       = "monthly"
)

// Setting 设置 KV 表
// Value 存 JSON，按 Key 反序列化为下面的强类型结构体，
// 业务代码不直接操作裸 map
type Setting struct {
	BaseModel
	Key   string         `gorm:"uniqueIndex;size:64;not null" json:"key"`
	Value datatypes.JSON `gorm:"not null" json:"value"`
}

// ==================== 强类型设置结构体 ====================

// CredentialSettings 谷歌 OAuth 客户端凭证
// ClientID / ClientSecret 落库前必须加密（密文::nonce 信封格式），
// RedirectURI 和 AccessToken 明文存储
type CredentialSettings struct {
	ClientID     string        `json:"client_id"`
	ClientSecret string        `json:"client_secret"`
	RedirectURI  string        `json:"redirect_uri"`
	AccessToken  *oauth2.Token `json:"access_token,omitempty"`
}

// Configured 是否已填写客户端凭证
func (c *CredentialSettings) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// LocationSettings 地点相关设置
// LocationName 存被选中地点的资源路径，如 "locations/123456789"
type LocationSettings struct {
	LocationName string `json:"location_name"`
	RatingMin    int    `json:"rating_min"`
	ReviewsMax   int    `json:"reviews_max"`
}

// ReviewSettings 评价同步设置与聚合指标
// 聚合字段由同步任务在每次成功后整体覆盖
type ReviewSettings struct {
	UpdateFrequency  string  `json:"update_frequency"`
	AverageRating    float64 `json:"average_rating"`
	TotalReviewCount int     `json:"total_review_count"`
	LastSyncedOn     string  `json:"last_synced_on"`
}

// ValidFrequency 校验同步频率取值
func ValidFrequency(freq string) bool {
	switch freq {
	case FrequencyHourly, FrequencyTwiceDaily, FrequencyDaily,
		FrequencyWeekly, FrequencyEveryTwoWeeks, FrequencyMonthly:
		return true
	}
	return false
}
