package model

import "time"

// 星级常量
// 谷歌 API 返回枚举词 ONE..FIVE，入库前统一转为 1..5 整数
const (
	StarRatingMin = 1
	StarRatingMax = 5
)

// Review 已同步的 GBP 评价
// 同步任务只负责内容字段（comment/star_rating/update_time/reviewer 信息），
// IsHidden 是本地管理字段，同步过程永远不碰它
type Review struct {
	BaseModel
	// ReviewID 谷歌平台的评价 ID
	ReviewID string `gorm:"uniqueIndex;size:128;not null" json:"review_id"`
	// EndpointName 完整资源路径 "accounts/{a}/locations/{l}/reviews/{r}"
	EndpointName string `gorm:"size:512;not null" json:"endpoint_name"`
	// Comment 评价正文，谷歌侧允许纯打分不留言，所以可空
	Comment *string `gorm:"type:text" json:"comment"`
	// StarRating 1-5 星
	StarRating int `gorm:"not null;index" json:"star_rating"`
	// UpdateTime 评价在谷歌侧最后更新时间
	UpdateTime time.Time `gorm:"index" json:"update_time"`
	// ReviewerDisplayName 评价人昵称
	ReviewerDisplayName string `gorm:"size:255" json:"reviewer_display_name"`
	// ProfilePhotoURL 评价人头像
	ProfilePhotoURL string `gorm:"size:512" json:"profile_photo_url"`
	// IsHidden 管理员手动隐藏标记，仅本地维护
	IsHidden bool `gorm:"not null;default:false;index" json:"is_hidden"`
}
