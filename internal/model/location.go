package model

// Location 已同步的 GBP 地点
// 数据完全由同步任务维护，单条记录不允许删除，只能整表清空（见 LocationRepository.Truncate）
type Location struct {
	BaseModel
	// LocationID 谷歌平台的地点 ID，即资源名 "locations/{id}" 中最后一段
	LocationID string `gorm:"uniqueIndex;size:64;not null" json:"location_id"`
	// Name 完整资源路径，如 "locations/123456789"
	Name string `gorm:"size:255;not null" json:"name"`
	// Title 商户展示名称
	Title string `gorm:"size:255" json:"title"`
	// NewReviewURI 用户撰写新评价的跳转链接
	NewReviewURI string `gorm:"size:512" json:"new_review_uri"`
	// MapsURI 谷歌地图链接
	MapsURI string `gorm:"size:512" json:"maps_uri"`
}
