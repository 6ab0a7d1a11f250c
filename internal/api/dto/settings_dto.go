package dto

// CredentialsRequest 凭证表单
// 前端允许提交已经加密的值（编辑时原样回传），服务端幂等处理
type CredentialsRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
	RedirectURI  string `json:"redirect_uri" binding:"required"`
}

// LocationSettingsRequest 地点设置表单
type LocationSettingsRequest struct {
	LocationName string `json:"location_name" binding:"required"`
	RatingMin    int    `json:"rating_min" binding:"omitempty,min=1,max=5"`
	ReviewsMax   int    `json:"reviews_max" binding:"omitempty,min=1"`
}

// ReviewSettingsRequest 评价设置表单
type ReviewSettingsRequest struct {
	UpdateFrequency string `json:"update_frequency" binding:"required"`
}

// HideReviewsRequest 批量隐藏/取消隐藏
type HideReviewsRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}
