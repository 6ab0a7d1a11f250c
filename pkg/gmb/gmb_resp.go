package gmb

// ==========================================
// DTO: 用于接收谷歌 Business Profile API 返回的原始 JSON 数据
// ==========================================

// Account 账号资源
// GET https://mybusinessaccountmanagement.googleapis.com/v1/accounts
type Account struct {
	Name        string `json:"name"` // "accounts/{account_id}"
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

// ListAccountsResponse 账号列表响应
type ListAccountsResponse struct {
	Accounts      []Account `json:"accounts"`
	NextPageToken string    `json:"nextPageToken"`
}

// LocationMetadata 地点附加信息
type LocationMetadata struct {
	NewReviewURI string `json:"newReviewUri"`
	MapsURI      string `json:"mapsUri"`
}

// Location 地点资源
// GET https://mybusinessbusinessinformation.googleapis.com/v1/{account}/locations
type Location struct {
	Name     string            `json:"name"` // "locations/{location_id}"
	Title    string            `json:"title"`
	Metadata *LocationMetadata `json:"metadata"`
}

// ListLocationsResponse 地点列表响应
// totalSize 是服务端报告的总数，分页终止条件以它为准
type ListLocationsResponse struct {
	Locations     []Location `json:"locations"`
	NextPageToken string     `json:"nextPageToken"`
	TotalSize     int        `json:"totalSize"`
}

// Reviewer 评价人
type Reviewer struct {
	ProfilePhotoURL string `json:"profilePhotoUrl"`
	DisplayName     string `json:"displayName"`
	IsAnonymous     bool   `json:"isAnonymous"`
}

// Review 评价资源 (my business v4)
// starRating 是枚举词 ONE..FIVE，不是数字
type Review struct {
	Name       string    `json:"name"` // "accounts/{a}/locations/{l}/reviews/{r}"
	ReviewID   string    `json:"reviewId"`
	Reviewer   *Reviewer `json:"reviewer"`
	StarRating string    `json:"starRating"`
	Comment    string    `json:"comment"`
	CreateTime string    `json:"createTime"`
	UpdateTime string    `json:"updateTime"`
}

// ListReviewsResponse 评价列表响应
// GET https://mybusiness.googleapis.com/v4/{parent}/reviews
type ListReviewsResponse struct {
	Reviews          []Review `json:"reviews"`
	AverageRating    float64  `json:"averageRating"`
	TotalReviewCount int      `json:"totalReviewCount"`
	NextPageToken    string   `json:"nextPageToken"`
}

// ==========================================
// 错误响应
// ==========================================

// ErrorEntry 谷歌错误响应里的单条错误明细
type ErrorEntry struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// errorBody 谷歌标准错误响应外层
type errorBody struct {
	Error struct {
		Code    int          `json:"code"`
		Message string       `json:"message"`
		Status  string       `json:"status"`
		Errors  []ErrorEntry `json:"errors"`
	} `json:"error"`
}
