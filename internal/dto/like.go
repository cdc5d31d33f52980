package dto

// ToggleLikeRequest 点赞/取消点赞请求
type ToggleLikeRequest struct {
	Type string `json:"type" binding:"required"`
	ID   uint   `json:"id" binding:"required,gt=0"`
}

// LikeCheckRequest 批量查询点赞状态请求
type LikeCheckRequest struct {
	Type string `json:"type" binding:"required"`
	IDs  []uint `json:"ids" binding:"dive,gt=0"`
}

// ToggleLikeResponse 点赞结果
type ToggleLikeResponse struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}
