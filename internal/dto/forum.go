package dto

import "github.com/nsxzhou1114/lms-forum-api/internal/model"

// CategoryCreateRequest 创建分类请求
type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required,trimmed_len=2-50"`
	Slug        string `json:"slug" binding:"omitempty,max=80"`
	Description string `json:"description" binding:"max=500"`
	Icon        string `json:"icon" binding:"omitempty,max=255"`
	Color       string `json:"color" binding:"omitempty,max=20"`
	OrderIndex  int    `json:"orderIndex"`
}

// TopicCreateRequest 创建主题请求
type TopicCreateRequest struct {
	Title      string   `json:"title" binding:"required,trimmed_len=10-200"`
	Content    string   `json:"content" binding:"required,trimmed_len=20-10000"`
	CategoryID uint     `json:"categoryId" binding:"required,gt=0"`
	Tags       []string `json:"tags" binding:"omitempty,dive,trimmed_len=2-30"`
}

// TopicUpdateRequest 更新主题请求，未出现的字段保持不变；tags为空数组表示清空标签
type TopicUpdateRequest struct {
	Title      *string  `json:"title" binding:"omitempty,trimmed_len=10-200"`
	Content    *string  `json:"content" binding:"omitempty,trimmed_len=20-10000"`
	CategoryID *uint    `json:"categoryId" binding:"omitempty,gt=0"`
	Tags       []string `json:"tags" binding:"omitempty,dive,trimmed_len=2-30"`
}

// TopicSearchQuery 主题搜索请求
type TopicSearchQuery struct {
	Q        string `form:"q" binding:"required,trimmed_len=1-100"`
	Category string `form:"category"`
	Tags     string `form:"tags"`
	PageQuery
}

// PinRequest 置顶请求
type PinRequest struct {
	IsPinned *bool `json:"isPinned" binding:"required"`
}

// LockRequest 锁定请求
type LockRequest struct {
	IsLocked *bool `json:"isLocked" binding:"required"`
}

// TopicResponse 主题响应
type TopicResponse struct {
	model.ForumTopic
	Author  *UserBrief `json:"author"`
	IsLiked bool       `json:"isLiked"`
}

// PostCreateRequest 创建回帖请求
type PostCreateRequest struct {
	TopicID   uint   `json:"topicId" binding:"required,gt=0"`
	Content   string `json:"content" binding:"required,trimmed_len=10-10000"`
	ReplyToID *uint  `json:"replyToId" binding:"omitempty,gt=0"`
}

// PostUpdateRequest 更新回帖请求
type PostUpdateRequest struct {
	Content string `json:"content" binding:"required,trimmed_len=10-10000"`
}

// PostResponse 回帖响应
type PostResponse struct {
	model.ForumPost
	Author       *UserBrief `json:"author"`
	RepliesCount int64      `json:"repliesCount"`
	IsLiked      bool       `json:"isLiked"`
}
