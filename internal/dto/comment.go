package dto

import "github.com/nsxzhou1114/lms-forum-api/internal/model"

// CommentCreateRequest 创建评论请求
type CommentCreateRequest struct {
	Content         string `json:"content" binding:"required,trimmed_len=10-10000"`
	CommentableType string `json:"commentableType" binding:"required"`
	CommentableID   uint   `json:"commentableId" binding:"required,gt=0"`
	ParentCommentID *uint  `json:"parentCommentId" binding:"omitempty,gt=0"`
}

// CommentUpdateRequest 更新评论请求
type CommentUpdateRequest struct {
	Content string `json:"content" binding:"required,trimmed_len=10-10000"`
}

// CommentTargetQuery 评论目标参数
type CommentTargetQuery struct {
	Type string `form:"type" binding:"required"`
	ID   uint   `form:"id" binding:"required,gt=0"`
}

// CommentListQuery 评论列表请求
type CommentListQuery struct {
	CommentTargetQuery
	PageQuery
}

// CommentResponse 评论响应
type CommentResponse struct {
	model.Comment
	Author       *UserBrief `json:"author"`
	RepliesCount int64      `json:"repliesCount"`
	IsLiked      bool       `json:"isLiked"`
}

// CommentCountResponse 评论数量响应
type CommentCountResponse struct {
	Count int64 `json:"count"`
}
