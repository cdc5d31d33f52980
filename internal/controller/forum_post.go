package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/middleware"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/pkg/response"
	"go.uber.org/zap"
)

// ForumPostApi 论坛回帖API控制器
type ForumPostApi struct {
	logger      *zap.SugaredLogger
	postService *service.PostService
}

// NewForumPostApi 创建论坛回帖API控制器
func NewForumPostApi(svc *service.Services, log *zap.SugaredLogger) *ForumPostApi {
	return &ForumPostApi{
		logger:      log,
		postService: svc.Posts,
	}
}

// Create 发表回帖
func (api *ForumPostApi) Create(c *gin.Context) {
	var req dto.PostCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := api.postService.Create(c.Request.Context(), viewerID(c), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, "回帖成功", post)
}

// ListByTopic 获取主题下的顶级回帖
func (api *ForumPostApi) ListByTopic(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := api.postService.ListByTopic(c.Request.Context(), viewerID(c), id, q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取回帖列表成功", page)
}

// Replies 获取回帖的直接回复
func (api *ForumPostApi) Replies(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := api.postService.ListReplies(c.Request.Context(), viewerID(c), id, q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取回复列表成功", page)
}

// Update 更新回帖
func (api *ForumPostApi) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.PostUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := api.postService.Update(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "回帖更新成功", post)
}

// Delete 删除回帖
func (api *ForumPostApi) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.postService.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// BestAnswer 采纳最佳答案
func (api *ForumPostApi) BestAnswer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	post, err := api.postService.MarkBestAnswer(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "已采纳为最佳答案", post)
}
