package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/middleware"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/pkg/response"
	"go.uber.org/zap"
)

// ForumTopicApi 论坛主题API控制器
type ForumTopicApi struct {
	logger        *zap.SugaredLogger
	topicService  *service.TopicService
	searchService *service.SearchService
}

// NewForumTopicApi 创建论坛主题API控制器
func NewForumTopicApi(svc *service.Services, log *zap.SugaredLogger) *ForumTopicApi {
	return &ForumTopicApi{
		logger:        log,
		topicService:  svc.Topics,
		searchService: svc.Search,
	}
}

// Create 创建主题
func (api *ForumTopicApi) Create(c *gin.Context) {
	var req dto.TopicCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	topic, err := api.topicService.Create(c.Request.Context(), viewerID(c), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, "主题发布成功", topic)
}

// ListByCategory 获取分类下的主题，分类可用ID或slug指定
func (api *ForumTopicApi) ListByCategory(c *gin.Context) {
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := api.topicService.ListByCategory(c.Request.Context(), viewerID(c), c.Param("id"), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取主题列表成功", page)
}

// Search 搜索主题
func (api *ForumTopicApi) Search(c *gin.Context) {
	var q dto.TopicSearchQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := api.searchService.Search(c.Request.Context(), viewerID(c), &q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "搜索成功", page)
}

// GetBySlug 获取主题详情
func (api *ForumTopicApi) GetBySlug(c *gin.Context) {
	viewer := service.Viewer{UserID: viewerID(c), IP: c.ClientIP()}
	topic, err := api.topicService.GetBySlug(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取主题成功", topic)
}

// Update 更新主题
func (api *ForumTopicApi) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.TopicUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	topic, err := api.topicService.Update(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "主题更新成功", topic)
}

// Delete 删除主题
func (api *ForumTopicApi) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.topicService.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// Pin 置顶或取消置顶
func (api *ForumTopicApi) Pin(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.PinRequest
	if !bindJSON(c, &req) {
		return
	}

	topic, err := api.topicService.SetPinned(c.Request.Context(), middleware.GetActor(c), id, *req.IsPinned)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "操作成功", topic)
}

// Lock 锁定或解锁
func (api *ForumTopicApi) Lock(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.LockRequest
	if !bindJSON(c, &req) {
		return
	}

	topic, err := api.topicService.SetLocked(c.Request.Context(), middleware.GetActor(c), id, *req.IsLocked)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "操作成功", topic)
}
