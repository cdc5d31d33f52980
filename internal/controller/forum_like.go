package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/pkg/response"
	"go.uber.org/zap"
)

// ForumLikeApi 点赞API控制器
type ForumLikeApi struct {
	logger      *zap.SugaredLogger
	likeService *service.LikeService
}

// NewForumLikeApi 创建点赞API控制器
func NewForumLikeApi(svc *service.Services, log *zap.SugaredLogger) *ForumLikeApi {
	return &ForumLikeApi{
		logger:      log,
		likeService: svc.Likes,
	}
}

// Toggle 点赞或取消点赞
func (api *ForumLikeApi) Toggle(c *gin.Context) {
	var req dto.ToggleLikeRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := api.likeService.Toggle(c.Request.Context(), viewerID(c), req.Type, req.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "操作成功", res)
}

// Check 批量查询点赞状态
func (api *ForumLikeApi) Check(c *gin.Context) {
	var req dto.LikeCheckRequest
	if !bindJSON(c, &req) {
		return
	}

	ids, err := api.likeService.LikedIDs(c.Request.Context(), viewerID(c), req.Type, req.IDs)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "查询成功", ids)
}
