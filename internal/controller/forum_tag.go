package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/pkg/response"
	"go.uber.org/zap"
)

// TagApi 标签API控制器
type TagApi struct {
	logger     *zap.SugaredLogger
	tagService *service.TagService
}

// NewTagApi 创建标签API控制器
func NewTagApi(svc *service.Services, log *zap.SugaredLogger) *TagApi {
	return &TagApi{
		logger:     log,
		tagService: svc.Tags,
	}
}

// Popular 获取热门标签
func (api *TagApi) Popular(c *gin.Context) {
	var q dto.PopularTagsQuery
	if !bindQuery(c, &q) {
		return
	}

	tags, err := api.tagService.Popular(c.Request.Context(), q.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取热门标签成功", tags)
}
