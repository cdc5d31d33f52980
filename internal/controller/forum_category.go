package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/pkg/response"
	"go.uber.org/zap"
)

// ForumCategoryApi 论坛分类API控制器
type ForumCategoryApi struct {
	logger          *zap.SugaredLogger
	categoryService *service.CategoryService
}

// NewForumCategoryApi 创建论坛分类API控制器
func NewForumCategoryApi(svc *service.Services, log *zap.SugaredLogger) *ForumCategoryApi {
	return &ForumCategoryApi{
		logger:          log,
		categoryService: svc.Categories,
	}
}

// Create 创建分类（管理员）
func (api *ForumCategoryApi) Create(c *gin.Context) {
	var req dto.CategoryCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := api.categoryService.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, "分类创建成功", category)
}

// List 获取启用的分类列表
func (api *ForumCategoryApi) List(c *gin.Context) {
	categories, err := api.categoryService.List(c.Request.Context(), true)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取分类列表成功", categories)
}

// GetBySlug 根据slug获取分类
func (api *ForumCategoryApi) GetBySlug(c *gin.Context) {
	category, err := api.categoryService.GetBySlug(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取分类成功", category)
}
