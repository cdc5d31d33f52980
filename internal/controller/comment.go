package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/middleware"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/pkg/response"
	"go.uber.org/zap"
)

// CommentApi 评论API控制器
type CommentApi struct {
	logger         *zap.SugaredLogger
	commentService *service.CommentService
	likeService    *service.LikeService
}

// NewCommentApi 创建评论API控制器
func NewCommentApi(svc *service.Services, log *zap.SugaredLogger) *CommentApi {
	return &CommentApi{
		logger:         log,
		commentService: svc.Comments,
		likeService:    svc.Likes,
	}
}

// Create 创建评论
func (api *CommentApi) Create(c *gin.Context) {
	var req dto.CommentCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := api.commentService.Create(c.Request.Context(), viewerID(c), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, "评论发布成功", comment)
}

// List 获取课程/课时下的顶级评论
func (api *CommentApi) List(c *gin.Context) {
	var q dto.CommentListQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := api.commentService.ListTopLevel(c.Request.Context(), viewerID(c), &q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取评论列表成功", page)
}

// Replies 获取评论的直接回复
func (api *CommentApi) Replies(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := api.commentService.ListReplies(c.Request.Context(), viewerID(c), id, q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取回复列表成功", page)
}

// Get 获取评论详情
func (api *CommentApi) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	comment, err := api.commentService.GetByID(c.Request.Context(), viewerID(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取评论成功", comment)
}

// Count 统计评论数
func (api *CommentApi) Count(c *gin.Context) {
	var q dto.CommentTargetQuery
	if !bindQuery(c, &q) {
		return
	}

	count, err := api.commentService.Count(c.Request.Context(), &q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "获取评论数成功", dto.CommentCountResponse{Count: count})
}

// Update 更新评论
func (api *CommentApi) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CommentUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := api.commentService.Update(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "评论更新成功", comment)
}

// Delete 删除评论
func (api *CommentApi) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.commentService.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// Like 点赞或取消点赞评论
func (api *CommentApi) Like(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := api.likeService.Toggle(c.Request.Context(), viewerID(c), string(model.LikeTargetComment), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "操作成功", res)
}

// CheckLikes 批量查询当前用户点赞过的评论
func (api *CommentApi) CheckLikes(c *gin.Context) {
	var req dto.IDsRequest
	if !bindJSON(c, &req) {
		return
	}

	ids, err := api.likeService.LikedIDs(c.Request.Context(), viewerID(c), string(model.LikeTargetComment), req.IDs)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, "查询成功", ids)
}
