package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/middleware"
	"github.com/nsxzhou1114/lms-forum-api/internal/validation"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/nsxzhou1114/lms-forum-api/pkg/response"
)

// paramID 解析路径中的数字ID，失败时直接写出400响应
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.FromError(c, errcode.FieldError(name, "无效的ID"))
		return 0, false
	}
	return uint(id), true
}

// bindJSON 绑定并校验请求体
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.FromError(c, validation.FromBindError(err))
		return false
	}
	return true
}

// bindQuery 绑定并校验查询参数
func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		response.FromError(c, validation.FromBindError(err))
		return false
	}
	return true
}

// viewerID 当前访问者ID，未登录为0
func viewerID(c *gin.Context) uint {
	id, _ := middleware.GetUserID(c)
	return id
}
