package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`           // 业务码，成功为0
	Message string `json:"message"`        // 响应消息
	Data    any    `json:"data"`           // 响应数据
	Error   string `json:"error,omitempty"` // 错误类别
}

// Success 返回成功响应
func Success(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Created 返回201响应
func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// NoContent 返回204响应
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 错误响应
func Error(c *gin.Context, status int, code errcode.ResponseCode, kind, message string, data any, err error) {
	// 记录详细错误信息，但不向客户端暴露
	if err != nil {
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, Response{
		Code:    int(code),
		Message: message,
		Data:    data,
		Error:   kind,
	})
}

// FromError 按错误类别写出响应
func FromError(c *gin.Context, err error) {
	e := errcode.From(err)
	var data any
	if len(e.Fields) > 0 {
		data = e.Fields
	}
	Error(c, errcode.HTTPStatus(e.Kind), e.Code, e.Kind.String(), e.Message, data, err)
}

// BadRequest 400错误响应
func BadRequest(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, errcode.InvalidParameter, errcode.KindValidation.String(), message, nil, err)
}

// Unauthorized 401错误响应
func Unauthorized(c *gin.Context, message string, err error) {
	Error(c, http.StatusUnauthorized, errcode.Unauthorized, errcode.KindUnauthorized.String(), message, nil, err)
}

// Forbidden 403错误响应
func Forbidden(c *gin.Context, message string, err error) {
	Error(c, http.StatusForbidden, errcode.Forbidden, errcode.KindForbidden.String(), message, nil, err)
}
