// Package errcode 定义业务错误类别、业务码以及与HTTP状态码的映射
package errcode

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind 错误类别
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindTopicLocked
	KindConflict
	KindUnauthorized
)

// String 返回类别名称
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindTopicLocked:
		return "TopicLocked"
	case KindConflict:
		return "Conflict"
	case KindUnauthorized:
		return "Unauthorized"
	default:
		return "InternalError"
	}
}

// ResponseCode 响应码类型
type ResponseCode int

const (
	// 通用客户端错误 (1000-1099)
	BadRequest   ResponseCode = 1000 // 错误的请求
	Unauthorized ResponseCode = 1001 // 未授权
	Forbidden    ResponseCode = 1003 // 禁止访问
	NotFound     ResponseCode = 1004 // 资源未找到
	Conflict     ResponseCode = 1009 // 资源冲突

	// 参数验证错误 (1100-1199)
	InvalidParameter ResponseCode = 1100 // 无效的参数

	// 服务端错误 (2000-2099)
	ServerError ResponseCode = 2000 // 服务器内部错误

	// 论坛业务错误 (3400-3499)
	TopicLocked        ResponseCode = 3400 // 主题已锁定
	InvalidTargetType  ResponseCode = 3401 // 不支持的目标类型
	ParentMismatch     ResponseCode = 3402 // 父级不属于同一目标
	DuplicateSlug      ResponseCode = 3403 // slug已存在
	TooManyTags        ResponseCode = 3404 // 标签过多
	BatchLimitExceeded ResponseCode = 3405 // 批量查询数量超限
)

// Error 业务错误
type Error struct {
	Kind    Kind
	Code    ResponseCode
	Message string
	// Fields 字段级校验信息，key为字段名
	Fields map[string]string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCode 替换业务码
func (e *Error) WithCode(code ResponseCode) *Error {
	e.Code = code
	return e
}

// Validation 参数校验错误
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: InvalidParameter, Message: message, Fields: fields}
}

// FieldError 单字段校验错误
func FieldError(field, message string) *Error {
	return Validation(message, map[string]string{field: message})
}

// NewNotFound 资源不存在
func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: NotFound, Message: message}
}

// NewForbidden 无权操作
func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: Forbidden, Message: message}
}

// NewTopicLocked 主题已锁定
func NewTopicLocked() *Error {
	return &Error{Kind: KindTopicLocked, Code: TopicLocked, Message: "主题已锁定，无法回复"}
}

// NewConflict 资源冲突
func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: Conflict, Message: message}
}

// NewUnauthorized 未认证
func NewUnauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: Unauthorized, Message: message}
}

// Internal 内部错误，保留原始错误用于日志
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Code: ServerError, Message: message, cause: err}
}

// From 将任意错误转换为业务错误，未识别的错误视为内部错误
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, "服务器内部错误")
}

// IsKind 判断错误是否属于某类别
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// HTTPStatus 返回类别对应的HTTP状态码
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindTopicLocked:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
