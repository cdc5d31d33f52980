package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/logger"
	"github.com/nsxzhou1114/lms-forum-api/internal/policy"
	"github.com/nsxzhou1114/lms-forum-api/pkg/auth"
	"github.com/nsxzhou1114/lms-forum-api/pkg/response"
)

// 上下文键
const (
	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
)

// bearerToken 从Authorization头中取出令牌
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", false
	}
	return parts[1], true
}

// JWTAuth JWT认证中间件
func JWTAuth(m *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Unauthorized(c, "请先登录", nil)
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Authorization格式错误", nil)
			return
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			logger.Warnf("无效的令牌: %v", err)
			response.Unauthorized(c, "无效的令牌", err)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserRole, claims.Role)
		c.Next()
	}
}

// OptionalAuth 可选的JWT认证中间件
// 不会阻止未认证的用户访问，但如果提供了有效的token会设置用户信息到上下文
func OptionalAuth(m *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		claims, err := m.ParseToken(token)
		if err != nil {
			logger.Warnf("无效的令牌: %v", err)
			c.Next()
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserRole, claims.Role)
		c.Next()
	}
}

// RoleAuth 角色守卫，需在JWTAuth之后使用
func RoleAuth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := GetUserRole(c)
		if !exists {
			response.Unauthorized(c, "未授权", nil)
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "权限不足", nil)
	}
}

// ModeratorAuth 管理员或版主
func ModeratorAuth() gin.HandlerFunc {
	return RoleAuth(policy.RoleAdmin, policy.RoleModerator)
}

// AdminAuth 仅管理员
func AdminAuth() gin.HandlerFunc {
	return RoleAuth(policy.RoleAdmin)
}

// GetUserID 从上下文中获取用户ID
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserRole 从上下文中获取用户角色
func GetUserRole(c *gin.Context) (string, bool) {
	userRole, exists := c.Get(ctxUserRole)
	if !exists {
		return "", false
	}
	role, ok := userRole.(string)
	return role, ok
}

// GetActor 从上下文中获取当前操作者，未登录时ID为0
func GetActor(c *gin.Context) policy.Actor {
	id, _ := GetUserID(c)
	role, _ := GetUserRole(c)
	return policy.Actor{ID: id, Role: role}
}
