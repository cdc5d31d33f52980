package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
)

// TokenType 定义token类型
type TokenType string

const (
	// AccessToken 访问令牌，用于访问资源
	AccessToken TokenType = "access"
)

// Claims 自定义JWT声明结构体，与LMS认证服务签发的令牌保持一致
type Claims struct {
	UserID uint      `json:"user_id"`
	Role   string    `json:"role"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Manager 令牌签发与解析
type Manager struct {
	secret []byte
	issuer string
	expire time.Duration
}

// NewManager 创建令牌管理器
func NewManager(cfg config.JWTConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.SecretKey),
		issuer: cfg.Issuer,
		expire: time.Duration(cfg.AccessExpireSeconds) * time.Second,
	}
}

// GenerateToken 创建访问令牌，正式环境由认证服务签发，这里用于开发调试
func (m *Manager) GenerateToken(userID uint, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		Type:   AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析JWT令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("无效的令牌")
	}
	if claims.Type != AccessToken {
		return nil, errors.New("需要访问令牌")
	}
	if claims.UserID == 0 {
		return nil, errors.New("令牌缺少用户信息")
	}
	return claims, nil
}
