package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache 缓存接口
type Cache interface {
	// SetNX 设置缓存（不存在时才设置）
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)

	// Delete 删除缓存
	Delete(ctx context.Context, keys ...string) error

	// GetJSON 获取JSON格式的缓存并反序列化
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON 序列化为JSON并设置缓存
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Close 关闭连接
	Close() error
}

// CacheKey 缓存键名常量
const (
	// 用户资料，只缓存展示用字段
	UserProfileKey = "forum:user:profile:%d"
	// 主题浏览去重，参数为主题ID与访问者标识
	TopicViewKey = "forum:topic:view:%d:%s"
)

// IsMiss 判断是否为缓存未命中
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
