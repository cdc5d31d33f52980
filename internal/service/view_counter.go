package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nsxzhou1114/lms-forum-api/pkg/cache"
	"go.uber.org/zap"
)

// Viewer 主题访问者，未登录时以IP区分
type Viewer struct {
	UserID uint
	IP     string
}

// key 访问者标识
func (v Viewer) key() string {
	if v.UserID != 0 {
		return fmt.Sprintf("u%d", v.UserID)
	}
	return "ip:" + v.IP
}

// ViewCounter 浏览量去重，同一访问者在窗口期内只计一次
type ViewCounter struct {
	cache  cache.Cache
	window time.Duration
	logger *zap.SugaredLogger
}

// NewViewCounter 创建浏览量去重器，cache为nil时每次访问都计数
func NewViewCounter(c cache.Cache, window time.Duration, log *zap.SugaredLogger) *ViewCounter {
	return &ViewCounter{cache: c, window: window, logger: log}
}

// ShouldCount 判断本次访问是否计入浏览量，缓存不可用时计入
func (v *ViewCounter) ShouldCount(ctx context.Context, topicID uint, viewer Viewer) bool {
	if v == nil || v.cache == nil || v.window <= 0 {
		return true
	}
	ok, err := v.cache.SetNX(ctx, fmt.Sprintf(cache.TopicViewKey, topicID, viewer.key()), 1, v.window)
	if err != nil {
		v.logger.Warnf("浏览量去重失败，直接计数: %v", err)
		return true
	}
	return ok
}
