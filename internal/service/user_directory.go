package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/pkg/cache"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// UserDirectory 用户资料查询，用于读路径上填充作者展示信息
type UserDirectory interface {
	Profiles(ctx context.Context, ids []uint) (map[uint]*dto.UserBrief, error)
}

// gormUserDirectory 读取用户表，可选redis缓存
type gormUserDirectory struct {
	db     *gorm.DB
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.SugaredLogger
}

// NewUserDirectory 创建用户资料查询，cache为nil时直接查库
func NewUserDirectory(db *gorm.DB, c cache.Cache, ttl time.Duration, log *zap.SugaredLogger) UserDirectory {
	return &gormUserDirectory{db: db, cache: c, ttl: ttl, logger: log}
}

// Profiles 批量获取用户资料，不存在的用户不出现在结果中
func (d *gormUserDirectory) Profiles(ctx context.Context, ids []uint) (map[uint]*dto.UserBrief, error) {
	ids = uniqueIDs(ids)
	result := make(map[uint]*dto.UserBrief, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	missing := ids
	if d.cache != nil {
		missing = missing[:0:0]
		for _, id := range ids {
			var brief dto.UserBrief
			err := d.cache.GetJSON(ctx, fmt.Sprintf(cache.UserProfileKey, id), &brief)
			if err == nil {
				result[id] = &brief
				continue
			}
			if !cache.IsMiss(err) {
				d.logger.Warnf("读取用户缓存失败: %v", err)
			}
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	// 相同的一批用户并发加载时只查一次库
	v, err, _ := d.group.Do(idsKey(missing), func() (interface{}, error) {
		var users []model.User
		if err := d.db.WithContext(ctx).
			Select("id", "username", "nickname", "avatar").
			Where("id IN ?", missing).
			Find(&users).Error; err != nil {
			return nil, errors.Wrap(err, "查询用户资料失败")
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}

	for _, u := range v.([]model.User) {
		brief := &dto.UserBrief{ID: u.ID, Username: u.Username, Nickname: u.Nickname, Avatar: u.Avatar}
		result[u.ID] = brief
		if d.cache != nil {
			if err := d.cache.SetJSON(ctx, fmt.Sprintf(cache.UserProfileKey, u.ID), brief, d.ttl); err != nil {
				d.logger.Warnf("写入用户缓存失败: %v", err)
			}
		}
	}
	return result, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func idsKey(ids []uint) string {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
