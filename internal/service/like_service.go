package service

import (
	"context"

	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/event"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/telemetry"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxLikeCheckIDs 批量查询点赞状态的上限
const MaxLikeCheckIDs = 100

// LikeService 点赞服务，点赞计数只在这里修改
type LikeService struct {
	db        *gorm.DB
	resolver  *TargetResolver
	publisher event.Publisher
	logger    *zap.SugaredLogger
}

// NewLikeService 创建点赞服务
func NewLikeService(db *gorm.DB, resolver *TargetResolver, publisher event.Publisher, log *zap.SugaredLogger) *LikeService {
	return &LikeService{db: db, resolver: resolver, publisher: publisher, logger: log}
}

// Toggle 切换点赞状态：已点赞则取消，否则点赞。删除/插入与计数更新在同一事务内完成
func (s *LikeService) Toggle(ctx context.Context, userID uint, targetType string, targetID uint) (*dto.ToggleLikeResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "LikeService.Toggle")
	defer span.End()
	span.SetAttributes(attribute.String("target.type", targetType), attribute.Int64("target.id", int64(targetID)))

	t, err := ParseLikeTarget(targetType)
	if err != nil {
		return nil, err
	}

	var result dto.ToggleLikeResponse
	var handle *TargetHandle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁定目标行，同一目标上的切换操作串行执行
		h, err := s.resolver.Resolve(tx, t, targetID)
		if err != nil {
			return err
		}
		handle = h

		del := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, t, targetID).Delete(&model.Like{})
		if del.Error != nil {
			return errors.Wrap(del.Error, "取消点赞失败")
		}

		if del.RowsAffected > 0 {
			if err := h.AdjustLikes(tx, -1); err != nil {
				return err
			}
			result.Liked = false
		} else {
			like := &model.Like{UserID: userID, TargetType: t, TargetID: targetID}
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like)
			if ins.Error != nil {
				return errors.Wrap(ins.Error, "点赞失败")
			}
			// 未插入说明并发请求已经写入，计数由那次请求负责
			if ins.RowsAffected > 0 {
				if err := h.AdjustLikes(tx, 1); err != nil {
					return err
				}
			}
			result.Liked = true
		}

		count, err := h.LikesCount(tx)
		if err != nil {
			return err
		}
		result.LikesCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	liked := result.Liked
	publish(ctx, s.publisher, event.Event{
		Type:       event.LikeToggled,
		ActorID:    userID,
		TargetType: string(t),
		TargetID:   targetID,
		TopicID:    handle.TopicID,
		Liked:      &liked,
	})
	return &result, nil
}

// LikedIDs 一次查询返回用户在给定ID中已点赞的ID，保持请求顺序
func (s *LikeService) LikedIDs(ctx context.Context, userID uint, targetType string, ids []uint) ([]uint, error) {
	t, err := ParseLikeTarget(targetType)
	if err != nil {
		return nil, err
	}
	if len(ids) > MaxLikeCheckIDs {
		return nil, errcode.FieldError("ids", "一次最多查询100个目标").WithCode(errcode.BatchLimitExceeded)
	}
	if len(ids) == 0 || userID == 0 {
		return []uint{}, nil
	}

	set, err := s.likedSet(ctx, userID, t, ids)
	if err != nil {
		return nil, err
	}
	liked := make([]uint, 0, len(set))
	for _, id := range uniqueIDs(ids) {
		if set[id] {
			liked = append(liked, id)
		}
	}
	return liked, nil
}

func (s *LikeService) likedSet(ctx context.Context, userID uint, t model.LikeTargetType, ids []uint) (map[uint]bool, error) {
	var liked []uint
	err := s.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, t, ids).
		Pluck("target_id", &liked).Error
	if err != nil {
		return nil, errors.Wrap(err, "查询点赞状态失败")
	}
	set := make(map[uint]bool, len(liked))
	for _, id := range liked {
		set[id] = true
	}
	return set, nil
}

// LikedSetOrEmpty 读路径使用：查询失败时降级为全部未点赞
func (s *LikeService) LikedSetOrEmpty(ctx context.Context, userID uint, t model.LikeTargetType, ids []uint) map[uint]bool {
	if userID == 0 || len(ids) == 0 {
		return map[uint]bool{}
	}
	set, err := s.likedSet(ctx, userID, t, ids)
	if err != nil {
		s.logger.Warnf("查询点赞状态失败，按未点赞展示: %v", err)
		return map[uint]bool{}
	}
	return set
}
