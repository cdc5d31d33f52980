package service

import (
	"context"
	"time"

	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/event"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/policy"
	"github.com/nsxzhou1114/lms-forum-api/internal/validation"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostService 论坛回帖服务
type PostService struct {
	db        *gorm.DB
	users     UserDirectory
	likes     *LikeService
	filter    *ContentFilter
	indexer   *TopicIndexer
	publisher event.Publisher
	logger    *zap.SugaredLogger
}

// NewPostService 创建回帖服务实例
func NewPostService(db *gorm.DB, users UserDirectory, likes *LikeService, filter *ContentFilter,
	indexer *TopicIndexer, publisher event.Publisher, log *zap.SugaredLogger) *PostService {
	return &PostService{
		db:        db,
		users:     users,
		likes:     likes,
		filter:    filter,
		indexer:   indexer,
		publisher: publisher,
		logger:    log,
	}
}

// Create 发表回帖，主题锁定时拒绝；回复的回复归并到根回帖下
func (s *PostService) Create(ctx context.Context, authorID uint, req *dto.PostCreateRequest) (*dto.PostResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	content, err := s.filter.CleanContent(req.Content, MinPostLen, MaxContentLen)
	if err != nil {
		return nil, err
	}

	post := &model.ForumPost{
		Content:  content,
		AuthorID: authorID,
		TopicID:  req.TopicID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁定主题，与锁定操作和其他回帖串行
		var topic model.ForumTopic
		if err := tx.Clauses(forUpdate()).First(&topic, req.TopicID).Error; err != nil {
			return dbError(err, "主题不存在", "查询主题失败")
		}
		if topic.IsLocked {
			return errcode.NewTopicLocked()
		}

		if req.ReplyToID != nil {
			var parent model.ForumPost
			if err := tx.Select("id", "topic_id", "reply_to_id").First(&parent, *req.ReplyToID).Error; err != nil {
				return dbError(err, "回复的回帖不存在", "查询回帖失败")
			}
			if parent.TopicID != topic.ID {
				return errcode.FieldError("replyToId", "只能回复同一主题下的回帖").WithCode(errcode.ParentMismatch)
			}
			rootID := parent.ID
			if parent.ReplyToID != nil {
				rootID = *parent.ReplyToID
			}
			post.ReplyToID = &rootID
		}

		if err := tx.Create(post).Error; err != nil {
			return errors.Wrap(err, "创建回帖失败")
		}

		if err := tx.Model(&model.ForumTopic{}).Where("id = ?", topic.ID).UpdateColumns(map[string]interface{}{
			"replies_count":       gorm.Expr("replies_count + ?", 1),
			"last_post_at":        post.CreatedAt,
			"last_post_author_id": authorID,
		}).Error; err != nil {
			return errors.Wrap(err, "更新主题回帖数失败")
		}
		return errors.Wrap(tx.Model(&model.ForumCategory{}).Where("id = ?", topic.CategoryID).
			UpdateColumn("posts_count", gorm.Expr("posts_count + ?", 1)).Error, "更新分类回帖数失败")
	})
	if err != nil {
		return nil, err
	}

	s.indexer.Sync(ctx, post.TopicID)
	publish(ctx, s.publisher, event.Event{
		Type:       event.PostCreated,
		ActorID:    authorID,
		TargetType: string(model.LikeTargetPost),
		TargetID:   post.ID,
		TopicID:    post.TopicID,
	})
	return s.GetByID(ctx, authorID, post.ID)
}

// GetByID 获取回帖详情
func (s *PostService) GetByID(ctx context.Context, viewerID, id uint) (*dto.PostResponse, error) {
	var post model.ForumPost
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, dbError(err, "回帖不存在", "查询回帖失败")
	}
	items, err := s.decorate(ctx, viewerID, []model.ForumPost{post})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// ListByTopic 分页获取主题下的顶级回帖
func (s *PostService) ListByTopic(ctx context.Context, viewerID, topicID uint, pq dto.PageQuery) (*dto.Page[dto.PostResponse], error) {
	if err := s.exists(ctx, &model.ForumTopic{}, topicID, "主题不存在"); err != nil {
		return nil, err
	}
	page, limit := normalizePage(pq.Page, pq.Limit, DefaultPostLimit)
	query := s.db.WithContext(ctx).Model(&model.ForumPost{}).Where("topic_id = ? AND reply_to_id IS NULL", topicID)
	return s.listPage(ctx, viewerID, query, page, limit)
}

// ListReplies 分页获取回帖的直接回复
func (s *PostService) ListReplies(ctx context.Context, viewerID, postID uint, pq dto.PageQuery) (*dto.Page[dto.PostResponse], error) {
	if err := s.exists(ctx, &model.ForumPost{}, postID, "回帖不存在"); err != nil {
		return nil, err
	}
	page, limit := normalizePage(pq.Page, pq.Limit, DefaultReplyLimit)
	query := s.db.WithContext(ctx).Model(&model.ForumPost{}).Where("reply_to_id = ?", postID)
	return s.listPage(ctx, viewerID, query, page, limit)
}

func (s *PostService) exists(ctx context.Context, m interface{}, id uint, notFound string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Count(&count).Error; err != nil {
		return errors.Wrap(err, "查询失败")
	}
	if count == 0 {
		return errcode.NewNotFound(notFound)
	}
	return nil
}

func (s *PostService) listPage(ctx context.Context, viewerID uint, query *gorm.DB, page, limit int) (*dto.Page[dto.PostResponse], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "统计回帖数失败")
	}

	var posts []model.ForumPost
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, errors.Wrap(err, "查询回帖列表失败")
	}

	items, err := s.decorate(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	return dto.NewPage(items, total, page, limit), nil
}

// Update 作者编辑回帖，锁定的主题同样允许编辑
func (s *PostService) Update(ctx context.Context, actor policy.Actor, id uint, req *dto.PostUpdateRequest) (*dto.PostResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	content, err := s.filter.CleanContent(req.Content, MinPostLen, MaxContentLen)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.ForumPost
		if err := tx.Clauses(forUpdate()).First(&post, id).Error; err != nil {
			return dbError(err, "回帖不存在", "查询回帖失败")
		}
		if err := policy.RequireAuthor(actor, post.AuthorID, "编辑回帖"); err != nil {
			return err
		}
		now := time.Now()
		return errors.Wrap(tx.Model(&post).Updates(map[string]interface{}{
			"content":   content,
			"is_edited": true,
			"edited_at": &now,
		}).Error, "更新回帖失败")
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, actor.ID, id)
}

// Delete 删除回帖及其回复，重新计算主题的回帖数和最后回复
func (s *PostService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	var topicID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.ForumPost
		if err := tx.First(&post, id).Error; err != nil {
			return dbError(err, "回帖不存在", "查询回帖失败")
		}
		if err := policy.RequireAuthorOrModerator(actor, post.AuthorID, "删除回帖"); err != nil {
			return err
		}
		topicID = post.TopicID

		var topic model.ForumTopic
		if err := tx.Clauses(forUpdate()).First(&topic, post.TopicID).Error; err != nil {
			return dbError(err, "主题不存在", "查询主题失败")
		}

		ids, err := collectSubtree(tx, post.TableName(), "reply_to_id", post.ID)
		if err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id IN ?", model.LikeTargetPost, ids).Delete(&model.Like{}).Error; err != nil {
			return errors.Wrap(err, "删除回帖点赞失败")
		}
		if err := tx.Where("id IN ?", ids).Delete(&model.ForumPost{}).Error; err != nil {
			return errors.Wrap(err, "删除回帖失败")
		}

		if err := s.refreshLastPost(tx, &topic, len(ids)); err != nil {
			return err
		}
		return errors.Wrap(tx.Model(&model.ForumCategory{}).Where("id = ?", topic.CategoryID).
			UpdateColumn("posts_count", decrementExpr("posts_count", len(ids))).Error, "更新分类回帖数失败")
	})
	if err != nil {
		return err
	}
	s.indexer.Sync(ctx, topicID)
	return nil
}

// refreshLastPost 删除回帖后减少回帖数并按剩余回帖重算最后回复
func (s *PostService) refreshLastPost(tx *gorm.DB, topic *model.ForumTopic, removed int) error {
	updates := map[string]interface{}{
		"replies_count": decrementExpr("replies_count", removed),
	}

	var last model.ForumPost
	err := tx.Where("topic_id = ?", topic.ID).Order("created_at DESC").Order("id DESC").Limit(1).Take(&last).Error
	switch {
	case err == nil:
		updates["last_post_at"] = last.CreatedAt
		updates["last_post_author_id"] = last.AuthorID
	case errors.Is(err, gorm.ErrRecordNotFound):
		updates["last_post_at"] = topic.CreatedAt
		updates["last_post_author_id"] = nil
	default:
		return errors.Wrap(err, "查询最后回帖失败")
	}

	return errors.Wrap(tx.Model(&model.ForumTopic{}).Where("id = ?", topic.ID).UpdateColumns(updates).Error, "更新主题回帖信息失败")
}

// MarkBestAnswer 主题作者采纳最佳答案，清除旧标记与设置新标记在同一事务内完成
func (s *PostService) MarkBestAnswer(ctx context.Context, actor policy.Actor, postID uint) (*dto.PostResponse, error) {
	var topicID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.ForumPost
		if err := tx.Select("id", "topic_id").First(&post, postID).Error; err != nil {
			return dbError(err, "回帖不存在", "查询回帖失败")
		}
		topicID = post.TopicID

		// 锁定主题，同一主题的采纳操作串行执行
		var topic model.ForumTopic
		if err := tx.Clauses(forUpdate()).Select("id", "author_id").First(&topic, post.TopicID).Error; err != nil {
			return dbError(err, "主题不存在", "查询主题失败")
		}
		if err := policy.RequireAuthor(actor, topic.AuthorID, "采纳最佳答案"); err != nil {
			return err
		}

		if err := tx.Model(&model.ForumPost{}).
			Where("topic_id = ? AND is_best_answer = ? AND id <> ?", topic.ID, true, post.ID).
			Updates(map[string]interface{}{"is_best_answer": false, "updated_at": time.Now()}).Error; err != nil {
			return errors.Wrap(err, "清除最佳答案失败")
		}
		return errors.Wrap(tx.Model(&post).Updates(map[string]interface{}{
			"is_best_answer": true,
			"updated_at":     time.Now(),
		}).Error, "设置最佳答案失败")
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, event.Event{
		Type:       event.PostBestAnswer,
		ActorID:    actor.ID,
		TargetType: string(model.LikeTargetPost),
		TargetID:   postID,
		TopicID:    topicID,
	})
	return s.GetByID(ctx, actor.ID, postID)
}

// decorate 填充作者、直接回复数和当前用户点赞状态
func (s *PostService) decorate(ctx context.Context, viewerID uint, posts []model.ForumPost) ([]dto.PostResponse, error) {
	ids := make([]uint, len(posts))
	authorIDs := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		authorIDs[i] = p.AuthorID
	}

	authors, err := s.users.Profiles(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	replies, err := countChildren(s.db.WithContext(ctx), model.ForumPost{}.TableName(), "reply_to_id", ids)
	if err != nil {
		return nil, err
	}
	liked := s.likes.LikedSetOrEmpty(ctx, viewerID, model.LikeTargetPost, ids)

	items := make([]dto.PostResponse, len(posts))
	for i, p := range posts {
		items[i] = dto.PostResponse{
			ForumPost:    p,
			Author:       authors[p.AuthorID],
			RepliesCount: replies[p.ID],
			IsLiked:      liked[p.ID],
		}
	}
	return items, nil
}
