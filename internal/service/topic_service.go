package service

import (
	"context"
	"strings"
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

// maxTopicSlugLen 主题slug最大长度，预留冲突后缀的位置
const maxTopicSlugLen = 200

// TopicService 论坛主题服务，分类计数与标签使用次数在主题事务内维护
type TopicService struct {
	db         *gorm.DB
	categories *CategoryService
	tags       *TagService
	users      UserDirectory
	likes      *LikeService
	filter     *ContentFilter
	views      *ViewCounter
	indexer    *TopicIndexer
	publisher  event.Publisher
	logger     *zap.SugaredLogger
}

// NewTopicService 创建主题服务实例
func NewTopicService(db *gorm.DB, categories *CategoryService, tags *TagService, users UserDirectory, likes *LikeService,
	filter *ContentFilter, views *ViewCounter, indexer *TopicIndexer, publisher event.Publisher, log *zap.SugaredLogger) *TopicService {
	return &TopicService{
		db:         db,
		categories: categories,
		tags:       tags,
		users:      users,
		likes:      likes,
		filter:     filter,
		views:      views,
		indexer:    indexer,
		publisher:  publisher,
		logger:     log,
	}
}

// Create 创建主题
func (s *TopicService) Create(ctx context.Context, authorID uint, req *dto.TopicCreateRequest) (*dto.TopicResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	tagNames, err := s.tags.Normalize(req.Tags)
	if err != nil {
		return nil, err
	}
	content, err := s.filter.CleanContent(req.Content, MinTopicContentLen, MaxContentLen)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	topic := &model.ForumTopic{
		Title:      strings.TrimSpace(req.Title),
		Content:    content,
		AuthorID:   authorID,
		CategoryID: req.CategoryID,
		LastPostAt: &now,
	}
	topic.CreatedAt = now
	topic.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockActiveCategory(tx, req.CategoryID); err != nil {
			return err
		}

		slug, err := uniqueSlug(tx, topic.TableName(), topicSlugBase(topic.Title), 0)
		if err != nil {
			return err
		}
		topic.Slug = slug

		if err := tx.Create(topic).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errcode.NewConflict("主题slug冲突，请重试").WithCode(errcode.DuplicateSlug)
			}
			return errors.Wrap(err, "创建主题失败")
		}
		if _, err := s.tags.attach(tx, topic.ID, tagNames); err != nil {
			return err
		}
		return errors.Wrap(tx.Model(&model.ForumCategory{}).Where("id = ?", req.CategoryID).
			UpdateColumn("topics_count", gorm.Expr("topics_count + ?", 1)).Error, "更新分类主题数失败")
	})
	if err != nil {
		return nil, err
	}

	s.indexer.Sync(ctx, topic.ID)
	publish(ctx, s.publisher, event.Event{
		Type:       event.TopicCreated,
		ActorID:    authorID,
		TargetType: string(model.LikeTargetTopic),
		TargetID:   topic.ID,
		TopicID:    topic.ID,
	})
	return s.GetByID(ctx, authorID, topic.ID)
}

// ListByCategory 分页获取分类下的主题，置顶优先，其余按最后回复时间倒序
func (s *TopicService) ListByCategory(ctx context.Context, viewerID uint, idOrSlug string, pq dto.PageQuery) (*dto.Page[dto.TopicResponse], error) {
	category, err := s.categories.Resolve(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	page, limit := normalizePage(pq.Page, pq.Limit, DefaultTopicLimit)

	query := s.db.WithContext(ctx).Model(&model.ForumTopic{}).Where("category_id = ?", category.ID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "统计主题数失败")
	}

	var topics []model.ForumTopic
	if err := query.Order("is_pinned DESC").Order("last_post_at DESC").Order("id DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&topics).Error; err != nil {
		return nil, errors.Wrap(err, "查询主题列表失败")
	}

	items, err := s.decorate(ctx, viewerID, topics)
	if err != nil {
		return nil, err
	}
	return dto.NewPage(items, total, page, limit), nil
}

// GetBySlug 获取主题详情，并按访问者去重累加浏览量
func (s *TopicService) GetBySlug(ctx context.Context, viewer Viewer, slug string) (*dto.TopicResponse, error) {
	var topic model.ForumTopic
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&topic).Error; err != nil {
		return nil, dbError(err, "主题不存在", "查询主题失败")
	}

	if s.views.ShouldCount(ctx, topic.ID, viewer) {
		if err := s.db.WithContext(ctx).Model(&model.ForumTopic{}).Where("id = ?", topic.ID).
			UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error; err != nil {
			s.logger.Warnf("更新主题 %d 浏览量失败: %v", topic.ID, err)
		} else {
			topic.ViewsCount++
		}
	}

	items, err := s.decorate(ctx, viewer.UserID, []model.ForumTopic{topic})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// GetByID 获取主题详情，不计浏览量
func (s *TopicService) GetByID(ctx context.Context, viewerID, id uint) (*dto.TopicResponse, error) {
	var topic model.ForumTopic
	if err := s.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, dbError(err, "主题不存在", "查询主题失败")
	}
	items, err := s.decorate(ctx, viewerID, []model.ForumTopic{topic})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Update 作者编辑主题，只修改请求中出现的字段
func (s *TopicService) Update(ctx context.Context, actor policy.Actor, id uint, req *dto.TopicUpdateRequest) (*dto.TopicResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var tagNames []string
	if req.Tags != nil {
		names, err := s.tags.Normalize(req.Tags)
		if err != nil {
			return nil, err
		}
		tagNames = names
	}
	var content string
	if req.Content != nil {
		cleaned, err := s.filter.CleanContent(*req.Content, MinTopicContentLen, MaxContentLen)
		if err != nil {
			return nil, err
		}
		content = cleaned
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic model.ForumTopic
		if err := tx.Clauses(forUpdate()).First(&topic, id).Error; err != nil {
			return dbError(err, "主题不存在", "查询主题失败")
		}
		if err := policy.RequireAuthor(actor, topic.AuthorID, "编辑主题"); err != nil {
			return err
		}

		updates := map[string]interface{}{"updated_at": time.Now()}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title != topic.Title {
				slug, err := uniqueSlug(tx, topic.TableName(), topicSlugBase(title), topic.ID)
				if err != nil {
					return err
				}
				updates["title"] = title
				updates["slug"] = slug
			}
		}
		if req.Content != nil {
			updates["content"] = content
		}
		if req.CategoryID != nil && *req.CategoryID != topic.CategoryID {
			if err := s.moveCategory(tx, &topic, *req.CategoryID); err != nil {
				return err
			}
			updates["category_id"] = *req.CategoryID
		}

		if err := tx.Model(&topic).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errcode.NewConflict("主题slug冲突，请重试").WithCode(errcode.DuplicateSlug)
			}
			return errors.Wrap(err, "更新主题失败")
		}
		if req.Tags != nil {
			if _, err := s.tags.replace(tx, topic.ID, tagNames); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.indexer.Sync(ctx, id)
	return s.GetByID(ctx, actor.ID, id)
}

// moveCategory 主题换分类时同步迁移主题数和回帖数
func (s *TopicService) moveCategory(tx *gorm.DB, topic *model.ForumTopic, toID uint) error {
	if _, err := lockActiveCategory(tx, toID); err != nil {
		return err
	}
	posts := topic.RepliesCount
	if err := tx.Model(&model.ForumCategory{}).Where("id = ?", topic.CategoryID).UpdateColumns(map[string]interface{}{
		"topics_count": decrementExpr("topics_count", 1),
		"posts_count":  decrementExpr("posts_count", posts),
	}).Error; err != nil {
		return errors.Wrap(err, "更新原分类计数失败")
	}
	return errors.Wrap(tx.Model(&model.ForumCategory{}).Where("id = ?", toID).UpdateColumns(map[string]interface{}{
		"topics_count": gorm.Expr("topics_count + ?", 1),
		"posts_count":  gorm.Expr("posts_count + ?", posts),
	}).Error, "更新新分类计数失败")
}

// Delete 删除主题及其回帖、点赞和标签关联
func (s *TopicService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic model.ForumTopic
		if err := tx.Clauses(forUpdate()).First(&topic, id).Error; err != nil {
			return dbError(err, "主题不存在", "查询主题失败")
		}
		if err := policy.RequireAuthorOrModerator(actor, topic.AuthorID, "删除主题"); err != nil {
			return err
		}

		var postIDs []uint
		if err := tx.Model(&model.ForumPost{}).Where("topic_id = ?", topic.ID).Pluck("id", &postIDs).Error; err != nil {
			return errors.Wrap(err, "查询主题回帖失败")
		}
		if len(postIDs) > 0 {
			if err := tx.Where("target_type = ? AND target_id IN ?", model.LikeTargetPost, postIDs).Delete(&model.Like{}).Error; err != nil {
				return errors.Wrap(err, "删除回帖点赞失败")
			}
			if err := tx.Where("topic_id = ?", topic.ID).Delete(&model.ForumPost{}).Error; err != nil {
				return errors.Wrap(err, "删除主题回帖失败")
			}
		}
		if err := tx.Where("target_type = ? AND target_id = ?", model.LikeTargetTopic, topic.ID).Delete(&model.Like{}).Error; err != nil {
			return errors.Wrap(err, "删除主题点赞失败")
		}
		if err := s.tags.detachAll(tx, topic.ID); err != nil {
			return err
		}
		if err := tx.Model(&model.ForumCategory{}).Where("id = ?", topic.CategoryID).UpdateColumns(map[string]interface{}{
			"topics_count": decrementExpr("topics_count", 1),
			"posts_count":  decrementExpr("posts_count", len(postIDs)),
		}).Error; err != nil {
			return errors.Wrap(err, "更新分类计数失败")
		}
		if err := tx.Delete(&topic).Error; err != nil {
			return errors.Wrap(err, "删除主题失败")
		}
		s.logger.Infof("删除主题 %d 及其 %d 条回帖", topic.ID, len(postIDs))
		return nil
	})
	if err != nil {
		return err
	}

	s.indexer.Remove(ctx, id)
	publish(ctx, s.publisher, event.Event{
		Type:       event.TopicDeleted,
		ActorID:    actor.ID,
		TargetType: string(model.LikeTargetTopic),
		TargetID:   id,
		TopicID:    id,
	})
	return nil
}

// SetPinned 置顶或取消置顶，重复设置相同状态不报错
func (s *TopicService) SetPinned(ctx context.Context, actor policy.Actor, id uint, pinned bool) (*dto.TopicResponse, error) {
	return s.setFlag(ctx, actor, id, "is_pinned", pinned, "置顶主题")
}

// SetLocked 锁定或解锁主题，锁定后只拒绝新回帖
func (s *TopicService) SetLocked(ctx context.Context, actor policy.Actor, id uint, locked bool) (*dto.TopicResponse, error) {
	return s.setFlag(ctx, actor, id, "is_locked", locked, "锁定主题")
}

func (s *TopicService) setFlag(ctx context.Context, actor policy.Actor, id uint, column string, value bool, action string) (*dto.TopicResponse, error) {
	if err := policy.RequireModerator(actor, action); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic model.ForumTopic
		if err := tx.Clauses(forUpdate()).Select("id").First(&topic, id).Error; err != nil {
			return dbError(err, "主题不存在", "查询主题失败")
		}
		return errors.Wrap(tx.Model(&topic).Updates(map[string]interface{}{
			column:       value,
			"updated_at": time.Now(),
		}).Error, "更新主题状态失败")
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("用户 %d %s %d: %v", actor.ID, action, id, value)
	s.indexer.Sync(ctx, id)
	return s.GetByID(ctx, actor.ID, id)
}

// decorate 填充标签、作者和当前用户点赞状态
func (s *TopicService) decorate(ctx context.Context, viewerID uint, topics []model.ForumTopic) ([]dto.TopicResponse, error) {
	ids := make([]uint, len(topics))
	authorIDs := make([]uint, len(topics))
	for i, t := range topics {
		ids[i] = t.ID
		authorIDs[i] = t.AuthorID
	}

	tags, err := s.tags.topicTags(s.db.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}
	authors, err := s.users.Profiles(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	liked := s.likes.LikedSetOrEmpty(ctx, viewerID, model.LikeTargetTopic, ids)

	items := make([]dto.TopicResponse, len(topics))
	for i, t := range topics {
		t.Tags = tags[t.ID]
		if t.Tags == nil {
			t.Tags = []model.Tag{}
		}
		items[i] = dto.TopicResponse{
			ForumTopic: t,
			Author:     authors[t.AuthorID],
			IsLiked:    liked[t.ID],
		}
	}
	return items, nil
}

// lockActiveCategory 锁定分类行，分类不存在或已停用时报错
func lockActiveCategory(tx *gorm.DB, id uint) (*model.ForumCategory, error) {
	var category model.ForumCategory
	if err := tx.Clauses(forUpdate()).First(&category, id).Error; err != nil {
		return nil, dbError(err, "分类不存在", "查询分类失败")
	}
	if !category.IsActive {
		return nil, errcode.FieldError("categoryId", "分类已停用")
	}
	return &category, nil
}

func topicSlugBase(title string) string {
	if slug := slugify(title, maxTopicSlugLen); slug != "" {
		return slug
	}
	return "topic"
}
