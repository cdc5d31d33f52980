package service

import (
	"context"
	"strings"

	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/validation"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SearchService 主题搜索，优先使用ES，失败时退回数据库查询
type SearchService struct {
	db      *gorm.DB
	topics  *TopicService
	indexer *TopicIndexer
	logger  *zap.SugaredLogger
}

// NewSearchService 创建搜索服务实例
func NewSearchService(db *gorm.DB, topics *TopicService, indexer *TopicIndexer, log *zap.SugaredLogger) *SearchService {
	return &SearchService{db: db, topics: topics, indexer: indexer, logger: log}
}

// Search 关键词匹配标题和正文，分类与标签条件同时满足
func (s *SearchService) Search(ctx context.Context, viewerID uint, q *dto.TopicSearchQuery) (*dto.Page[dto.TopicResponse], error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}
	keyword := strings.TrimSpace(q.Q)
	page, limit := normalizePage(q.Page, q.Limit, DefaultTopicLimit)
	tags := splitTags(q.Tags)

	var categoryID uint
	if c := strings.TrimSpace(q.Category); c != "" {
		category, err := s.topics.categories.Resolve(ctx, c)
		if errcode.IsKind(err, errcode.KindNotFound) {
			return dto.NewPage[dto.TopicResponse](nil, 0, page, limit), nil
		}
		if err != nil {
			return nil, err
		}
		categoryID = category.ID
	}

	var (
		ids   []uint
		total int64
		err   error
	)
	if s.indexer.Enabled() {
		ids, total, err = s.indexer.search(ctx, keyword, categoryID, tags, page, limit)
		if err != nil {
			s.logger.Warnf("ES搜索失败，改用数据库查询: %v", err)
		}
	}
	if !s.indexer.Enabled() || err != nil {
		ids, total, err = s.searchSQL(ctx, keyword, categoryID, tags, page, limit)
		if err != nil {
			return nil, err
		}
	}

	topics, err := s.loadOrdered(ctx, ids)
	if err != nil {
		return nil, err
	}
	items, err := s.topics.decorate(ctx, viewerID, topics)
	if err != nil {
		return nil, err
	}
	return dto.NewPage(items, total, page, limit), nil
}

// searchSQL 数据库模糊匹配，置顶不参与排序
func (s *SearchService) searchSQL(ctx context.Context, keyword string, categoryID uint, tags []string, page, limit int) ([]uint, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"
	query := s.db.WithContext(ctx).Model(&model.ForumTopic{}).
		Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!')", pattern, pattern)
	if categoryID > 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if len(tags) > 0 {
		sub := s.db.WithContext(ctx).Table("forum_topic_tags").
			Select("forum_topic_tags.topic_id").
			Joins("JOIN tags ON tags.id = forum_topic_tags.tag_id").
			Where("tags.name IN ?", tags).
			Group("forum_topic_tags.topic_id").
			Having("COUNT(DISTINCT tags.id) = ?", len(tags))
		query = query.Where("id IN (?)", sub)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "统计搜索结果失败")
	}
	var ids []uint
	if err := query.Order("last_post_at DESC").Order("id DESC").
		Offset(offset(page, limit)).Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, 0, errors.Wrap(err, "搜索主题失败")
	}
	return ids, total, nil
}

// loadOrdered 按给定ID顺序加载主题，已删除的主题跳过
func (s *SearchService) loadOrdered(ctx context.Context, ids []uint) ([]model.ForumTopic, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.ForumTopic
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "查询主题失败")
	}
	byID := make(map[uint]model.ForumTopic, len(rows))
	for _, t := range rows {
		byID[t.ID] = t
	}
	topics := make([]model.ForumTopic, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			topics = append(topics, t)
		}
	}
	return topics, nil
}

// splitTags 解析逗号分隔的标签过滤条件
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike 转义LIKE通配符，配合 ESCAPE '!' 使用
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
