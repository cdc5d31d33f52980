package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/validation"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 标签长度限制
const (
	MinTagLen = 2
	MaxTagLen = 30
)

// TagService 标签服务，usage_count只在主题事务内维护
type TagService struct {
	db      *gorm.DB
	maxTags int
	logger  *zap.SugaredLogger
}

// NewTagService 创建标签服务实例
func NewTagService(db *gorm.DB, maxTags int, log *zap.SugaredLogger) *TagService {
	if maxTags <= 0 {
		maxTags = 5
	}
	return &TagService{db: db, maxTags: maxTags, logger: log}
}

// Popular 热门标签，按使用次数倒序
func (s *TagService) Popular(ctx context.Context, limit int) ([]model.Tag, error) {
	_, limit = normalizePage(1, limit, DefaultTagLimit)

	tags := make([]model.Tag, 0, limit)
	err := s.db.WithContext(ctx).
		Where("usage_count > 0").
		Order("usage_count DESC").
		Order("name ASC").
		Limit(limit).
		Find(&tags).Error
	if err != nil {
		return nil, errors.Wrap(err, "查询热门标签失败")
	}
	return tags, nil
}

// Normalize 去除空白、转小写并去重，保持首次出现的顺序
func (s *TagService) Normalize(names []string) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		if n := validation.RuneLen(name); n < MinTagLen || n > MaxTagLen {
			return nil, errcode.FieldError("tags", fmt.Sprintf("标签 %q 长度必须在%d到%d个字符之间", name, MinTagLen, MaxTagLen))
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) > s.maxTags {
		return nil, errcode.FieldError("tags", fmt.Sprintf("每个主题最多%d个标签", s.maxTags)).WithCode(errcode.TooManyTags)
	}
	return out, nil
}

// ensure 返回给定名称的标签，不存在的按需创建
func (s *TagService) ensure(tx *gorm.DB, names []string) ([]model.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var existing []model.Tag
	if err := tx.Where("name IN ?", names).Find(&existing).Error; err != nil {
		return nil, errors.Wrap(err, "查询标签失败")
	}
	byName := make(map[string]model.Tag, len(existing))
	for _, t := range existing {
		byName[t.Name] = t
	}

	tags := make([]model.Tag, 0, len(names))
	for _, name := range names {
		if t, ok := byName[name]; ok {
			tags = append(tags, t)
			continue
		}
		base := slugify(name, 50)
		if base == "" {
			base = "tag"
		}
		slug, err := uniqueSlug(tx, model.Tag{}.TableName(), base, 0)
		if err != nil {
			return nil, err
		}
		tag := model.Tag{Name: name, Slug: slug}
		// 并发创建同名标签时以先写入者为准
		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&tag).Error; err != nil {
			return nil, errors.Wrap(err, "创建标签失败")
		}
		if tag.ID == 0 {
			if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
				return nil, dbError(err, "标签不存在", "查询标签失败")
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// attach 关联标签并增加使用次数
func (s *TagService) attach(tx *gorm.DB, topicID uint, names []string) ([]model.Tag, error) {
	tags, err := s.ensure(tx, names)
	if err != nil || len(tags) == 0 {
		return tags, err
	}
	links := make([]model.ForumTopicTag, len(tags))
	ids := make([]uint, len(tags))
	for i, t := range tags {
		links[i] = model.ForumTopicTag{TopicID: topicID, TagID: t.ID}
		ids[i] = t.ID
	}
	if err := tx.Create(&links).Error; err != nil {
		return nil, errors.Wrap(err, "关联标签失败")
	}
	if err := tx.Model(&model.Tag{}).Where("id IN ?", ids).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error; err != nil {
		return nil, errors.Wrap(err, "更新标签使用次数失败")
	}
	for i := range tags {
		tags[i].UsageCount++
	}
	return tags, nil
}

// detach 解除标签关联并减少使用次数
func (s *TagService) detach(tx *gorm.DB, topicID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	if err := tx.Where("topic_id = ? AND tag_id IN ?", topicID, tagIDs).Delete(&model.ForumTopicTag{}).Error; err != nil {
		return errors.Wrap(err, "解除标签关联失败")
	}
	err := tx.Model(&model.Tag{}).Where("id IN ?", tagIDs).
		UpdateColumn("usage_count", decrementExpr("usage_count", 1)).Error
	return errors.Wrap(err, "更新标签使用次数失败")
}

// replace 按差异更新主题标签，返回更新后的标签
func (s *TagService) replace(tx *gorm.DB, topicID uint, names []string) ([]model.Tag, error) {
	current, err := s.topicTags(tx, []uint{topicID})
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	var removed []uint
	have := make(map[string]struct{})
	for _, t := range current[topicID] {
		if _, ok := wanted[t.Name]; ok {
			have[t.Name] = struct{}{}
			continue
		}
		removed = append(removed, t.ID)
	}
	var added []string
	for _, n := range names {
		if _, ok := have[n]; !ok {
			added = append(added, n)
		}
	}

	if err := s.detach(tx, topicID, removed); err != nil {
		return nil, err
	}
	if _, err := s.attach(tx, topicID, added); err != nil {
		return nil, err
	}
	result, err := s.topicTags(tx, []uint{topicID})
	if err != nil {
		return nil, err
	}
	return result[topicID], nil
}

// detachAll 删除主题的全部标签关联
func (s *TagService) detachAll(tx *gorm.DB, topicID uint) error {
	var ids []uint
	if err := tx.Model(&model.ForumTopicTag{}).Where("topic_id = ?", topicID).Pluck("tag_id", &ids).Error; err != nil {
		return errors.Wrap(err, "查询主题标签失败")
	}
	return s.detach(tx, topicID, ids)
}

// topicTags 一次查询取出多个主题的标签
func (s *TagService) topicTags(tx *gorm.DB, topicIDs []uint) (map[uint][]model.Tag, error) {
	result := make(map[uint][]model.Tag, len(topicIDs))
	if len(topicIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		TopicID uint
		model.Tag
	}
	err := tx.Table("forum_topic_tags").
		Select("forum_topic_tags.topic_id, tags.*").
		Joins("JOIN tags ON tags.id = forum_topic_tags.tag_id").
		Where("forum_topic_tags.topic_id IN ?", topicIDs).
		Order("tags.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "查询主题标签失败")
	}
	for _, r := range rows {
		result[r.TopicID] = append(result[r.TopicID], r.Tag)
	}
	return result, nil
}
