package service

import (
	"context"

	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// likeableDef 可点赞目标在存储中的位置
type likeableDef struct {
	table    string
	counter  string
	notFound string
	// topicColumn 目标所属主题的列，为空表示不属于论坛主题
	topicColumn string
}

// 可点赞目标只在这里注册
var likeables = map[model.LikeTargetType]likeableDef{
	model.LikeTargetTopic:   {table: "forum_topics", counter: "likes_count", notFound: "主题不存在", topicColumn: "id"},
	model.LikeTargetPost:    {table: "forum_posts", counter: "likes_count", notFound: "回帖不存在", topicColumn: "topic_id"},
	model.LikeTargetComment: {table: "comments", counter: "likes_count", notFound: "评论不存在"},
}

// commentableLookup 返回可评论目标的讲师ID
type commentableLookup func(ctx context.Context, catalog CourseCatalog, id uint) (uint, error)

// 可评论目标只在这里注册
var commentables = map[model.CommentableType]commentableLookup{
	model.CommentableCourse: func(ctx context.Context, c CourseCatalog, id uint) (uint, error) {
		return c.CourseInstructor(ctx, id)
	},
	model.CommentableLesson: func(ctx context.Context, c CourseCatalog, id uint) (uint, error) {
		return c.LessonInstructor(ctx, id)
	},
}

// ParseLikeTarget 解析点赞目标类型
func ParseLikeTarget(s string) (model.LikeTargetType, error) {
	t := model.LikeTargetType(upper(s))
	if _, ok := likeables[t]; !ok {
		return "", errcode.FieldError("type", "不支持的点赞目标类型: "+s).WithCode(errcode.InvalidTargetType)
	}
	return t, nil
}

// ParseCommentable 解析可评论目标类型
func ParseCommentable(s string) (model.CommentableType, error) {
	t, ok := model.ParseCommentableType(s)
	if !ok {
		return "", errcode.FieldError("type", "不支持的评论目标类型: "+s).WithCode(errcode.InvalidTargetType)
	}
	if _, ok := commentables[t]; !ok {
		return "", errcode.FieldError("type", "不支持的评论目标类型: "+s).WithCode(errcode.InvalidTargetType)
	}
	return t, nil
}

// TargetHandle 已确认存在的点赞目标，调用方无需关心具体类型
type TargetHandle struct {
	Type    model.LikeTargetType
	ID      uint
	TopicID uint
	spec    likeableDef
}

// Commentable 已确认存在的评论目标
type Commentable struct {
	Type         model.CommentableType
	ID           uint
	InstructorID uint
}

// TargetResolver 多态目标解析
type TargetResolver struct {
	catalog CourseCatalog
}

// NewTargetResolver 创建目标解析器
func NewTargetResolver(catalog CourseCatalog) *TargetResolver {
	return &TargetResolver{catalog: catalog}
}

// Resolve 在给定事务内锁定并返回点赞目标，不存在时返回NotFound
func (r *TargetResolver) Resolve(tx *gorm.DB, t model.LikeTargetType, id uint) (*TargetHandle, error) {
	spec, ok := likeables[t]
	if !ok {
		return nil, errcode.FieldError("type", "不支持的点赞目标类型").WithCode(errcode.InvalidTargetType)
	}

	columns := "id"
	if spec.topicColumn != "" {
		columns += ", " + spec.topicColumn + " AS topic_id"
	}
	var row struct {
		ID      uint
		TopicID uint
	}
	res := tx.Table(spec.table).
		Clauses(forUpdate()).
		Select(columns).
		Where("id = ?", id).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "查询点赞目标失败")
	}
	if res.RowsAffected == 0 {
		return nil, errcode.NewNotFound(spec.notFound)
	}
	return &TargetHandle{Type: t, ID: id, TopicID: row.TopicID, spec: spec}, nil
}

// AdjustLikes 调整点赞计数，减少时不低于0
func (h *TargetHandle) AdjustLikes(tx *gorm.DB, delta int) error {
	expr := gorm.Expr(h.spec.counter+" + ?", delta)
	if delta < 0 {
		expr = decrementExpr(h.spec.counter, -delta)
	}
	err := tx.Table(h.spec.table).Where("id = ?", h.ID).UpdateColumn(h.spec.counter, expr).Error
	return errors.Wrap(err, "更新点赞数失败")
}

// LikesCount 读取当前点赞数
func (h *TargetHandle) LikesCount(tx *gorm.DB) (int, error) {
	var counts []int
	if err := tx.Table(h.spec.table).Where("id = ?", h.ID).Limit(1).Pluck(h.spec.counter, &counts).Error; err != nil {
		return 0, errors.Wrap(err, "读取点赞数失败")
	}
	if len(counts) == 0 {
		return 0, errcode.NewNotFound(h.spec.notFound)
	}
	return counts[0], nil
}

// ResolveCommentable 确认课程/课时存在并返回讲师ID
func (r *TargetResolver) ResolveCommentable(ctx context.Context, t model.CommentableType, id uint) (*Commentable, error) {
	lookup, ok := commentables[t]
	if !ok {
		return nil, errcode.FieldError("type", "不支持的评论目标类型").WithCode(errcode.InvalidTargetType)
	}
	instructorID, err := lookup(ctx, r.catalog, id)
	if err != nil {
		return nil, err
	}
	return &Commentable{Type: t, ID: id, InstructorID: instructorID}, nil
}
