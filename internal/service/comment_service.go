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

// CommentService 评论服务
type CommentService struct {
	db        *gorm.DB
	resolver  *TargetResolver
	likes     *LikeService
	users     UserDirectory
	filter    *ContentFilter
	publisher event.Publisher
	logger    *zap.SugaredLogger
}

// NewCommentService 创建评论服务实例
func NewCommentService(db *gorm.DB, resolver *TargetResolver, likes *LikeService, users UserDirectory,
	filter *ContentFilter, publisher event.Publisher, log *zap.SugaredLogger) *CommentService {
	return &CommentService{
		db:        db,
		resolver:  resolver,
		likes:     likes,
		users:     users,
		filter:    filter,
		publisher: publisher,
		logger:    log,
	}
}

// Create 创建评论，讲师身份在创建时快照
func (s *CommentService) Create(ctx context.Context, authorID uint, req *dto.CommentCreateRequest) (*dto.CommentResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	content, err := s.filter.CleanContent(req.Content, MinCommentLen, MaxContentLen)
	if err != nil {
		return nil, err
	}
	t, err := ParseCommentable(req.CommentableType)
	if err != nil {
		return nil, err
	}
	target, err := s.resolver.ResolveCommentable(ctx, t, req.CommentableID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		Content:           content,
		AuthorID:          authorID,
		CommentableType:   target.Type,
		CommentableID:     target.ID,
		ParentCommentID:   req.ParentCommentID,
		IsInstructorReply: target.InstructorID != 0 && target.InstructorID == authorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ParentCommentID != nil {
			var parent model.Comment
			if err := tx.Select("id", "commentable_type", "commentable_id").First(&parent, *req.ParentCommentID).Error; err != nil {
				return dbError(err, "回复的评论不存在", "查询父评论失败")
			}
			if parent.CommentableType != target.Type || parent.CommentableID != target.ID {
				return errcode.FieldError("parentCommentId", "不能回复其他课程或课时下的评论").WithCode(errcode.ParentMismatch)
			}
		}
		if err := tx.Create(comment).Error; err != nil {
			return errors.Wrap(err, "创建评论失败")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, event.Event{
		Type:       event.CommentCreated,
		ActorID:    authorID,
		TargetType: string(model.LikeTargetComment),
		TargetID:   comment.ID,
	})
	return s.GetByID(ctx, authorID, comment.ID)
}

// GetByID 获取评论详情
func (s *CommentService) GetByID(ctx context.Context, viewerID, id uint) (*dto.CommentResponse, error) {
	var comment model.Comment
	if err := s.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, dbError(err, "评论不存在", "查询评论失败")
	}
	items, err := s.decorate(ctx, viewerID, []model.Comment{comment})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// ListTopLevel 分页获取课程/课时下的顶级评论，总数只统计顶级评论
func (s *CommentService) ListTopLevel(ctx context.Context, viewerID uint, q *dto.CommentListQuery) (*dto.Page[dto.CommentResponse], error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}
	t, err := ParseCommentable(q.Type)
	if err != nil {
		return nil, err
	}
	page, limit := normalizePage(q.Page, q.Limit, DefaultCommentLimit)

	query := s.db.WithContext(ctx).Model(&model.Comment{}).
		Where("commentable_type = ? AND commentable_id = ? AND parent_comment_id IS NULL", t, q.ID)
	return s.listPage(ctx, viewerID, query, page, limit)
}

// ListReplies 分页获取评论的直接回复
func (s *CommentService) ListReplies(ctx context.Context, viewerID, parentID uint, pq dto.PageQuery) (*dto.Page[dto.CommentResponse], error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", parentID).Count(&count).Error; err != nil {
		return nil, errors.Wrap(err, "查询评论失败")
	}
	if count == 0 {
		return nil, errcode.NewNotFound("评论不存在")
	}
	page, limit := normalizePage(pq.Page, pq.Limit, DefaultReplyLimit)

	query := s.db.WithContext(ctx).Model(&model.Comment{}).Where("parent_comment_id = ?", parentID)
	return s.listPage(ctx, viewerID, query, page, limit)
}

func (s *CommentService) listPage(ctx context.Context, viewerID uint, query *gorm.DB, page, limit int) (*dto.Page[dto.CommentResponse], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "统计评论数失败")
	}

	var comments []model.Comment
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, errors.Wrap(err, "查询评论列表失败")
	}

	items, err := s.decorate(ctx, viewerID, comments)
	if err != nil {
		return nil, err
	}
	return dto.NewPage(items, total, page, limit), nil
}

// Count 统计课程/课时下的全部评论（含回复）
func (s *CommentService) Count(ctx context.Context, q *dto.CommentTargetQuery) (int64, error) {
	if err := validation.Struct(q); err != nil {
		return 0, err
	}
	t, err := ParseCommentable(q.Type)
	if err != nil {
		return 0, err
	}
	var total int64
	err = s.db.WithContext(ctx).Model(&model.Comment{}).
		Where("commentable_type = ? AND commentable_id = ?", t, q.ID).
		Count(&total).Error
	return total, errors.Wrap(err, "统计评论数失败")
}

// Update 作者编辑评论
func (s *CommentService) Update(ctx context.Context, actor policy.Actor, id uint, req *dto.CommentUpdateRequest) (*dto.CommentResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	content, err := s.filter.CleanContent(req.Content, MinCommentLen, MaxContentLen)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		if err := tx.Clauses(forUpdate()).First(&comment, id).Error; err != nil {
			return dbError(err, "评论不存在", "查询评论失败")
		}
		if err := policy.RequireAuthor(actor, comment.AuthorID, "编辑评论"); err != nil {
			return err
		}
		now := time.Now()
		return errors.Wrap(tx.Model(&comment).Updates(map[string]interface{}{
			"content":   content,
			"is_edited": true,
			"edited_at": &now,
		}).Error, "更新评论失败")
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, actor.ID, id)
}

// Delete 删除评论及其全部回复和相关点赞
func (s *CommentService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	var comment model.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).First(&comment, id).Error; err != nil {
			return dbError(err, "评论不存在", "查询评论失败")
		}
		if err := policy.RequireAuthorOrModerator(actor, comment.AuthorID, "删除评论"); err != nil {
			return err
		}

		ids, err := collectSubtree(tx, comment.TableName(), "parent_comment_id", comment.ID)
		if err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id IN ?", model.LikeTargetComment, ids).Delete(&model.Like{}).Error; err != nil {
			return errors.Wrap(err, "删除评论点赞失败")
		}
		if err := tx.Where("id IN ?", ids).Delete(&model.Comment{}).Error; err != nil {
			return errors.Wrap(err, "删除评论失败")
		}
		s.logger.Infof("删除评论 %d 及其 %d 条回复", comment.ID, len(ids)-1)
		return nil
	})
	if err != nil {
		return err
	}

	publish(ctx, s.publisher, event.Event{
		Type:       event.CommentDeleted,
		ActorID:    actor.ID,
		TargetType: string(model.LikeTargetComment),
		TargetID:   id,
	})
	return nil
}

// decorate 填充作者、直接回复数和当前用户点赞状态，每项各一次批量查询
func (s *CommentService) decorate(ctx context.Context, viewerID uint, comments []model.Comment) ([]dto.CommentResponse, error) {
	ids := make([]uint, len(comments))
	authorIDs := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		authorIDs[i] = c.AuthorID
	}

	authors, err := s.users.Profiles(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	replies, err := countChildren(s.db.WithContext(ctx), model.Comment{}.TableName(), "parent_comment_id", ids)
	if err != nil {
		return nil, err
	}
	liked := s.likes.LikedSetOrEmpty(ctx, viewerID, model.LikeTargetComment, ids)

	items := make([]dto.CommentResponse, len(comments))
	for i, c := range comments {
		items[i] = dto.CommentResponse{
			Comment:      c,
			Author:       authors[c.AuthorID],
			RepliesCount: replies[c.ID],
			IsLiked:      liked[c.ID],
		}
	}
	return items, nil
}
