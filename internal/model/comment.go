package model

import (
	"strings"
	"time"
)

// CommentableType 可评论目标类型
type CommentableType string

const (
	CommentableCourse CommentableType = "COURSE"
	CommentableLesson CommentableType = "LESSON"
)

// ParseCommentableType 解析目标类型，大小写不敏感
func ParseCommentableType(s string) (CommentableType, bool) {
	switch CommentableType(strings.ToUpper(strings.TrimSpace(s))) {
	case CommentableCourse:
		return CommentableCourse, true
	case CommentableLesson:
		return CommentableLesson, true
	}
	return "", false
}

// Comment 课程/课时评论，单层嵌套由服务层保证
type Comment struct {
	Base
	Content           string          `gorm:"type:text;not null" json:"content"`
	AuthorID          uint            `gorm:"not null;index" json:"authorId"`
	CommentableType   CommentableType `gorm:"type:varchar(20);not null;index:idx_commentable,priority:1" json:"commentableType"`
	CommentableID     uint            `gorm:"not null;index:idx_commentable,priority:2" json:"commentableId"`
	ParentCommentID   *uint           `gorm:"index" json:"parentCommentId"`
	LikesCount        int             `gorm:"not null;default:0" json:"likesCount"`
	IsEdited          bool            `gorm:"not null;default:false" json:"isEdited"`
	EditedAt          *time.Time      `json:"editedAt"`
	IsInstructorReply bool            `gorm:"not null;default:false" json:"isInstructorReply"`
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}
