package model

import "time"

// ForumCategory 论坛分类
type ForumCategory struct {
	Base
	Name        string `gorm:"type:varchar(50);not null;uniqueIndex" json:"name"`
	Slug        string `gorm:"type:varchar(80);not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:varchar(500)" json:"description"`
	Icon        string `gorm:"type:varchar(255)" json:"icon"`
	Color       string `gorm:"type:varchar(20)" json:"color"`
	IsActive    bool   `gorm:"not null;default:true" json:"isActive"`
	OrderIndex  int    `gorm:"not null;default:0;index" json:"orderIndex"`
	TopicsCount int    `gorm:"not null;default:0" json:"topicsCount"`
	PostsCount  int    `gorm:"not null;default:0" json:"postsCount"`
}

// TableName 指定表名
func (ForumCategory) TableName() string {
	return "forum_categories"
}

// ForumTopic 论坛主题
type ForumTopic struct {
	Base
	Title            string     `gorm:"type:varchar(200);not null" json:"title"`
	Slug             string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Content          string     `gorm:"type:text;not null" json:"content"`
	AuthorID         uint       `gorm:"not null;index" json:"authorId"`
	CategoryID       uint       `gorm:"not null;index" json:"categoryId"`
	IsPinned         bool       `gorm:"not null;default:false" json:"isPinned"`
	IsLocked         bool       `gorm:"not null;default:false" json:"isLocked"`
	ViewsCount       int        `gorm:"not null;default:0" json:"viewsCount"`
	RepliesCount     int        `gorm:"not null;default:0" json:"repliesCount"`
	LikesCount       int        `gorm:"not null;default:0" json:"likesCount"`
	LastPostAt       *time.Time `gorm:"index" json:"lastPostAt"`
	LastPostAuthorID *uint      `json:"lastPostAuthorId"`

	Tags []Tag `gorm:"-" json:"tags"`
}

// TableName 指定表名
func (ForumTopic) TableName() string {
	return "forum_topics"
}

// ForumPost 论坛回帖，回复的回复会被归并到同一根回帖下
type ForumPost struct {
	Base
	Content      string     `gorm:"type:text;not null" json:"content"`
	AuthorID     uint       `gorm:"not null;index" json:"authorId"`
	TopicID      uint       `gorm:"not null;index" json:"topicId"`
	ReplyToID    *uint      `gorm:"index" json:"replyToId"`
	LikesCount   int        `gorm:"not null;default:0" json:"likesCount"`
	IsBestAnswer bool       `gorm:"not null;default:false" json:"isBestAnswer"`
	IsEdited     bool       `gorm:"not null;default:false" json:"isEdited"`
	EditedAt     *time.Time `json:"editedAt"`
}

// TableName 指定表名
func (ForumPost) TableName() string {
	return "forum_posts"
}

// ForumTopicTag 主题与标签关联
type ForumTopicTag struct {
	TopicID uint `gorm:"primaryKey;autoIncrement:false" json:"topicId"`
	TagID   uint `gorm:"primaryKey;autoIncrement:false;index" json:"tagId"`
}

// TableName 指定表名
func (ForumTopicTag) TableName() string {
	return "forum_topic_tags"
}
