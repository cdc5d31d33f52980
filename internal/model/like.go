package model

import "time"

// LikeTargetType 点赞目标类型
type LikeTargetType string

const (
	LikeTargetTopic   LikeTargetType = "TOPIC"
	LikeTargetPost    LikeTargetType = "POST"
	LikeTargetComment LikeTargetType = "COMMENT"
)

// Like 点赞记录，同一用户对同一目标至多一条
type Like struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;uniqueIndex:idx_like_user_target,priority:1" json:"userId"`
	TargetType LikeTargetType `gorm:"type:varchar(20);not null;uniqueIndex:idx_like_user_target,priority:2;index:idx_like_target,priority:1" json:"targetType"`
	TargetID   uint           `gorm:"not null;uniqueIndex:idx_like_user_target,priority:3;index:idx_like_target,priority:2" json:"targetId"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// TableName 指定表名
func (Like) TableName() string {
	return "likes"
}
