// Package event 论坛领域事件，提交事务后尽力投递，供通知等外部消费者使用
package event

import (
	"context"
	"time"
)

// 事件类型
const (
	TopicCreated   = "forum.topic.created"
	TopicDeleted   = "forum.topic.deleted"
	PostCreated    = "forum.post.created"
	PostBestAnswer = "forum.post.best_answer"
	LikeToggled    = "forum.like.toggled"
	CommentCreated = "comment.created"
	CommentDeleted = "comment.deleted"
)

// Event 领域事件
type Event struct {
	Type       string    `json:"type"`
	ActorID    uint      `json:"actorId"`
	TargetType string    `json:"targetType"`
	TargetID   uint      `json:"targetId"`
	TopicID    uint      `json:"topicId,omitempty"`
	Liked      *bool     `json:"liked,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher 事件发布者
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NoopPublisher 未启用消息队列时使用
type NoopPublisher struct{}

// Publish 丢弃事件
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Close 无需关闭
func (NoopPublisher) Close() error { return nil }
