package model

import (
	"fmt"
	"time"
)

// ESTopic Elasticsearch主题文档模型
type ESTopic struct {
	TopicID    uint       `json:"topic_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"` // 去除markdown标记后的纯文本
	Slug       string     `json:"slug"`
	AuthorID   uint       `json:"author_id"`
	CategoryID uint       `json:"category_id"`
	Tags       []string   `json:"tags"`
	IsPinned   bool       `json:"is_pinned"`
	IsLocked   bool       `json:"is_locked"`
	LastPostAt *time.Time `json:"last_post_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ESDocID 返回文档ID
func ESDocID(topicID uint) string {
	return fmt.Sprintf("topic_%d", topicID)
}

// ESIndexName 返回ES索引名称
func (ESTopic) ESIndexName() string {
	return "forum_topics"
}

// ESMapping 返回ES索引映射
func (ESTopic) ESMapping() string {
	return `{
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 1,
			"analysis": {
				"analyzer": {
					"text_analyzer": {
						"type": "custom",
						"tokenizer": "standard",
						"char_filter": ["html_strip"],
						"filter": ["lowercase", "asciifolding"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"topic_id": { "type": "long" },
				"title": {
					"type": "text",
					"analyzer": "text_analyzer",
					"fields": {
						"keyword": { "type": "keyword" }
					}
				},
				"content": { "type": "text", "analyzer": "text_analyzer" },
				"slug": { "type": "keyword" },
				"author_id": { "type": "long" },
				"category_id": { "type": "long" },
				"tags": { "type": "keyword" },
				"is_pinned": { "type": "boolean" },
				"is_locked": { "type": "boolean" },
				"last_post_at": { "type": "date" },
				"created_at": { "type": "date" },
				"updated_at": { "type": "date" }
			}
		}
	}`
}
