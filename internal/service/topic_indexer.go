package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// reindexBatchSize 重建索引时每批读取的主题数
const reindexBatchSize = 200

// TopicIndexer 主题搜索索引维护，ES未启用时所有写操作为空操作
type TopicIndexer struct {
	db     *gorm.DB
	es     *elasticsearch.Client
	index  string
	tags   *TagService
	logger *zap.SugaredLogger
}

// NewTopicIndexer 创建索引维护器，es为nil表示未启用
func NewTopicIndexer(db *gorm.DB, es *elasticsearch.Client, index string, tags *TagService, log *zap.SugaredLogger) *TopicIndexer {
	if index == "" {
		index = model.ESTopic{}.ESIndexName()
	}
	return &TopicIndexer{db: db, es: es, index: index, tags: tags, logger: log}
}

// Enabled 是否启用ES
func (x *TopicIndexer) Enabled() bool {
	return x != nil && x.es != nil
}

// Sync 事务提交后同步单个主题，失败只记录日志
func (x *TopicIndexer) Sync(ctx context.Context, topicID uint) {
	if !x.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var topic model.ForumTopic
	if err := x.db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			x.Remove(ctx, topicID)
			return
		}
		x.logger.Errorf("同步主题 %d 到ES失败: %v", topicID, err)
		return
	}
	tags, err := x.tags.topicTags(x.db.WithContext(ctx), []uint{topicID})
	if err != nil {
		x.logger.Errorf("同步主题 %d 到ES失败: %v", topicID, err)
		return
	}
	if err := x.upsert(ctx, toESTopic(&topic, tags[topicID])); err != nil {
		x.logger.Errorf("同步主题 %d 到ES失败: %v", topicID, err)
	}
}

// Remove 从索引删除主题，失败只记录日志
func (x *TopicIndexer) Remove(ctx context.Context, topicID uint) {
	if !x.Enabled() {
		return
	}
	req := esapi.DeleteRequest{
		Index:      x.index,
		DocumentID: model.ESDocID(topicID),
	}
	res, err := req.Do(context.WithoutCancel(ctx), x.es)
	if err != nil {
		x.logger.Errorf("从ES删除主题 %d 失败: %v", topicID, err)
		return
	}
	defer res.Body.Close()
	// 文档不存在视为已删除
	if res.IsError() && res.StatusCode != 404 {
		x.logger.Errorf("从ES删除主题 %d 失败: %s", topicID, res.String())
	}
}

// Reindex 从数据库重建全部主题文档，返回写入数量
func (x *TopicIndexer) Reindex(ctx context.Context) (int, error) {
	if !x.Enabled() {
		return 0, errors.New("Elasticsearch 未启用")
	}

	indexed := 0
	var failed error
	var batch []model.ForumTopic
	res := x.db.WithContext(ctx).FindInBatches(&batch, reindexBatchSize, func(tx *gorm.DB, _ int) error {
		ids := make([]uint, len(batch))
		for i, t := range batch {
			ids[i] = t.ID
		}
		tags, err := x.tags.topicTags(x.db.WithContext(ctx), ids)
		if err != nil {
			return err
		}
		for i := range batch {
			if err := x.upsert(ctx, toESTopic(&batch[i], tags[batch[i].ID])); err != nil {
				x.logger.Warnf("重建索引时写入主题 %d 失败: %v", batch[i].ID, err)
				failed = err
				continue
			}
			indexed++
		}
		return nil
	})
	if res.Error != nil {
		return indexed, errors.Wrap(res.Error, "读取主题失败")
	}

	refresh, err := x.es.Indices.Refresh(
		x.es.Indices.Refresh.WithContext(ctx),
		x.es.Indices.Refresh.WithIndex(x.index),
	)
	if err != nil {
		return indexed, errors.Wrap(err, "刷新索引失败")
	}
	refresh.Body.Close()

	x.logger.Infof("重建主题索引完成，共 %d 条", indexed)
	if failed != nil {
		return indexed, errors.Wrap(failed, "部分主题写入ES失败")
	}
	return indexed, nil
}

// Schedule 按cron表达式定时重建索引，调用方负责Stop
func (x *TopicIndexer) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := x.Reindex(context.Background()); err != nil {
			x.logger.Errorf("定时重建主题索引失败: %v", err)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "无效的cron表达式: %s", spec)
	}
	c.Start()
	return c, nil
}

func (x *TopicIndexer) upsert(ctx context.Context, doc *model.ESTopic) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: model.ESDocID(doc.TopicID),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("写入ES失败: %s", res.String())
	}
	return nil
}

// searchResult ES搜索结果中用到的字段
type searchResult struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source model.ESTopic `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// search 在ES中检索主题，返回按相关度和最后回复时间排序的主题ID
func (x *TopicIndexer) search(ctx context.Context, keyword string, categoryID uint, tags []string, page, limit int) ([]uint, int64, error) {
	filters := make([]map[string]interface{}, 0, len(tags)+1)
	if categoryID > 0 {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"category_id": categoryID},
		})
	}
	// 每个标签一个term，要求同时包含全部标签
	for _, tag := range tags {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"tags": tag},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"multi_match": map[string]interface{}{
							"query":  keyword,
							"fields": []string{"title^3", "content"},
							"type":   "best_fields",
						},
					},
				},
				"filter": filters,
			},
		},
		"from":    offset(page, limit),
		"size":    limit,
		"_source": []string{"topic_id"},
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"last_post_at": map[string]interface{}{"order": "desc", "missing": "_last"}},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, 0, err
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(&buf),
		x.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("ES搜索错误: %s", res.String())
	}

	var result searchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, errors.Wrap(err, "解析ES搜索结果失败")
	}
	ids := make([]uint, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.Source.TopicID)
	}
	return ids, result.Hits.Total.Value, nil
}

// toESTopic 构建ES文档，正文转为纯文本
func toESTopic(t *model.ForumTopic, tags []model.Tag) *model.ESTopic {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return &model.ESTopic{
		TopicID:    t.ID,
		Title:      t.Title,
		Content:    strings.TrimSpace(PlainText(t.Content)),
		Slug:       t.Slug,
		AuthorID:   t.AuthorID,
		CategoryID: t.CategoryID,
		Tags:       names,
		IsPinned:   t.IsPinned,
		IsLocked:   t.IsLocked,
		LastPostAt: t.LastPostAt,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}
