package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsxzhou1114/lms-forum-api/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ESModel 定义支持Elasticsearch操作的模型接口
type ESModel interface {
	ESIndexName() string
	ESMapping() string
}

// 本服务拥有的表
var models = []interface{}{
	&Comment{},
	&ForumCategory{},
	&ForumTopic{},
	&ForumPost{},
	&Tag{},
	&ForumTopicTag{},
	&Like{},
}

// ExternalModels 由其他模块维护的只读表，仅在本地开发和测试时迁移
var ExternalModels = []interface{}{
	&User{},
	&Course{},
	&Lesson{},
}

// InitTables 初始化数据库表
func InitTables(db *gorm.DB, withExternal bool) error {
	logger.Info("开始初始化数据库表", zap.Bool("with_external", withExternal))

	all := models
	if withExternal {
		all = append(append([]interface{}{}, models...), ExternalModels...)
	}
	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("自动迁移数据库表失败: %v", err)
	}

	logger.Info("数据库表初始化完成")
	return nil
}

// InitESIndex 初始化Elasticsearch索引，索引名为空时使用模型默认名称
func InitESIndex(ctx context.Context, client *elasticsearch.Client, m ESModel, indexName string) error {
	if indexName == "" {
		indexName = m.ESIndexName()
	}

	// 检查索引是否存在
	resp, err := client.Indices.Exists([]string{indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("检查索引 %s 是否存在时出错: %v", indexName, err)
	}
	resp.Body.Close()

	if resp.StatusCode != 404 {
		logger.Info("索引已存在，跳过创建", zap.String("index", indexName))
		return nil
	}

	createResp, err := client.Indices.Create(
		indexName,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(strings.NewReader(m.ESMapping())),
	)
	if err != nil {
		return fmt.Errorf("创建索引 %s 失败: %v", indexName, err)
	}
	defer createResp.Body.Close()
	if createResp.IsError() {
		return fmt.Errorf("创建索引 %s 返回错误: %s", indexName, createResp.String())
	}
	logger.Info("索引创建成功", zap.String("index", indexName))
	return nil
}
