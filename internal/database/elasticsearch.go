package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/logger"
	"go.uber.org/zap"
)

// ES 全局Elasticsearch客户端实例
var (
	ES    *elasticsearch.Client
	esOne sync.Once
)

// InitElasticsearch 初始化Elasticsearch连接
func InitElasticsearch(cfg *config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	esConfig := elasticsearch.Config{
		Addresses: cfg.URLs,
	}

	// 如果设置了用户名和密码，则添加基本认证
	if cfg.Username != "" && cfg.Password != "" {
		esConfig.Username = cfg.Username
		esConfig.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("连接elasticsearch失败: %v", err)
	}

	// 检查连接
	err = retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			res, err := client.Info(client.Info.WithContext(ctx))
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("elasticsearch返回错误: %s", res.String())
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch健康检查失败: %v", err)
	}

	logger.Info("elasticsearch连接成功", zap.Strings("addresses", cfg.URLs))
	return client, nil
}

// GetES 获取Elasticsearch客户端实例，未启用时返回nil
func GetES() *elasticsearch.Client {
	if !config.GlobalConfig.Elasticsearch.Enabled {
		return nil
	}
	var err error
	esOne.Do(func() {
		ES, err = InitElasticsearch(&config.GlobalConfig.Elasticsearch)
		if err != nil {
			panic(fmt.Sprintf("elasticsearch初始化失败: %v", err))
		}
	})
	return ES
}
