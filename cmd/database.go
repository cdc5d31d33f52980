package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/logger"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/spf13/cobra"
)

var withExternal bool

// databaseCmd 数据库管理命令
var databaseCmd = &cobra.Command{
	Use:   "db",
	Short: "数据库管理命令",
	Long:  `数据库管理相关的命令，包括建表与重建搜索索引`,
}

// migrateCmd 初始化数据库表命令
// 示例：./lms-forum-api db migrate --with-external
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "初始化数据库表",
	Long:  `自动迁移论坛数据表，启用Elasticsearch时同时创建主题索引`,
	Run: func(cmd *cobra.Command, args []string) {
		runMigrate()
	},
}

// reindexCmd 重建搜索索引命令
// 示例：./lms-forum-api db reindex
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "重建主题搜索索引",
	Long:  `从数据库读取全部主题写入Elasticsearch`,
	Run: func(cmd *cobra.Command, args []string) {
		runReindex()
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&withExternal, "with-external", false, "同时迁移用户、课程、课时只读表（仅用于本地开发）")

	// 添加数据库相关子命令
	databaseCmd.AddCommand(migrateCmd)
	databaseCmd.AddCommand(reindexCmd)

	// 将数据库命令添加到根命令
	rootCmd.AddCommand(databaseCmd)
}

// runMigrate 建表并初始化索引
func runMigrate() {
	if err := initializeSystem(); err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rt, err := connect()
	if err != nil {
		fmt.Printf("连接失败: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	if err := model.InitTables(rt.deps.DB, withExternal); err != nil {
		fmt.Printf("初始化数据库表失败: %v\n", err)
		os.Exit(1)
	}

	if rt.deps.ES != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := model.InitESIndex(ctx, rt.deps.ES, model.ESTopic{}, config.GlobalConfig.Elasticsearch.Index); err != nil {
			fmt.Printf("初始化Elasticsearch索引失败: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("✅ 数据库初始化完成")
}

// runReindex 全量重建主题索引
func runReindex() {
	if err := initializeSystem(); err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !config.GlobalConfig.Elasticsearch.Enabled {
		fmt.Println("Elasticsearch未启用，无需重建索引")
		return
	}

	rt, err := connect()
	if err != nil {
		fmt.Printf("连接失败: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	svc, err := service.NewServices(rt.deps)
	if err != nil {
		fmt.Printf("服务初始化失败: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	n, err := svc.Indexer.Reindex(context.Background())
	if err != nil {
		fmt.Printf("重建索引失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ 已重建 %d 个主题的索引，耗时 %s\n", n, time.Since(start).Round(time.Millisecond))
}
