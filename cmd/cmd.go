package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/database"
	"github.com/nsxzhou1114/lms-forum-api/internal/event"
	"github.com/nsxzhou1114/lms-forum-api/internal/logger"
	"github.com/nsxzhou1114/lms-forum-api/internal/router"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/internal/telemetry"
	"github.com/nsxzhou1114/lms-forum-api/pkg/auth"
	"github.com/nsxzhou1114/lms-forum-api/pkg/cache"
	"github.com/nsxzhou1114/lms-forum-api/pkg/idgen"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "lms-forum-api",
	Short: "LMS论坛与评论服务",
	Long:  `LMS的评论、论坛主题与回帖、点赞、标签和搜索服务`,
}

// serveCmd 启动服务命令
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务",
	Long:  `启动论坛API的HTTP服务器`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	// 添加全局标志
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config", "配置文件路径")

	// 添加子命令
	rootCmd.AddCommand(serveCmd)
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// initializeSystem 初始化配置、日志与雪花ID
func initializeSystem() error {
	// 初始化配置
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("配置初始化失败: %v", err)
	}

	// 初始化日志
	if err := logger.Init(); err != nil {
		return fmt.Errorf("日志初始化失败: %v", err)
	}

	// 初始化雪花ID
	sf := config.GlobalConfig.Snowflake
	if err := idgen.Init(sf.StartTime, sf.MachineID); err != nil {
		return fmt.Errorf("雪花ID初始化失败: %v", err)
	}
	return nil
}

// runtimeDeps 运行期外部依赖
type runtimeDeps struct {
	deps  service.Deps
	close []func() error
}

// Close 按相反顺序释放资源
func (r *runtimeDeps) Close() {
	for i := len(r.close) - 1; i >= 0; i-- {
		if err := r.close[i](); err != nil {
			logger.Warn("释放资源失败", zap.Error(err))
		}
	}
}

// connect 建立MySQL、Redis、Elasticsearch与Kafka连接，可选组件未启用时降级
func connect() (*runtimeDeps, error) {
	cfg := config.GlobalConfig
	rt := &runtimeDeps{}

	db, err := database.InitMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("MySQL数据库连接失败: %v", err)
	}

	// redis不可用时浏览量不去重，用户资料不缓存
	var c cache.Cache
	if client, err := database.InitRedis(&cfg.Redis); err != nil {
		logger.Warn("redis不可用，缓存已禁用", zap.Error(err))
	} else {
		c = cache.NewRedisCache(client)
		rt.close = append(rt.close, c.Close)
	}

	var es *elasticsearch.Client
	if cfg.Elasticsearch.Enabled {
		es, err = database.InitElasticsearch(&cfg.Elasticsearch)
		if err != nil {
			rt.Close()
			return nil, err
		}
	}

	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := event.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			rt.Close()
			return nil, err
		}
		publisher = kp
		rt.close = append(rt.close, kp.Close)
	}

	rt.deps = service.Deps{
		DB:        db,
		Cache:     c,
		ES:        es,
		Publisher: publisher,
		Config:    cfg,
		Logger:    logger.GetSugaredLogger(),
	}
	return rt, nil
}

// startServer 启动HTTP服务
func startServer() {
	// 初始化系统
	if err := initializeSystem(); err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	cfg := config.GlobalConfig

	shutdownTracing, err := telemetry.Init(cfg.Telemetry, Version)
	if err != nil {
		logger.Fatal("链路追踪初始化失败", zap.Error(err))
	}

	rt, err := connect()
	if err != nil {
		logger.Fatal("外部依赖初始化失败", zap.Error(err))
	}
	defer rt.Close()

	svc, err := service.NewServices(rt.deps)
	if err != nil {
		logger.Fatal("服务初始化失败", zap.Error(err))
	}

	// 定时重建搜索索引
	if cfg.Search.ReindexCron != "" && svc.Indexer.Enabled() {
		c, err := svc.Indexer.Schedule(cfg.Search.ReindexCron)
		if err != nil {
			logger.Fatal("注册索引重建任务失败", zap.Error(err))
		}
		defer c.Stop()
	}

	// 设置Gin模式
	gin.SetMode(cfg.App.Mode)

	// 初始化路由
	r := router.New(cfg, svc, auth.NewManager(cfg.JWT), logger.GetSugaredLogger())

	// 启动HTTP服务
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: r,
	}

	// 优雅关闭
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP服务启动失败", zap.Error(err))
		}
	}()

	logger.Info("服务已启动", zap.String("addr", srv.Addr))

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("关闭服务...")

	// 设置关闭超时
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.App.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务关闭异常", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("关闭链路追踪失败", zap.Error(err))
	}

	logger.Info("服务已关闭")
}
