package router

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/controller"
	"github.com/nsxzhou1114/lms-forum-api/internal/logger"
	"github.com/nsxzhou1114/lms-forum-api/internal/middleware"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/internal/validation"
	"github.com/nsxzhou1114/lms-forum-api/pkg/auth"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// New 创建带全局中间件的gin引擎并注册路由
func New(cfg *config.Config, svc *service.Services, jwt *auth.Manager, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()

	// 使用中间件
	r.Use(gin.Recovery())
	// 追踪中间件在访问日志之前，日志才能取到trace_id
	if cfg.Telemetry.Enabled {
		r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	r.Use(logger.GinLogger())
	r.Use(middleware.Cors(cfg.App.Cors))

	Setup(r, svc, jwt, log)
	return r
}

// Setup 设置API路由
func Setup(r *gin.Engine, svc *service.Services, jwt *auth.Manager, log *zap.SugaredLogger) {
	validation.RegisterGin()

	// API 路由组
	api := r.Group("/api")

	// 评论相关路由
	setupCommentRoutes(api, svc, jwt, log)

	// 论坛相关路由
	forum := api.Group("/forum")
	setupCategoryRoutes(forum, svc, jwt, log)
	setupTopicRoutes(forum, svc, jwt, log)
	setupPostRoutes(forum, svc, jwt, log)
	setupLikeRoutes(forum, svc, jwt, log)
	setupTagRoutes(forum, svc, log)
}

// setupCommentRoutes 设置评论相关路由
func setupCommentRoutes(api *gin.RouterGroup, svc *service.Services, jwt *auth.Manager, log *zap.SugaredLogger) {
	commentApi := controller.NewCommentApi(svc, log)

	// 公开路由，登录用户额外返回点赞状态
	commentRoutes := api.Group("/comments", middleware.OptionalAuth(jwt))
	{
		commentRoutes.GET("", commentApi.List)
		commentRoutes.GET("/count", commentApi.Count)
		commentRoutes.GET("/:id", commentApi.Get)
		commentRoutes.GET("/:id/replies", commentApi.Replies)
	}

	// 需要认证的路由
	authCommentRoutes := api.Group("/comments", middleware.JWTAuth(jwt))
	{
		authCommentRoutes.POST("", commentApi.Create)
		authCommentRoutes.POST("/likes/check", commentApi.CheckLikes)
		authCommentRoutes.PUT("/:id", commentApi.Update)
		authCommentRoutes.DELETE("/:id", commentApi.Delete)
		authCommentRoutes.POST("/:id/like", commentApi.Like)
	}
}

// setupCategoryRoutes 设置分类相关路由
func setupCategoryRoutes(forum *gin.RouterGroup, svc *service.Services, jwt *auth.Manager, log *zap.SugaredLogger) {
	categoryApi := controller.NewForumCategoryApi(svc, log)
	topicApi := controller.NewForumTopicApi(svc, log)

	categoryRoutes := forum.Group("/categories", middleware.OptionalAuth(jwt))
	{
		categoryRoutes.GET("", categoryApi.List)
		categoryRoutes.GET("/:id", categoryApi.GetBySlug)
		// 分类可用ID或slug
		categoryRoutes.GET("/:id/topics", topicApi.ListByCategory)
	}

	// 需要管理员权限的路由
	adminCategoryRoutes := forum.Group("/categories", middleware.JWTAuth(jwt), middleware.AdminAuth())
	{
		adminCategoryRoutes.POST("", categoryApi.Create)
	}
}

// setupTopicRoutes 设置主题相关路由
func setupTopicRoutes(forum *gin.RouterGroup, svc *service.Services, jwt *auth.Manager, log *zap.SugaredLogger) {
	topicApi := controller.NewForumTopicApi(svc, log)
	postApi := controller.NewForumPostApi(svc, log)

	topicRoutes := forum.Group("/topics", middleware.OptionalAuth(jwt))
	{
		topicRoutes.GET("/search", topicApi.Search)
		// 详情按slug访问
		topicRoutes.GET("/:id", topicApi.GetBySlug)
		topicRoutes.GET("/:id/posts", postApi.ListByTopic)
	}

	authTopicRoutes := forum.Group("/topics", middleware.JWTAuth(jwt))
	{
		authTopicRoutes.POST("", topicApi.Create)
		authTopicRoutes.PUT("/:id", topicApi.Update)
		authTopicRoutes.DELETE("/:id", topicApi.Delete)
	}

	// 版主操作
	modTopicRoutes := forum.Group("/topics", middleware.JWTAuth(jwt), middleware.ModeratorAuth())
	{
		modTopicRoutes.PUT("/:id/pin", topicApi.Pin)
		modTopicRoutes.PUT("/:id/lock", topicApi.Lock)
	}
}

// setupPostRoutes 设置回帖相关路由
func setupPostRoutes(forum *gin.RouterGroup, svc *service.Services, jwt *auth.Manager, log *zap.SugaredLogger) {
	postApi := controller.NewForumPostApi(svc, log)

	postRoutes := forum.Group("/posts", middleware.OptionalAuth(jwt))
	{
		postRoutes.GET("/:id/replies", postApi.Replies)
	}

	authPostRoutes := forum.Group("/posts", middleware.JWTAuth(jwt))
	{
		authPostRoutes.POST("", postApi.Create)
		authPostRoutes.PUT("/:id", postApi.Update)
		authPostRoutes.DELETE("/:id", postApi.Delete)
		authPostRoutes.PUT("/:id/best-answer", postApi.BestAnswer)
	}
}

// setupLikeRoutes 设置点赞相关路由
func setupLikeRoutes(forum *gin.RouterGroup, svc *service.Services, jwt *auth.Manager, log *zap.SugaredLogger) {
	likeApi := controller.NewForumLikeApi(svc, log)

	likeRoutes := forum.Group("", middleware.JWTAuth(jwt))
	{
		likeRoutes.POST("/like", likeApi.Toggle)
		likeRoutes.POST("/likes/check", likeApi.Check)
	}
}

// setupTagRoutes 设置标签相关路由
func setupTagRoutes(forum *gin.RouterGroup, svc *service.Services, log *zap.SugaredLogger) {
	tagApi := controller.NewTagApi(svc, log)

	forum.GET("/tags/popular", tagApi.Popular)
}
