package service

import (
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/event"
	"github.com/nsxzhou1114/lms-forum-api/pkg/cache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps 服务依赖，Cache/ES为nil时对应功能降级
type Deps struct {
	DB        *gorm.DB
	Cache     cache.Cache
	ES        *elasticsearch.Client
	Publisher event.Publisher
	Config    *config.Config
	Logger    *zap.SugaredLogger
}

// Services 论坛全部服务
type Services struct {
	Comments   *CommentService
	Categories *CategoryService
	Topics     *TopicService
	Posts      *PostService
	Likes      *LikeService
	Tags       *TagService
	Search     *SearchService
	Indexer    *TopicIndexer
}

// NewServices 组装服务
func NewServices(d Deps) (*Services, error) {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	publisher := d.Publisher
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}

	filter, err := NewContentFilter(cfg.Forum)
	if err != nil {
		return nil, err
	}

	resolver := NewTargetResolver(NewCourseCatalog(d.DB))
	users := NewUserDirectory(d.DB, d.Cache, time.Duration(cfg.Forum.UserCacheSeconds)*time.Second, log)
	likes := NewLikeService(d.DB, resolver, publisher, log)
	tags := NewTagService(d.DB, cfg.Forum.MaxTagsPerTopic, log)
	categories := NewCategoryService(d.DB, log)
	views := NewViewCounter(d.Cache, time.Duration(cfg.Forum.ViewDedupSeconds)*time.Second, log)
	indexer := NewTopicIndexer(d.DB, d.ES, cfg.Elasticsearch.Index, tags, log)
	topics := NewTopicService(d.DB, categories, tags, users, likes, filter, views, indexer, publisher, log)

	return &Services{
		Comments:   NewCommentService(d.DB, resolver, likes, users, filter, publisher, log),
		Categories: categories,
		Topics:     topics,
		Posts:      NewPostService(d.DB, users, likes, filter, indexer, publisher, log),
		Likes:      likes,
		Tags:       tags,
		Search:     NewSearchService(d.DB, topics, indexer, log),
		Indexer:    indexer,
	}, nil
}
