package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/database"
	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/event"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/policy"
	"github.com/nsxzhou1114/lms-forum-api/pkg/cache"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	db  *gorm.DB
	svc *Services
	pub *recordingPublisher
	mr  *miniredis.Miniredis
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "forum.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(0)"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig("silent"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接，事务天然串行
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.InitTables(db, true))
	return db
}

// newTestEnv 使用SQLite文件库与miniredis组装全部服务
func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Default()
	cfg.Forum.SensitiveWords = []string{"badword"}
	pub := &recordingPublisher{}
	deps := Deps{
		DB:        db,
		Cache:     cache.NewRedisCache(client),
		Publisher: pub,
		Config:    cfg,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc, err := NewServices(deps)
	require.NoError(t, err)
	return &testEnv{db: db, svc: svc, pub: pub, mr: mr}
}

func student(id uint) policy.Actor   { return policy.Actor{ID: id, Role: policy.RoleStudent} }
func moderator(id uint) policy.Actor { return policy.Actor{ID: id, Role: policy.RoleModerator} }

func (e *testEnv) seedUser(t *testing.T, id uint, username string) {
	t.Helper()
	u := model.User{Username: username, Nickname: strings.ToUpper(username), Role: policy.RoleStudent}
	u.ID = id
	require.NoError(t, e.db.Create(&u).Error)
}

// seedCourse 创建课程与一个课时，返回课程ID和课时ID
func (e *testEnv) seedCourse(t *testing.T, instructorID uint) (uint, uint) {
	t.Helper()
	course := model.Course{Title: "Go in Practice", InstructorID: instructorID}
	require.NoError(t, e.db.Create(&course).Error)
	lesson := model.Lesson{Title: "Goroutines", CourseID: course.ID}
	require.NoError(t, e.db.Create(&lesson).Error)
	return course.ID, lesson.ID
}

func (e *testEnv) seedCategory(t *testing.T, name, slug string) *model.ForumCategory {
	t.Helper()
	c, err := e.svc.Categories.Create(context.Background(), &dto.CategoryCreateRequest{Name: name, Slug: slug})
	require.NoError(t, err)
	return c
}

func (e *testEnv) seedTopic(t *testing.T, authorID, categoryID uint, title string, tags ...string) *dto.TopicResponse {
	t.Helper()
	topic, err := e.svc.Topics.Create(context.Background(), authorID, &dto.TopicCreateRequest{
		Title:      title,
		Content:    "I am stuck on step 3 of the installation guide",
		CategoryID: categoryID,
		Tags:       tags,
	})
	require.NoError(t, err)
	return topic
}

func (e *testEnv) seedPost(t *testing.T, authorID, topicID uint, replyTo *uint) *dto.PostResponse {
	t.Helper()
	post, err := e.svc.Posts.Create(context.Background(), authorID, &dto.PostCreateRequest{
		TopicID:   topicID,
		Content:   "Have you tried restarting the service?",
		ReplyToID: replyTo,
	})
	require.NoError(t, err)
	return post
}

func (e *testEnv) reloadTopic(t *testing.T, id uint) model.ForumTopic {
	t.Helper()
	var topic model.ForumTopic
	require.NoError(t, e.db.First(&topic, id).Error)
	return topic
}

func (e *testEnv) reloadCategory(t *testing.T, id uint) model.ForumCategory {
	t.Helper()
	var c model.ForumCategory
	require.NoError(t, e.db.First(&c, id).Error)
	return c
}

func requireKind(t *testing.T, err error, kind errcode.Kind) *errcode.Error {
	t.Helper()
	require.Error(t, err)
	require.True(t, errcode.IsKind(err, kind), "want %s, got %v", kind, err)
	return errcode.From(err)
}

func uintPtr(v uint) *uint { return &v }
