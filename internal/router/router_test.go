package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/nsxzhou1114/lms-forum-api/internal/database"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/internal/policy"
	"github.com/nsxzhou1114/lms-forum-api/internal/service"
	"github.com/nsxzhou1114/lms-forum-api/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	jwt    *auth.Manager
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "forum.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig("silent"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.InitTables(db, true))

	cfg := config.Default()
	cfg.JWT.SecretKey = "router-test-secret"
	svc, err := service.NewServices(service.Deps{DB: db, Config: cfg})
	require.NoError(t, err)

	jwt := auth.NewManager(cfg.JWT)
	return &testServer{t: t, engine: New(cfg, svc, jwt, zap.NewNop().Sugar()), jwt: jwt, db: db}
}

func (s *testServer) token(userID uint, role string) string {
	s.t.Helper()
	tok, err := s.jwt.GenerateToken(userID, role)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) (int, apiResponse) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type topicBody struct {
	ID         uint   `json:"id"`
	Slug       string `json:"slug"`
	ViewsCount int    `json:"viewsCount"`
	IsLiked    bool   `json:"isLiked"`
	IsPinned   bool   `json:"isPinned"`
}

func seedUsers(t *testing.T, db *gorm.DB) {
	t.Helper()
	users := []model.User{
		{Base: model.Base{ID: 1}, Username: "admin", Role: policy.RoleAdmin},
		{Base: model.Base{ID: 2}, Username: "alice", Role: policy.RoleStudent},
		{Base: model.Base{ID: 3}, Username: "bob", Role: policy.RoleStudent},
	}
	require.NoError(t, db.Create(&users).Error)
}

func TestForumFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	seedUsers(t, s.db)
	admin := s.token(1, policy.RoleAdmin)
	alice := s.token(2, policy.RoleStudent)
	bob := s.token(3, policy.RoleStudent)

	// 学生不能创建分类
	code, resp := s.do(http.MethodPost, "/api/forum/categories", alice, map[string]any{"name": "General"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Forbidden", resp.Error)

	code, resp = s.do(http.MethodPost, "/api/forum/categories", admin, map[string]any{"name": "General"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	category := decode[model.ForumCategory](t, resp.Data)
	assert.Equal(t, "general", category.Slug)

	code, resp = s.do(http.MethodPost, "/api/forum/topics", alice, map[string]any{
		"title":      "How do goroutines work",
		"content":    "I am confused about goroutine scheduling in Go.",
		"categoryId": category.ID,
		"tags":       []string{"Go", "concurrency"},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	topic := decode[topicBody](t, resp.Data)
	assert.Equal(t, "how-do-goroutines-work", topic.Slug)

	// 分类可用slug或ID
	for _, ref := range []string{"general", fmt.Sprint(category.ID)} {
		code, resp = s.do(http.MethodGet, "/api/forum/categories/"+ref+"/topics", "", nil)
		require.Equal(t, http.StatusOK, code)
		page := decode[struct {
			Items      []topicBody `json:"items"`
			TotalCount int64       `json:"totalCount"`
		}](t, resp.Data)
		assert.EqualValues(t, 1, page.TotalCount)
	}

	// 点赞后详情中isLiked为true
	code, resp = s.do(http.MethodPost, "/api/forum/like", bob, map[string]any{"type": "TOPIC", "id": topic.ID})
	require.Equal(t, http.StatusOK, code, resp.Message)
	like := decode[struct {
		Liked      bool `json:"liked"`
		LikesCount int  `json:"likesCount"`
	}](t, resp.Data)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.LikesCount)

	code, resp = s.do(http.MethodGet, "/api/forum/topics/"+topic.Slug, bob, nil)
	require.Equal(t, http.StatusOK, code)
	detail := decode[topicBody](t, resp.Data)
	assert.True(t, detail.IsLiked)
	assert.Equal(t, 1, detail.ViewsCount)

	code, resp = s.do(http.MethodPost, "/api/forum/likes/check", bob, map[string]any{"type": "TOPIC", "ids": []uint{topic.ID, 999}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []uint{topic.ID}, decode[[]uint](t, resp.Data))

	// 回帖、锁定后拒绝回帖
	code, resp = s.do(http.MethodPost, "/api/forum/posts", bob, map[string]any{
		"topicId": topic.ID,
		"content": "Goroutines are multiplexed onto OS threads.",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	post := decode[struct {
		ID uint `json:"id"`
	}](t, resp.Data)

	// 只有主题作者能采纳
	code, _ = s.do(http.MethodPut, fmt.Sprintf("/api/forum/posts/%d/best-answer", post.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, resp = s.do(http.MethodPut, fmt.Sprintf("/api/forum/posts/%d/best-answer", post.ID), alice, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	best := decode[struct {
		IsBestAnswer bool `json:"isBestAnswer"`
	}](t, resp.Data)
	assert.True(t, best.IsBestAnswer)

	code, _ = s.do(http.MethodPut, fmt.Sprintf("/api/forum/topics/%d/lock", topic.ID), alice, map[string]any{"isLocked": true})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(http.MethodPut, fmt.Sprintf("/api/forum/topics/%d/lock", topic.ID), admin, map[string]any{"isLocked": true})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = s.do(http.MethodPost, "/api/forum/posts", bob, map[string]any{
		"topicId": topic.ID,
		"content": "One more reply after the lock.",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 3400, resp.Code)

	code, resp = s.do(http.MethodGet, fmt.Sprintf("/api/forum/topics/%d/posts", topic.ID), "", nil)
	require.Equal(t, http.StatusOK, code)
	posts := decode[struct {
		TotalCount int64 `json:"totalCount"`
	}](t, resp.Data)
	assert.EqualValues(t, 1, posts.TotalCount)

	code, resp = s.do(http.MethodGet, "/api/forum/topics/search?q=GOROUTINES", "", nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	found := decode[struct {
		Items []topicBody `json:"items"`
	}](t, resp.Data)
	require.Len(t, found.Items, 1)
	assert.Equal(t, topic.ID, found.Items[0].ID)

	code, resp = s.do(http.MethodGet, "/api/forum/tags/popular", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]model.Tag](t, resp.Data), 2)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/forum/topics/%d", topic.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/forum/topics/%d", topic.ID), alice, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = s.do(http.MethodGet, "/api/forum/topics/"+topic.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCommentRoutes(t *testing.T) {
	s := newTestServer(t)
	seedUsers(t, s.db)
	course := model.Course{Title: "Go 101", InstructorID: 1}
	require.NoError(t, s.db.Create(&course).Error)
	alice := s.token(2, policy.RoleStudent)

	code, resp := s.do(http.MethodPost, "/api/comments", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized", resp.Error)

	code, resp = s.do(http.MethodPost, "/api/comments", alice, map[string]any{
		"content":         "too short",
		"commentableType": "COURSE",
		"commentableId":   course.ID,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	fields := decode[map[string]string](t, resp.Data)
	assert.Contains(t, fields, "content")

	code, resp = s.do(http.MethodPost, "/api/comments", alice, map[string]any{
		"content":         "This course is really helpful.",
		"commentableType": "COURSE",
		"commentableId":   course.ID,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	comment := decode[struct {
		ID uint `json:"id"`
	}](t, resp.Data)

	code, resp = s.do(http.MethodGet, fmt.Sprintf("/api/comments/count?type=COURSE&id=%d", course.ID), "", nil)
	require.Equal(t, http.StatusOK, code)
	count := decode[struct {
		Count int64 `json:"count"`
	}](t, resp.Data)
	assert.EqualValues(t, 1, count.Count)

	ids := make([]uint, 101)
	for i := range ids {
		ids[i] = uint(i + 1)
	}
	code, resp = s.do(http.MethodPost, "/api/comments/likes/check", alice, map[string]any{"ids": ids})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 3405, resp.Code)

	code, _ = s.do(http.MethodGet, "/api/comments/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", comment.ID), alice, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = s.do(http.MethodGet, fmt.Sprintf("/api/comments/%d", comment.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
