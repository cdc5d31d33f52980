package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES 记录请求并返回预设结果的ES服务端
type fakeES struct {
	mu         sync.Mutex
	requests   []string
	bodies     map[string]string
	searchHits []uint
	failSearch bool
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	f.bodies[key] = string(body)

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if strings.HasSuffix(r.URL.Path, "/_search") {
		if f.failSearch {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"type":"search_phase_execution_exception"}}`)
			return
		}
		hits := make([]string, len(f.searchHits))
		for i, id := range f.searchHits {
			hits[i] = fmt.Sprintf(`{"_source":{"topic_id":%d}}`, id)
		}
		_, _ = fmt.Fprintf(w, `{"hits":{"total":{"value":%d},"hits":[%s]}}`, len(hits), strings.Join(hits, ","))
		return
	}
	_, _ = io.WriteString(w, `{"result":"created"}`)
}

func (f *fakeES) seen(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == key {
			return true
		}
	}
	return false
}

func newESEnv(t *testing.T) (*testEnv, *fakeES) {
	t.Helper()
	fake := &fakeES{bodies: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	env := newTestEnv(t, func(d *Deps) { d.ES = client })
	return env, fake
}

func TestTopicIndexerSyncAndRemove(t *testing.T) {
	env, fake := newESEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with **setup** issue", "setup")

	key := fmt.Sprintf("PUT /forum_topics/_doc/topic_%d", topic.ID)
	require.True(t, fake.seen(key))
	fake.mu.Lock()
	doc := fake.bodies[key]
	fake.mu.Unlock()
	assert.Contains(t, doc, `"tags":["setup"]`)
	assert.Contains(t, doc, `"category_id":`)

	require.NoError(t, env.svc.Topics.Delete(ctx, student(1), topic.ID))
	assert.True(t, fake.seen(fmt.Sprintf("DELETE /forum_topics/_doc/topic_%d", topic.ID)))
}

func TestSearchUsesIndexAndFallsBack(t *testing.T) {
	env, fake := newESEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	a := env.seedTopic(t, 1, cat.ID, "Installing Go on Windows")
	b := env.seedTopic(t, 1, cat.ID, "Python virtualenv questions")

	// 索引返回的顺序原样保留
	fake.mu.Lock()
	fake.searchHits = []uint{b.ID, a.ID}
	fake.mu.Unlock()
	page, err := env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "anything"})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, a.ID}, searchIDs(page))
	assert.True(t, fake.seen("POST /forum_topics/_search"))

	fake.mu.Lock()
	fake.failSearch = true
	fake.mu.Unlock()
	page, err = env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "windows"})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, searchIDs(page))
}

func TestTopicIndexerReindex(t *testing.T) {
	env, fake := newESEnv(t)
	cat := env.seedCategory(t, "General", "general")
	for i := 0; i < 3; i++ {
		env.seedTopic(t, 1, cat.ID, fmt.Sprintf("Topic number %d for reindex", i))
	}

	n, err := env.svc.Indexer.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, fake.seen("POST /forum_topics/_refresh"))

	disabled := NewTopicIndexer(env.db, nil, "", env.svc.Tags, nil)
	assert.False(t, disabled.Enabled())
	_, err = disabled.Reindex(context.Background())
	assert.Error(t, err)
}
