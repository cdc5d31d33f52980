package service

import (
	"context"
	"testing"
	"time"

	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchIDs(page *dto.Page[dto.TopicResponse]) []uint {
	ids := make([]uint, len(page.Items))
	for i, item := range page.Items {
		ids[i] = item.ID
	}
	return ids
}

func TestSearchTopicsSQL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	general := env.seedCategory(t, "General", "general")
	help := env.seedCategory(t, "Help", "help")

	a := env.seedTopic(t, 1, general.ID, "Installing Go on Windows", "go", "windows")
	b := env.seedTopic(t, 1, help.ID, "Go modules keep failing", "go")
	c := env.seedTopic(t, 1, general.ID, "Python virtualenv questions", "python")

	// a 最近有新回帖
	later := time.Now().Add(time.Hour)
	require.NoError(t, env.db.Model(&model.ForumTopic{}).Where("id = ?", a.ID).UpdateColumn("last_post_at", later).Error)

	page, err := env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "GO"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)
	assert.Equal(t, []uint{a.ID, b.ID}, searchIDs(page))

	// 匹配正文
	page, err = env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "installation guide"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID, c.ID}, searchIDs(page))

	page, err = env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "go", Category: "help"})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, searchIDs(page))

	page, err = env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "go", Tags: "Go, windows"})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, searchIDs(page))

	page, err = env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "go", Tags: "go,python"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalCount)

	page, err = env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "go", Category: "nope"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestSearchEscapesWildcards(t *testing.T) {
	env := newTestEnv(t)
	cat := env.seedCategory(t, "General", "general")
	hit := env.seedTopic(t, 1, cat.ID, "Coverage stuck at 100% forever")
	env.seedTopic(t, 1, cat.ID, "Coverage stuck at 1000 lines")

	page, err := env.svc.Search.Search(context.Background(), 0, &dto.TopicSearchQuery{Q: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []uint{hit.ID}, searchIDs(page))

	page, err = env.svc.Search.Search(context.Background(), 0, &dto.TopicSearchQuery{Q: "_"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Search.Search(context.Background(), 0, &dto.TopicSearchQuery{Q: "   "})
	requireKind(t, err, errcode.KindValidation)
}

func TestSearchTopicsMatchesComparisonText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")

	created, err := env.svc.Topics.Create(ctx, 1, &dto.TopicCreateRequest{
		Title:      "Loop condition question",
		Content:    "Use if x < 10 && y > 3 in the loop",
		CategoryID: cat.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Use if x < 10 && y > 3 in the loop", created.Content)

	page, err := env.svc.Search.Search(ctx, 0, &dto.TopicSearchQuery{Q: "x < 10 && y"})
	require.NoError(t, err)
	assert.Equal(t, []uint{created.ID}, searchIDs(page))
}
