package service

import (
	"context"
	"sync"
	"testing"

	"github.com/nsxzhou1114/lms-forum-api/internal/event"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")

	res, err := env.svc.Likes.Toggle(ctx, 5, "TOPIC", topic.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.LikesCount)

	res, err = env.svc.Likes.Toggle(ctx, 5, "topic", topic.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.LikesCount)

	res, err = env.svc.Likes.Toggle(ctx, 6, "TOPIC", topic.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.LikesCount)

	assert.Equal(t, 1, env.reloadTopic(t, topic.ID).LikesCount)
	assert.Contains(t, env.pub.types(), event.LikeToggled)
}

func TestToggleLikeParity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")
	post := env.seedPost(t, 2, topic.ID, nil)

	// 其他用户的点赞作为基线
	_, err := env.svc.Likes.Toggle(ctx, 9, "POST", post.ID)
	require.NoError(t, err)

	for n := 1; n <= 5; n++ {
		var last bool
		for i := 0; i < n; i++ {
			res, err := env.svc.Likes.Toggle(ctx, 7, "POST", post.ID)
			require.NoError(t, err)
			last = res.Liked
		}
		var p model.ForumPost
		require.NoError(t, env.db.First(&p, post.ID).Error)
		if n%2 == 0 {
			assert.False(t, last, "n=%d", n)
			assert.Equal(t, 1, p.LikesCount, "n=%d", n)
		} else {
			assert.True(t, last, "n=%d", n)
			assert.Equal(t, 2, p.LikesCount, "n=%d", n)
			// 复位
			_, err := env.svc.Likes.Toggle(ctx, 7, "POST", post.ID)
			require.NoError(t, err)
		}
	}
}

func TestToggleLikeConcurrent(t *testing.T) {
	env := newTestEnv(t)
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")

	const users = 20
	var wg sync.WaitGroup
	errs := make(chan error, users*2)
	for u := uint(1); u <= users; u++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := env.svc.Likes.Toggle(context.Background(), userID, "TOPIC", topic.ID)
			errs <- err
		}(u)
	}
	// 同一用户并发点两次，结果必须回到未点赞
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Likes.Toggle(context.Background(), 100, "TOPIC", topic.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var rows int64
	require.NoError(t, env.db.Model(&model.Like{}).Where("target_type = ? AND target_id = ?", model.LikeTargetTopic, topic.ID).Count(&rows).Error)
	assert.Equal(t, int64(users), rows)
	assert.Equal(t, users, env.reloadTopic(t, topic.ID).LikesCount)
}

func TestToggleLikeErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Likes.Toggle(ctx, 1, "TOPIC", 404)
	requireKind(t, err, errcode.KindNotFound)

	_, err = env.svc.Likes.Toggle(ctx, 1, "ARTICLE", 1)
	e := requireKind(t, err, errcode.KindValidation)
	assert.Equal(t, errcode.InvalidTargetType, e.Code)
}

func TestLikedIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 2, "bob")
	courseID, _ := env.seedCourse(t, 1)

	var ids []uint
	for i := 0; i < 3; i++ {
		c, err := env.svc.Comments.Create(ctx, 2, commentReq("COURSE", courseID, nil))
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	for _, id := range []uint{ids[2], ids[0]} {
		_, err := env.svc.Likes.Toggle(ctx, 8, "COMMENT", id)
		require.NoError(t, err)
	}

	liked, err := env.svc.Likes.LikedIDs(ctx, 8, "COMMENT", []uint{ids[0], ids[1], ids[2], 999})
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[0], ids[2]}, liked)

	liked, err = env.svc.Likes.LikedIDs(ctx, 8, "COMMENT", nil)
	require.NoError(t, err)
	assert.Empty(t, liked)

	tooMany := make([]uint, MaxLikeCheckIDs+1)
	for i := range tooMany {
		tooMany[i] = uint(i + 1)
	}
	_, err = env.svc.Likes.LikedIDs(ctx, 8, "COMMENT", tooMany)
	e := requireKind(t, err, errcode.KindValidation)
	assert.Equal(t, errcode.BatchLimitExceeded, e.Code)
}
