package service

import (
	"context"
	"testing"

	"github.com/nsxzhou1114/lms-forum-api/internal/dto"
	"github.com/nsxzhou1114/lms-forum-api/internal/event"
	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"github.com/nsxzhou1114/lms-forum-api/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostLockedTopic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")

	_, err := env.svc.Topics.SetLocked(ctx, moderator(9), topic.ID, true)
	require.NoError(t, err)

	req := &dto.PostCreateRequest{TopicID: topic.ID, Content: "late reply......."}
	_, err = env.svc.Posts.Create(ctx, 2, req)
	e := requireKind(t, err, errcode.KindTopicLocked)
	assert.Equal(t, 409, errcode.HTTPStatus(e.Kind))

	_, err = env.svc.Topics.SetLocked(ctx, moderator(9), topic.ID, false)
	require.NoError(t, err)
	post, err := env.svc.Posts.Create(ctx, 2, req)
	require.NoError(t, err)
	assert.Equal(t, topic.ID, post.TopicID)

	got := env.reloadTopic(t, topic.ID)
	assert.Equal(t, 1, got.RepliesCount)
	require.NotNil(t, got.LastPostAuthorID)
	assert.Equal(t, uint(2), *got.LastPostAuthorID)
	assert.Equal(t, 1, env.reloadCategory(t, cat.ID).PostsCount)
	assert.Contains(t, env.pub.types(), event.PostCreated)
}

func TestPostLockedTopicStillEditable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")
	post := env.seedPost(t, 2, topic.ID, nil)

	_, err := env.svc.Topics.SetLocked(ctx, moderator(9), topic.ID, true)
	require.NoError(t, err)

	updated, err := env.svc.Posts.Update(ctx, student(2), post.ID, &dto.PostUpdateRequest{Content: "Edited after the lock"})
	require.NoError(t, err)
	assert.True(t, updated.IsEdited)
	assert.NotNil(t, updated.EditedAt)

	_, err = env.svc.Posts.Update(ctx, student(3), post.ID, &dto.PostUpdateRequest{Content: "Not my post to edit"})
	requireKind(t, err, errcode.KindForbidden)

	require.NoError(t, env.svc.Posts.Delete(ctx, student(2), post.ID))
}

func TestPostReplyFlattening(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")
	other := env.seedTopic(t, 1, cat.ID, "Another topic entirely here")

	root := env.seedPost(t, 2, topic.ID, nil)
	reply := env.seedPost(t, 3, topic.ID, uintPtr(root.ID))
	nested := env.seedPost(t, 4, topic.ID, uintPtr(reply.ID))
	require.NotNil(t, nested.ReplyToID)
	assert.Equal(t, root.ID, *nested.ReplyToID)

	_, err := env.svc.Posts.Create(ctx, 5, &dto.PostCreateRequest{
		TopicID:   other.ID,
		Content:   "Replying across topics",
		ReplyToID: uintPtr(root.ID),
	})
	e := requireKind(t, err, errcode.KindValidation)
	assert.Equal(t, errcode.ParentMismatch, e.Code)

	_, err = env.svc.Posts.Create(ctx, 5, &dto.PostCreateRequest{TopicID: 999, Content: "Topic does not exist"})
	requireKind(t, err, errcode.KindNotFound)

	page, err := env.svc.Posts.ListByTopic(ctx, 0, topic.ID, dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].RepliesCount)
	assert.Equal(t, DefaultPostLimit, page.Limit)

	replies, err := env.svc.Posts.ListReplies(ctx, 0, root.ID, dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), replies.TotalCount)
	assert.Equal(t, nested.ID, replies.Items[0].ID)

	_, err = env.svc.Posts.ListByTopic(ctx, 0, 999, dto.PageQuery{})
	requireKind(t, err, errcode.KindNotFound)
}

func TestPostBestAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")
	p1 := env.seedPost(t, 2, topic.ID, nil)
	p2 := env.seedPost(t, 3, topic.ID, nil)

	_, err := env.svc.Posts.MarkBestAnswer(ctx, student(2), p1.ID)
	requireKind(t, err, errcode.KindForbidden)
	_, err = env.svc.Posts.MarkBestAnswer(ctx, moderator(9), p1.ID)
	requireKind(t, err, errcode.KindForbidden)

	got, err := env.svc.Posts.MarkBestAnswer(ctx, student(1), p1.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBestAnswer)

	got, err = env.svc.Posts.MarkBestAnswer(ctx, student(1), p2.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBestAnswer)

	// 重复采纳同一回帖
	_, err = env.svc.Posts.MarkBestAnswer(ctx, student(1), p2.ID)
	require.NoError(t, err)

	var best []uint
	require.NoError(t, env.db.Model(&model.ForumPost{}).
		Where("topic_id = ? AND is_best_answer = ?", topic.ID, true).Pluck("id", &best).Error)
	assert.Equal(t, []uint{p2.ID}, best)

	first, err := env.svc.Posts.GetByID(ctx, 0, p1.ID)
	require.NoError(t, err)
	assert.False(t, first.IsBestAnswer)
	assert.Contains(t, env.pub.types(), event.PostBestAnswer)

	_, err = env.svc.Posts.MarkBestAnswer(ctx, student(1), 999)
	requireKind(t, err, errcode.KindNotFound)
}

func TestPostDeleteRecomputesTopic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")
	first := env.seedPost(t, 2, topic.ID, nil)
	last := env.seedPost(t, 3, topic.ID, nil)
	env.seedPost(t, 4, topic.ID, uintPtr(last.ID))
	_, err := env.svc.Likes.Toggle(ctx, 5, "POST", last.ID)
	require.NoError(t, err)

	err = env.svc.Posts.Delete(ctx, student(2), last.ID)
	requireKind(t, err, errcode.KindForbidden)

	require.NoError(t, env.svc.Posts.Delete(ctx, student(3), last.ID))

	got := env.reloadTopic(t, topic.ID)
	assert.Equal(t, 1, got.RepliesCount)
	require.NotNil(t, got.LastPostAuthorID)
	assert.Equal(t, uint(2), *got.LastPostAuthorID)
	assert.Equal(t, 1, env.reloadCategory(t, cat.ID).PostsCount)

	var likes int64
	require.NoError(t, env.db.Model(&model.Like{}).Count(&likes).Error)
	assert.Zero(t, likes)

	// 删除最后一条回帖后最后回复时间回到主题创建时间
	require.NoError(t, env.svc.Posts.Delete(ctx, moderator(9), first.ID))
	got = env.reloadTopic(t, topic.ID)
	assert.Equal(t, 0, got.RepliesCount)
	assert.Nil(t, got.LastPostAuthorID)
	require.NotNil(t, got.LastPostAt)
	assert.True(t, got.LastPostAt.Equal(got.CreatedAt))

	err = env.svc.Posts.Delete(ctx, student(2), first.ID)
	requireKind(t, err, errcode.KindNotFound)
}

func TestPostMarkupOnlyContentRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "General", "general")
	topic := env.seedTopic(t, 1, cat.ID, "Need help with setup issue")

	_, err := env.svc.Posts.Create(ctx, 2, &dto.PostCreateRequest{TopicID: topic.ID, Content: "<script>alert('xss')</script>"})
	e := requireKind(t, err, errcode.KindValidation)
	assert.Contains(t, e.Fields, "content")
	assert.Zero(t, env.reloadTopic(t, topic.ID).RepliesCount)

	post := env.seedPost(t, 2, topic.ID, nil)
	_, err = env.svc.Posts.Update(ctx, student(2), post.ID, &dto.PostUpdateRequest{Content: "<style>body{}</style>ok"})
	requireKind(t, err, errcode.KindValidation)

	updated, err := env.svc.Posts.Update(ctx, student(2), post.ID, &dto.PostUpdateRequest{Content: "Check that i < n before indexing"})
	require.NoError(t, err)
	assert.Equal(t, "Check that i < n before indexing", updated.Content)
}
