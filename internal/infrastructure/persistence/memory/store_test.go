package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

func seed(t *testing.T) (*Store, *user.User, *post.Post) {
	t.Helper()
	ctx := context.Background()
	s := NewStore()

	u := user.New("a@example.com", "hash", "alice", time.Now())
	require.NoError(t, s.Users().Create(ctx, u))

	p, err := post.New(u.ID, "title", "body", []string{"post/1/images/a.png"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Posts().Create(ctx, p))
	return s, u, p
}

func TestUsers_ConflictsAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	s, u, _ := seed(t)

	err := s.Users().Create(ctx, user.New("a@example.com", "h", "bob", time.Now()))
	assert.Equal(t, shared.MsgEmailInUse, shared.Message(err, ""))

	err = s.Users().Create(ctx, user.New("b@example.com", "h", "alice", time.Now()))
	assert.Equal(t, shared.MsgNicknameInUse, shared.Message(err, ""))

	u.MarkDeleted(time.Now())
	require.NoError(t, s.Users().Update(ctx, u))

	ok, err := s.Users().ExistsByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.Users().Create(ctx, user.New("a@example.com", "h", "alice", time.Now())))
}

func TestPosts_CreateInitializesStat(t *testing.T) {
	s, _, p := seed(t)

	st, err := s.Stats().Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Stat{PostID: p.ID, UpdatedAt: st.UpdatedAt}, *st)
}

func TestPosts_ListCursor(t *testing.T) {
	ctx := context.Background()
	s, u, _ := seed(t)
	for i := 0; i < 4; i++ {
		p, _ := post.New(u.ID, "t", "c", nil, time.Now())
		require.NoError(t, s.Posts().Create(ctx, p))
	}

	page, err := s.Posts().List(ctx, shared.NewCursor(0, 2))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(5), page[0].ID)
	assert.Equal(t, int64(4), page[1].ID)

	page, err = s.Posts().List(ctx, shared.NewCursor(4, 10))
	require.NoError(t, err)
	assert.Len(t, page, 3)
}

func TestStats_ConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	s, _, p := seed(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Stats().Increment(ctx, p.ID, post.FieldLike, 1)
		}()
	}
	wg.Wait()

	st, err := s.Stats().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), st.LikeCount)
}

func TestStats_IncrementMissingPost(t *testing.T) {
	s := NewStore()
	err := s.Stats().Increment(context.Background(), 42, post.FieldView, 1)
	assert.True(t, shared.IsNotFound(err))
}

func TestStats_OverwritePreservesViews(t *testing.T) {
	ctx := context.Background()
	s, _, p := seed(t)
	require.NoError(t, s.Stats().Increment(ctx, p.ID, post.FieldView, 1))

	st, err := s.Stats().Overwrite(ctx, p.ID, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ViewCount)
	assert.Equal(t, int64(3), st.LikeCount)
	assert.Equal(t, int64(2), st.CommentCount)
}

func TestLikes_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, u, p := seed(t)

	added, err := s.Likes().Add(ctx, p.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Likes().Add(ctx, p.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, added)

	n, _ := s.Likes().CountByPost(ctx, p.ID)
	assert.Equal(t, int64(1), n)

	removed, _ := s.Likes().Remove(ctx, p.ID, u.ID)
	assert.True(t, removed)
	removed, _ = s.Likes().Remove(ctx, p.ID, u.ID)
	assert.False(t, removed)
}

func TestComments_ListAndCount(t *testing.T) {
	ctx := context.Background()
	s, u, p := seed(t)
	base := time.Now()

	for i := 0; i < 3; i++ {
		c, err := comment.New(p.ID, u.ID, nil, "c", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, s.Comments().Create(ctx, c))
	}
	first, _ := s.Comments().GetByID(ctx, 1)
	first.MarkDeleted(base)
	deleted, err := s.Comments().SoftDelete(ctx, first)
	require.NoError(t, err)
	require.True(t, deleted)

	res, err := s.Comments().ListByPost(ctx, p.ID, shared.NewPage(0, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalElements)
	require.Len(t, res.Items, 2)
	assert.Equal(t, shared.MsgDeletedComment, res.Items[0].Content)
	assert.True(t, res.HasNext())

	n, _ := s.Comments().CountActiveByPost(ctx, p.ID)
	assert.Equal(t, int64(2), n)
}

func TestComments_GuardedWrites(t *testing.T) {
	ctx := context.Background()
	s, u, p := seed(t)

	c, err := comment.New(p.ID, u.ID, nil, "c", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Comments().Create(ctx, c))

	stale, _ := s.Comments().GetByID(ctx, c.ID)

	del, _ := s.Comments().GetByID(ctx, c.ID)
	require.True(t, del.MarkDeleted(time.Now()))
	deleted, err := s.Comments().SoftDelete(ctx, del)
	require.NoError(t, err)
	assert.True(t, deleted)

	again, _ := s.Comments().GetByID(ctx, c.ID)
	again.DeletedAt = nil
	again.MarkDeleted(time.Now())
	deleted, err = s.Comments().SoftDelete(ctx, again)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, stale.Edit("late edit", time.Now()))
	err = s.Comments().UpdateContent(ctx, stale)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, shared.MsgDeletedComment, shared.Message(err, ""))

	stored, _ := s.Comments().GetByID(ctx, c.ID)
	assert.True(t, stored.IsDeleted())
	assert.Equal(t, shared.MsgDeletedComment, stored.Content)

	ghost := &comment.Comment{ID: 999, Content: "x"}
	assert.True(t, shared.IsNotFound(s.Comments().UpdateContent(ctx, ghost)))
}
