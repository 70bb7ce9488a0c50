package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
	"github.com/board-hub/community-board/internal/infrastructure/persistence/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type adjustCall struct {
	postID int64
	field  post.Field
	delta  int
}

type recordingAdjuster struct {
	mu    sync.Mutex
	calls []adjustCall
	err   error
}

func (a *recordingAdjuster) Adjust(postID int64, field post.Field, delta int) error {
	if err := post.ValidateAdjustment(postID, field, delta); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.calls = append(a.calls, adjustCall{postID, field, delta})
	return nil
}

func (a *recordingAdjuster) recorded() []adjustCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]adjustCall(nil), a.calls...)
}

// plainHasher keeps tests fast; it is not a real hash.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Compare(hash, p string) bool { return hash == "h:"+p }

type memObjects struct {
	saved map[string][]byte
}

func (m *memObjects) Save(_ context.Context, key string, r io.Reader, _ int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[key] = b
	return nil
}

type fixture struct {
	store    *memory.Store
	adjuster *recordingAdjuster
	alice    *user.User
	bob      *user.User
	post     *post.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.NewStore(), adjuster: &recordingAdjuster{}}

	f.alice = user.New("alice@example.com", "h:password1", "alice", time.Now())
	require.NoError(t, f.store.Users().Create(ctx, f.alice))
	f.bob = user.New("bob@example.com", "h:password1", "bob", time.Now())
	require.NoError(t, f.store.Users().Create(ctx, f.bob))

	p, err := post.New(f.alice.ID, "hello", "world", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Posts().Create(ctx, p))
	f.post = p
	return f
}

// ─────────────────────────────────────────────────────────────────────────────
// Likes
// ─────────────────────────────────────────────────────────────────────────────

func TestLikePost_OptimisticCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewLikePostHandler(f.store.Posts(), f.store.Stats(), f.store.Likes(), f.adjuster, nil)
	cmd := LikePostCommand{PostID: f.post.ID, UserID: f.bob.ID}

	res, err := h.Like(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LikeCount)
	assert.True(t, res.Changed)

	// Duplicate: the counter has not been applied yet, so it still reads 0.
	res, err = h.Like(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.LikeCount)
	assert.False(t, res.Changed)

	res, err = h.Unlike(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.LikeCount, "clamped at zero")
	assert.True(t, res.Changed)

	res, err = h.Unlike(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	assert.Equal(t, []adjustCall{
		{f.post.ID, post.FieldLike, 1},
		{f.post.ID, post.FieldLike, -1},
	}, f.adjuster.recorded())
}

func TestLikePost_ConcurrentLikesCountOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewLikePostHandler(f.store.Posts(), f.store.Stats(), f.store.Likes(), f.adjuster, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Like(ctx, LikePostCommand{PostID: f.post.ID, UserID: f.bob.ID})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.adjuster.recorded(), 1)
	n, err := f.store.Likes().CountByPost(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLikePost_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewLikePostHandler(f.store.Posts(), f.store.Stats(), f.store.Likes(), f.adjuster, nil)

	_, err := h.Like(ctx, LikePostCommand{PostID: 0, UserID: f.bob.ID})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Like(ctx, LikePostCommand{PostID: 999, UserID: f.bob.ID})
	assert.True(t, shared.IsNotFound(err))

	// A closed updater never fails the request.
	f.adjuster.err = errors.New("closed")
	res, err := h.Like(ctx, LikePostCommand{PostID: f.post.ID, UserID: f.bob.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LikeCount)
}

// ─────────────────────────────────────────────────────────────────────────────
// Comments
// ─────────────────────────────────────────────────────────────────────────────

func TestComments_CreateReplyDepthAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewCommentHandler(f.store.Posts(), f.store.Users(), f.store.Comments(), f.adjuster, nil)

	root, err := h.Create(ctx, CreateCommentCommand{PostID: f.post.ID, AuthorID: f.bob.ID, Content: " first "})
	require.NoError(t, err)
	assert.Equal(t, "first", root.Content)
	assert.Zero(t, root.Depth)

	reply, err := h.Create(ctx, CreateCommentCommand{PostID: f.post.ID, AuthorID: f.alice.ID, ParentID: &root.ID, Content: "reply"})
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Depth)

	_, err = h.Create(ctx, CreateCommentCommand{PostID: f.post.ID, AuthorID: f.alice.ID, ParentID: &reply.ID, Content: "too deep"})
	assert.Equal(t, shared.MsgMaxDepthExceeded, shared.Message(err, ""))

	missing := int64(404)
	_, err = h.Create(ctx, CreateCommentCommand{PostID: f.post.ID, AuthorID: f.alice.ID, ParentID: &missing, Content: "x"})
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, shared.MsgParentCommentNotFound, shared.Message(err, ""))

	_, err = h.Create(ctx, CreateCommentCommand{PostID: f.post.ID, AuthorID: f.bob.ID, Content: "   "})
	assert.True(t, shared.IsValidation(err))

	err = h.Delete(ctx, DeleteCommentCommand{CommentID: root.ID, ActorID: f.alice.ID})
	assert.True(t, shared.IsForbidden(err))

	require.NoError(t, h.Delete(ctx, DeleteCommentCommand{CommentID: root.ID, ActorID: f.bob.ID}))
	require.NoError(t, h.Delete(ctx, DeleteCommentCommand{CommentID: root.ID, ActorID: f.bob.ID}))

	stored, err := f.store.Comments().GetByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.MsgDeletedComment, stored.Content)

	_, err = h.Update(ctx, UpdateCommentCommand{CommentID: root.ID, ActorID: f.bob.ID, Content: "again"})
	assert.Equal(t, shared.MsgDeletedComment, shared.Message(err, ""))

	assert.Equal(t, []adjustCall{
		{f.post.ID, post.FieldComment, 1},
		{f.post.ID, post.FieldComment, 1},
		{f.post.ID, post.FieldComment, -1},
	}, f.adjuster.recorded())
}

// rendezvousComments holds every GetByID until n callers have read, so the
// racing handlers all act on the same pre-write snapshot.
type rendezvousComments struct {
	comment.Repository
	arrived sync.WaitGroup
}

func newRendezvousComments(inner comment.Repository, n int) *rendezvousComments {
	r := &rendezvousComments{Repository: inner}
	r.arrived.Add(n)
	return r
}

func (r *rendezvousComments) GetByID(ctx context.Context, id int64) (*comment.Comment, error) {
	c, err := r.Repository.GetByID(ctx, id)
	r.arrived.Done()
	r.arrived.Wait()
	return c, err
}

func TestComments_ConcurrentDeletesDecrementOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := comment.New(f.post.ID, f.bob.ID, nil, "hi", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Comments().Create(ctx, c))

	const racers = 4
	repo := newRendezvousComments(f.store.Comments(), racers)
	h := NewCommentHandler(f.store.Posts(), f.store.Users(), repo, f.adjuster, nil)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Delete(ctx, DeleteCommentCommand{CommentID: c.ID, ActorID: f.bob.ID}))
		}()
	}
	wg.Wait()

	assert.Equal(t, []adjustCall{{f.post.ID, post.FieldComment, -1}}, f.adjuster.recorded())
	n, err := f.store.Comments().CountActiveByPost(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestComments_EditRacingDeleteNeverRevives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := comment.New(f.post.ID, f.bob.ID, nil, "hi", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Comments().Create(ctx, c))

	repo := newRendezvousComments(f.store.Comments(), 2)
	h := NewCommentHandler(f.store.Posts(), f.store.Users(), repo, f.adjuster, nil)

	var (
		wg      sync.WaitGroup
		editErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, editErr = h.Update(ctx, UpdateCommentCommand{CommentID: c.ID, ActorID: f.bob.ID, Content: "edited"})
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, h.Delete(ctx, DeleteCommentCommand{CommentID: c.ID, ActorID: f.bob.ID}))
	}()
	wg.Wait()

	if editErr != nil {
		assert.Equal(t, shared.MsgDeletedComment, shared.Message(editErr, ""))
	}

	stored, err := f.store.Comments().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
	assert.Equal(t, shared.MsgDeletedComment, stored.Content)

	n, err := f.store.Comments().CountActiveByPost(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []adjustCall{{f.post.ID, post.FieldComment, -1}}, f.adjuster.recorded())
}

// ─────────────────────────────────────────────────────────────────────────────
// Posts
// ─────────────────────────────────────────────────────────────────────────────

func TestPosts_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewPostHandler(f.store.Posts(), f.store.Users(), 2)

	_, err := h.Create(ctx, CreatePostCommand{AuthorID: f.bob.ID, Title: "t", Content: "c", ImageObjectKeys: []string{"a", "b", "c"}})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Create(ctx, CreatePostCommand{AuthorID: f.bob.ID, Title: "t", Content: "c", ImageObjectKeys: []string{"user/1/profile/a.png"}})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Create(ctx, CreatePostCommand{AuthorID: 999, Title: "t", Content: "c"})
	assert.Equal(t, shared.MsgAuthorNotFound, shared.Message(err, ""))

	p, err := h.Create(ctx, CreatePostCommand{AuthorID: f.bob.ID, Title: "title", Content: "content", ImageObjectKeys: []string{"post/0/images/a.png"}})
	require.NoError(t, err)
	st, err := f.store.Stats().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, st.ViewCount)

	_, err = h.Update(ctx, UpdatePostCommand{PostID: p.ID, ActorID: f.alice.ID, Title: "x"})
	assert.True(t, shared.IsForbidden(err))

	_, err = h.Update(ctx, UpdatePostCommand{PostID: p.ID, ActorID: f.bob.ID, ImageObjectKeys: []string{"post/999/images/a.png"}})
	assert.True(t, shared.IsValidation(err))

	key := "post/" + itoa(p.ID) + "/images/b.png"
	updated, err := h.Update(ctx, UpdatePostCommand{PostID: p.ID, ActorID: f.bob.ID, Title: "new", Content: " ", ImageObjectKeys: []string{key}})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "content", updated.Content)
	assert.Equal(t, []string{key}, updated.ImageKeys())

	updated, err = h.Update(ctx, UpdatePostCommand{PostID: p.ID, ActorID: f.bob.ID, ImageObjectKeys: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Images)

	require.NoError(t, h.Delete(ctx, DeletePostCommand{PostID: p.ID, ActorID: f.bob.ID}))
	_, err = f.store.Posts().GetByID(ctx, p.ID)
	assert.True(t, shared.IsNotFound(err))

	exists, err := f.store.Posts().Exists(ctx, p.ID, true)
	require.NoError(t, err)
	assert.True(t, exists)
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

func TestUsers_RegisterAndProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewUserHandler(f.store.Users(), plainHasher{})

	u, err := h.Register(ctx, RegisterUserCommand{Email: " Carol@Example.com ", Password: "password1", Nickname: "carol"})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", u.Email)
	assert.Equal(t, "h:password1", u.PasswordHash)

	_, err = h.Register(ctx, RegisterUserCommand{Email: "carol@example.com", Password: "password1", Nickname: "other"})
	assert.Equal(t, shared.MsgEmailInUse, shared.Message(err, ""))

	_, err = h.Register(ctx, RegisterUserCommand{Email: "dave@example.com", Password: "password1", Nickname: "carol"})
	assert.Equal(t, shared.MsgNicknameInUse, shared.Message(err, ""))

	nick := "bob"
	_, err = h.Update(ctx, UpdateUserCommand{UserID: u.ID, ActorID: u.ID, Nickname: &nick})
	assert.True(t, shared.IsAlreadyExists(err))

	_, err = h.Update(ctx, UpdateUserCommand{UserID: u.ID, ActorID: f.bob.ID, Nickname: &nick})
	assert.True(t, shared.IsForbidden(err))

	badKey := "user/999/profile/a.png"
	_, err = h.Update(ctx, UpdateUserCommand{UserID: u.ID, ActorID: u.ID, ProfileImageKey: &badKey})
	assert.True(t, shared.IsValidation(err))

	key := "user/" + itoa(u.ID) + "/profile/a.png"
	nick = "caz"
	updated, err := h.Update(ctx, UpdateUserCommand{UserID: u.ID, ActorID: u.ID, Nickname: &nick, ProfileImageKey: &key})
	require.NoError(t, err)
	assert.Equal(t, "caz", updated.Nickname)
	assert.Equal(t, key, updated.ProfileImageKey)
}

func TestUsers_ChangePasswordAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewUserHandler(f.store.Users(), plainHasher{})
	id := f.alice.ID

	err := h.ChangePassword(ctx, ChangePasswordCommand{UserID: id, ActorID: id, CurrentPassword: "", NewPassword: "x"})
	assert.Equal(t, shared.MsgPasswordAllRequired, shared.Message(err, ""))

	err = h.ChangePassword(ctx, ChangePasswordCommand{UserID: id, ActorID: id, CurrentPassword: "password1", NewPassword: "password1"})
	assert.Equal(t, shared.MsgPasswordSameAsPrevious, shared.Message(err, ""))

	err = h.ChangePassword(ctx, ChangePasswordCommand{UserID: id, ActorID: id, CurrentPassword: "wrongpass", NewPassword: "password2"})
	assert.Equal(t, shared.MsgPasswordMismatch, shared.Message(err, ""))

	require.NoError(t, h.ChangePassword(ctx, ChangePasswordCommand{UserID: id, ActorID: id, CurrentPassword: "password1", NewPassword: "password2"}))
	stored, err := f.store.Users().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "h:password2", stored.PasswordHash)

	require.NoError(t, h.Delete(ctx, DeleteUserCommand{UserID: id, ActorID: id}))
	_, err = f.store.Users().GetByID(ctx, id)
	assert.True(t, shared.IsNotFound(err))

	// Email and nickname are free again.
	_, err = h.Register(ctx, RegisterUserCommand{Email: "alice@example.com", Password: "password1", Nickname: "alice"})
	assert.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Stats sync
// ─────────────────────────────────────────────────────────────────────────────

func TestSyncPostStats_OverwritesFromSources(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewSyncPostStatsHandler(f.store.Posts(), f.store.Stats(), f.store.Likes(), f.store.Comments())

	_, err := f.store.Likes().Add(ctx, f.post.ID, f.bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.Stats().Increment(ctx, f.post.ID, post.FieldView, 1))
	require.NoError(t, f.store.Stats().Increment(ctx, f.post.ID, post.FieldComment, 1))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := h.Handle(ctx, SyncPostStatsCommand{PostID: f.post.ID})
			if assert.NoError(t, err) {
				assert.Equal(t, int64(1), st.LikeCount)
				assert.Equal(t, int64(0), st.CommentCount)
				assert.Equal(t, int64(1), st.ViewCount)
			}
		}()
	}
	wg.Wait()

	_, err = h.Handle(ctx, SyncPostStatsCommand{PostID: 999})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, SyncPostStatsCommand{PostID: -1})
	assert.True(t, shared.IsValidation(err))
}

// gatedStats blocks Overwrite until released and records the context state
// the write ran under.
type gatedStats struct {
	post.StatRepository
	entered chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (g *gatedStats) Overwrite(ctx context.Context, postID int64, likeCount, commentCount int64) (*post.Stat, error) {
	close(g.entered)
	<-g.release
	g.ctxErr <- ctx.Err()
	return g.StatRepository.Overwrite(ctx, postID, likeCount, commentCount)
}

func TestSyncPostStats_CancelledCallerDoesNotAbortSharedRun(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Likes().Add(context.Background(), f.post.ID, f.bob.ID)
	require.NoError(t, err)

	stats := &gatedStats{
		StatRepository: f.store.Stats(),
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
		ctxErr:         make(chan error, 1),
	}
	h := NewSyncPostStatsHandler(f.store.Posts(), stats, f.store.Likes(), f.store.Comments())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.Handle(ctx, SyncPostStatsCommand{PostID: f.post.ID})
		done <- err
	}()

	<-stats.entered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(stats.release)
	assert.NoError(t, <-stats.ctxErr)

	require.Eventually(t, func() bool {
		st, err := f.store.Stats().Get(context.Background(), f.post.ID)
		return err == nil && st.LikeCount == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSyncPostStats_SoftDeletedPostStillReconciles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.post.MarkDeleted(time.Now())
	require.NoError(t, f.store.Posts().Update(ctx, f.post, false))

	h := NewSyncPostStatsHandler(f.store.Posts(), f.store.Stats(), f.store.Likes(), f.store.Comments())
	_, err := h.Handle(ctx, SyncPostStatsCommand{PostID: f.post.ID})
	assert.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Images
// ─────────────────────────────────────────────────────────────────────────────

func TestUploadImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	objects := &memObjects{}
	h := NewUploadImageHandler(f.store.Users(), f.store.Posts(), objects, UploadImageConfig{MaxFileSize: 8})
	h.token = func() string { return "tok" }

	res, err := h.Handle(ctx, UploadImageCommand{
		Type: "post", ResourceID: f.post.ID, ActorID: f.alice.ID,
		Filename: "../cat.PNG", Size: 3, Body: bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)
	want := "post/" + itoa(f.post.ID) + "/images/cat_tok.PNG"
	assert.Equal(t, want, res.ObjectKey)
	assert.Equal(t, "/files/"+want, res.URL)
	assert.Equal(t, []byte("png"), objects.saved[want])

	_, err = h.Handle(ctx, UploadImageCommand{Type: "post", ResourceID: f.post.ID, ActorID: f.bob.ID, Filename: "a.png", Body: strings.NewReader("x")})
	assert.True(t, shared.IsForbidden(err))

	_, err = h.Handle(ctx, UploadImageCommand{Type: "profile", ResourceID: f.bob.ID, ActorID: f.bob.ID, Filename: "a.bmp", Body: strings.NewReader("x")})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, UploadImageCommand{Type: "avatar", ResourceID: f.bob.ID, ActorID: f.bob.ID, Filename: "a.png"})
	assert.Equal(t, shared.MsgImageTypeNotSupported, shared.Message(err, ""))

	_, err = h.Handle(ctx, UploadImageCommand{Type: "profile", ResourceID: f.bob.ID, ActorID: f.bob.ID, Filename: "a.png", Size: 9})
	assert.Equal(t, shared.MsgImageTooLarge, shared.Message(err, ""))

	_, err = h.Handle(ctx, UploadImageCommand{Type: "profile", ResourceID: 999, ActorID: 999, Filename: "a.png"})
	assert.True(t, shared.IsNotFound(err))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
