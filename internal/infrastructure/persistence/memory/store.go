// Package memory implements every repository in process memory. It backs the
// server when no database is configured and serves as the fake in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/board-hub/community-board/internal/domain/comment"
	"github.com/board-hub/community-board/internal/domain/post"
	"github.com/board-hub/community-board/internal/domain/shared"
	"github.com/board-hub/community-board/internal/domain/user"
)

// Store holds all tables under one lock so multi-table writes are atomic.
type Store struct {
	mu sync.RWMutex

	users    map[int64]*user.User
	posts    map[int64]*post.Post
	stats    map[int64]*post.Stat
	likes    map[likeKey]time.Time
	comments map[int64]*comment.Comment

	nextUserID    int64
	nextPostID    int64
	nextCommentID int64

	now func() time.Time
}

type likeKey struct {
	postID int64
	userID int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]*user.User),
		posts:    make(map[int64]*post.Post),
		stats:    make(map[int64]*post.Stat),
		likes:    make(map[likeKey]time.Time),
		comments: make(map[int64]*comment.Comment),
		now:      time.Now,
	}
}

func (s *Store) Users() *UserRepository       { return &UserRepository{s: s} }
func (s *Store) Posts() *PostRepository       { return &PostRepository{s: s} }
func (s *Store) Stats() *StatRepository       { return &StatRepository{s: s} }
func (s *Store) Likes() *LikeRepository       { return &LikeRepository{s: s} }
func (s *Store) Comments() *CommentRepository { return &CommentRepository{s: s} }

// Ping always succeeds; it satisfies the health check contract.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

func copyPost(p *post.Post) *post.Post {
	c := *p
	c.Images = append([]post.Image(nil), p.Images...)
	return &c
}

func copyComment(cm *comment.Comment) *comment.Comment {
	c := *cm
	return &c
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository.
type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.IsDeleted() {
			continue
		}
		if existing.Email == u.Email {
			return shared.Conflict("user", "Create", shared.MsgEmailInUse)
		}
		if existing.Nickname == u.Nickname {
			return shared.Conflict("user", "Create", shared.MsgNicknameInUse)
		}
	}

	r.s.nextUserID++
	u.ID = r.s.nextUserID
	r.s.users[u.ID] = copyUser(u)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok || u.IsDeleted() {
		return nil, shared.NotFound("user", "GetByID", shared.MsgUserNotFound)
	}
	return copyUser(u), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if !u.IsDeleted() && u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, shared.NotFound("user", "GetByEmail", shared.MsgUserNotFound)
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[int64]*user.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok && !u.IsDeleted() {
			out[id] = copyUser(u)
		}
	}
	return out, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[u.ID]
	if !ok || current.IsDeleted() {
		return shared.NotFound("user", "Update", shared.MsgUserNotFound)
	}
	if !u.IsDeleted() {
		for id, other := range r.s.users {
			if id != u.ID && !other.IsDeleted() && other.Nickname == u.Nickname {
				return shared.Conflict("user", "Update", shared.MsgNicknameInUse)
			}
		}
	}
	r.s.users[u.ID] = copyUser(u)
	return nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if !u.IsDeleted() && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if !u.IsDeleted() && u.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// POSTS
// ══════════════════════════════════════════════════════════════════════════════

// PostRepository implements post.Repository.
type PostRepository struct{ s *Store }

func (r *PostRepository) Create(ctx context.Context, p *post.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[p.AuthorID]; !ok {
		return shared.NotFound("post", "Create", shared.MsgAuthorNotFound)
	}

	r.s.nextPostID++
	p.ID = r.s.nextPostID
	r.s.posts[p.ID] = copyPost(p)
	r.s.stats[p.ID] = &post.Stat{PostID: p.ID, UpdatedAt: r.s.now()}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*post.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok || p.IsDeleted() {
		return nil, shared.NotFound("post", "GetByID", shared.MsgPostNotFound)
	}
	return copyPost(p), nil
}

func (r *PostRepository) Exists(ctx context.Context, id int64, includeDeleted bool) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return false, nil
	}
	return includeDeleted || !p.IsDeleted(), nil
}

func (r *PostRepository) List(ctx context.Context, cursor shared.Cursor) ([]*post.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]int64, 0, len(r.s.posts))
	for id, p := range r.s.posts {
		if p.IsDeleted() {
			continue
		}
		if cursor.HasStart() && id >= cursor.After {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if len(ids) > cursor.Size {
		ids = ids[:cursor.Size]
	}

	out := make([]*post.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyPost(r.s.posts[id]))
	}
	return out, nil
}

func (r *PostRepository) Update(ctx context.Context, p *post.Post, replaceImages bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.posts[p.ID]
	if !ok || current.IsDeleted() {
		return shared.NotFound("post", "Update", shared.MsgPostNotFound)
	}
	next := copyPost(p)
	if !replaceImages {
		next.Images = append([]post.Image(nil), current.Images...)
	}
	r.s.posts[p.ID] = next
	return nil
}

func (r *PostRepository) ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]int64, 0)
	for id := range r.s.posts {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// StatRepository implements post.StatRepository.
type StatRepository struct{ s *Store }

func (r *StatRepository) Create(ctx context.Context, postID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[postID]; !ok {
		return shared.NotFound("stats", "Create", shared.MsgPostNotFound)
	}
	if _, ok := r.s.stats[postID]; !ok {
		r.s.stats[postID] = &post.Stat{PostID: postID, UpdatedAt: r.s.now()}
	}
	return nil
}

func (r *StatRepository) Get(ctx context.Context, postID int64) (*post.Stat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.stats[postID]
	if !ok {
		return nil, shared.NotFound("stats", "Get", shared.MsgStatsNotFound)
	}
	c := *st
	return &c, nil
}

func (r *StatRepository) GetMany(ctx context.Context, postIDs []int64) (map[int64]*post.Stat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[int64]*post.Stat, len(postIDs))
	for _, id := range postIDs {
		if st, ok := r.s.stats[id]; ok {
			c := *st
			out[id] = &c
		}
	}
	return out, nil
}

func (r *StatRepository) Increment(ctx context.Context, postID int64, field post.Field, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[postID]; !ok {
		return shared.NotFound("stats", "Increment", shared.MsgPostNotFound)
	}
	st, ok := r.s.stats[postID]
	if !ok {
		st = &post.Stat{PostID: postID}
		r.s.stats[postID] = st
	}
	st.Add(field, int64(delta))
	st.UpdatedAt = r.s.now()
	return nil
}

func (r *StatRepository) Overwrite(ctx context.Context, postID int64, likeCount, commentCount int64) (*post.Stat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[postID]; !ok {
		return nil, shared.NotFound("stats", "Overwrite", shared.MsgPostNotFound)
	}
	st, ok := r.s.stats[postID]
	if !ok {
		st = &post.Stat{PostID: postID}
		r.s.stats[postID] = st
	}
	st.LikeCount = likeCount
	st.CommentCount = commentCount
	st.UpdatedAt = r.s.now()

	c := *st
	return &c, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIKES
// ══════════════════════════════════════════════════════════════════════════════

// LikeRepository implements like.Repository.
type LikeRepository struct{ s *Store }

func (r *LikeRepository) Add(ctx context.Context, postID, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[postID]; !ok {
		return false, shared.NotFound("like", "Add", shared.MsgPostNotFound)
	}
	k := likeKey{postID, userID}
	if _, ok := r.s.likes[k]; ok {
		return false, nil
	}
	r.s.likes[k] = r.s.now()
	return true, nil
}

func (r *LikeRepository) Remove(ctx context.Context, postID, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := likeKey{postID, userID}
	if _, ok := r.s.likes[k]; !ok {
		return false, nil
	}
	delete(r.s.likes, k)
	return true, nil
}

func (r *LikeRepository) Exists(ctx context.Context, postID, userID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.likes[likeKey{postID, userID}]
	return ok, nil
}

func (r *LikeRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for k := range r.s.likes {
		if k.postID == postID {
			n++
		}
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMENTS
// ══════════════════════════════════════════════════════════════════════════════

// CommentRepository implements comment.Repository.
type CommentRepository struct{ s *Store }

func (r *CommentRepository) Create(ctx context.Context, c *comment.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[c.PostID]; !ok {
		return shared.NotFound("comment", "Create", shared.MsgPostNotFound)
	}
	r.s.nextCommentID++
	c.ID = r.s.nextCommentID
	r.s.comments[c.ID] = copyComment(c)
	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*comment.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, shared.NotFound("comment", "GetByID", shared.MsgCommentNotFound)
	}
	return copyComment(c), nil
}

func (r *CommentRepository) UpdateContent(ctx context.Context, c *comment.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.comments[c.ID]
	if !ok {
		return shared.NotFound("comment", "UpdateContent", shared.MsgCommentNotFound)
	}
	if stored.IsDeleted() {
		return shared.BadRequest("comment", "UpdateContent", shared.MsgDeletedComment)
	}
	stored.Content = c.Content
	stored.UpdatedAt = c.UpdatedAt
	return nil
}

func (r *CommentRepository) SoftDelete(ctx context.Context, c *comment.Comment) (bool, error) {
	if c.DeletedAt == nil {
		return false, fmt.Errorf("soft delete comment %d: not marked deleted", c.ID)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.comments[c.ID]
	if !ok {
		return false, shared.NotFound("comment", "SoftDelete", shared.MsgCommentNotFound)
	}
	if stored.IsDeleted() {
		return false, nil
	}
	at := *c.DeletedAt
	stored.Content = c.Content
	stored.UpdatedAt = c.UpdatedAt
	stored.DeletedAt = &at
	return true, nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int64, page shared.Page) (shared.PageResult[*comment.Comment], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*comment.Comment, 0)
	for _, c := range r.s.comments {
		if c.PostID == postID {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	result := shared.PageResult[*comment.Comment]{
		Items:         make([]*comment.Comment, 0),
		Page:          page.Number,
		Size:          page.Size,
		TotalElements: int64(len(all)),
	}
	start := page.Offset()
	if start >= len(all) {
		return result, nil
	}
	end := start + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	for _, c := range all[start:end] {
		result.Items = append(result.Items, copyComment(c))
	}
	return result, nil
}

func (r *CommentRepository) CountActiveByPost(ctx context.Context, postID int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, c := range r.s.comments {
		if c.PostID == postID && !c.IsDeleted() {
			n++
		}
	}
	return n, nil
}
