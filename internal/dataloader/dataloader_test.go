package dataloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/animeblog-service/internal/domain"
	"github.com/UkralStul/animeblog-service/internal/storage/inmemory"
	"github.com/UkralStul/animeblog-service/internal/storage/storagetest"
)

// countingStore records how often the batched lookups hit the backend.
type countingStore struct {
	*inmemory.Store
	blogCalls   atomic.Int32
	reviewCalls atomic.Int32
	fail        error
}

func (s *countingStore) BlogsByUserIDs(ctx context.Context, ids []uint) (map[uint][]*domain.Blog, error) {
	s.blogCalls.Add(1)
	if s.fail != nil {
		return nil, s.fail
	}
	return s.Store.BlogsByUserIDs(ctx, ids)
}

func (s *countingStore) ReviewsByBlogIDs(ctx context.Context, ids []uint) (map[uint][]*domain.Review, error) {
	s.reviewCalls.Add(1)
	return s.Store.ReviewsByBlogIDs(ctx, ids)
}

func seed(t *testing.T, s *countingStore) (users []uint, blogs []uint) {
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		u, err := s.CreateUser(ctx, &domain.User{UserName: storagetest.Str(name)})
		require.NoError(t, err)
		users = append(users, u.ID)

		b, err := s.CreateBlog(ctx, &domain.Blog{Characters: storagetest.Str(name), UserFK: storagetest.ID(u.ID)})
		require.NoError(t, err)
		blogs = append(blogs, b.ID)

		_, err = s.CreateReview(ctx, &domain.Review{Post: storagetest.Str(name), ReviewFK: storagetest.ID(b.ID)})
		require.NoError(t, err)
	}
	return users, blogs
}

func TestLoaders_BatchesLookups(t *testing.T) {
	store := &countingStore{Store: inmemory.New()}
	users, blogIDs := seed(t, store)
	ctx := context.Background()

	loaders := New(store)

	blogs, err := loaders.Blogs(ctx, users)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.blogCalls.Load())
	for i, id := range users {
		require.Len(t, blogs[id], 1)
		assert.Equal(t, blogIDs[i], blogs[id][0].ID)
	}

	reviews, err := loaders.Reviews(ctx, blogIDs)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.reviewCalls.Load())
	for _, id := range blogIDs {
		assert.Len(t, reviews[id], 1)
	}
}

func TestLoaders_UnknownParentHasNoChildren(t *testing.T) {
	store := &countingStore{Store: inmemory.New()}
	loaders := New(store)

	blogs, err := loaders.Blogs(context.Background(), []uint{404})
	require.NoError(t, err)
	assert.Empty(t, blogs[404])
}

func TestLoaders_PropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	store := &countingStore{Store: inmemory.New(), fail: boom}
	loaders := New(store)

	_, err := loaders.Blogs(context.Background(), []uint{1, 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestMiddleware_InjectsLoaders(t *testing.T) {
	store := &countingStore{Store: inmemory.New()}

	var got *Loaders
	h := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/user/get", nil))

	assert.NotNil(t, got)
	assert.Nil(t, For(context.Background()))
}
