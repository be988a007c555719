// Package storagetest provides conformance tests for storage.Storage implementations.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/animeblog-service/internal/domain"
	"github.com/UkralStul/animeblog-service/internal/storage"
)

// StoreFactory creates a fresh, empty Storage for one test.
type StoreFactory func(t *testing.T) storage.Storage

// Helpers for building optional fields.
func Str(s string) *string { return &s }
func Int(i int) *int       { return &i }
func ID(id uint) *uint     { return &id }

// RunConformanceTests runs every contract test against the backend built by factory.
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, s storage.Storage)
	}{
		{"AnimeRoundTrip", testAnimeRoundTrip},
		{"AnimeRequiredFields", testAnimeRequiredFields},
		{"UserWithoutFields", testUserWithoutFields},
		{"FindUserByName", testFindUserByName},
		{"BlogsAndReviews", testBlogsAndReviews},
		{"DanglingReferences", testDanglingReferences},
		{"BlogAndReviewRequiredFields", testBlogAndReviewRequiredFields},
		{"BatchedLookups", testBatchedLookups},
		{"DeleteUserCascadesToBlogs", testDeleteUserCascadesToBlogs},
		{"DeleteUnknownUser", testDeleteUnknownUser},
		{"ConcurrentInserts", testConcurrentInserts},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			tt.test(t, s)
		})
	}
}

func testAnimeRoundTrip(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	empty, err := s.ListAnime(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := s.CreateAnime(ctx, &domain.Anime{Title: Str("Mushishi"), Description: Str("quiet"), Image: Int(3)})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := s.CreateAnime(ctx, &domain.Anime{Title: Str(""), Description: Str(""), Image: Int(0)})
	require.NoError(t, err, "empty values are present values")
	assert.Greater(t, second.ID, first.ID)

	all, err := s.ListAnime(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, "Mushishi", *all[0].Title)
	assert.Equal(t, "quiet", *all[0].Description)
	assert.Equal(t, 3, *all[0].Image)
	assert.Equal(t, second.ID, all[1].ID)
}

func testAnimeRequiredFields(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	cases := map[string]*domain.Anime{
		"title":       {Description: Str("d"), Image: Int(1)},
		"description": {Title: Str("t"), Image: Int(1)},
		"image":       {Title: Str("t"), Description: Str("d")},
	}
	for field, a := range cases {
		_, err := s.CreateAnime(ctx, a)
		require.Error(t, err, field)
		assert.ErrorIs(t, err, storage.ErrRequiredField, field)
	}

	all, err := s.ListAnime(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testUserWithoutFields(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &domain.User{})
	require.NoError(t, err)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u.ID, users[0].ID)
	assert.Nil(t, users[0].UserName)
	assert.Nil(t, users[0].Password)
}

func testFindUserByName(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, &domain.User{UserName: Str("alice"), Password: Str("pw1")})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, &domain.User{UserName: Str("alice"), Password: Str("pw2")})
	require.NoError(t, err)

	found, err := s.FindUserByName(ctx, Str("alice"))
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID, "first match wins")

	_, err = s.FindUserByName(ctx, Str("bob"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.FindUserByName(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	anon, err := s.CreateUser(ctx, &domain.User{Password: Str("pw3")})
	require.NoError(t, err)
	found, err = s.FindUserByName(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, anon.ID, found.ID)
}

func testBlogsAndReviews(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &domain.User{UserName: Str("alice")})
	require.NoError(t, err)
	other, err := s.CreateUser(ctx, &domain.User{UserName: Str("bob")})
	require.NoError(t, err)

	b1, err := s.CreateBlog(ctx, &domain.Blog{Characters: Str("hello"), UserFK: ID(u.ID)})
	require.NoError(t, err)
	b2, err := s.CreateBlog(ctx, &domain.Blog{Characters: Str("again"), UserFK: ID(u.ID)})
	require.NoError(t, err)
	_, err = s.CreateBlog(ctx, &domain.Blog{Characters: Str("bob's"), UserFK: ID(other.ID)})
	require.NoError(t, err)

	r1, err := s.CreateReview(ctx, &domain.Review{Post: Str("nice"), ReviewFK: ID(b1.ID)})
	require.NoError(t, err)

	blogs, err := s.BlogsForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, blogs, 2)
	assert.Equal(t, b1.ID, blogs[0].ID)
	assert.Equal(t, b2.ID, blogs[1].ID)
	assert.Equal(t, "hello", *blogs[0].Characters)

	reviews, err := s.ReviewsForBlog(ctx, b1.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, r1.ID, reviews[0].ID)
	assert.Equal(t, "nice", *reviews[0].Post)

	none, err := s.ReviewsForBlog(ctx, b2.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	allBlogs, err := s.ListBlogs(ctx)
	require.NoError(t, err)
	assert.Len(t, allBlogs, 3)

	allReviews, err := s.ListReviews(ctx)
	require.NoError(t, err)
	assert.Len(t, allReviews, 1)
}

func testDanglingReferences(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	b, err := s.CreateBlog(ctx, &domain.Blog{Characters: Str("orphan"), UserFK: ID(999)})
	require.NoError(t, err)
	_, err = s.CreateReview(ctx, &domain.Review{Post: Str("orphan"), ReviewFK: ID(999)})
	require.NoError(t, err)
	_, err = s.CreateBlog(ctx, &domain.Blog{Characters: Str("no owner")})
	require.NoError(t, err)

	blogs, err := s.BlogsForUser(ctx, 999)
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	assert.Equal(t, b.ID, blogs[0].ID)
}

func testBlogAndReviewRequiredFields(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.CreateBlog(ctx, &domain.Blog{UserFK: ID(1)})
	assert.ErrorIs(t, err, storage.ErrRequiredField)

	_, err = s.CreateReview(ctx, &domain.Review{ReviewFK: ID(1)})
	assert.ErrorIs(t, err, storage.ErrRequiredField)
}

func testBatchedLookups(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	u1, err := s.CreateUser(ctx, &domain.User{UserName: Str("u1")})
	require.NoError(t, err)
	u2, err := s.CreateUser(ctx, &domain.User{UserName: Str("u2")})
	require.NoError(t, err)

	b1, err := s.CreateBlog(ctx, &domain.Blog{Characters: Str("a"), UserFK: ID(u1.ID)})
	require.NoError(t, err)
	b2, err := s.CreateBlog(ctx, &domain.Blog{Characters: Str("b"), UserFK: ID(u1.ID)})
	require.NoError(t, err)
	_, err = s.CreateReview(ctx, &domain.Review{Post: Str("r"), ReviewFK: ID(b2.ID)})
	require.NoError(t, err)

	blogs, err := s.BlogsByUserIDs(ctx, []uint{u1.ID, u2.ID})
	require.NoError(t, err)
	require.Len(t, blogs[u1.ID], 2)
	assert.Equal(t, b1.ID, blogs[u1.ID][0].ID)
	assert.Empty(t, blogs[u2.ID])

	reviews, err := s.ReviewsByBlogIDs(ctx, []uint{b1.ID, b2.ID})
	require.NoError(t, err)
	assert.Empty(t, reviews[b1.ID])
	require.Len(t, reviews[b2.ID], 1)
	assert.Equal(t, "r", *reviews[b2.ID][0].Post)

	empty, err := s.BlogsByUserIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testDeleteUserCascadesToBlogs(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &domain.User{UserName: Str("gone")})
	require.NoError(t, err)
	keep, err := s.CreateUser(ctx, &domain.User{UserName: Str("kept")})
	require.NoError(t, err)

	owned, err := s.CreateBlog(ctx, &domain.Blog{Characters: Str("owned"), UserFK: ID(u.ID)})
	require.NoError(t, err)
	kept, err := s.CreateBlog(ctx, &domain.Blog{Characters: Str("kept"), UserFK: ID(keep.ID)})
	require.NoError(t, err)
	_, err = s.CreateReview(ctx, &domain.Review{Post: Str("left behind"), ReviewFK: ID(owned.ID)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, keep.ID, users[0].ID)

	blogs, err := s.ListBlogs(ctx)
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	assert.Equal(t, kept.ID, blogs[0].ID)

	// Reviews are not cascaded.
	reviews, err := s.ReviewsForBlog(ctx, owned.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func testDeleteUnknownUser(t *testing.T, s storage.Storage) {
	err := s.DeleteUser(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testConcurrentInserts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateUser(ctx, &domain.User{UserName: Str("same")}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, n)

	seen := make(map[uint]bool, n)
	for _, u := range users {
		assert.False(t, seen[u.ID], "duplicate id %d", u.ID)
		seen[u.ID] = true
	}
}

func testPing(t *testing.T, s storage.Storage) {
	assert.NoError(t, s.Ping(context.Background()))
}
