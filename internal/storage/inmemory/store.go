package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/UkralStul/animeblog-service/internal/domain"
	"github.com/UkralStul/animeblog-service/internal/storage"
)

// Store implements storage.Storage in memory.
type Store struct {
	mu sync.RWMutex

	anime   []*domain.Anime
	users   []*domain.User
	blogs   map[uint]*domain.Blog
	reviews map[uint]*domain.Review

	blogOrder     []uint
	reviewOrder   []uint
	blogsByUser   map[uint][]uint // map[userID][]blogID
	reviewsByBlog map[uint][]uint // map[blogID][]reviewID

	nextAnimeID, nextUserID, nextBlogID, nextReviewID uint
}

var _ storage.Storage = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		blogs:         make(map[uint]*domain.Blog),
		reviews:       make(map[uint]*domain.Review),
		blogsByUser:   make(map[uint][]uint),
		reviewsByBlog: make(map[uint][]uint),
	}
}

// === Anime ===

func (s *Store) CreateAnime(ctx context.Context, anime *domain.Anime) (*domain.Anime, error) {
	if err := storage.CheckAnime(anime); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAnimeID++
	stored := *anime
	stored.ID = s.nextAnimeID
	s.anime = append(s.anime, &stored)

	anime.ID = stored.ID
	return anime, nil
}

func (s *Store) ListAnime(ctx context.Context) ([]*domain.Anime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Anime, len(s.anime))
	for i, a := range s.anime {
		c := *a
		out[i] = &c
	}
	return out, nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	stored := *user
	stored.ID = s.nextUserID
	s.users = append(s.users, &stored)

	user.ID = stored.ID
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.User, len(s.users))
	for i, u := range s.users {
		c := *u
		out[i] = &c
	}
	return out, nil
}

func (s *Store) FindUserByName(ctx context.Context, name *string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if sameName(u.UserName, name) {
			c := *u
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func sameName(stored, want *string) bool {
	if stored == nil || want == nil {
		return stored == nil && want == nil
	}
	return *stored == *want
}

func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, u := range s.users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}

	owned := make(map[uint]struct{}, len(s.blogsByUser[id]))
	for _, blogID := range s.blogsByUser[id] {
		owned[blogID] = struct{}{}
		delete(s.blogs, blogID)
	}
	delete(s.blogsByUser, id)

	order := s.blogOrder[:0]
	for _, blogID := range s.blogOrder {
		if _, gone := owned[blogID]; !gone {
			order = append(order, blogID)
		}
	}
	s.blogOrder = order

	s.users = append(s.users[:idx], s.users[idx+1:]...)
	return nil
}

// === Blogs ===

func (s *Store) CreateBlog(ctx context.Context, blog *domain.Blog) (*domain.Blog, error) {
	if err := storage.CheckBlog(blog); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBlogID++
	stored := *blog
	stored.ID = s.nextBlogID
	s.blogs[stored.ID] = &stored
	s.blogOrder = append(s.blogOrder, stored.ID)
	if stored.UserFK != nil {
		s.blogsByUser[*stored.UserFK] = append(s.blogsByUser[*stored.UserFK], stored.ID)
	}

	blog.ID = stored.ID
	return blog, nil
}

func (s *Store) ListBlogs(ctx context.Context) ([]*domain.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectBlogs(s.blogOrder), nil
}

func (s *Store) BlogsForUser(ctx context.Context, userID uint) ([]*domain.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectBlogs(s.blogsByUser[userID]), nil
}

// collectBlogs copies the blogs behind ids; the caller holds the lock.
func (s *Store) collectBlogs(ids []uint) []*domain.Blog {
	out := make([]*domain.Blog, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.blogs[id]; ok {
			c := *b
			out = append(out, &c)
		}
	}
	return out
}

// === Reviews ===

func (s *Store) CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	if err := storage.CheckReview(review); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextReviewID++
	stored := *review
	stored.ID = s.nextReviewID
	s.reviews[stored.ID] = &stored
	s.reviewOrder = append(s.reviewOrder, stored.ID)
	if stored.ReviewFK != nil {
		s.reviewsByBlog[*stored.ReviewFK] = append(s.reviewsByBlog[*stored.ReviewFK], stored.ID)
	}

	review.ID = stored.ID
	return review, nil
}

func (s *Store) ListReviews(ctx context.Context) ([]*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectReviews(s.reviewOrder), nil
}

func (s *Store) ReviewsForBlog(ctx context.Context, blogID uint) ([]*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectReviews(s.reviewsByBlog[blogID]), nil
}

func (s *Store) collectReviews(ids []uint) []*domain.Review {
	out := make([]*domain.Review, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.reviews[id]; ok {
			c := *r
			out = append(out, &c)
		}
	}
	return out
}

// === Dataloader Methods ===

func (s *Store) BlogsByUserIDs(ctx context.Context, userIDs []uint) (map[uint][]*domain.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[uint][]*domain.Blog, len(userIDs))
	for _, id := range userIDs {
		results[id] = s.collectBlogs(s.blogsByUser[id])
	}
	return results, nil
}

func (s *Store) ReviewsByBlogIDs(ctx context.Context, blogIDs []uint) (map[uint][]*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[uint][]*domain.Review, len(blogIDs))
	for _, id := range blogIDs {
		results[id] = s.collectReviews(s.reviewsByBlog[id])
	}
	return results, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
