package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/animeblog-service/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrRequiredField is returned when a NOT NULL column is absent on insert.
	ErrRequiredField = errors.New("required field is missing")
)

// Storage is the contract every record backend implements.
// Lists are returned in ascending id order.
type Storage interface {
	CreateAnime(ctx context.Context, anime *domain.Anime) (*domain.Anime, error)
	ListAnime(ctx context.Context) ([]*domain.Anime, error)

	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	// FindUserByName returns the first user with the given name. A nil name
	// matches users stored without one.
	FindUserByName(ctx context.Context, name *string) (*domain.User, error)
	// DeleteUser removes the user together with every blog it owns.
	// Reviews of those blogs are left in place.
	DeleteUser(ctx context.Context, id uint) error

	CreateBlog(ctx context.Context, blog *domain.Blog) (*domain.Blog, error)
	ListBlogs(ctx context.Context) ([]*domain.Blog, error)
	BlogsForUser(ctx context.Context, userID uint) ([]*domain.Blog, error)

	CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error)
	ListReviews(ctx context.Context) ([]*domain.Review, error)
	ReviewsForBlog(ctx context.Context, blogID uint) ([]*domain.Review, error)

	// Batched lookups for the per-request loaders.
	BlogsByUserIDs(ctx context.Context, userIDs []uint) (map[uint][]*domain.Blog, error)
	ReviewsByBlogIDs(ctx context.Context, blogIDs []uint) (map[uint][]*domain.Review, error)

	Ping(ctx context.Context) error
	Close() error
}
