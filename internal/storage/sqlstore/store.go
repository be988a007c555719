package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/animeblog-service/internal/domain"
	"github.com/UkralStul/animeblog-service/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tune the gorm session shared by every request.
type Options struct {
	// LogLevel defaults to logger.Warn when zero. Pass logger.Silent to mute SQL logs.
	LogLevel logger.LogLevel
}

// maxBatchIDs bounds the ids bound into a single IN clause. SQLite accepts
// 32766 variables per statement and Postgres 65535.
const maxBatchIDs = 1000

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []uint, size int) [][]uint {
	chunks := make([][]uint, 0, (len(ids)+size-1)/size)
	for len(ids) > size {
		chunks = append(chunks, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

// Store implements storage.Storage on a relational database through gorm.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// NewSQLite opens (or creates) the SQLite file at path.
func NewSQLite(path string, opts Options) (*Store, error) {
	store, err := Open(sqlite.Open(path), opts)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	sqlDB, err := store.db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return store, nil
}

// NewPostgres connects to PostgreSQL using dsn.
func NewPostgres(dsn string, opts Options) (*Store, error) {
	return Open(postgres.Open(dsn), opts)
}

// Open connects through dialector and creates any missing tables.
func Open(dialector gorm.Dialector, opts Options) (*Store, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(opts.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Anime{}, &domain.User{}, &domain.Blog{}, &domain.Review{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// === Anime ===

func (s *Store) CreateAnime(ctx context.Context, anime *domain.Anime) (*domain.Anime, error) {
	if err := storage.CheckAnime(anime); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(anime).Error; err != nil {
		return nil, fmt.Errorf("insert anime: %w", err)
	}
	return anime, nil
}

func (s *Store) ListAnime(ctx context.Context) ([]*domain.Anime, error) {
	anime := []*domain.Anime{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&anime).Error; err != nil {
		return nil, fmt.Errorf("list anime: %w", err)
	}
	return anime, nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users := []*domain.User{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Store) FindUserByName(ctx context.Context, name *string) (*domain.User, error) {
	query := s.db.WithContext(ctx)
	if name == nil {
		query = query.Where("user_name IS NULL")
	} else {
		query = query.Where("user_name = ?", *name)
	}

	var user domain.User
	if err := query.Order("id ASC").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
			}
			return err
		}
		if err := tx.Where("user_fk = ?", id).Delete(&domain.Blog{}).Error; err != nil {
			return fmt.Errorf("delete blogs of user %d: %w", id, err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("delete user %d: %w", id, err)
		}
		return nil
	})
}

// === Blogs ===

func (s *Store) CreateBlog(ctx context.Context, blog *domain.Blog) (*domain.Blog, error) {
	if err := storage.CheckBlog(blog); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(blog).Error; err != nil {
		return nil, fmt.Errorf("insert blog: %w", err)
	}
	return blog, nil
}

func (s *Store) ListBlogs(ctx context.Context) ([]*domain.Blog, error) {
	blogs := []*domain.Blog{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&blogs).Error; err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	return blogs, nil
}

func (s *Store) BlogsForUser(ctx context.Context, userID uint) ([]*domain.Blog, error) {
	blogs := []*domain.Blog{}
	err := s.db.WithContext(ctx).Where("user_fk = ?", userID).Order("id ASC").Find(&blogs).Error
	if err != nil {
		return nil, fmt.Errorf("blogs for user %d: %w", userID, err)
	}
	return blogs, nil
}

// === Reviews ===

func (s *Store) CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	if err := storage.CheckReview(review); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return review, nil
}

func (s *Store) ListReviews(ctx context.Context) ([]*domain.Review, error) {
	reviews := []*domain.Review{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (s *Store) ReviewsForBlog(ctx context.Context, blogID uint) ([]*domain.Review, error) {
	reviews := []*domain.Review{}
	err := s.db.WithContext(ctx).Where("review_fk = ?", blogID).Order("id ASC").Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("reviews for blog %d: %w", blogID, err)
	}
	return reviews, nil
}

// === Dataloader Methods ===

func (s *Store) BlogsByUserIDs(ctx context.Context, userIDs []uint) (map[uint][]*domain.Blog, error) {
	result := make(map[uint][]*domain.Blog, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	// One query per chunk of owners, grouped afterwards.
	var blogs []*domain.Blog
	for _, chunk := range chunkIDs(userIDs, maxBatchIDs) {
		var part []*domain.Blog
		err := s.db.WithContext(ctx).
			Where("user_fk IN ?", chunk).
			Order("user_fk, id ASC").
			Find(&part).Error
		if err != nil {
			return nil, fmt.Errorf("blogs by user ids: %w", err)
		}
		blogs = append(blogs, part...)
	}

	for _, id := range userIDs {
		result[id] = []*domain.Blog{}
	}
	for _, b := range blogs {
		if b.UserFK != nil {
			result[*b.UserFK] = append(result[*b.UserFK], b)
		}
	}
	return result, nil
}

func (s *Store) ReviewsByBlogIDs(ctx context.Context, blogIDs []uint) (map[uint][]*domain.Review, error) {
	result := make(map[uint][]*domain.Review, len(blogIDs))
	if len(blogIDs) == 0 {
		return result, nil
	}

	var reviews []*domain.Review
	for _, chunk := range chunkIDs(blogIDs, maxBatchIDs) {
		var part []*domain.Review
		err := s.db.WithContext(ctx).
			Where("review_fk IN ?", chunk).
			Order("review_fk, id ASC").
			Find(&part).Error
		if err != nil {
			return nil, fmt.Errorf("reviews by blog ids: %w", err)
		}
		reviews = append(reviews, part...)
	}

	for _, id := range blogIDs {
		result[id] = []*domain.Review{}
	}
	for _, r := range reviews {
		if r.ReviewFK != nil {
			result[*r.ReviewFK] = append(result[*r.ReviewFK], r)
		}
	}
	return result, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
