package storage

import (
	"fmt"

	"github.com/UkralStul/animeblog-service/internal/domain"
)

func missing(table, column string) error {
	return fmt.Errorf("NOT NULL constraint failed: %s.%s: %w", table, column, ErrRequiredField)
}

// CheckAnime reports the first required anime column that is absent.
func CheckAnime(a *domain.Anime) error {
	switch {
	case a.Title == nil:
		return missing("anime", "title")
	case a.Description == nil:
		return missing("anime", "description")
	case a.Image == nil:
		return missing("anime", "image")
	}
	return nil
}

// CheckBlog reports whether the blog body is absent.
func CheckBlog(b *domain.Blog) error {
	if b.Characters == nil {
		return missing("blog", "characters")
	}
	return nil
}

// CheckReview reports whether the review body is absent.
func CheckReview(r *domain.Review) error {
	if r.Post == nil {
		return missing("review", "post")
	}
	return nil
}
