package api

import "github.com/UkralStul/animeblog-service/internal/domain"

func serializeAnime(a *domain.Anime) AnimeDTO {
	return AnimeDTO{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Image:       a.Image,
	}
}

func serializeAnimeList(anime []*domain.Anime) []AnimeDTO {
	out := make([]AnimeDTO, 0, len(anime))
	for _, a := range anime {
		out = append(out, serializeAnime(a))
	}
	return out
}

func serializeReview(r *domain.Review) ReviewDTO {
	return ReviewDTO{ID: r.ID, Post: r.Post, ReviewFK: r.ReviewFK}
}

func serializeBlog(b *domain.Blog, reviews []*domain.Review) BlogDTO {
	dto := BlogDTO{
		ID:         b.ID,
		Characters: b.Characters,
		UserFK:     b.UserFK,
		Reviews:    make([]ReviewDTO, 0, len(reviews)),
	}
	for _, r := range reviews {
		dto.Reviews = append(dto.Reviews, serializeReview(r))
	}
	return dto
}

// serializeUser nests the user's blogs and, inside each blog, its reviews.
func serializeUser(u *domain.User, blogs []*domain.Blog, reviewsByBlog map[uint][]*domain.Review) UserDTO {
	dto := UserDTO{
		ID:       u.ID,
		UserName: u.UserName,
		Password: u.Password,
		Blogs:    make([]BlogDTO, 0, len(blogs)),
	}
	for _, b := range blogs {
		dto.Blogs = append(dto.Blogs, serializeBlog(b, reviewsByBlog[b.ID]))
	}
	return dto
}

func serializeUsers(users []*domain.User, blogsByUser map[uint][]*domain.Blog, reviewsByBlog map[uint][]*domain.Review) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, serializeUser(u, blogsByUser[u.ID], reviewsByBlog))
	}
	return out
}
