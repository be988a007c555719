package api

// Request bodies. Every field is optional on the wire; absence is decided by the store.

type AddAnimeRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *int    `json:"image"`
}

type AddUserRequest struct {
	UserName *string `json:"user_name"`
	Password *string `json:"password"`
}

// LoginRequest carries a password that is read but never checked.
type LoginRequest struct {
	UserName *string `json:"user_name"`
	Password *string `json:"password"`
}

type AddBlogRequest struct {
	Characters *string `json:"characters"`
	UserFK     *uint   `json:"user_fk"`
}

type AddReviewRequest struct {
	Post     *string `json:"post"`
	ReviewFK *uint   `json:"review_fk"`
}

// Response bodies.

type AnimeDTO struct {
	ID          uint    `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *int    `json:"image"`
}

type ReviewDTO struct {
	ID       uint    `json:"id"`
	Post     *string `json:"post"`
	ReviewFK *uint   `json:"review_fk"`
}

type BlogDTO struct {
	ID         uint        `json:"id"`
	Characters *string     `json:"characters"`
	UserFK     *uint       `json:"user_fk"`
	Reviews    []ReviewDTO `json:"reviews"`
}

type UserDTO struct {
	ID       uint      `json:"id"`
	UserName *string   `json:"user_name"`
	Password *string   `json:"password"`
	Blogs    []BlogDTO `json:"blogs"`
}

// Fixed response strings.
const (
	msgAnimeAdded  = "a new anime entry has been added."
	msgUserAdded   = "a new user entry has been added."
	msgBlogAdded   = "a new blog has been posted."
	msgReviewAdded = "a new review has been posted."
	msgLoggedIn    = "User logged in."
	msgNoUser      = "No user created."
	msgNotJSON     = "Error: Data Data must be JSON."
)
