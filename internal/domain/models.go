package domain

// Fields that are required but may be absent from a request body are pointers:
// a nil value reaches the store as NULL and is rejected there.

// Anime is a catalogue entry.
type Anime struct {
	ID          uint    `gorm:"primaryKey"`
	Title       *string `gorm:"not null"`
	Description *string `gorm:"size:144;not null"`
	Image       *int    `gorm:"not null"`
}

func (Anime) TableName() string { return "anime" }

// User owns zero or more blogs. The password is stored as submitted.
type User struct {
	ID       uint    `gorm:"primaryKey"`
	UserName *string `gorm:"column:user_name;size:20"`
	Password *string `gorm:"size:12"`
}

func (User) TableName() string { return "user" }

// Blog is a post written by a user.
type Blog struct {
	ID         uint    `gorm:"primaryKey"`
	Characters *string `gorm:"size:144;not null"`
	UserFK     *uint   `gorm:"column:user_fk"` // User.ID, not enforced
}

func (Blog) TableName() string { return "blog" }

// Review is a reply to a blog.
type Review struct {
	ID       uint    `gorm:"primaryKey"`
	Post     *string `gorm:"size:144;not null"`
	ReviewFK *uint   `gorm:"column:review_fk"` // Blog.ID, not enforced
}

func (Review) TableName() string { return "review" }
