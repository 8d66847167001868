package db

import "time"

// Page represents both standalone pages (About, Contact) and blog posts.
// A post is a page with IsBlog set.
type Page struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Slug          string    `gorm:"uniqueIndex:idx_pages_slug;size:255;not null" json:"slug"`
	Content       string    `gorm:"type:text;not null;default:''" json:"content"`
	IsBlog        bool      `gorm:"not null;default:false;index" json:"is_blog"`
	Excerpt       *string   `gorm:"type:text" json:"excerpt"`
	Featured      bool      `gorm:"not null;default:false" json:"featured"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PublishedDate time.Time `gorm:"index" json:"published_date"`
}

// TableName keeps the historical table name.
func (Page) TableName() string {
	return "pages"
}

