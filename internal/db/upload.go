package db

import "time"

// Upload tracks a file stored through the upload backend.
type Upload struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Filename         string    `gorm:"size:255;uniqueIndex;not null" json:"filename"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	URL              string    `gorm:"not null" json:"url"`
	Size             int64     `gorm:"not null" json:"size"`
	ContentType      string    `gorm:"size:100" json:"content_type"`
	Width            int       `json:"width,omitempty"`
	Height           int       `json:"height,omitempty"`
	CreatedAt        time.Time `json:"created"`
}

// TableName keeps the historical table name.
func (Upload) TableName() string {
	return "uploads"
}
