package reviews

import "time"

// Review is one user's rating and comment on a movie. UserName and UserPhoto
// are write-through snapshots of the reviewer's profile at write time, kept
// for display without joining to the live profile.
type Review struct {
	ReviewID  string     `gorm:"column:review_id;primaryKey;size:190;not null"`
	MovieID   int64      `gorm:"column:movie_id;not null;index"`
	UserID    string     `gorm:"column:user_id;size:190;not null;index"`
	UserName  string     `gorm:"column:user_name;size:320"`
	UserPhoto string     `gorm:"column:user_photo;size:512"`
	Rating    float64    `gorm:"column:rating;not null"`
	Comment   string     `gorm:"column:comment;type:text"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Review) TableName() string {
	return "reviews"
}
