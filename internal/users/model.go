package users

import "time"

// Profile models a MovieMu user document.
type Profile struct {
	UserID             string     `gorm:"column:user_id;primaryKey;size:190;not null"`
	Email              string     `gorm:"column:email;size:320;not null;index"`
	Username           string     `gorm:"column:username;size:64;not null;uniqueIndex"`
	FullName           string     `gorm:"column:full_name;size:320;not null"`
	DisplayName        string     `gorm:"column:display_name;size:320"`
	PhotoURL           string     `gorm:"column:photo_url;size:512"`
	Bio                string     `gorm:"column:bio;size:512"`
	LastUsernameChange *time.Time `gorm:"column:last_username_change"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Profile) TableName() string {
	return "user_profiles"
}

// Friend-request statuses as seen from the owning user's side.
const (
	RequestStatusSent     = "sent"
	RequestStatusReceived = "received"
)

// FriendRequest is one side of a pending friendship. Display fields are
// snapshots taken at request time, not live joins to the other profile.
type FriendRequest struct {
	OwnerID     string    `gorm:"column:owner_id;primaryKey;size:190;not null"`
	OtherID     string    `gorm:"column:other_id;primaryKey;size:190;not null"`
	Status      string    `gorm:"column:status;size:16;not null"`
	DisplayName string    `gorm:"column:display_name;size:320"`
	Username    string    `gorm:"column:username;size:64"`
	PhotoURL    string    `gorm:"column:photo_url;size:512"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// Friend is one side of an accepted friendship, with write-through snapshots
// of the friend's display fields.
type Friend struct {
	OwnerID     string    `gorm:"column:owner_id;primaryKey;size:190;not null"`
	FriendID    string    `gorm:"column:friend_id;primaryKey;size:190;not null"`
	DisplayName string    `gorm:"column:display_name;size:320"`
	Username    string    `gorm:"column:username;size:64"`
	PhotoURL    string    `gorm:"column:photo_url;size:512"`
	AddedAt     time.Time `gorm:"column:added_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Friend) TableName() string {
	return "user_friends"
}

// Favorite is one movie in a user's favorites collection.
type Favorite struct {
	FavoriteID string    `gorm:"column:favorite_id;primaryKey;size:190;not null"`
	UserID     string    `gorm:"column:user_id;size:190;not null;index"`
	TMDBID     int64     `gorm:"column:tmdb_id;not null"`
	Title      string    `gorm:"column:title;size:512;not null"`
	PosterPath string    `gorm:"column:poster_path;size:512"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Favorite) TableName() string {
	return "favorite_movies"
}

// TopFiveEntry is one positional slot of a user's top-5 list.
type TopFiveEntry struct {
	UserID     string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Position   int       `gorm:"column:position;primaryKey;not null"`
	TMDBID     int64     `gorm:"column:tmdb_id;not null"`
	Title      string    `gorm:"column:title;size:512;not null"`
	PosterPath string    `gorm:"column:poster_path;size:512"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (TopFiveEntry) TableName() string {
	return "top_five_movies"
}

// MovieRef carries the movie fields snapshotted into favorites and top-5 slots.
type MovieRef struct {
	TMDBID     int64
	Title      string
	PosterPath string
}
