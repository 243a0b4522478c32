package lists

import "time"

// SystemMatchActor is the sentinel actor recorded on movie entries inserted
// automatically by match consensus rather than by a participant.
const SystemMatchActor = "SYSTEM_MATCH"

// List models a collaborative movie collection with a membership set.
type List struct {
	ListID           string    `gorm:"column:list_id;primaryKey;size:190;not null"`
	CreatorID        string    `gorm:"column:creator_id;size:190;not null;index"`
	Name             string    `gorm:"column:list_name;size:320;not null"`
	IsShared         bool      `gorm:"column:is_shared;not null;default:true"`
	AllowOthersToAdd bool      `gorm:"column:allow_others_to_add;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (List) TableName() string {
	return "shared_lists"
}

// Participant is one row of a list's membership set. Order is irrelevant;
// membership is a set keyed by (list, user).
type Participant struct {
	ListID  string    `gorm:"column:list_id;primaryKey;size:190;not null"`
	UserID  string    `gorm:"column:user_id;primaryKey;size:190;not null;index"`
	AddedAt time.Time `gorm:"column:added_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Participant) TableName() string {
	return "shared_list_participants"
}

// Movie is one entry of a list's movie collection. Match-inserted entries
// carry IsMatch and the system actor in AddedBy.
type Movie struct {
	ListID     string     `gorm:"column:list_id;primaryKey;size:190;not null"`
	EntryID    string     `gorm:"column:entry_id;primaryKey;size:190;not null"`
	TMDBID     int64      `gorm:"column:tmdb_id;not null;index"`
	Title      string     `gorm:"column:title;size:512;not null"`
	PosterPath string     `gorm:"column:poster_path;size:512"`
	AddedBy    string     `gorm:"column:added_by;size:190;not null"`
	AddedAt    time.Time  `gorm:"column:added_at;autoCreateTime"`
	Watched    bool       `gorm:"column:watched;not null;default:false"`
	WatchedAt  *time.Time `gorm:"column:watched_at"`
	IsMatch    bool       `gorm:"column:is_match;not null;default:false"`
}

// TableName provides the explicit table binding for GORM.
func (Movie) TableName() string {
	return "shared_list_movies"
}

// MovieEntry describes the input for adding a movie to a list.
type MovieEntry struct {
	TMDBID     int64
	Title      string
	PosterPath string
	IsMatch    bool
}
