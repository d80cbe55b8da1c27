package domain

import "time"

// Watch statuses offered by the client. Status is descriptive only: any value
// may replace any other, and values outside this set are stored as given.
const (
	StatusPlanToWatch = "Plan To Watch"
	StatusWatching    = "Watching"
	StatusWatched     = "Watched"
	StatusDropped     = "Dropped"
)

// MovieEntry is a user's personal record of one catalog movie.
type MovieEntry struct {
	MovieID string   `json:"movieId" bson:"movie_id"`
	Status  string   `json:"status" bson:"status"`
	Score   *float64 `json:"score" bson:"score"`
}

// User is the document persisted per account. MovieEntries keeps insertion
// order, which is also the display order.
type User struct {
	ID           string       `json:"id" bson:"_id"`
	Username     string       `json:"username" bson:"username"`
	Email        string       `json:"email" bson:"email"`
	PasswordHash string       `json:"-" bson:"password_hash"`
	MovieEntries []MovieEntry `json:"movieEntries" bson:"movie_entries"`
	Version      int64        `json:"-" bson:"version"`
	CreatedAt    time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updated_at"`
}
