package model

// VideoHistory is one timestamped view-count observation. Append-only; the
// repository prunes each video down to its 100 most recent rows inside the
// same transaction as the insert.
type VideoHistory struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	VideoID   string `gorm:"type:varchar(32);not null;index" json:"video_id"`
	Timestamp int64  `gorm:"not null;index" json:"timestamp"` // epoch seconds
	ViewCount int64  `gorm:"not null" json:"view_count"`
}

func (VideoHistory) TableName() string {
	return "video_history"
}

// HistoryPoint is the API response shape for one history observation.
type HistoryPoint struct {
	Timestamp int64 `json:"timestamp"`
	ViewCount int64 `json:"viewCount"`
}

// RankPoint is a video's rank and views at one update timestamp.
type RankPoint struct {
	Timestamp int64 `json:"timestamp"`
	Rank      int   `json:"rank"`
	Views     int64 `json:"views"`
}

// RankEvolution collects a video's rank trajectory across update cycles.
type RankEvolution struct {
	VideoID      string      `json:"videoId"`
	Title        string      `json:"title"`
	PublishedAt  string      `json:"publishedAt,omitempty"`
	History      []RankPoint `json:"history"`
	RankChange   int         `json:"rankChange"`
	CurrentRank  int         `json:"currentRank"`
	PreviousRank int         `json:"previousRank"`
}
