package model

// Video is the latest known snapshot of one tracked playlist entry.
// Rows are created and updated only through the tracker's save path and are
// never deleted.
type Video struct {
	VideoID      string `gorm:"primaryKey;type:varchar(32)" json:"video_id"`
	Title        string `gorm:"not null" json:"title"`
	CurrentViews int64  `gorm:"not null;default:0" json:"current_views"`
	LastUpdated  int64  `gorm:"not null" json:"last_updated"` // epoch seconds
	PublishedAt  string `gorm:"type:varchar(40)" json:"published_at"` // RFC3339, immutable once set
}

func (Video) TableName() string {
	return "videos"
}

// VideoSnapshot is one item as fetched from the catalog API, before it is
// persisted.
type VideoSnapshot struct {
	VideoID     string
	Title       string
	ViewCount   int64
	PublishedAt string
}

// RankedVideo is the API response shape for ranking endpoints.
type RankedVideo struct {
	Rank        int    `json:"rank"`
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	Views       int64  `json:"views"`
	PublishedAt string `json:"publishedAt,omitempty"`
	URL         string `json:"url"`
}

// VideoAnalytics is the API response shape for the analytics endpoint.
type VideoAnalytics struct {
	VideoID              string  `json:"videoId"`
	Title                string  `json:"title"`
	CurrentViews         int64   `json:"currentViews"`
	CurrentRank          int     `json:"currentRank"`
	PublishedAt          string  `json:"publishedAt,omitempty"`
	ViewsPerHour         float64 `json:"viewsPerHour"`
	ViewsChange          int64   `json:"viewsChange"`
	HoursSinceLastUpdate float64 `json:"hoursSinceLastUpdate"`
	LifetimeViewsPerHour float64 `json:"lifetimeViewsPerHour"`
}
