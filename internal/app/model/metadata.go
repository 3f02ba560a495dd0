package model

// Metadata keys written by the tracker after each successful update cycle.
const (
	MetaLastUpdate  = "lastUpdate"
	MetaTotalVideos = "totalVideos"
)

// Metadata is a key/value record with last-write-wins upsert semantics.
type Metadata struct {
	Key   string `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value string `gorm:"not null" json:"value"`
}

func (Metadata) TableName() string {
	return "metadata"
}
