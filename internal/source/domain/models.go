package domain

import "time"

// DataSource is the system or device a batch of observations came from.
// Ids come from the database sequence and stay small enough for JSON clients
// that decode numbers as doubles.
type DataSource struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name       string    `json:"name" gorm:"type:text;not null;uniqueIndex:ux_data_sources_name"`
	APIKeyHash *string   `json:"-" gorm:"type:text"`
	IsTrusted  bool      `json:"is_trusted" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

func (DataSource) TableName() string { return "data_sources" }
