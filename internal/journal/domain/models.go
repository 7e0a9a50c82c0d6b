package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JournalEntry is a free-form daily note written by a user.
type JournalEntry struct {
	ID              uuid.UUID      `gorm:"type:varchar(36);primaryKey"`
	UserID          string         `gorm:"type:text;not null;index:idx_journal_entries_user_date,priority:1"`
	EntryDate       datatypes.Date `gorm:"not null;index:idx_journal_entries_user_date,priority:2"`
	ContentMarkdown string         `gorm:"type:text"`
	MoodScore       *int           `gorm:"check:chk_journal_entries_mood_score,mood_score BETWEEN 1 AND 10"`
	Tags            datatypes.JSONSlice[string]
	CreatedAt       time.Time `gorm:"not null"`
}

func (JournalEntry) TableName() string { return "journal_entries" }

type CreateRequest struct {
	EntryDate string   `json:"entry_date"`
	Content   string   `json:"content"`
	MoodScore *int     `json:"mood_score"`
	Tags      []string `json:"tags"`
}

type CreateResponse struct {
	ID string `json:"id"`
}
