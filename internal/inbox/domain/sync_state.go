package domain

import "time"

// SyncState tracks the last inbox sync per user
type SyncState struct {
	UserID       string    `json:"user_id" gorm:"primaryKey"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	LastCount    int       `json:"last_count"`
	LastError    string    `json:"last_error,omitempty"`
	HistoryID    uint64    `json:"history_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SyncState) TableName() string {
	return "inbox_sync_states"
}
