package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"homeops-backend/pkg/scoring"
)

// StringArray is a custom type to handle JSON array in GORM
type StringArray []string

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// ScoredEmail is the persisted verdict for one message of one user. It is
// rewritten on every scoring pass, never edited.
type ScoredEmail struct {
	ID        string `json:"id" gorm:"primaryKey" firestore:"id"`
	UserID    string `json:"user_id" gorm:"uniqueIndex:idx_scored_user_message;not null" firestore:"user_id"`
	MessageID string `json:"message_id" gorm:"uniqueIndex:idx_scored_user_message;not null" firestore:"message_id"`

	Subject    string    `json:"subject" firestore:"subject"`
	Snippet    string    `json:"snippet" gorm:"type:text" firestore:"snippet"`
	Sender     string    `json:"sender" firestore:"sender"`
	Source     string    `json:"source" firestore:"source"`
	ReceivedAt time.Time `json:"received_at" gorm:"index" firestore:"received_at"`

	// Labels as received, kept so a rescore sees the same input
	RawCategory string `json:"-" firestore:"raw_category"`
	RawPriority string `json:"-" firestore:"raw_priority"`

	Score           int         `json:"score" firestore:"score"`
	MentalLoadScore int         `json:"mental_load_score" gorm:"index" firestore:"mental_load_score"`
	Category        string      `json:"category" gorm:"index" firestore:"category"`
	Priority        string      `json:"priority" firestore:"priority"`
	ShouldDisplay   bool        `json:"should_display" gorm:"index" firestore:"should_display"`
	Icon            string      `json:"icon" firestore:"icon"`
	Signals         StringArray `json:"signals" gorm:"type:text" firestore:"signals"`
	RuleVersion     string      `json:"rule_version" firestore:"rule_version"`
	ScoredAt        time.Time   `json:"scored_at" firestore:"scored_at"`
}

// TableName specifies the table name for GORM
func (ScoredEmail) TableName() string {
	return "scored_emails"
}

// NewScoredEmail combines a source email with its verdict.
func NewScoredEmail(userID string, e *Email, v scoring.ScoredEmail, now time.Time) *ScoredEmail {
	return &ScoredEmail{
		ID:              ScoredEmailID(userID, e.MessageID),
		UserID:          userID,
		MessageID:       e.MessageID,
		Subject:         e.Subject,
		Snippet:         e.Snippet,
		Sender:          e.Sender,
		Source:          e.Source,
		ReceivedAt:      e.ReceivedAt,
		RawCategory:     e.Category,
		RawPriority:     e.Priority,
		Score:           v.Score,
		MentalLoadScore: v.MentalLoadScore,
		Category:        v.Category,
		Priority:        v.Priority,
		ShouldDisplay:   v.ShouldDisplay,
		Icon:            v.Icon,
		Signals:         StringArray(v.Signals),
		RuleVersion:     v.RuleVersion,
		ScoredAt:        now,
	}
}

// ScoredEmailID is deterministic so re-syncing a message overwrites its row.
func ScoredEmailID(userID, messageID string) string {
	return userID + "_" + messageID
}

// Record rebuilds the scorer input from the stored row.
func (s *ScoredEmail) Record() scoring.EmailRecord {
	return scoring.EmailRecord{
		Subject:  s.Subject,
		Snippet:  s.Snippet,
		Sender:   s.Sender,
		Category: s.RawCategory,
		Priority: s.RawPriority,
	}
}

// Apply overwrites the verdict fields with a fresh scoring result.
func (s *ScoredEmail) Apply(v scoring.ScoredEmail, now time.Time) {
	s.Score = v.Score
	s.MentalLoadScore = v.MentalLoadScore
	s.Category = v.Category
	s.Priority = v.Priority
	s.ShouldDisplay = v.ShouldDisplay
	s.Icon = v.Icon
	s.Signals = StringArray(v.Signals)
	s.RuleVersion = v.RuleVersion
	s.ScoredAt = now
}
