package models

import "time"

// Report is an immutable record of one user reporting another. Downstream
// moderation review happens in an external service; nothing here mutates it.
type Report struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReporterID string `gorm:"index;not null" json:"reporter_id"`
	ReportedID string `gorm:"index;not null" json:"reported_id"`
	Reason     string `gorm:"type:varchar(64);not null" json:"reason"`
	Details    string `gorm:"type:text" json:"details,omitempty"`

	// Optional context links
	MatchID   string `gorm:"index" json:"match_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
