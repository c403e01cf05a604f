package models

import "time"

// Moderation verdicts. A blocked message never reaches the messages table;
// it only exists as a ReviewItem.
const (
	VerdictClean   = "clean"
	VerdictFlagged = "flagged"
	VerdictBlocked = "blocked"
)

// Message is one chat message in a match thread. Flagged messages are stored
// and delivered with the marker; they are excluded from trust-positive signals.
type Message struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID   string `gorm:"index;not null" json:"match_id"`
	SessionID string `gorm:"index" json:"session_id,omitempty"` // set while a session is active

	SenderID string `gorm:"index;not null" json:"sender_id"`
	Body     string `gorm:"type:text;not null" json:"body"`
	Verdict  string `gorm:"type:varchar(16);not null;default:'clean'" json:"verdict"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// ReviewItem queues a flagged or blocked message for the external human
// moderation review service. Pushed at-least-once by the review worker.
type ReviewItem struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID  string `gorm:"index;not null" json:"match_id"`
	SenderID string `gorm:"index;not null" json:"sender_id"`
	Body     string `gorm:"type:text;not null" json:"body"`
	Verdict  string `gorm:"type:varchar(16);not null" json:"verdict"`
	Reason   string `json:"reason,omitempty"` // classifier label, or "classifier_unavailable"

	PushedAt  *time.Time `gorm:"index" json:"pushed_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
