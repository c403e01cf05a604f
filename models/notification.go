package models

import "time"

// Notification kinds
const (
	NotifyTurnAvailable    = "turn_available"
	NotifySessionCompleted = "session_completed"
	NotifyRevealUnlocked   = "reveal_unlocked"
	NotifyInviteReceived   = "invite_received"
	NotifyMessageReceived  = "message_received"
)

// Notification is one event handed to the delivery layer. Rows are emitted
// at-least-once; the SSE stream replays anything newer than the client cursor.
type Notification struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	Kind        string    `gorm:"type:varchar(32);not null" json:"kind"`
	PayloadJSON string    `gorm:"type:text" json:"payload"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
