package models

import "time"

// Leaderboard periods
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAllTime = "all_time"
)

// ValidPeriod reports whether p is a known leaderboard period.
func ValidPeriod(p string) bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// ScoreContribution is one participant's score from one completed session,
// tagged with the session's end time. Rows are append-only: rankings are a
// rebuildable view over this log, never mutable counters. The unique
// (session_id, user_id) index makes outcome replay idempotent.
type ScoreContribution struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SessionID string    `gorm:"uniqueIndex:idx_contrib_session_user;not null" json:"session_id"`
	UserID    string    `gorm:"uniqueIndex:idx_contrib_session_user;index:idx_contrib_user_ended;not null" json:"user_id"`
	GameSlug  string    `gorm:"index" json:"game_slug"`
	Score     int64     `json:"score"`
	EndedAt   time.Time `gorm:"index;index:idx_contrib_user_ended;not null" json:"ended_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// LeaderboardRow is a derived ranking row, never stored.
type LeaderboardRow struct {
	UserID  string    `json:"user_id"`
	Score   int64     `json:"score"`
	FirstAt time.Time `json:"first_at"` // earliest contribution in the window, tie-break
	Rank    int       `json:"rank"`
}
