package models

import "time"

// Session lifecycle states. Terminal states have no outgoing transitions.
const (
	SessionInvited   = "invited"
	SessionReadyWait = "ready_wait"
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
	SessionTimedOut  = "timed_out"
)

// Session outcomes, set once on reaching a terminal state.
const (
	OutcomeWin       = "win"
	OutcomeDraw      = "draw"
	OutcomeAbandoned = "abandoned"
	OutcomeTimeout   = "timeout"
)

// GameSession is one game instance between exactly two participants.
// Mutated only by the session service via state/sequence guarded updates.
type GameSession struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	GameSlug string `gorm:"index;not null" json:"game_slug"`
	MatchID  string `gorm:"index;not null" json:"match_id"`
	PairKey  string `gorm:"index;not null" json:"-"` // canonical unordered pair key

	PlayerAID string `gorm:"index;not null" json:"player_a_id"` // inviter
	PlayerBID string `gorm:"index;not null" json:"player_b_id"` // invitee

	State   string `gorm:"index;not null;default:'invited'" json:"state"`
	TurnSeq int    `gorm:"default:0" json:"turn_seq"`

	PlayerAReady bool `gorm:"default:false" json:"player_a_ready"`
	PlayerBReady bool `gorm:"default:false" json:"player_b_ready"`

	// Opaque game state owned by the GameDefinition for GameSlug
	BoardJSON   string `gorm:"type:text" json:"-"`
	NextActorID string `json:"next_actor_id,omitempty"`

	Outcome  string `gorm:"type:varchar(16)" json:"outcome,omitempty"` // win/draw/abandoned/timeout
	WinnerID string `json:"winner_id,omitempty"`

	PlayerAScore int64 `gorm:"default:0" json:"player_a_score"`
	PlayerBScore int64 `gorm:"default:0" json:"player_b_score"`

	ReadyDeadline *time.Time `gorm:"index" json:"ready_deadline,omitempty"`
	TurnDeadline  *time.Time `gorm:"index" json:"turn_deadline,omitempty"`
	PlayerASeenAt *time.Time `json:"-"`
	PlayerBSeenAt *time.Time `json:"-"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `gorm:"index" json:"ended_at,omitempty"`

	Timestamps
}

// IsTerminal reports whether the session has reached a final state.
func (s *GameSession) IsTerminal() bool {
	return IsTerminalState(s.State)
}

func IsTerminalState(state string) bool {
	switch state {
	case SessionCompleted, SessionAbandoned, SessionTimedOut:
		return true
	}
	return false
}

// HasParticipant reports whether userID plays in this session.
func (s *GameSession) HasParticipant(userID string) bool {
	return s.PlayerAID == userID || s.PlayerBID == userID
}

// OpponentOf returns the other participant's id.
func (s *GameSession) OpponentOf(userID string) string {
	if s.PlayerAID == userID {
		return s.PlayerBID
	}
	return s.PlayerAID
}

// TurnRecord is the append-only turn log of a session.
// The unique (session_id, seq) index is what makes duplicate turn delivery a no-op.
type TurnRecord struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SessionID string    `gorm:"uniqueIndex:idx_turn_session_seq;not null" json:"session_id"`
	Seq       int       `gorm:"uniqueIndex:idx_turn_session_seq;not null" json:"seq"`
	ActorID   string    `gorm:"index;not null" json:"actor_id"`
	MoveJSON  string    `gorm:"type:text" json:"move"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OutcomeEmission dedupes outcome event fan-out: the row is inserted in the
// same transaction as the terminal transition, and the unique index guarantees
// a retried terminal request can never emit twice.
type OutcomeEmission struct {
	ID            string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SessionID     string    `gorm:"uniqueIndex:idx_emission_session_state;not null" json:"session_id"`
	TerminalState string    `gorm:"uniqueIndex:idx_emission_session_state;not null" json:"terminal_state"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
