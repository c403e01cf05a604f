package models

import "time"

// Reveal levels form a small lattice: none < bio < voice < photo.
// The stored level only ever moves up, one step at a time.
const (
	RevealNone  = 0
	RevealBio   = 1
	RevealVoice = 2
	RevealPhoto = 3
)

// RevealLevelName maps a level to its wire name.
func RevealLevelName(level int) string {
	switch level {
	case RevealBio:
		return "bio"
	case RevealVoice:
		return "voice"
	case RevealPhoto:
		return "photo"
	default:
		return "none"
	}
}

// ParseRevealLevel returns the level for a wire name, or -1 if unknown.
func ParseRevealLevel(name string) int {
	switch name {
	case "bio":
		return RevealBio
	case "voice":
		return RevealVoice
	case "photo":
		return RevealPhoto
	case "none":
		return RevealNone
	}
	return -1
}

// MatchPair is the shared state of one matched pair: the reveal ladder position
// and each side's accumulated trust score. Level advances go through a
// compare-and-set on RevealLevel, never a blind write.
type MatchPair struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PairKey string `gorm:"uniqueIndex;not null" json:"-"` // smaller uid + ":" + larger uid

	UserAID string `gorm:"index;not null" json:"user_a_id"`
	UserBID string `gorm:"index;not null" json:"user_b_id"`

	RevealLevel int   `gorm:"default:0" json:"reveal_level"`
	TrustA      int64 `gorm:"default:0" json:"trust_a"`
	TrustB      int64 `gorm:"default:0" json:"trust_b"`

	LevelUpdatedAt *time.Time `json:"level_updated_at,omitempty"`

	Timestamps
}

// HasParticipant reports whether userID belongs to this pair.
func (m *MatchPair) HasParticipant(userID string) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// OpponentOf returns the other member of the pair.
func (m *MatchPair) OpponentOf(userID string) string {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// TrustOf returns userID's accumulated trust score.
func (m *MatchPair) TrustOf(userID string) int64 {
	if m.UserAID == userID {
		return m.TrustA
	}
	return m.TrustB
}

// RevealConsent records one user's explicit opt-in to one reveal level for one
// pair. Consent is never implied by a lower level's consent.
type RevealConsent struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID   string    `gorm:"uniqueIndex:idx_consent_match_user_level;not null" json:"match_id"`
	UserID    string    `gorm:"uniqueIndex:idx_consent_match_user_level;not null" json:"user_id"`
	Level     int       `gorm:"uniqueIndex:idx_consent_match_user_level;not null" json:"level"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
