package services

import (
	"errors"
	"log"
	"time"

	"duomatch/metrics"
	"duomatch/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// unlockRetries bounds internal re-evaluation on a compare-and-set miss.
const unlockRetries = 3

// RevealService owns the per-pair reveal ladder. The stored level is advanced
// only by a compare-and-set keyed on the current level, so two sessions
// finishing at once can neither skip a stage nor regress one.
type RevealService struct {
	DB     *gorm.DB
	Policy Policy
	Notify *NotifyService
}

func NewRevealService(db *gorm.DB, policy Policy, notify *NotifyService) *RevealService {
	return &RevealService{DB: db, Policy: policy, Notify: notify}
}

// NextUnlockLevel decides whether the pair may advance one level. Both trust
// scores must clear the next level's threshold and both sides must have
// consented to exactly that level.
func NextUnlockLevel(currentLevel int, trustA, trustB int64, consentA, consentB bool, thresholds [4]int64) int {
	next := currentLevel + 1
	if next > models.RevealPhoto {
		return models.RevealNone
	}
	if trustA < thresholds[next] || trustB < thresholds[next] {
		return models.RevealNone
	}
	if !consentA || !consentB {
		return models.RevealNone
	}
	return next
}

// RecordConsent stores one user's explicit opt-in to a level and immediately
// re-evaluates the ladder, since the consent may have been the missing piece.
func (r *RevealService) RecordConsent(userID, matchID string, levelName string) (*models.MatchPair, error) {
	level := models.ParseRevealLevel(levelName)
	if level < models.RevealBio || level > models.RevealPhoto {
		return nil, NewValidationError("invalid reveal level", map[string]string{"level": "must be bio, voice or photo"})
	}

	pair, err := r.loadPairFor(userID, matchID)
	if err != nil {
		return nil, err
	}

	err = r.DB.Transaction(func(tx *gorm.DB) error {
		consent := models.RevealConsent{
			ID:      uuid.NewString(),
			MatchID: pair.ID,
			UserID:  userID,
			Level:   level,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&consent).Error; err != nil {
			return err
		}
		_, err := r.EvaluateUnlock(tx, pair.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.loadPairFor(userID, matchID)
}

// EvaluateUnlock advances the ladder by at most one level per call. On a CAS
// miss it re-evaluates against the fresh level rather than retrying the stale
// write; after unlockRetries misses it surfaces a retry-safe conflict.
func (r *RevealService) EvaluateUnlock(tx *gorm.DB, matchID string) (int, error) {
	for attempt := 0; attempt < unlockRetries; attempt++ {
		var pair models.MatchPair
		if err := tx.Where("id = ?", matchID).First(&pair).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, NewNotFoundError("match not found")
			}
			return 0, err
		}

		next := pair.RevealLevel + 1
		if next > models.RevealPhoto {
			return 0, nil
		}

		consentA, err := r.hasConsent(tx, pair.ID, pair.UserAID, next)
		if err != nil {
			return 0, err
		}
		consentB, err := r.hasConsent(tx, pair.ID, pair.UserBID, next)
		if err != nil {
			return 0, err
		}

		unlock := NextUnlockLevel(pair.RevealLevel, pair.TrustA, pair.TrustB, consentA, consentB, r.Policy.RevealThresholds)
		if unlock == models.RevealNone {
			return 0, nil
		}

		now := time.Now().UTC()
		res := tx.Model(&models.MatchPair{}).
			Where("id = ? AND reveal_level = ?", pair.ID, pair.RevealLevel).
			Updates(map[string]interface{}{
				"reveal_level":     unlock,
				"level_updated_at": now,
			})
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			// Someone advanced the level between our read and write.
			metrics.RevealCASRetries.Inc()
			continue
		}

		levelName := models.RevealLevelName(unlock)
		metrics.RevealUnlocks.WithLabelValues(levelName).Inc()
		log.Printf("🔓 Pair %s unlocked reveal level %s", pair.ID, levelName)

		payload := map[string]interface{}{"match_id": pair.ID, "level": levelName}
		r.Notify.Emit(tx, pair.UserAID, models.NotifyRevealUnlocked, payload)
		r.Notify.Emit(tx, pair.UserBID, models.NotifyRevealUnlocked, payload)
		return unlock, nil
	}
	return 0, NewConflictError(CodeRevealConflict, "reveal level changed concurrently, retry")
}

// RevealView is what GetReveal returns: the ladder position plus the
// counterpart's profile fields permitted at the unlocked level.
type RevealView struct {
	MatchID       string          `json:"match_id"`
	Level         string          `json:"level"`
	MyTrust       int64           `json:"my_trust"`
	TheirTrust    int64           `json:"their_trust"`
	NextThreshold *int64          `json:"next_threshold,omitempty"`
	MyConsents    []string        `json:"my_consents"`
	Counterpart   *RevealedFields `json:"counterpart,omitempty"`
}

type RevealedFields struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	VoiceURL    string `json:"voice_url,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// GetReveal returns the pair's ladder state from the caller's perspective.
// Profile fields come from the mirror and are filtered by the unlocked level.
func (r *RevealService) GetReveal(userID, matchID string) (*RevealView, error) {
	pair, err := r.loadPairFor(userID, matchID)
	if err != nil {
		return nil, err
	}

	view := &RevealView{
		MatchID:    pair.ID,
		Level:      models.RevealLevelName(pair.RevealLevel),
		MyTrust:    pair.TrustOf(userID),
		TheirTrust: pair.TrustOf(pair.OpponentOf(userID)),
	}
	if pair.RevealLevel < models.RevealPhoto {
		threshold := r.Policy.RevealThresholds[pair.RevealLevel+1]
		view.NextThreshold = &threshold
	}

	var consents []models.RevealConsent
	if err := r.DB.Where("match_id = ? AND user_id = ?", pair.ID, userID).
		Order("level ASC").Find(&consents).Error; err != nil {
		return nil, err
	}
	view.MyConsents = make([]string, 0, len(consents))
	for _, c := range consents {
		view.MyConsents = append(view.MyConsents, models.RevealLevelName(c.Level))
	}

	otherID := pair.OpponentOf(userID)
	var mirror models.ProfileMirror
	err = r.DB.Where("external_user_id = ?", otherID).First(&mirror).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		fields := &RevealedFields{UserID: otherID, DisplayName: mirror.DisplayName}
		if pair.RevealLevel >= models.RevealBio {
			fields.Bio = mirror.Bio
		}
		if pair.RevealLevel >= models.RevealVoice {
			fields.VoiceURL = mirror.VoiceURL
		}
		if pair.RevealLevel >= models.RevealPhoto {
			fields.PhotoURL = mirror.PhotoURL
		}
		view.Counterpart = fields
	}
	return view, nil
}

func (r *RevealService) hasConsent(tx *gorm.DB, matchID, userID string, level int) (bool, error) {
	var count int64
	err := tx.Model(&models.RevealConsent{}).
		Where("match_id = ? AND user_id = ? AND level = ?", matchID, userID, level).
		Count(&count).Error
	return count > 0, err
}

func (r *RevealService) loadPairFor(userID, matchID string) (*models.MatchPair, error) {
	var pair models.MatchPair
	if err := r.DB.Where("id = ?", matchID).First(&pair).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("match not found")
		}
		return nil, err
	}
	if !pair.HasParticipant(userID) {
		return nil, NewNotFoundError("match not found")
	}
	return &pair, nil
}
