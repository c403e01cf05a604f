package services

import (
	"fmt"
	"log"

	"duomatch/models"

	"gorm.io/gorm"
)

// TrustService turns session outcomes into clamped trust deltas and applies
// them to both sides of the match pair, then asks the reveal ladder to
// re-evaluate.
type TrustService struct {
	DB     *gorm.DB
	Policy Policy
	Reveal *RevealService
}

func NewTrustService(db *gorm.DB, policy Policy, reveal *RevealService) *TrustService {
	return &TrustService{DB: db, Policy: policy, Reveal: reveal}
}

// ComputeTrustDelta derives one session's trust delta from its outcome and the
// in-session flagged-message rate. The delta is clamped so a single session can
// never jump more than one reveal threshold.
func ComputeTrustDelta(policy Policy, outcome string, flagRate float64) int64 {
	var delta int64
	switch outcome {
	case models.OutcomeWin:
		delta = policy.Weights.CompleteClean
	case models.OutcomeDraw:
		delta = policy.Weights.Draw
	case models.OutcomeAbandoned:
		delta = policy.Weights.Abandoned
	case models.OutcomeTimeout:
		delta = policy.Weights.Timeout
	default:
		return 0
	}

	// A dirty chat strips the completion bonus down to the dirty weight.
	if flagRate >= policy.DirtyFlagRate && delta > policy.Weights.CompleteDirty {
		delta = policy.Weights.CompleteDirty
	}

	if delta > policy.MaxTrustDelta {
		delta = policy.MaxTrustDelta
	}
	if delta < -policy.MaxTrustDelta {
		delta = -policy.MaxTrustDelta
	}
	return delta
}

// SessionFlagRate returns flagged/(flagged+clean) for the session's messages.
// Blocked messages never reach the messages table, so they are not counted.
func SessionFlagRate(tx *gorm.DB, sessionID string) (float64, error) {
	var total, flagged int64
	if err := tx.Model(&models.Message{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	if err := tx.Model(&models.Message{}).
		Where("session_id = ? AND verdict = ?", sessionID, models.VerdictFlagged).
		Count(&flagged).Error; err != nil {
		return 0, err
	}
	return float64(flagged) / float64(total), nil
}

// ApplyOutcome runs inside the outcome fan-out transaction. Both trust scores
// move by the same delta; increments are done in SQL so concurrent outcome
// events for different sessions of the same pair cannot lose updates.
func (t *TrustService) ApplyOutcome(tx *gorm.DB, session *models.GameSession) error {
	flagRate, err := SessionFlagRate(tx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to compute flag rate: %w", err)
	}

	delta := ComputeTrustDelta(t.Policy, session.Outcome, flagRate)
	if delta != 0 {
		res := tx.Model(&models.MatchPair{}).
			Where("id = ?", session.MatchID).
			Updates(map[string]interface{}{
				"trust_a": gorm.Expr("trust_a + ?", delta),
				"trust_b": gorm.Expr("trust_b + ?", delta),
			})
		if res.Error != nil {
			return res.Error
		}
		log.Printf("🤝 Trust delta %+d applied to pair %s (outcome=%s flag_rate=%.2f)",
			delta, session.MatchID, session.Outcome, flagRate)
	}

	// Re-evaluate the ladder even on a zero delta: a consent recorded between
	// sessions may have made an unlock possible.
	if _, err := t.Reveal.EvaluateUnlock(tx, session.MatchID); err != nil {
		return err
	}
	return nil
}
