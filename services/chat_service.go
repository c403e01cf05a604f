package services

import (
	"context"
	"errors"
	"unicode/utf8"

	"duomatch/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxMessageLength = 2000

// ChatService is the message send/read path. Every send goes through the
// moderation gateway before anything is persisted or delivered.
type ChatService struct {
	DB         *gorm.DB
	Moderation *ModerationService
	Notify     *NotifyService
}

func NewChatService(db *gorm.DB, moderation *ModerationService, notify *NotifyService) *ChatService {
	return &ChatService{DB: db, Moderation: moderation, Notify: notify}
}

// validateMessageBody checks the sanitized body. Length is counted in runes,
// not bytes, so multibyte text gets the full limit.
func validateMessageBody(clean string) error {
	if clean == "" {
		return NewValidationError("empty message", map[string]string{"body": "must not be empty"})
	}
	if utf8.RuneCountInString(clean) > maxMessageLength {
		return NewValidationError("message too long", map[string]string{"body": "at most 2000 characters"})
	}
	return nil
}

// SendMessage sanitizes, classifies and persists one message. A blocked
// verdict fails the send and the body only survives in the review queue;
// flagged messages are stored and delivered with the marker.
func (c *ChatService) SendMessage(ctx context.Context, userID, matchID, body string) (*models.Message, error) {
	pair, err := c.loadPairFor(userID, matchID)
	if err != nil {
		return nil, err
	}

	clean := c.Moderation.Sanitize(body)
	if err := validateMessageBody(clean); err != nil {
		return nil, err
	}

	// Messages sent while a session runs count toward that session's flag rate.
	sessionID := ""
	var active models.GameSession
	err = c.DB.Where("pair_key = ? AND state = ?", pair.PairKey, models.SessionActive).
		First(&active).Error
	if err == nil {
		sessionID = active.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	verdict := c.Moderation.Classify(ctx, clean, userID)

	if verdict.Verdict == models.VerdictBlocked {
		review := models.ReviewItem{
			ID:       uuid.NewString(),
			MatchID:  pair.ID,
			SenderID: userID,
			Body:     clean,
			Verdict:  models.VerdictBlocked,
			Reason:   verdict.Reason,
		}
		if err := c.DB.Create(&review).Error; err != nil {
			return nil, err
		}
		return nil, NewModerationBlockedError()
	}

	message := &models.Message{
		ID:        uuid.NewString(),
		MatchID:   pair.ID,
		SessionID: sessionID,
		SenderID:  userID,
		Body:      clean,
		Verdict:   verdict.Verdict,
	}

	err = c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		if verdict.Verdict == models.VerdictFlagged {
			review := models.ReviewItem{
				ID:       uuid.NewString(),
				MatchID:  pair.ID,
				SenderID: userID,
				Body:     clean,
				Verdict:  models.VerdictFlagged,
				Reason:   verdict.Reason,
			}
			if err := tx.Create(&review).Error; err != nil {
				return err
			}
		}
		c.Notify.Emit(tx, pair.OpponentOf(userID), models.NotifyMessageReceived, map[string]string{
			"match_id":   pair.ID,
			"message_id": message.ID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages returns the newest messages of a thread in ascending order.
func (c *ChatService) ListMessages(userID, matchID string, limit int) ([]models.Message, error) {
	pair, err := c.loadPairFor(userID, matchID)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var messages []models.Message
	if err := c.DB.Where("match_id = ?", pair.ID).
		Order("created_at DESC").Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	// Reverse to chronological order for the client.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (c *ChatService) loadPairFor(userID, matchID string) (*models.MatchPair, error) {
	var pair models.MatchPair
	if err := c.DB.Where("id = ?", matchID).First(&pair).Error; err != nil {
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
