package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"duomatch/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotifyService hands outcome events to the delivery layer. Emission is
// at-least-once: rows are written with the triggering transaction and the SSE
// stream replays everything newer than the client's cursor.
type NotifyService struct {
	DB *gorm.DB
}

func NewNotifyService(db *gorm.DB) *NotifyService {
	return &NotifyService{DB: db}
}

// Emit writes one notification row. Failures are logged, not propagated: a
// notification must never roll back the transition that caused it.
func (n *NotifyService) Emit(tx *gorm.DB, userID, kind string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ Failed to marshal %s notification for %s: %v", kind, userID, err)
		return
	}
	row := models.Notification{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		PayloadJSON: string(raw),
	}
	if err := tx.Create(&row).Error; err != nil {
		log.Printf("❌ Failed to emit %s notification for %s: %v", kind, userID, err)
	}
}

// ListRecent returns the caller's latest notifications.
func (n *NotifyService) ListRecent(userID string, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var rows []models.Notification
	err := n.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&rows).Error
	return rows, err
}

// StreamSSE streams the authenticated user's notifications as server-sent
// events, polling forward from the newest row at connect time.
func (n *NotifyService) StreamSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastCreatedAt time.Time

		var latest models.Notification
		if err := n.DB.Where("user_id = ?", userID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var fresh []models.Notification
				err := n.DB.Where("user_id = ? AND created_at > ?", userID, lastCreatedAt).
					Order("created_at ASC").
					Find(&fresh).Error
				if err != nil {
					log.Printf("SSE query error for user %s: %v", userID, err)
					continue
				}
				if len(fresh) == 0 {
					continue
				}

				lastCreatedAt = fresh[len(fresh)-1].CreatedAt

				for _, row := range fresh {
					payload, _ := json.Marshal(row)
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", row.Kind, payload)
				}
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
