// workers/review_push_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"duomatch/models"

	"gorm.io/gorm"
)

// ReviewPushWorker drains pending review_items to the external human review
// service. Delivery is at-least-once: an item is only marked pushed after the
// service acknowledges it, so a crash between push and mark re-sends the item.
type ReviewPushWorker struct {
	db         *gorm.DB
	interval   time.Duration
	batchSize  int
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewReviewPushWorker(db *gorm.DB) *ReviewPushWorker {
	baseURL := os.Getenv("REVIEW_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("REVIEW_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("DUOMATCH_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("DUOMATCH_SERVICE_TOKEN environment variable is required for review push")
	}

	return &ReviewPushWorker{
		db:        db,
		interval:  30 * time.Second,
		batchSize: 50,
		baseURL:   baseURL,
		token:     token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *ReviewPushWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Review Push Worker (review_items → review service)…")
	go w.run(ctx)
}

func (w *ReviewPushWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.pushBatch(ctx); err != nil {
				log.Printf("❌ Review push batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Review Push Worker stopped")
			return
		}
	}
}

type reviewPayload struct {
	ItemID    string    `json:"item_id"`
	MatchID   string    `json:"match_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	Verdict   string    `json:"verdict"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (w *ReviewPushWorker) pushBatch(ctx context.Context) error {
	var items []models.ReviewItem
	err := w.db.Where("pushed_at IS NULL").
		Order("created_at ASC").
		Limit(w.batchSize).
		Find(&items).Error
	if err != nil {
		return fmt.Errorf("failed to load pending review items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	log.Printf("[REVIEW] 📤 Pushing %d review item(s)…", len(items))

	var pushed, failed int
	for i := range items {
		if err := w.pushOne(ctx, &items[i]); err != nil {
			log.Printf("[REVIEW] ⚠️ Failed to push item %s: %v", items[i].ID, err)
			failed++
			continue
		}

		now := time.Now().UTC()
		if err := w.db.Model(&models.ReviewItem{}).
			Where("id = ?", items[i].ID).
			Update("pushed_at", now).Error; err != nil {
			log.Printf("[REVIEW] ⚠️ Pushed but failed to mark item %s: %v", items[i].ID, err)
			failed++
			continue
		}
		pushed++
	}

	log.Printf("[REVIEW] ✅ Push complete: %d pushed, %d failed", pushed, failed)
	return nil
}

func (w *ReviewPushWorker) pushOne(ctx context.Context, item *models.ReviewItem) error {
	payload := reviewPayload{
		ItemID:    item.ID,
		MatchID:   item.MatchID,
		SenderID:  item.SenderID,
		Body:      item.Body,
		Verdict:   item.Verdict,
		Reason:    item.Reason,
		CreatedAt: item.CreatedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal review payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/v1/review-items", w.baseURL), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", w.token)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("review service request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("review service returned %d", resp.StatusCode)
	}
	return nil
}
