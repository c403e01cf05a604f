// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"duomatch/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteProfile matches the JSON shape of the profile sync service.
type RemoteProfile struct {
	ID            string    `json:"id"`
	ExternalID    string    `json:"external_id"`
	DisplayName   string    `json:"display_name"`
	Bio           *string   `json:"bio,omitempty"`
	VoiceURL      *string   `json:"voice_url,omitempty"`
	PhotoURL      *string   `json:"photo_url,omitempty"`
	AccountStatus string    `json:"account_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type GetProfileChangesResponse struct {
	Profiles []RemoteProfile `json:"profiles"`
}

type ProfileSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewProfileSyncWorker(db *gorm.DB, syncServiceBaseURL, endpointPath, serviceToken string) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Profile Sync Worker (profile-service → profile_mirrors)…")
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial profile sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Profile sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Profile Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror table.
func (w *ProfileSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM profile_mirrors WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches profile changes since the given time and upserts them
// into profile_mirrors keyed by external_user_id.
func (w *ProfileSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile sync service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Printf("[SYNC] ❌ Request to %s failed: %v", finalURL, err)
		return fmt.Errorf("HTTP request to profile sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Profile service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return fmt.Errorf("profile sync service non-200 response: %d", resp.StatusCode)
	}

	var response GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile sync response: %w", err)
	}

	if len(response.Profiles) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d profile(s) from sync service…", len(response.Profiles))

	var upsertCount, errorCount int
	for _, remote := range response.Profiles {
		mirror := models.ProfileMirror{
			ExternalUserID: remote.ExternalID,
			DisplayName:    remote.DisplayName,
			AccountStatus:  remote.AccountStatus,
		}
		if remote.Bio != nil {
			mirror.Bio = *remote.Bio
		}
		if remote.VoiceURL != nil {
			mirror.VoiceURL = *remote.VoiceURL
		}
		if remote.PhotoURL != nil {
			mirror.PhotoURL = *remote.PhotoURL
		}

		err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "bio", "voice_url", "photo_url", "account_status", "updated_at",
			}),
		}).Create(&mirror).Error
		if err != nil {
			log.Printf("[SYNC] ⚠️ Failed to upsert profile %s: %v", remote.ExternalID, err)
			errorCount++
			continue
		}
		upsertCount++
	}

	log.Printf("[SYNC] ✅ Profile sync complete: %d upserted, %d errors", upsertCount, errorCount)
	return nil
}
