package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"duomatch/metrics"
	"duomatch/models"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// Verdict is the moderation gateway's answer for one message.
type Verdict struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason,omitempty"`
	// Source distinguishes real classifier verdicts from fail-open ones.
	Source string `json:"-"`
}

// ModerationService is the synchronous gate every message passes before it is
// stored or delivered. The classifier is an external HTTP service; when it is
// unreachable the gate fails open to the configured fail mode (flagged by
// default) rather than guessing clean or failing the send.
type ModerationService struct {
	BaseURL  string
	Token    string
	Client   *http.Client
	FailMode string

	sanitizer *bluemonday.Policy
}

func NewModerationService(failMode string) *ModerationService {
	baseURL := os.Getenv("MODERATION_SERVICE_URL")
	if baseURL == "" {
		log.Println("⚠️  MODERATION_SERVICE_URL not set — every message will take the fail-open path")
	}
	token := os.Getenv("DUOMATCH_SERVICE_TOKEN")

	return &ModerationService{
		BaseURL:  baseURL,
		Token:    token,
		FailMode: failMode,
		Client: &http.Client{
			Timeout: 5 * time.Second,
		},
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Sanitize strips markup and normalizes the text before classification and
// storage. Classifier and store always see the same bytes.
func (m *ModerationService) Sanitize(body string) string {
	clean := m.sanitizer.Sanitize(body)
	clean = norm.NFKC.String(clean)
	return strings.TrimSpace(clean)
}

type classifyRequest struct {
	Text     string `json:"text"`
	SenderID string `json:"sender_id"`
}

// Classify calls the external classifier. Never returns an error: on any
// failure the configured fail mode becomes the verdict.
func (m *ModerationService) Classify(ctx context.Context, text, senderID string) Verdict {
	verdict := m.classify(ctx, text, senderID)
	metrics.ModerationVerdicts.WithLabelValues(verdict.Verdict, verdict.Source).Inc()
	return verdict
}

func (m *ModerationService) classify(ctx context.Context, text, senderID string) Verdict {
	if m.BaseURL == "" {
		return m.failOpen("classifier_not_configured")
	}

	payload, _ := json.Marshal(classifyRequest{Text: text, SenderID: senderID})
	url := fmt.Sprintf("%s/v1/classify", strings.TrimRight(m.BaseURL, "/"))

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return m.failOpen("request_build_failed")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", m.Token)

	resp, err := m.Client.Do(req)
	if err != nil {
		log.Printf("⚠️  Moderation classifier unreachable: %v", err)
		return m.failOpen("classifier_unavailable")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️  Moderation classifier returned %d: %s", resp.StatusCode, string(body))
		return m.failOpen("classifier_error")
	}

	var out Verdict
	if err := json.Unmarshal(body, &out); err != nil {
		return m.failOpen("classifier_bad_response")
	}
	switch out.Verdict {
	case models.VerdictClean, models.VerdictFlagged, models.VerdictBlocked:
		out.Source = "classifier"
		return out
	}
	// An unknown verdict is treated the same as no verdict.
	return m.failOpen("classifier_unknown_verdict")
}

func (m *ModerationService) failOpen(reason string) Verdict {
	mode := m.FailMode
	if mode != models.VerdictFlagged && mode != models.VerdictBlocked {
		mode = models.VerdictFlagged
	}
	return Verdict{Verdict: mode, Reason: reason, Source: "fail_open"}
}
