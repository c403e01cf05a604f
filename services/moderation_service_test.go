package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModeration(baseURL, failMode string) *ModerationService {
	return &ModerationService{
		BaseURL:   baseURL,
		Token:     "test-token",
		FailMode:  failMode,
		Client:    http.DefaultClient,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func TestSanitizeStripsMarkup(t *testing.T) {
	m := newTestModeration("", "flagged")

	assert.Equal(t, "hello", m.Sanitize("  <b>hello</b>  "))
	assert.Equal(t, "alert(1)", m.Sanitize("<script>alert(1)</script>"))
	// NFKC folds compatibility characters into their plain forms.
	assert.Equal(t, "ffi", m.Sanitize("ﬃ"))
}

func TestClassifyCleanVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/classify", r.URL.Path)
		require.Equal(t, "test-token", r.Header.Get("X-Service-Token"))
		w.Write([]byte(`{"verdict":"clean"}`))
	}))
	defer srv.Close()

	m := newTestModeration(srv.URL, "flagged")
	v := m.Classify(context.Background(), "hi there", "user-1")

	assert.Equal(t, "clean", v.Verdict)
	assert.Equal(t, "classifier", v.Source)
}

func TestClassifyBlockedVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"verdict":"blocked","reason":"harassment"}`))
	}))
	defer srv.Close()

	m := newTestModeration(srv.URL, "flagged")
	v := m.Classify(context.Background(), "bad words", "user-1")

	assert.Equal(t, "blocked", v.Verdict)
	assert.Equal(t, "harassment", v.Reason)
}

func TestClassifyFailsOpenWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	m := newTestModeration(srv.URL, "flagged")
	v := m.Classify(context.Background(), "anything", "user-1")

	assert.Equal(t, "flagged", v.Verdict)
	assert.Equal(t, "fail_open", v.Source)
	assert.Equal(t, "classifier_unavailable", v.Reason)
}

func TestClassifyFailsOpenOn500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestModeration(srv.URL, "flagged")
	v := m.Classify(context.Background(), "anything", "user-1")

	assert.Equal(t, "flagged", v.Verdict)
	assert.Equal(t, "fail_open", v.Source)
}

func TestClassifyFailModeBlocked(t *testing.T) {
	m := newTestModeration("", "blocked")
	v := m.Classify(context.Background(), "anything", "user-1")

	assert.Equal(t, "blocked", v.Verdict)
	assert.Equal(t, "classifier_not_configured", v.Reason)
}

func TestClassifyUnknownVerdictFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"verdict":"maybe"}`))
	}))
	defer srv.Close()

	m := newTestModeration(srv.URL, "flagged")
	v := m.Classify(context.Background(), "anything", "user-1")

	assert.Equal(t, "flagged", v.Verdict)
	assert.Equal(t, "classifier_unknown_verdict", v.Reason)
}

func TestFailOpenNeverAllowsBogusMode(t *testing.T) {
	m := newTestModeration("", "clean") // misconfigured fail mode
	v := m.Classify(context.Background(), "anything", "user-1")

	// Fail-open must never silently pass messages as clean.
	assert.Equal(t, "flagged", v.Verdict)
}
