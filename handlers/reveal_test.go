package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestRevealMediaUpsertsMirror(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)

	// Users whose mirror row hasn't been synced yet must still get the URL
	// persisted, so the write has to be an upsert keyed on external_user_id.
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return revealMediaUpsert(tx, "user-1", "voice", "https://cdn.example.com/reveal/voice/a.ogg")
	})
	assert.Contains(t, sql, "ON CONFLICT")
	assert.Contains(t, sql, "external_user_id")
	assert.Contains(t, sql, "voice_url")

	sql = db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return revealMediaUpsert(tx, "user-1", "photo", "https://cdn.example.com/reveal/photo/a.jpg")
	})
	assert.Contains(t, sql, "photo_url")
}
