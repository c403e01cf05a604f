package services

import (
	"testing"

	"duomatch/models"

	"github.com/stretchr/testify/assert"
)

func TestNextUnlockLevel(t *testing.T) {
	thresholds := [4]int64{0, 50, 150, 300}

	tests := []struct {
		name               string
		current            int
		trustA, trustB     int64
		consentA, consentB bool
		want               int
	}{
		{"advances to bio", models.RevealNone, 50, 50, true, true, models.RevealBio},
		{"one side below threshold", models.RevealNone, 50, 49, true, true, models.RevealNone},
		{"threshold cleared but consent missing", models.RevealNone, 80, 80, true, false, models.RevealNone},
		{"both consents arrive later", models.RevealNone, 80, 80, true, true, models.RevealBio},
		{"bio to voice", models.RevealBio, 150, 200, true, true, models.RevealVoice},
		{"voice needs both at 150", models.RevealBio, 149, 200, true, true, models.RevealNone},
		{"voice to photo", models.RevealVoice, 300, 300, true, true, models.RevealPhoto},
		{"photo is the top", models.RevealPhoto, 9999, 9999, true, true, models.RevealNone},
		{"no consent at all", models.RevealNone, 500, 500, false, false, models.RevealNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextUnlockLevel(tt.current, tt.trustA, tt.trustB, tt.consentA, tt.consentB, thresholds)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRevealLevelNames(t *testing.T) {
	assert.Equal(t, "none", models.RevealLevelName(models.RevealNone))
	assert.Equal(t, "bio", models.RevealLevelName(models.RevealBio))
	assert.Equal(t, "voice", models.RevealLevelName(models.RevealVoice))
	assert.Equal(t, "photo", models.RevealLevelName(models.RevealPhoto))

	assert.Equal(t, models.RevealVoice, models.ParseRevealLevel("voice"))
	assert.Equal(t, -1, models.ParseRevealLevel("ssn"))
}
