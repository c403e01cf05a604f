package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessageBody(t *testing.T) {
	assert.NoError(t, validateMessageBody("hello"))

	err := validateMessageBody("")
	require.Error(t, err)
	assert.Equal(t, CodeValidation, err.(*ServiceError).Code)

	assert.NoError(t, validateMessageBody(strings.Repeat("a", maxMessageLength)))
	assert.Error(t, validateMessageBody(strings.Repeat("a", maxMessageLength+1)))
}

func TestValidateMessageBodyCountsRunes(t *testing.T) {
	// 2000 three-byte runes are 6000 bytes but exactly at the limit.
	assert.NoError(t, validateMessageBody(strings.Repeat("あ", maxMessageLength)))
	assert.Error(t, validateMessageBody(strings.Repeat("あ", maxMessageLength+1)))
}
