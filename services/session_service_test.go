package services

import (
	"testing"

	"duomatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestInviteLocksPairRow(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)

	// The non-terminal session count is only a guard when invites for the
	// same pair serialize on this lock.
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var pair models.MatchPair
		return lockedPairQuery(tx, PairKey("alice", "bob")).Find(&pair)
	})

	assert.Contains(t, sql, "FOR UPDATE")
	assert.Contains(t, sql, "pair_key")
}
