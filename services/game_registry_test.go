package services

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	r := NewGameRegistry()

	assert.NotNil(t, r.Get("twenty-one"))
	assert.NotNil(t, r.Get("word-volley"))
	assert.Nil(t, r.Get("chess"))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "twenty-one", list[0].Slug())
}

func TestTwentyOneInitialBoard(t *testing.T) {
	g := &twentyOneGame{}
	boardJSON, firstActor, err := g.InitialBoard("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", firstActor)

	var board twentyOneBoard
	require.NoError(t, json.Unmarshal([]byte(boardJSON), &board))
	assert.Equal(t, 21, board.Remaining)
}

func TestTwentyOneIllegalMoves(t *testing.T) {
	g := &twentyOneGame{}
	boardJSON, _, err := g.InitialBoard("alice", "bob")
	require.NoError(t, err)

	for _, take := range []int{0, 4, -1} {
		_, err := g.ApplyMove(boardJSON, "alice", fmt.Sprintf(`{"take":%d}`, take))
		require.Error(t, err, "take=%d should be illegal", take)
		svcErr, ok := err.(*ServiceError)
		require.True(t, ok)
		assert.Equal(t, CodeValidation, svcErr.Code)
	}

	_, err = g.ApplyMove(boardJSON, "alice", `not json`)
	assert.Error(t, err)
}

func TestTwentyOneLastTokenLoses(t *testing.T) {
	g := &twentyOneGame{}
	boardJSON, _, err := g.InitialBoard("alice", "bob")
	require.NoError(t, err)

	// Drain to 1 token: alice and bob alternate taking 2 (10 moves).
	actor, other := "alice", "bob"
	for i := 0; i < 10; i++ {
		res, err := g.ApplyMove(boardJSON, actor, `{"take":2}`)
		require.NoError(t, err)
		require.False(t, res.Finished)
		assert.Equal(t, other, res.NextActorID)
		boardJSON = res.BoardJSON
		actor, other = other, actor
	}

	// actor is now alice; taking the last token loses.
	res, err := g.ApplyMove(boardJSON, actor, `{"take":1}`)
	require.NoError(t, err)
	require.True(t, res.Finished)
	assert.Equal(t, "win", res.Outcome)
	assert.Equal(t, other, res.WinnerID)
	assert.Equal(t, int64(100), res.Scores[other])
	assert.Equal(t, int64(20), res.Scores[actor])
}

func TestTwentyOneCannotOverdraw(t *testing.T) {
	g := &twentyOneGame{}
	board, err := json.Marshal(twentyOneBoard{Remaining: 2, PlayerA: "alice", PlayerB: "bob"})
	require.NoError(t, err)

	_, err = g.ApplyMove(string(board), "alice", `{"take":3}`)
	assert.Error(t, err)
}

func TestWordVolleyChainRules(t *testing.T) {
	g := &wordVolleyGame{}
	boardJSON, firstActor, err := g.InitialBoard("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", firstActor)

	res, err := g.ApplyMove(boardJSON, "alice", `{"word":"Apple"}`)
	require.NoError(t, err)
	boardJSON = res.BoardJSON

	// Next word must start with "e".
	_, err = g.ApplyMove(boardJSON, "bob", `{"word":"orange"}`)
	assert.Error(t, err)

	res, err = g.ApplyMove(boardJSON, "bob", `{"word":"echo"}`)
	require.NoError(t, err)
	boardJSON = res.BoardJSON

	// No repeats within a rally.
	_, err = g.ApplyMove(boardJSON, "alice", `{"word":"apple"}`)
	assert.Error(t, err)

	// Letters only, minimum length 2.
	_, err = g.ApplyMove(boardJSON, "alice", `{"word":"o"}`)
	assert.Error(t, err)
	_, err = g.ApplyMove(boardJSON, "alice", `{"word":"ok2"}`)
	assert.Error(t, err)
}

func TestWordVolleyFinishesAsDraw(t *testing.T) {
	g := &wordVolleyGame{}
	board, err := json.Marshal(wordVolleyBoard{
		Words:   []string{"apple", "echo", "otter", "rain", "noon", "nest", "tree", "earth", "house"},
		PlayerA: "alice",
		PlayerB: "bob",
	})
	require.NoError(t, err)

	res, err := g.ApplyMove(string(board), "bob", `{"word":"ember"}`)
	require.NoError(t, err)
	require.True(t, res.Finished)
	assert.Equal(t, "draw", res.Outcome)
	assert.Empty(t, res.WinnerID)
	assert.Equal(t, int64(100), res.Scores["alice"])
	assert.Equal(t, int64(100), res.Scores["bob"])
}
