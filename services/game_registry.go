package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// MoveResult is what a GameDefinition reports after a legal move.
type MoveResult struct {
	BoardJSON   string
	NextActorID string
	Finished    bool
	Outcome     string // models.OutcomeWin or models.OutcomeDraw when Finished
	WinnerID    string
	Scores      map[string]int64
}

// GameDefinition supplies per-game move legality and terminal predicates.
// The session service treats it as an opaque strategy keyed by slug.
type GameDefinition interface {
	Slug() string
	Name() string
	Description() string
	// InitialBoard returns the opaque starting state and the first actor.
	InitialBoard(playerA, playerB string) (string, string, error)
	// ApplyMove validates and applies one move. An illegal move returns an
	// error and must not be treated as a state transition.
	ApplyMove(boardJSON, actorID, moveJSON string) (*MoveResult, error)
}

// GameRegistry holds the available game definitions.
type GameRegistry struct {
	games map[string]GameDefinition
	order []string
}

func NewGameRegistry() *GameRegistry {
	r := &GameRegistry{games: map[string]GameDefinition{}}
	r.Register(&twentyOneGame{})
	r.Register(&wordVolleyGame{})
	return r
}

// Register adds a definition under its canonical slug.
func (r *GameRegistry) Register(g GameDefinition) {
	key := slug.Make(g.Slug())
	if _, exists := r.games[key]; !exists {
		r.order = append(r.order, key)
	}
	r.games[key] = g
}

// Get returns the definition for a slug, or nil.
func (r *GameRegistry) Get(gameSlug string) GameDefinition {
	return r.games[slug.Make(gameSlug)]
}

// List returns all definitions in registration order.
func (r *GameRegistry) List() []GameDefinition {
	out := make([]GameDefinition, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.games[key])
	}
	return out
}

// --- twenty-one (misère nim) ---
// 21 tokens, players alternate taking 1-3. Whoever takes the last token loses.

type twentyOneBoard struct {
	Remaining int    `json:"remaining"`
	PlayerA   string `json:"player_a"`
	PlayerB   string `json:"player_b"`
}

type twentyOneMove struct {
	Take int `json:"take"`
}

type twentyOneGame struct{}

func (g *twentyOneGame) Slug() string { return "twenty-one" }
func (g *twentyOneGame) Name() string { return "Twenty-One" }
func (g *twentyOneGame) Description() string {
	return "Take 1-3 tokens per turn from a pile of 21. Whoever takes the last one loses."
}

func (g *twentyOneGame) InitialBoard(playerA, playerB string) (string, string, error) {
	board := twentyOneBoard{Remaining: 21, PlayerA: playerA, PlayerB: playerB}
	raw, err := json.Marshal(board)
	if err != nil {
		return "", "", err
	}
	return string(raw), playerA, nil
}

func (g *twentyOneGame) ApplyMove(boardJSON, actorID, moveJSON string) (*MoveResult, error) {
	var board twentyOneBoard
	if err := json.Unmarshal([]byte(boardJSON), &board); err != nil {
		return nil, fmt.Errorf("corrupt board state: %w", err)
	}
	var move twentyOneMove
	if err := json.Unmarshal([]byte(moveJSON), &move); err != nil {
		return nil, NewValidationError("invalid move payload", map[string]string{"move": "expected {\"take\": 1-3}"})
	}
	if move.Take < 1 || move.Take > 3 {
		return nil, NewValidationError("illegal move", map[string]string{"take": "must take between 1 and 3 tokens"})
	}
	if move.Take > board.Remaining {
		return nil, NewValidationError("illegal move", map[string]string{"take": fmt.Sprintf("only %d tokens remain", board.Remaining)})
	}

	board.Remaining -= move.Take
	raw, err := json.Marshal(board)
	if err != nil {
		return nil, err
	}

	opponent := board.PlayerA
	if actorID == board.PlayerA {
		opponent = board.PlayerB
	}

	result := &MoveResult{BoardJSON: string(raw), NextActorID: opponent}
	if board.Remaining == 0 {
		// Taking the last token loses.
		result.Finished = true
		result.Outcome = "win"
		result.WinnerID = opponent
		result.Scores = map[string]int64{opponent: 100, actorID: 20}
	}
	return result, nil
}

// --- word-volley ---
// Cooperative word chain: each word must start with the last letter of the
// previous one. Ten clean words finish the rally; both players score together.

const wordVolleyTarget = 10

type wordVolleyBoard struct {
	Words   []string `json:"words"`
	PlayerA string   `json:"player_a"`
	PlayerB string   `json:"player_b"`
}

type wordVolleyMove struct {
	Word string `json:"word"`
}

type wordVolleyGame struct{}

func (g *wordVolleyGame) Slug() string { return "word-volley" }
func (g *wordVolleyGame) Name() string { return "Word Volley" }
func (g *wordVolleyGame) Description() string {
	return "Keep a word chain alive together: each word starts with the last letter of the previous one."
}

func (g *wordVolleyGame) InitialBoard(playerA, playerB string) (string, string, error) {
	board := wordVolleyBoard{Words: []string{}, PlayerA: playerA, PlayerB: playerB}
	raw, err := json.Marshal(board)
	if err != nil {
		return "", "", err
	}
	return string(raw), playerA, nil
}

func (g *wordVolleyGame) ApplyMove(boardJSON, actorID, moveJSON string) (*MoveResult, error) {
	var board wordVolleyBoard
	if err := json.Unmarshal([]byte(boardJSON), &board); err != nil {
		return nil, fmt.Errorf("corrupt board state: %w", err)
	}
	var move wordVolleyMove
	if err := json.Unmarshal([]byte(moveJSON), &move); err != nil {
		return nil, NewValidationError("invalid move payload", map[string]string{"move": "expected {\"word\": \"...\"}"})
	}

	word := strings.ToLower(strings.TrimSpace(move.Word))
	if len(word) < 2 {
		return nil, NewValidationError("illegal move", map[string]string{"word": "must be at least 2 letters"})
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return nil, NewValidationError("illegal move", map[string]string{"word": "letters only"})
		}
	}
	for _, used := range board.Words {
		if used == word {
			return nil, NewValidationError("illegal move", map[string]string{"word": "already used in this rally"})
		}
	}
	if len(board.Words) > 0 {
		prev := board.Words[len(board.Words)-1]
		if word[0] != prev[len(prev)-1] {
			return nil, NewValidationError("illegal move", map[string]string{
				"word": fmt.Sprintf("must start with %q", string(prev[len(prev)-1])),
			})
		}
	}

	board.Words = append(board.Words, word)
	raw, err := json.Marshal(board)
	if err != nil {
		return nil, err
	}

	opponent := board.PlayerA
	if actorID == board.PlayerA {
		opponent = board.PlayerB
	}

	result := &MoveResult{BoardJSON: string(raw), NextActorID: opponent}
	if len(board.Words) >= wordVolleyTarget {
		score := int64(len(board.Words) * 10)
		result.Finished = true
		result.Outcome = "draw" // cooperative: the rally itself is the win
		result.Scores = map[string]int64{board.PlayerA: score, board.PlayerB: score}
	}
	return result, nil
}
