package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"duomatch/metrics"
	"duomatch/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nonTerminalStates is the guard set for terminal CAS transitions.
var nonTerminalStates = []string{models.SessionInvited, models.SessionReadyWait, models.SessionActive}

// errAlreadyTerminal is an internal sentinel: a terminal CAS found the session
// already finished. Callers reload and return the authoritative state.
var errAlreadyTerminal = errors.New("session already terminal")

// SessionService owns the session lifecycle. Both participants drive the same
// row concurrently, so every transition is a guarded update on (id, state) or
// (id, state, turn_seq), never a read-modify-write save.
type SessionService struct {
	DB       *gorm.DB
	Registry *GameRegistry
	Policy   Policy

	Trust       *TrustService
	Leaderboard *LeaderboardService
	Notify      *NotifyService
}

func NewSessionService(db *gorm.DB, registry *GameRegistry, policy Policy,
	trust *TrustService, leaderboard *LeaderboardService, notify *NotifyService) *SessionService {
	return &SessionService{
		DB:          db,
		Registry:    registry,
		Policy:      policy,
		Trust:       trust,
		Leaderboard: leaderboard,
		Notify:      notify,
	}
}

// lockedPairQuery scopes a MatchPair lookup to the pair key and takes a
// row-level FOR UPDATE lock.
func lockedPairQuery(tx *gorm.DB, pairKey string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("pair_key = ?", pairKey)
}

// Invite creates a session in `invited` and the MatchPair row if the two users
// have never matched before. At most one non-terminal session may exist per
// unordered pair.
func (s *SessionService) Invite(inviterID, opponentID, gameSlug string) (*models.GameSession, error) {
	if opponentID == "" || opponentID == inviterID {
		return nil, NewValidationError("invalid opponent", map[string]string{"opponent_id": "must be another user"})
	}
	game := s.Registry.Get(gameSlug)
	if game == nil {
		return nil, NewValidationError("unknown game", map[string]string{"game_slug": "no such game"})
	}

	pairKey := PairKey(inviterID, opponentID)
	var session *models.GameSession

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		pair := models.MatchPair{
			ID:      uuid.NewString(),
			PairKey: pairKey,
			UserAID: inviterID,
			UserBID: opponentID,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).Create(&pair).Error; err != nil {
			return err
		}
		// The row lock serializes invites per pair: a concurrent invite blocks
		// here until this transaction commits, so its count below sees our
		// session. Without the lock both would count zero and both commit.
		if err := lockedPairQuery(tx, pairKey).First(&pair).Error; err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&models.GameSession{}).
			Where("pair_key = ? AND state IN ?", pairKey, nonTerminalStates).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return NewConflictError(CodeConflict, "this pair already has an active session")
		}

		readyDeadline := time.Now().UTC().Add(s.Policy.ReadyTimeout)
		session = &models.GameSession{
			ID:            uuid.NewString(),
			GameSlug:      game.Slug(),
			MatchID:       pair.ID,
			PairKey:       pairKey,
			PlayerAID:     inviterID,
			PlayerBID:     opponentID,
			State:         models.SessionInvited,
			ReadyDeadline: &readyDeadline,
		}
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		s.Notify.Emit(tx, opponentID, models.NotifyInviteReceived, map[string]string{
			"session_id": session.ID,
			"from":       inviterID,
			"game_slug":  game.Slug(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.SessionTransitions.WithLabelValues(models.SessionInvited).Inc()
	return session, nil
}

// Accept moves invited → ready_wait. Only the invitee may accept. Replaying an
// accept returns the current state unchanged.
func (s *SessionService) Accept(userID, sessionID string) (*models.GameSession, error) {
	session, err := s.loadFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == models.SessionReadyWait || session.State == models.SessionActive {
		return session, nil
	}
	if session.IsTerminal() {
		return nil, NewSessionEndedError(session)
	}
	if session.PlayerBID != userID {
		return nil, NewConflictError(CodeConflict, "only the invited player can accept")
	}

	readyDeadline := time.Now().UTC().Add(s.Policy.ReadyTimeout)
	res := s.DB.Model(&models.GameSession{}).
		Where("id = ? AND state = ?", sessionID, models.SessionInvited).
		Updates(map[string]interface{}{
			"state":          models.SessionReadyWait,
			"ready_deadline": readyDeadline,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	// Lost the race to a concurrent transition; whatever won is authoritative.
	session, err = s.loadFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected > 0 {
		metrics.SessionTransitions.WithLabelValues(models.SessionReadyWait).Inc()
	}
	if session.IsTerminal() {
		return nil, NewSessionEndedError(session)
	}
	return session, nil
}

// Ready records the caller's ready flag; when both are set the session goes
// active, with the board initialised by the game definition.
func (s *SessionService) Ready(userID, sessionID string) (*models.GameSession, error) {
	session, err := s.loadFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == models.SessionActive {
		return session, nil
	}
	if session.IsTerminal() {
		return nil, NewSessionEndedError(session)
	}
	if session.State != models.SessionReadyWait {
		return nil, NewConflictError(CodeConflict, "session is not waiting for ready signals")
	}

	readyColumn := "player_a_ready"
	if session.PlayerBID == userID {
		readyColumn = "player_b_ready"
	}
	if err := s.DB.Model(&models.GameSession{}).
		Where("id = ? AND state = ?", sessionID, models.SessionReadyWait).
		Update(readyColumn, true).Error; err != nil {
		return nil, err
	}

	session, err = s.loadFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != models.SessionReadyWait || !session.PlayerAReady || !session.PlayerBReady {
		if session.IsTerminal() {
			return nil, NewSessionEndedError(session)
		}
		return session, nil
	}

	return s.activate(userID, session)
}

// activate runs ready_wait → active exactly once even when both ready calls
// race: the state guard lets only one writer through.
func (s *SessionService) activate(userID string, session *models.GameSession) (*models.GameSession, error) {
	game := s.Registry.Get(session.GameSlug)
	if game == nil {
		return nil, fmt.Errorf("game definition %q disappeared from registry", session.GameSlug)
	}
	board, firstActor, err := game.InitialBoard(session.PlayerAID, session.PlayerBID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise board: %w", err)
	}

	now := time.Now().UTC()
	turnDeadline := now.Add(s.Policy.TurnTimeout)
	res := s.DB.Model(&models.GameSession{}).
		Where("id = ? AND state = ? AND player_a_ready AND player_b_ready", session.ID, models.SessionReadyWait).
		Updates(map[string]interface{}{
			"state":          models.SessionActive,
			"board_json":     board,
			"turn_seq":       1,
			"next_actor_id":  firstActor,
			"started_at":     now,
			"turn_deadline":  turnDeadline,
			"ready_deadline": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		metrics.SessionTransitions.WithLabelValues(models.SessionActive).Inc()
		s.Notify.Emit(s.DB, firstActor, models.NotifyTurnAvailable, map[string]interface{}{
			"session_id": session.ID,
			"turn_seq":   1,
		})
	}
	return s.loadFor(userID, session.ID)
}

// SubmitTurn applies one move under the strict sequence guard. The submitted
// seq must equal the session's current one; a duplicate delivery of an
// already-applied own turn is a no-op that echoes current state.
func (s *SessionService) SubmitTurn(userID, sessionID string, seq int, moveJSON string) (*models.GameSession, error) {
	session, err := s.loadFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		metrics.TurnConflicts.WithLabelValues("session_ended").Inc()
		return nil, NewSessionEndedError(session)
	}
	if session.State != models.SessionActive {
		return nil, NewConflictError(CodeConflict, "session is not active yet")
	}

	if seq != session.TurnSeq {
		if seq < session.TurnSeq {
			var applied models.TurnRecord
			err := s.DB.Where("session_id = ? AND seq = ? AND actor_id = ?", sessionID, seq, userID).
				First(&applied).Error
			if err == nil {
				// Duplicate delivery of a turn we already applied.
				return session, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		metrics.TurnConflicts.WithLabelValues("stale_seq").Inc()
		return nil, NewStaleTurnError(session.TurnSeq)
	}
	if session.NextActorID != userID {
		metrics.TurnConflicts.WithLabelValues("wrong_actor").Inc()
		return nil, NewConflictError(CodeConflict, "it is not your turn")
	}

	game := s.Registry.Get(session.GameSlug)
	if game == nil {
		return nil, fmt.Errorf("game definition %q disappeared from registry", session.GameSlug)
	}
	result, err := game.ApplyMove(session.BoardJSON, userID, moveJSON)
	if err != nil {
		return nil, err
	}

	var outcome *models.GameSession
	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		turnDeadline := now.Add(s.Policy.TurnTimeout)
		res := tx.Model(&models.GameSession{}).
			Where("id = ? AND state = ? AND turn_seq = ?", sessionID, models.SessionActive, seq).
			Updates(map[string]interface{}{
				"board_json":    result.BoardJSON,
				"turn_seq":      seq + 1,
				"next_actor_id": result.NextActorID,
				"turn_deadline": turnDeadline,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyTerminal // or a concurrent turn won; resolved below
		}

		record := models.TurnRecord{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Seq:       seq,
			ActorID:   userID,
			MoveJSON:  moveJSON,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		if result.Finished {
			winner := result.WinnerID
			fresh, err := s.finishTx(tx, sessionID, models.SessionCompleted, result.Outcome, winner, result.Scores)
			if err != nil {
				return err
			}
			outcome = fresh
			return nil
		}

		s.Notify.Emit(tx, result.NextActorID, models.NotifyTurnAvailable, map[string]interface{}{
			"session_id": sessionID,
			"turn_seq":   seq + 1,
		})
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, errAlreadyTerminal) {
			fresh, err := s.loadFor(userID, sessionID)
			if err != nil {
				return nil, err
			}
			if fresh.IsTerminal() {
				metrics.TurnConflicts.WithLabelValues("session_ended").Inc()
				return nil, NewSessionEndedError(fresh)
			}
			metrics.TurnConflicts.WithLabelValues("stale_seq").Inc()
			return nil, NewStaleTurnError(fresh.TurnSeq)
		}
		return nil, txErr
	}

	metrics.TurnsApplied.Inc()
	if outcome != nil {
		return outcome, nil
	}
	return s.loadFor(userID, sessionID)
}

// Leave abandons the session from any non-terminal state. Leaving a session
// that already ended is a no-op returning the final state.
func (s *SessionService) Leave(userID, sessionID string) (*models.GameSession, error) {
	session, err := s.loadFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		return session, nil
	}
	return s.finish(sessionID, models.SessionAbandoned, models.OutcomeAbandoned, "", nil)
}

// Heartbeat records a liveness signal for the caller. The liveness sweep
// abandons a session once one side has been silent past the grace period.
func (s *SessionService) Heartbeat(userID, sessionID string) error {
	session, err := s.loadFor(userID, sessionID)
	if err != nil {
		return err
	}
	if session.IsTerminal() {
		return NewSessionEndedError(session)
	}
	column := "player_a_seen_at"
	if session.PlayerBID == userID {
		column = "player_b_seen_at"
	}
	return s.DB.Model(&models.GameSession{}).
		Where("id = ?", sessionID).
		Update(column, time.Now().UTC()).Error
}

// Get returns a session visible to the caller.
func (s *SessionService) Get(userID, sessionID string) (*models.GameSession, error) {
	return s.loadFor(userID, sessionID)
}

// ListMine returns the caller's sessions, newest first.
func (s *SessionService) ListMine(userID string, activeOnly bool, limit int) ([]models.GameSession, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	q := s.DB.Where("player_a_id = ? OR player_b_id = ?", userID, userID).
		Order("created_at DESC").Limit(limit)
	if activeOnly {
		q = q.Where("state IN ?", nonTerminalStates)
	}
	var sessions []models.GameSession
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *SessionService) loadFor(userID, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	if err := s.DB.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}
	if !session.HasParticipant(userID) {
		// Hide the session's existence from non-participants.
		return nil, NewNotFoundError("session not found")
	}
	return &session, nil
}

// finish runs a terminal transition in its own transaction.
func (s *SessionService) finish(sessionID, terminalState, outcome, winnerID string, scores map[string]int64) (*models.GameSession, error) {
	var final *models.GameSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		fresh, err := s.finishTx(tx, sessionID, terminalState, outcome, winnerID, scores)
		if err != nil {
			return err
		}
		final = fresh
		return nil
	})
	if errors.Is(err, errAlreadyTerminal) {
		var session models.GameSession
		if err := s.DB.Where("id = ?", sessionID).First(&session).Error; err != nil {
			return nil, err
		}
		return &session, nil
	}
	if err != nil {
		return nil, err
	}
	return final, nil
}

// finishTx applies the terminal CAS and, when the emission row is new, fans the
// outcome event out to the trust scorer, the leaderboard and notifications.
// The unique emission index makes the fan-out exactly-once under retries.
func (s *SessionService) finishTx(tx *gorm.DB, sessionID, terminalState, outcome, winnerID string, scores map[string]int64) (*models.GameSession, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"state":          terminalState,
		"outcome":        outcome,
		"ended_at":       now,
		"turn_deadline":  nil,
		"ready_deadline": nil,
	}
	if winnerID != "" {
		updates["winner_id"] = winnerID
	}

	var session models.GameSession
	if err := tx.Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	if scores != nil {
		updates["player_a_score"] = scores[session.PlayerAID]
		updates["player_b_score"] = scores[session.PlayerBID]
	}

	res := tx.Model(&models.GameSession{}).
		Where("id = ? AND state IN ?", sessionID, nonTerminalStates).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errAlreadyTerminal
	}

	emission := models.OutcomeEmission{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		TerminalState: terminalState,
	}
	emRes := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&emission)
	if emRes.Error != nil {
		return nil, emRes.Error
	}

	if err := tx.Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}

	if emRes.RowsAffected > 0 {
		metrics.SessionTransitions.WithLabelValues(terminalState).Inc()
		metrics.OutcomeEmissions.WithLabelValues(terminalState).Inc()

		if err := s.Leaderboard.AppendContributions(tx, &session); err != nil {
			return nil, err
		}
		if err := s.Trust.ApplyOutcome(tx, &session); err != nil {
			return nil, err
		}
		payload := map[string]interface{}{
			"session_id": session.ID,
			"state":      terminalState,
			"outcome":    outcome,
			"winner_id":  session.WinnerID,
		}
		s.Notify.Emit(tx, session.PlayerAID, models.NotifySessionCompleted, payload)
		s.Notify.Emit(tx, session.PlayerBID, models.NotifySessionCompleted, payload)
	}

	return &session, nil
}

// SweepReadyTimeouts abandons sessions still waiting past their ready deadline.
func (s *SessionService) SweepReadyTimeouts(now time.Time) {
	var sessions []models.GameSession
	err := s.DB.Where("state IN ? AND ready_deadline IS NOT NULL AND ready_deadline <= ?",
		[]string{models.SessionInvited, models.SessionReadyWait}, now.UTC()).
		Find(&sessions).Error
	if err != nil {
		log.Printf("[Sweep] ready-timeout query failed: %v", err)
		return
	}
	for _, session := range sessions {
		if _, err := s.finish(session.ID, models.SessionAbandoned, models.OutcomeAbandoned, "", nil); err != nil {
			log.Printf("[Sweep] failed to abandon session %s: %v", session.ID, err)
		} else {
			log.Printf("⏱️  Session %s abandoned: ready timeout", session.ID)
		}
	}
}

// SweepTurnTimeouts forfeits active sessions whose acting player missed the
// per-turn deadline. The opponent wins with the forfeit score.
func (s *SessionService) SweepTurnTimeouts(now time.Time) {
	var sessions []models.GameSession
	err := s.DB.Where("state = ? AND turn_deadline IS NOT NULL AND turn_deadline <= ?",
		models.SessionActive, now.UTC()).
		Find(&sessions).Error
	if err != nil {
		log.Printf("[Sweep] turn-timeout query failed: %v", err)
		return
	}
	for _, session := range sessions {
		winner := session.OpponentOf(session.NextActorID)
		scores := map[string]int64{winner: s.Policy.ForfeitScore, session.NextActorID: 0}
		if _, err := s.finish(session.ID, models.SessionTimedOut, models.OutcomeTimeout, winner, scores); err != nil {
			log.Printf("[Sweep] failed to time out session %s: %v", session.ID, err)
		} else {
			log.Printf("⏱️  Session %s timed out: %s missed the turn deadline", session.ID, session.NextActorID)
		}
	}
}

// SweepLiveness abandons active sessions where a participant who has sent at
// least one heartbeat has gone silent past the grace period.
func (s *SessionService) SweepLiveness(now time.Time) {
	cutoff := now.UTC().Add(-s.Policy.LivenessGrace)
	var sessions []models.GameSession
	err := s.DB.Where("state = ? AND ((player_a_seen_at IS NOT NULL AND player_a_seen_at <= ?) OR (player_b_seen_at IS NOT NULL AND player_b_seen_at <= ?))",
		models.SessionActive, cutoff, cutoff).
		Find(&sessions).Error
	if err != nil {
		log.Printf("[Sweep] liveness query failed: %v", err)
		return
	}
	for _, session := range sessions {
		if _, err := s.finish(session.ID, models.SessionAbandoned, models.OutcomeAbandoned, "", nil); err != nil {
			log.Printf("[Sweep] failed to abandon session %s: %v", session.ID, err)
		} else {
			log.Printf("💤 Session %s abandoned: liveness grace expired", session.ID)
		}
	}
}
