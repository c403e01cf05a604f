package services

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"duomatch/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardService maintains the append-only score contribution log and
// derives period rankings from it. Ranks are never stored: the whole board is
// rebuildable by replaying contributions.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// PeriodWindow returns the UTC [start, end) window for a period anchored at
// now. all_time returns ok with zero bounds (no window). Weeks start Monday.
func PeriodWindow(period string, now time.Time) (start, end time.Time, windowed bool, ok bool) {
	now = now.UTC()
	switch period {
	case models.PeriodDaily:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1), true, true
	case models.PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday belongs to the week that started last Monday
		}
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = day.AddDate(0, 0, -(weekday - 1))
		return start, start.AddDate(0, 0, 7), true, true
	case models.PeriodMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), true, true
	case models.PeriodAllTime:
		return time.Time{}, time.Time{}, false, true
	}
	return time.Time{}, time.Time{}, false, false
}

// Cursor pins the last returned row so pages stay stable under concurrent
// inserts: no row is skipped or duplicated across a fetch sequence.
type Cursor struct {
	Score   int64     `json:"s"`
	FirstAt time.Time `json:"t"`
	UserID  string    `json:"u"`
}

// EncodeCursor serialises a cursor as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a cursor token.
func DecodeCursor(token string) (Cursor, error) {
	var c Cursor
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, NewValidationError("invalid cursor", map[string]string{"cursor": "malformed token"})
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, NewValidationError("invalid cursor", map[string]string{"cursor": "malformed token"})
	}
	return c, nil
}

// AppendContributions records one contribution per participant for a finished
// session. The (session_id, user_id) unique index makes replayed outcome
// events a no-op.
func (l *LeaderboardService) AppendContributions(tx *gorm.DB, session *models.GameSession) error {
	if session.EndedAt == nil {
		return nil
	}
	rows := []models.ScoreContribution{
		{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			UserID:    session.PlayerAID,
			GameSlug:  session.GameSlug,
			Score:     session.PlayerAScore,
			EndedAt:   session.EndedAt.UTC(),
		},
		{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			UserID:    session.PlayerBID,
			GameSlug:  session.GameSlug,
			Score:     session.PlayerBScore,
			EndedAt:   session.EndedAt.UTC(),
		},
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// List returns one leaderboard page for a period. Ordering is summed score
// descending, earliest contribution ascending (earlier achievement wins ties),
// then user id. The returned cursor continues after the last row.
func (l *LeaderboardService) List(period, cursorToken string, limit int) ([]models.LeaderboardRow, string, bool, error) {
	if !models.ValidPeriod(period) {
		return nil, "", false, NewValidationError("invalid period", map[string]string{"period": "must be daily, weekly, monthly or all_time"})
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	start, end, windowed, _ := PeriodWindow(period, time.Now())

	query := `
		SELECT user_id, SUM(score) AS score, MIN(ended_at) AS first_at
		FROM score_contributions`
	args := []interface{}{}
	if windowed {
		query += ` WHERE ended_at >= ? AND ended_at < ?`
		args = append(args, start, end)
	}
	query += ` GROUP BY user_id`

	if cursorToken != "" {
		cursor, err := DecodeCursor(cursorToken)
		if err != nil {
			return nil, "", false, err
		}
		query += ` HAVING SUM(score) < ?
			OR (SUM(score) = ? AND MIN(ended_at) > ?)
			OR (SUM(score) = ? AND MIN(ended_at) = ? AND user_id > ?)`
		args = append(args, cursor.Score, cursor.Score, cursor.FirstAt, cursor.Score, cursor.FirstAt, cursor.UserID)
	}

	query += ` ORDER BY score DESC, first_at ASC, user_id ASC LIMIT ?`
	args = append(args, limit+1)

	var rows []models.LeaderboardRow
	if err := l.DB.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	if len(rows) > 0 {
		baseRank, err := l.rankOf(windowed, start, end, rows[0].Score, rows[0].FirstAt, rows[0].UserID)
		if err != nil {
			return nil, "", false, err
		}
		for i := range rows {
			rows[i].Rank = baseRank + i
		}
	}

	nextCursor := ""
	if hasMore {
		last := rows[len(rows)-1]
		nextCursor = EncodeCursor(Cursor{Score: last.Score, FirstAt: last.FirstAt, UserID: last.UserID})
	}
	return rows, nextCursor, hasMore, nil
}

// MyStats returns the caller's rank and score for a period even when they are
// far outside the top of the board. A user with no contributions gets rank 0.
func (l *LeaderboardService) MyStats(userID, period string) (*models.LeaderboardRow, error) {
	if !models.ValidPeriod(period) {
		return nil, NewValidationError("invalid period", map[string]string{"period": "must be daily, weekly, monthly or all_time"})
	}
	start, end, windowed, _ := PeriodWindow(period, time.Now())

	query := `
		SELECT user_id, SUM(score) AS score, MIN(ended_at) AS first_at
		FROM score_contributions
		WHERE user_id = ?`
	args := []interface{}{userID}
	if windowed {
		query += ` AND ended_at >= ? AND ended_at < ?`
		args = append(args, start, end)
	}
	query += ` GROUP BY user_id`

	var row models.LeaderboardRow
	res := l.DB.Raw(query, args...).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return &models.LeaderboardRow{UserID: userID, Score: 0, Rank: 0}, nil
	}

	rank, err := l.rankOf(windowed, start, end, row.Score, row.FirstAt, row.UserID)
	if err != nil {
		return nil, err
	}
	row.Rank = rank
	return &row, nil
}

// rankOf is 1 + the number of users ordered strictly ahead of the given row.
func (l *LeaderboardService) rankOf(windowed bool, start, end time.Time, score int64, firstAt time.Time, userID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT user_id, SUM(score) AS score, MIN(ended_at) AS first_at
			FROM score_contributions`
	args := []interface{}{}
	if windowed {
		query += ` WHERE ended_at >= ? AND ended_at < ?`
		args = append(args, start, end)
	}
	query += ` GROUP BY user_id
		) ranked
		WHERE ranked.score > ?
			OR (ranked.score = ? AND ranked.first_at < ?)
			OR (ranked.score = ? AND ranked.first_at = ? AND ranked.user_id < ?)`
	args = append(args, score, score, firstAt, score, firstAt, userID)

	var ahead int64
	if err := l.DB.Raw(query, args...).Scan(&ahead).Error; err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}
