package services

import (
	"errors"

	"duomatch/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var reportReasons = map[string]bool{
	"harassment":    true,
	"spam":          true,
	"inappropriate": true,
	"cheating":      true,
	"impersonation": true,
	"other":         true,
}

// ReportService creates immutable report records. Review happens downstream in
// an external moderation tool; this service never updates or deletes a report.
type ReportService struct {
	DB *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

// CreateReportInput is the accepted report payload.
type CreateReportInput struct {
	ReportedID string `json:"reported_id"`
	Reason     string `json:"reason"`
	Details    string `json:"details"`
	MatchID    string `json:"match_id"`
	SessionID  string `json:"session_id"`
	MessageID  string `json:"message_id"`
}

// CreateReport validates and inserts one report. The reporter must actually be
// matched with the reported user.
func (r *ReportService) CreateReport(reporterID string, input CreateReportInput) (*models.Report, error) {
	fields := map[string]string{}
	if input.ReportedID == "" {
		fields["reported_id"] = "required"
	} else if input.ReportedID == reporterID {
		fields["reported_id"] = "cannot report yourself"
	}
	if !reportReasons[input.Reason] {
		fields["reason"] = "unknown reason"
	}
	if len(input.Details) > 4000 {
		fields["details"] = "at most 4000 characters"
	}
	if len(fields) > 0 {
		return nil, NewValidationError("invalid report", fields)
	}

	var pair models.MatchPair
	err := r.DB.Where("pair_key = ?", PairKey(reporterID, input.ReportedID)).First(&pair).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("invalid report", map[string]string{"reported_id": "you are not matched with this user"})
		}
		return nil, err
	}

	if input.MatchID != "" && input.MatchID != pair.ID {
		return nil, NewValidationError("invalid report", map[string]string{"match_id": "does not belong to this pair"})
	}
	if input.SessionID != "" {
		var count int64
		if err := r.DB.Model(&models.GameSession{}).
			Where("id = ? AND pair_key = ?", input.SessionID, pair.PairKey).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, NewValidationError("invalid report", map[string]string{"session_id": "does not belong to this pair"})
		}
	}
	if input.MessageID != "" {
		var count int64
		if err := r.DB.Model(&models.Message{}).
			Where("id = ? AND match_id = ?", input.MessageID, pair.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, NewValidationError("invalid report", map[string]string{"message_id": "does not belong to this match"})
		}
	}

	report := &models.Report{
		ID:         uuid.NewString(),
		ReporterID: reporterID,
		ReportedID: input.ReportedID,
		Reason:     input.Reason,
		Details:    input.Details,
		MatchID:    pair.ID,
		SessionID:  input.SessionID,
		MessageID:  input.MessageID,
	}
	if err := r.DB.Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

// ListMine returns reports filed by the caller, newest first.
func (r *ReportService) ListMine(reporterID string, limit int) ([]models.Report, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var reports []models.Report
	err := r.DB.Where("reporter_id = ?", reporterID).
		Order("created_at DESC").Limit(limit).
		Find(&reports).Error
	return reports, err
}
