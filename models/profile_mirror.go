package models

// ProfileMirror is a local mirror of the external profile service, kept fresh
// by the profile sync worker. Reveal payloads are served from this table so a
// reveal read never blocks on the profile service.
type ProfileMirror struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	DisplayName string `json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio,omitempty"`
	VoiceURL    string `json:"voice_url,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`

	AccountStatus string `gorm:"default:'active'" json:"account_status"`

	Timestamps
}
