package model

import "time"

// AccessEvent is one audit event row: a login, logout, oops, lockout, or
// reboot observed by a machine's state engine.
type AccessEvent struct {
	ID          int64     `gorm:"autoIncrement;primaryKey" json:"id"`
	MachineName string    `gorm:"size:128;not null;index:idx_access_events_machine_time" json:"machine_name"`
	Kind        string    `gorm:"size:64;not null" json:"kind"`
	OccurredAt  time.Time `gorm:"not null;index:idx_access_events_machine_time" json:"occurred_at"`

	FobCode   string `gorm:"size:32" json:"fob_code,omitempty"`
	UserName  string `gorm:"size:256" json:"user_name,omitempty"`
	AccountID string `gorm:"size:64" json:"account_id,omitempty"`

	KnownUser  bool `gorm:"not null" json:"known_user"`
	Authorized bool `gorm:"not null" json:"authorized"`

	// DurationSeconds is the session length for logout events.
	DurationSeconds int64 `gorm:"not null" json:"duration_seconds"`

	CreatedAt time.Time `gorm:"not null" json:"-"`
}
