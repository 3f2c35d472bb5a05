// Package domain defines the persistence models for users, plug
// configurations, plug jobs, and API keys. These types are mapped with GORM
// and form the core data layer of the plug tracking application.
package domain

import (
	"time"
)

// User represents an operator account. Each user owns exactly one
// UserSettings row (created together with the user) and zero or more API
// keys.
//
// Fields:
//   - ID: autoincrement primary key.
//   - Email: unique login identifier.
//   - Password: bcrypt hash, never the plaintext.
//   - Settings: 1:1 display preferences, created at signup.
type User struct {
	ID        uint         `json:"id"       gorm:"primaryKey;autoIncrement"`
	Email     string       `json:"email"    gorm:"type:varchar(256);not null;uniqueIndex"`
	Password  string       `json:"-"        gorm:"type:varchar(256);not null"`
	Settings  UserSettings `json:"settings" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserSettings holds the per-user job list preferences: the current sort key
// and whether only active jobs are shown. Exactly one row exists per user.
type UserSettings struct {
	ID             uint      `json:"id"               gorm:"primaryKey;autoIncrement"`
	UserID         uint      `json:"user_id"          gorm:"not null;uniqueIndex"`
	SortBy         SortKey   `json:"sort_by"          gorm:"type:varchar(16);not null;default:'start_time'"`
	OnlyShowActive bool      `json:"only_show_active" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserSettings.
func (UserSettings) TableName() string { return "user_settings" }

// PlugConfig is a reusable job template describing machine geometry and the
// cure profile. Configs are never hard-deleted; IsRemoved marks them archived
// so historic jobs keep their reference.
//
// Name uniqueness is enforced globally by the database, including archived
// rows. Copy operations therefore synthesize a new name and must handle the
// conflict case themselves.
type PlugConfig struct {
	ID               uint      `json:"id"                gorm:"primaryKey;autoIncrement"`
	Name             string    `json:"name"              gorm:"type:varchar(32);not null;uniqueIndex"`
	CureProfile      string    `json:"cure_profile"      gorm:"type:varchar(32);not null"`
	HorizontalOffset float64   `json:"horizontal_offset" gorm:"not null"`
	VerticalOffset   float64   `json:"vertical_offset"   gorm:"not null"`
	HorizontalGap    float64   `json:"horizontal_gap"    gorm:"not null"`
	VerticalGap      float64   `json:"vertical_gap"      gorm:"not null"`
	SlotGap          float64   `json:"slot_gap"          gorm:"not null"`
	Notes            string    `json:"notes"             gorm:"type:varchar(256)"`
	IsRemoved        bool      `json:"is_removed"        gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for PlugConfig.
func (PlugConfig) TableName() string { return "plug_configs" }

// PlugJob is one execution of a PlugConfig on the machine.
//
// Lifecycle: created with StatusStarted and StartTime=now; transitions exactly
// once to stopped, finished, or failed. EndTime and Duration are set together
// at that transition and never recomputed afterwards. Duration is stored in
// seconds.
type PlugJob struct {
	ID        uint       `json:"id"         gorm:"primaryKey;autoIncrement"`
	ConfigID  uint       `json:"config_id"  gorm:"not null;index"`
	Status    JobStatus  `json:"status"     gorm:"type:varchar(16);not null;default:'started';index"`
	StartTime time.Time  `json:"start_time" gorm:"not null"`
	EndTime   *time.Time `json:"end_time"`
	Duration  *float64   `json:"duration"` // seconds, frozen at terminal transition
	Notes     string     `json:"notes"      gorm:"type:varchar(256)"`

	// Config is the template this job ran against. Jobs keep the reference
	// even after the config is archived.
	Config PlugConfig `json:"config" gorm:"foreignKey:ConfigID;references:ID;constraint:OnUpdate:CASCADE"`
}

// TableName returns the database table name for PlugJob.
func (PlugJob) TableName() string { return "plug_jobs" }

// IsActive reports whether the job is still running.
func (j *PlugJob) IsActive() bool { return j.Status == StatusStarted }

// APIKey is a bearer credential for the machine-facing API. Validity is
// existence-only: a key is valid while its row exists. The issuing operation
// deletes a user's previous key first, so at most one key is live per user.
type APIKey struct {
	ID        uint      `json:"id"      gorm:"primaryKey;autoIncrement"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Name      string    `json:"name"    gorm:"type:varchar(64)"`
	Key       string    `json:"key"     gorm:"type:varchar(64);not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for APIKey.
func (APIKey) TableName() string { return "api_keys" }
