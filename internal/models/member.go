package models

import "time"

// Member binds a user identity to a project with a role. At most one
// active row exists per (project, user) pair, and a project with any
// active member keeps at least one active admin.
type Member struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	ProjectID    string     `gorm:"uniqueIndex:idx_project_user;size:36;not null" json:"project_id"`
	UserID       string     `gorm:"uniqueIndex:idx_project_user;size:36;not null" json:"user_id"`
	Role         Role       `gorm:"size:50;default:member" json:"role"`
	IsActive     bool       `json:"is_active"`
	JoinedAt     time.Time  `json:"joined_at"`
	LastActiveAt *time.Time `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SyncMeta     `json:"sync"`
}

func (Member) TableName() string { return "members" }

func (m *Member) EntityID() string { return m.ID }

func (m *Member) Kind() Kind { return KindMember }

func (m *Member) Meta() *SyncMeta { return &m.SyncMeta }

func (m *Member) Modified() time.Time { return m.UpdatedAt }
