package models

import "time"

// ProjectStatus enumerates the lifecycle states of a project.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
	ProjectDeleted  ProjectStatus = "deleted"
)

// Project is a collaborative workspace owned by its creator and
// mutable by members according to their roles.
type Project struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string        `gorm:"size:36;index;not null" json:"owner_id"`
	Name        string        `gorm:"size:200;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"size:20;default:active" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	SyncMeta    `json:"sync"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) EntityID() string { return p.ID }

func (p *Project) Kind() Kind { return KindProject }

func (p *Project) Meta() *SyncMeta { return &p.SyncMeta }

func (p *Project) Modified() time.Time { return p.UpdatedAt }
