package models

import "time"

// ChatRoom is a discussion thread inside a project. Tasks may
// optionally reference the room they were created from.
type ChatRoom struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string    `gorm:"size:36;index;not null" json:"project_id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	CreatedBy string    `gorm:"size:36" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SyncMeta  `json:"sync"`
}

func (ChatRoom) TableName() string { return "chat_rooms" }

func (c *ChatRoom) EntityID() string { return c.ID }

func (c *ChatRoom) Kind() Kind { return KindChatRoom }

func (c *ChatRoom) Meta() *SyncMeta { return &c.SyncMeta }

func (c *ChatRoom) Modified() time.Time { return c.UpdatedAt }
