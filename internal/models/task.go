package models

import "time"

// TaskStatus enumerates the workflow states of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

// TaskPriority enumerates task priorities.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task belongs to exactly one project and optionally one chat room.
// AssigneeRole and CreatorRole are snapshots taken at assignment and
// creation time; later role changes do not rewrite them.
type Task struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	ProjectID    string       `gorm:"size:36;index;not null" json:"project_id"`
	ChatRoomID   *string      `gorm:"size:36;index" json:"chat_room_id,omitempty"`
	Title        string       `gorm:"size:300;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	Status       TaskStatus   `gorm:"size:20;default:todo" json:"status"`
	Priority     TaskPriority `gorm:"size:20;default:medium" json:"priority"`
	AssigneeID   *string      `gorm:"size:36;index" json:"assignee_id,omitempty"`
	AssigneeRole *Role        `gorm:"size:50" json:"assignee_role,omitempty"`
	CreatorID    string       `gorm:"size:36;not null" json:"creator_id"`
	CreatorRole  Role         `gorm:"size:50" json:"creator_role"`
	DueAt        *time.Time   `json:"due_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	SyncMeta     `json:"sync"`
}

func (Task) TableName() string { return "tasks" }

func (t *Task) EntityID() string { return t.ID }

func (t *Task) Kind() Kind { return KindTask }

func (t *Task) Meta() *SyncMeta { return &t.SyncMeta }

func (t *Task) Modified() time.Time { return t.UpdatedAt }
