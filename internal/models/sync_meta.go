package models

import "time"

// SyncMeta is the per-row sync record carried alongside every entity.
// Dirty is set on each local write and cleared only after the remote
// store acknowledges the row. SyncError holds the last push failure
// classification for observability; it is never shown to end users.
// Dirty carries no gorm default tag: gorm skips zero-valued fields
// that have one, so a cleared flag would never reach the row.
type SyncMeta struct {
	Dirty        bool       `gorm:"column:pending_sync" json:"pending_sync"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	SyncError    string     `gorm:"size:100" json:"sync_error,omitempty"`
}

// MarkDirty flags the row as locally modified and pending remote push.
func (m *SyncMeta) MarkDirty() {
	m.Dirty = true
}

// MarkSynced records a confirmed remote acknowledgment.
func (m *SyncMeta) MarkSynced(at time.Time) {
	m.Dirty = false
	m.LastSyncedAt = &at
	m.SyncError = ""
}

// MarkFailed records the classification of the last failed push. The
// row stays dirty so a later flush can retry it.
func (m *SyncMeta) MarkFailed(class string) {
	m.Dirty = true
	m.SyncError = class
}
