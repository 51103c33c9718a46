package models

import "time"

// Entity is implemented by every synced row. Meta exposes the row's
// sync record and Modified its last-writer-wins timestamp.
type Entity interface {
	EntityID() string
	Kind() Kind
	Meta() *SyncMeta
	Modified() time.Time
}

// Kind names an entity collection. Each kind owns a disjoint table in
// both the local cache and the remote store.
type Kind string

const (
	KindProject  Kind = "project"
	KindMember   Kind = "member"
	KindChatRoom Kind = "chat_room"
	KindTask     Kind = "task"
)

// Table returns the table name backing the kind on both stores.
func (k Kind) Table() string {
	switch k {
	case KindProject:
		return "projects"
	case KindMember:
		return "members"
	case KindChatRoom:
		return "chat_rooms"
	case KindTask:
		return "tasks"
	default:
		return string(k)
	}
}

// New returns an empty entity of the kind, for decoding pulled rows.
func (k Kind) New() any {
	switch k {
	case KindProject:
		return &Project{}
	case KindMember:
		return &Member{}
	case KindChatRoom:
		return &ChatRoom{}
	case KindTask:
		return &Task{}
	default:
		return nil
	}
}

// AllKinds lists every synced collection in dependency order: parents
// before children, matching the remote store's foreign keys.
func AllKinds() []Kind {
	return []Kind{KindProject, KindMember, KindChatRoom, KindTask}
}
