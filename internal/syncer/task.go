package syncer

import "github.com/harborstudio/teamsync/internal/models"

const (
	// TaskTypePush is the asynq task type for outbound mutations.
	TaskTypePush = "sync:push"
)

// PushOp is the remote operation a push task performs.
type PushOp string

const (
	OpCreate PushOp = "create"
	OpUpdate PushOp = "update"
	OpDelete PushOp = "delete"
)

// PushTask asks the worker to propagate one local mutation to the
// remote store. The payload carries only the row's identity; the
// pusher re-reads the current row from the cache so a rapid sequence
// of local edits collapses into pushes of the latest state.
type PushTask struct {
	Kind models.Kind `json:"kind"`
	Op   PushOp      `json:"op"`
	ID   string      `json:"id"`
}
