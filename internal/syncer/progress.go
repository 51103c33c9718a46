package syncer

// State is the lifecycle of one sync run. There is no failed terminal
// state: a run with zero successes still leaves the cache usable from
// its prior contents, so it completes with errors instead.
type State string

const (
	StateIdle                State = "idle"
	StateRunning             State = "running"
	StateCompleted           State = "completed"
	StateCompletedWithErrors State = "completed_with_errors"
)

// KindResult is the outcome of one entity kind's pull within a run.
type KindResult struct {
	Attempted bool   `json:"attempted"`
	Completed bool   `json:"completed"`
	Err       string `json:"error,omitempty"`
}

func succeeded() KindResult {
	return KindResult{Attempted: true, Completed: true}
}

func failed(err error) KindResult {
	return KindResult{Attempted: true, Err: err.Error()}
}

// Progress reports a sync run: per kind, whether its pull completed
// and, if not, its own error. SyncAll attempts projects, chat rooms
// and tasks; SyncProject attempts members, chat rooms and tasks of one
// project.
type Progress struct {
	State     State      `json:"state"`
	Members   KindResult `json:"members"`
	Projects  KindResult `json:"projects"`
	ChatRooms KindResult `json:"chat_rooms"`
	Tasks     KindResult `json:"tasks"`
}

func newProgress() *Progress {
	return &Progress{State: StateIdle}
}

func (p *Progress) results() []KindResult {
	return []KindResult{p.Members, p.Projects, p.ChatRooms, p.Tasks}
}

// SuccessCount is the number of attempted kinds that completed.
func (p *Progress) SuccessCount() int {
	n := 0
	for _, r := range p.results() {
		if r.Attempted && r.Completed {
			n++
		}
	}
	return n
}

// ErrorCount is the number of attempted kinds that failed.
func (p *Progress) ErrorCount() int {
	n := 0
	for _, r := range p.results() {
		if r.Attempted && !r.Completed {
			n++
		}
	}
	return n
}

// HasErrors reports whether any attempted kind failed.
func (p *Progress) HasErrors() bool {
	return p.ErrorCount() > 0
}

// IsComplete reports whether every attempted kind succeeded.
func (p *Progress) IsComplete() bool {
	return p.SuccessCount() > 0 && p.ErrorCount() == 0
}

// finish moves the run to its terminal state.
func (p *Progress) finish() {
	if p.HasErrors() {
		p.State = StateCompletedWithErrors
	} else {
		p.State = StateCompleted
	}
}
