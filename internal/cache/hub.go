package cache

import (
	"context"
	"sync"

	"github.com/harborstudio/teamsync/internal/models"
)

// hub fans out write notifications to observers, keyed by entity kind.
// Each subscriber owns a one-slot channel; notifications coalesce so a
// slow reader always wakes to the latest state.
type hub struct {
	mu   sync.Mutex
	subs map[models.Kind]map[chan struct{}]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[models.Kind]map[chan struct{}]struct{})}
}

func (h *hub) subscribe(ctx context.Context, kind models.Kind) <-chan struct{} {
	ch := make(chan struct{}, 1)
	// Initial tick so subscribers see the current snapshot immediately.
	ch <- struct{}{}

	h.mu.Lock()
	if h.subs[kind] == nil {
		h.subs[kind] = make(map[chan struct{}]struct{})
	}
	h.subs[kind][ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[kind], ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (h *hub) notify(kind models.Kind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[kind] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
