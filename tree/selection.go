package tree

import (
	"sync"

	"github.com/JakeTRogers/geoBuddy/logger"
)

// Selection is the node currently activated in the tree view. The zero
// value is the empty selection.
type Selection struct {
	ID   string
	Kind Kind
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool {
	return s.ID == ""
}

// SelectionHub carries the active selection from a tree view to the panels
// that display it. It is safe for concurrent use.
type SelectionHub struct {
	mu      sync.Mutex
	current Selection
	subs    map[int]chan Selection
	nextID  int
}

// NewSelectionHub returns a hub holding the empty selection.
func NewSelectionHub() *SelectionHub {
	return &SelectionHub{subs: make(map[int]chan Selection)}
}

// Current returns the last published selection.
func (h *SelectionHub) Current() Selection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Subscribe registers a consumer. Each delivery replaces any value the
// consumer has not read yet, so a slow panel only sees the latest selection.
// cancel closes the channel and must be called when the consumer is done.
func (h *SelectionHub) Subscribe(buffer int) (<-chan Selection, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Selection, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *SelectionHub) publish(s Selection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.current = s
	for _, ch := range h.subs {
		for {
			select {
			case ch <- s:
			default:
				// full: drop the oldest pending value and retry
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Open returns a publisher bound to one view's lifetime. Callers defer
// Teardown right away so the selection is cleared on every exit path.
func (h *SelectionHub) Open() *Publisher {
	return &Publisher{hub: h}
}

// Publisher writes a view's selections into a hub.
type Publisher struct {
	hub      *SelectionHub
	teardown sync.Once
}

// Select publishes id together with the kind decoded from it. An empty id
// is ignored; a malformed one is logged and published without a kind.
func (p *Publisher) Select(id string) {
	if id == "" {
		return
	}
	kind, _, err := Decode(id)
	if err != nil {
		l := logger.GetLogger()
		l.Warn().Err(err).Msg("selecting node with undecodable id")
	}
	p.hub.publish(Selection{ID: id, Kind: kind})
}

// Teardown publishes the empty selection. Only the first call has effect.
func (p *Publisher) Teardown() {
	p.teardown.Do(func() {
		p.hub.publish(Selection{})
	})
}
