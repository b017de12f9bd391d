package job

import "sync"

// Event is one progress or status update pushed to websocket
// subscribers.
type Event struct {
	Type   string `json:"type"` // progress | status
	JobID  string `json:"job_id"`
	Done   int    `json:"done,omitempty"`
	Total  int    `json:"total,omitempty"`
	Failed int    `json:"failed,omitempty"`
	ETAMs  int64  `json:"eta_ms,omitempty"`
	Status Status `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Hub fans job events out to live subscribers. Slow subscribers drop
// events rather than stalling the pipeline.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers for a job's events. The returned cancel func must
// be called exactly once; the channel is closed by it.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan Event]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[jobID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, jobID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
