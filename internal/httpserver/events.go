package httpserver

import (
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// Event names published on the stream.
const (
	EventSession  = "session"
	EventCart     = "cart"
	EventRedirect = "redirect"
)

// Event is one server-sent event.
type Event struct {
	Name string
	Data any
}

const subscriberBuffer = 32

// Hub fans events out to connected stream clients. Publish never blocks; a
// client that falls behind by a full buffer misses events and should
// re-read state.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	last map[string]Event
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[chan Event]struct{}),
		last: make(map[string]Event),
	}
}

// Publish sends ev to every subscriber. The latest session and cart events
// are replayed to clients that connect later.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Name != EventRedirect {
		h.last[ev.Name] = ev
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	for _, name := range []string{EventSession, EventCart} {
		if ev, ok := h.last[name]; ok {
			ch <- ev
		}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *Hub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func eventsHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, cancel := hub.subscribe()
		defer cancel()

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case ev := <-events:
				c.SSEvent(ev.Name, ev.Data)
				return true
			}
		})
	}
}
