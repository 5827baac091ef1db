package httpserver

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// UIPathHeader carries the route the browser UI is showing.
const UIPathHeader = "X-UI-Path"

// UILocation tracks the route last reported by the UI and turns redirects
// into stream events.
type UILocation struct {
	hub *Hub

	mu   sync.Mutex
	path string
}

func NewUILocation(hub *Hub) *UILocation {
	return &UILocation{hub: hub, path: "/"}
}

func (l *UILocation) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

func (l *UILocation) Redirect(path string) {
	l.set(path)
	l.hub.Publish(Event{Name: EventRedirect, Data: gin.H{"path": path}})
}

func (l *UILocation) set(path string) {
	l.mu.Lock()
	l.path = path
	l.mu.Unlock()
}

func uiPathMiddleware(loc *UILocation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := strings.TrimSpace(c.GetHeader(UIPathHeader)); strings.HasPrefix(p, "/") {
			loc.set(p)
		}
		c.Next()
	}
}
