package transport

import (
	"log"
	"sync"
)

// Router sends core messages to the channel that issued the current command.
// Messages produced between commands go to the most recent channel. It
// implements logic.Reporter.
type Router struct {
	mu       sync.Mutex
	current  Responder
	fallback Responder
}

// NewRouter creates a router that writes to fallback until a channel is
// selected. A nil fallback logs.
func NewRouter(fallback Responder) *Router {
	if fallback == nil {
		fallback = LogResponder{}
	}
	return &Router{fallback: fallback}
}

// Select makes res the destination and returns the previous one. A nil res
// restores the fallback.
func (r *Router) Select(res Responder) Responder {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.current
	r.current = res
	return prev
}

// Current returns the selected channel, or the fallback.
func (r *Router) Current() Responder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return r.fallback
	}
	return r.current
}

// Report delivers msg to the current channel. If that fails the message is
// logged instead.
func (r *Router) Report(msg string) {
	res := r.Current()
	if err := res.Send(msg); err != nil {
		log.Printf("transport: %s send failed: %v", res.Name(), err)
		if res != r.fallback {
			r.fallback.Send(msg)
		}
	}
}
