package websocket

import (
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HubRef points at the live Hub. Handlers resolve it per connection, so a
// hub that panicked can be replaced while the HTTP server keeps serving.
type HubRef struct {
	cur      atomic.Pointer[Hub]
	restarts atomic.Int64
	log      zerolog.Logger
}

func NewHubRef(initial *Hub, logger zerolog.Logger) *HubRef {
	r := &HubRef{log: logger.With().Str("component", "ws_hub_ref").Logger()}
	r.cur.Store(initial)
	return r
}

func (r *HubRef) Get() (*Hub, bool) {
	h := r.cur.Load()
	return h, h != nil
}

// Replace installs next and stops the previous hub, so clients still
// holding it get no-ops instead of blocking.
func (r *HubRef) Replace(next *Hub, reason string) {
	old := r.cur.Swap(next)
	if old != nil {
		old.Stop()
	}
	n := r.restarts.Add(1)
	r.log.Warn().Int64("restarts", n).Str("reason", reason).Msg("websocket hub replaced")
}

// Restarts counts Replace calls since the ref was built.
func (r *HubRef) Restarts() int64 { return r.restarts.Load() }

// Supervise runs the current hub and, when Run panics, swaps in a hub from
// newHub after backoff. It returns once a hub's Run returns normally, which
// only Stop causes.
func (r *HubRef) Supervise(newHub func() *Hub, backoff time.Duration) {
	for {
		h, ok := r.Get()
		if !ok {
			r.Replace(newHub(), "missing")
			continue
		}
		if !r.runOnce(h) {
			return
		}
		r.Replace(newHub(), "panic")
		time.Sleep(backoff)
	}
}

func (r *HubRef) runOnce(h *Hub) (panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			r.log.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Msg("hub.Run panic")
		}
	}()
	h.Run()
	return false
}
