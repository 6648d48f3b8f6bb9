package replay

import (
	"time"

	httpapi "trinity/tvdemo/internal/tvdemoadmin"
)

// CommandGate rate-limits the tv_seek/tv_view_next/tv_view_prev command
// surface per viewing client, so a single misbehaving client cannot spam
// seeks into every viewer's experience. Built directly on the admin
// package's generic KeyedLimiter, keyed by client slot: the sliding-window
// abstraction is identical regardless of whether it is guarding an HTTP
// route or a console command, so a second implementation would only
// duplicate the teacher's logic.
type CommandGate struct {
	limiter *httpapi.KeyedLimiter[int]
}

// NewCommandGate constructs a gate allowing up to burst commands per window,
// tracked independently per client slot.
func NewCommandGate(window time.Duration, burst int, clock func() time.Time) *CommandGate {
	return &CommandGate{limiter: httpapi.NewKeyedLimiter[int](window, burst, clock)}
}

// Allow reports whether clientNum may issue another seek/view command right
// now, recording the attempt if so.
func (g *CommandGate) Allow(clientNum int) bool {
	if g == nil {
		return true
	}
	return g.limiter.Allow(clientNum)
}

// Forget drops a client's rate-limit state, used when it disconnects.
func (g *CommandGate) Forget(clientNum int) {
	if g == nil {
		return
	}
	g.limiter.Forget(clientNum)
}
