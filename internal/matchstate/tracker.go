// Package matchstate tracks the match-level facts the TV auto-start policy
// needs: the mod's reported match state string, its match UUID, and which
// client slots are connected humans versus bots. It replaces ad hoc cvar
// reads (g_matchState, g_matchUUID) with a small, testable component that a
// server frame loop updates and the recorder's AutoStart policy queries.
package matchstate

import (
	"strings"
	"sync"
	"time"
)

// StateActive is the match-state string that triggers an immediate
// auto-start, mirroring the "active" comparison against g_matchState.
const StateActive = "active"

// ClientInfo describes one client slot's connection and bot status.
type ClientInfo struct {
	Connected bool
	Bot       bool
}

// Tracker holds the live match-state facts reported by the game module.
type Tracker struct {
	mu      sync.RWMutex
	state   string
	uuid    string
	clients map[int]ClientInfo
	now     func() time.Time
}

// NewTracker constructs a Tracker. clock defaults to time.Now.
func NewTracker(clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{clients: make(map[int]ClientInfo), now: clock}
}

// SetState records the mod's current match-state string (e.g. "warmup",
// "active", "intermission"). An empty string means the mod does not report
// match state at all, which the AutoStart policy treats as "fall back to
// connected-human detection".
func (t *Tracker) SetState(state string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = strings.TrimSpace(state)
}

// State returns the last reported match-state string.
func (t *Tracker) State() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// IsActive reports whether the mod has reported the "active" match state.
func (t *Tracker) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return strings.EqualFold(t.state, StateActive)
}

// SetUUID records the mod's current match UUID, used as the recording name
// when present.
func (t *Tracker) SetUUID(uuid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uuid = strings.TrimSpace(uuid)
}

// SetClient updates the connection/bot status of one client slot.
func (t *Tracker) SetClient(clientNum int, connected, bot bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !connected {
		delete(t.clients, clientNum)
		return
	}
	t.clients[clientNum] = ClientInfo{Connected: connected, Bot: bot}
}

// RemoveClient clears a client slot, e.g. on disconnect.
func (t *Tracker) RemoveClient(clientNum int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.clients, clientNum)
}

// Clients returns a snapshot of all tracked client slots as a flat slice that
// does not carry client numbers; order is not guaranteed.
func (t *Tracker) Clients() []ClientInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ClientInfo, 0, len(t.clients))
	for _, c := range t.clients {
		out = append(out, c)
	}
	return out
}

// HumanPresent reports whether any connected, non-bot client is tracked.
// This is the fallback AutoStart trigger when the mod reports no match
// state at all.
func (t *Tracker) HumanPresent() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.clients {
		if c.Connected && !c.Bot {
			return true
		}
	}
	return false
}

// RecordingName derives the name AutoStart should use: the match UUID when
// the mod reports one, otherwise a timestamp in the "tv_YYYYMMDD_HHMMSS"
// shape used when no UUID is available.
func (t *Tracker) RecordingName() string {
	t.mu.RLock()
	uuid := t.uuid
	t.mu.RUnlock()
	if uuid != "" {
		return uuid
	}
	return t.now().UTC().Format("tv_20060102_150405")
}
