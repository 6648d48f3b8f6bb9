package replay

import "sync"

// ViewpointController tracks which connected player a TV viewer is currently
// following, plus the cycling order used by ViewNext/ViewPrev. ClientNum -1
// means no player is selected (a free/world view; BuildSnapshot then caps
// entities by distance from the world origin).
type ViewpointController struct {
	mu        sync.Mutex
	current   int
	known     []int
	snapCount int
	eligible  func(int) bool
}

// NewViewpointController starts with no player selected.
func NewViewpointController() *ViewpointController {
	return &ViewpointController{current: -1}
}

// SetEligibility installs the predicate SetView/ViewNext/ViewPrev consult
// before switching to a client slot — a client must be live and not
// TeamSpectator, mirroring CL_TV_RunFrame's viewpoint revalidation. A nil
// predicate (the zero value) treats every slot as eligible, matching prior
// behavior for callers that never opt in.
func (v *ViewpointController) SetEligibility(fn func(int) bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.eligible = fn
}

func (v *ViewpointController) eligibleLocked(clientNum int) bool {
	if clientNum < 0 {
		return true
	}
	if v.eligible == nil {
		return true
	}
	return v.eligible(clientNum)
}

// SetKnownPlayers replaces the cycling order used by ViewNext/ViewPrev. If
// the currently-followed client dropped out of the list or is no longer
// eligible, the view resets to -1 (free view) rather than silently following
// a stale or now-ineligible slot.
func (v *ViewpointController) SetKnownPlayers(slots []int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.known = append([]int(nil), slots...)
	if v.current == -1 {
		return
	}
	if !v.eligibleLocked(v.current) {
		v.current = -1
		return
	}
	for _, s := range v.known {
		if s == v.current {
			return
		}
	}
	v.current = -1
}

// View returns the currently-followed client slot, or -1.
func (v *ViewpointController) View() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// SetView explicitly selects a client slot (tv_view <num>), or -1 for free
// view. It does not validate membership in known — an explicit selection is
// allowed to target a slot that has not connected yet — but it does reject a
// target that fails the eligibility predicate, reporting false without
// changing the current selection.
func (v *ViewpointController) SetView(clientNum int) bool {
	v.mu.Lock()
	if !v.eligibleLocked(clientNum) {
		v.mu.Unlock()
		return false
	}
	v.current = clientNum
	v.mu.Unlock()
	v.RebuildSnapshots()
	return true
}

// ViewNext cycles to the next eligible known player after the current
// selection, wrapping around; with no eligible known players it falls back
// to free view.
func (v *ViewpointController) ViewNext() int {
	v.mu.Lock()
	defer func() { v.mu.Unlock(); v.RebuildSnapshots() }()
	if len(v.known) == 0 {
		v.current = -1
		return v.current
	}
	idx := -1
	for i, s := range v.known {
		if s == v.current {
			idx = i
			break
		}
	}
	for step := 1; step <= len(v.known); step++ {
		candidate := v.known[(idx+step)%len(v.known)]
		if v.eligibleLocked(candidate) {
			v.current = candidate
			return v.current
		}
	}
	v.current = -1
	return v.current
}

// ViewPrev is ViewNext's mirror.
func (v *ViewpointController) ViewPrev() int {
	v.mu.Lock()
	defer func() { v.mu.Unlock(); v.RebuildSnapshots() }()
	if len(v.known) == 0 {
		v.current = -1
		return v.current
	}
	idx := -1
	for i, s := range v.known {
		if s == v.current {
			idx = i
			break
		}
	}
	if idx == -1 {
		idx = 0
	}
	for step := 1; step <= len(v.known); step++ {
		candidate := v.known[(idx-step+len(v.known)*2)%len(v.known)]
		if v.eligibleLocked(candidate) {
			v.current = candidate
			return v.current
		}
	}
	v.current = -1
	return v.current
}

// RebuildSnapshots accounts for a viewpoint switch invalidating the two most
// recently buffered snapshots (the outgoing delta baseline briefly goes
// stale while the client reorients around the new followed player), clamped
// at zero rather than going negative.
func (v *ViewpointController) RebuildSnapshots() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapCount -= 2
	if v.snapCount < 0 {
		v.snapCount = 0
	}
}

// IncrementSnapCount records that one more snapshot has been built since the
// last rebuild.
func (v *ViewpointController) IncrementSnapCount() {
	v.mu.Lock()
	v.snapCount++
	v.mu.Unlock()
}

// SnapCount reports the current buffered-snapshot count.
func (v *ViewpointController) SnapCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapCount
}
