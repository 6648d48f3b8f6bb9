package replay

import "trinity/tvdemo/internal/bitcodec"

// BaselineState is the recorder-side memory of the previous tick, grounded on
// the VehicleStore dirty/removed-bitmask pattern (internal/state/vehicles.go)
// generalized from a map keyed by ID to fixed arrays keyed by slot number.
// Invariant: prevEntities[i] is the zero value whenever bit i of
// prevEntityBitmask is clear, and likewise for players — see commitEntity/
// commitPlayer below.
type BaselineState struct {
	entities      [MaxGEntities]bitcodec.EntityState
	entityBits    bitmask
	players       [MaxClients]bitcodec.PlayerState
	playerBits    bitmask
}

// newBaselineState returns a zeroed baseline with no slots marked alive.
func newBaselineState() *BaselineState {
	return &BaselineState{
		entityBits: newBitmask(MaxGEntities),
		playerBits: newBitmask(MaxClients),
	}
}

// commitEntity records the post-tick state of entity slot i. It must be
// called for every slot the current tick's bitmask could reference, in
// ascending order is not required.
func (b *BaselineState) commitEntity(i int, alive bool, state bitcodec.EntityState) {
	b.entityBits.set(i, alive)
	if alive {
		b.entities[i] = state
	} else {
		//1.- Zero the baseline so a later reappearance deltas against zero.
		b.entities[i] = bitcodec.EntityState{}
	}
}

// commitPlayer is commitEntity's player-side twin.
func (b *BaselineState) commitPlayer(i int, alive bool, state bitcodec.PlayerState) {
	b.playerBits.set(i, alive)
	if alive {
		b.players[i] = state
	} else {
		b.players[i] = bitcodec.PlayerState{}
	}
}

func (b *BaselineState) entityBaseline(i int) bitcodec.EntityState {
	return b.entities[i]
}

func (b *BaselineState) playerBaseline(i int) bitcodec.PlayerState {
	return b.players[i]
}

// RunningState is the playback-side memory of the most recently decoded
// frame. It carries the same zero-on-cleared-bit invariant as BaselineState,
// applied in the opposite direction: ReadFrame zeroes any slot that was alive
// in the previous frame but is clear in the new one.
type RunningState struct {
	entities   [MaxGEntities]bitcodec.EntityState
	entityBits bitmask
	players    [MaxClients]bitcodec.PlayerState
	playerBits bitmask
}

func newRunningState() *RunningState {
	return &RunningState{
		entityBits: newBitmask(MaxGEntities),
		playerBits: newBitmask(MaxClients),
	}
}

// reset clears every slot, used when a backward seek restarts the stream.
func (s *RunningState) reset() {
	s.entities = [MaxGEntities]bitcodec.EntityState{}
	s.entityBits = newBitmask(MaxGEntities)
	s.players = [MaxClients]bitcodec.PlayerState{}
	s.playerBits = newBitmask(MaxClients)
}

// applyEntityBitmask zeroes every slot set in the old bitmask but clear in
// the new one, the decoder-side dual of BaselineState.commitEntity's
// zero-on-removal rule.
func (s *RunningState) applyEntityBitmask(next bitmask) {
	for i := 0; i < MaxGEntities; i++ {
		if s.entityBits.get(i) && !next.get(i) {
			s.entities[i] = bitcodec.EntityState{}
		}
	}
	s.entityBits = next
}

func (s *RunningState) applyPlayerBitmask(next bitmask) {
	for i := 0; i < MaxClients; i++ {
		if s.playerBits.get(i) && !next.get(i) {
			s.players[i] = bitcodec.PlayerState{}
		}
	}
	s.playerBits = next
}

func (s *RunningState) setEntity(i int, state bitcodec.EntityState) {
	s.entities[i] = state
}

func (s *RunningState) setPlayer(i int, state bitcodec.PlayerState) {
	s.players[i] = state
}

func (s *RunningState) entity(i int) bitcodec.EntityState {
	return s.entities[i]
}

func (s *RunningState) player(i int) bitcodec.PlayerState {
	return s.players[i]
}

func (s *RunningState) entityAlive(i int) bool {
	return s.entityBits.get(i)
}

func (s *RunningState) playerAlive(i int) bool {
	return s.playerBits.get(i)
}

// EntityCount reports how many entity slots are currently live.
func (s *RunningState) EntityCount() int {
	return s.entityBits.popcount()
}

// PlayerCount reports how many player slots are currently live.
func (s *RunningState) PlayerCount() int {
	return s.playerBits.popcount()
}
