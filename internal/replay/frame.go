package replay

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"trinity/tvdemo/internal/bitcodec"
)

// FrameInput is everything WriteFrame needs to produce one frame: the
// entities and players alive this tick, keyed by slot/client number, plus
// whatever configstring changes and reliable commands accumulated since the
// previous frame.
type FrameInput struct {
	ServerTime int32
	Entities   map[int]bitcodec.EntityState
	Players    map[int]bitcodec.PlayerState
	CSChanges  []csEntry
	Commands   []ReliableCommand
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// entitySentinel terminates the entity-delta bitstream. MaxGEntities-1 is
// reserved for this and is never a live entity slot.
const entitySentinel = MaxGEntities - 1

// encodeFrame builds one frame's byte regions against baseline, then commits
// the new per-slot state into baseline so the next call deltas correctly —
// including zeroing any slot that dropped out this tick.
func encodeFrame(baseline *BaselineState, in FrameInput) frameParts {
	entityBits := newBitmask(MaxGEntities)
	present := make(map[int]struct{}, len(in.Entities))
	for i := range in.Entities {
		present[i] = struct{}{}
		entityBits.set(i, true)
	}
	ew := bitcodec.NewBitWriter()
	for _, i := range sortedKeys(present) {
		bitcodec.WriteEntityNum(ew, i)
		bitcodec.WriteDeltaEntity(ew, baseline.entityBaseline(i), in.Entities[i])
	}
	bitcodec.WriteEntityNum(ew, entitySentinel)

	for i := 0; i < MaxGEntities; i++ {
		if _, alive := present[i]; alive {
			baseline.commitEntity(i, true, in.Entities[i])
		} else if baseline.entityBits.get(i) {
			baseline.commitEntity(i, false, bitcodec.EntityState{})
		}
	}

	playerBits := newBitmask(MaxClients)
	playerPresent := make(map[int]struct{}, len(in.Players))
	for i := range in.Players {
		playerPresent[i] = struct{}{}
		playerBits.set(i, true)
	}
	pw := bitcodec.NewBitWriter()
	for _, i := range sortedKeys(playerPresent) {
		pw.WriteBits(uint32(i), 8)
		bitcodec.WriteDeltaPlayerstate(pw, baseline.playerBaseline(i), in.Players[i])
	}

	for i := 0; i < MaxClients; i++ {
		if _, alive := playerPresent[i]; alive {
			baseline.commitPlayer(i, true, in.Players[i])
		} else if baseline.playerBits.get(i) {
			baseline.commitPlayer(i, false, bitcodec.PlayerState{})
		}
	}

	return frameParts{
		EntityBitmask: entityBits,
		EntityDeltas:  ew.Bytes(),
		PlayerBitmask: playerBits,
		PlayerDeltas:  pw.Bytes(),
		CSChanges:     encodeCSChanges(in.CSChanges),
		Commands:      encodeCommands(in.Commands),
	}
}

// DecodedFrame is one frame as read back from a stream: the decoded entities
// and players are already folded into running, and CSChanges/Commands are
// returned so the caller can apply them to its own configstring arena and
// command sink.
type DecodedFrame struct {
	ServerTime int32
	CSChanges  []csEntry
	Commands   []ReliableCommand
}

// maxFrameBytes generously bounds a single encoded frame. The worst case —
// every entity and player slot changing in the same tick, a full
// configstring-arena rebuild, and a full reliable-command ring flush — still
// lands far under this; a length prefix above it can only mean a corrupt or
// truncated file, the Go-native analogue of CL_TV_ReadFrame's guarded,
// gracefully-degrading length check.
const maxFrameBytes = 1 << 20

// decodeFrame reads one frame from r (sized by the u32 length prefix it
// starts with) and applies its entity/player deltas onto running in place.
func decodeFrame(r io.Reader, running *RunningState) (DecodedFrame, error) {
	var out DecodedFrame

	var frameSize uint32
	if err := binary.Read(r, binary.LittleEndian, &frameSize); err != nil {
		return out, err
	}
	if frameSize > maxFrameBytes {
		return out, io.ErrUnexpectedEOF
	}
	buf := make([]byte, frameSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return out, err
	}

	if len(buf) < 4 {
		return out, fmt.Errorf("replay: frame too small: %w", io.ErrUnexpectedEOF)
	}
	out.ServerTime = int32(binary.LittleEndian.Uint32(buf[0:4]))
	offset := 4

	entityBitmaskLen := len(newBitmask(MaxGEntities))
	if offset+entityBitmaskLen > len(buf) {
		return out, fmt.Errorf("replay: frame truncated at entity bitmask: %w", io.ErrUnexpectedEOF)
	}
	entityBits := bitmask(append([]byte(nil), buf[offset:offset+entityBitmaskLen]...))
	offset += entityBitmaskLen
	running.applyEntityBitmask(entityBits)

	er := bitcodec.NewBitReader(buf[offset:])
	for {
		num := bitcodec.ReadEntityNum(er)
		if er.Overflowed() {
			return out, bitcodec.ErrOverflow
		}
		if num == entitySentinel {
			break
		}
		state := bitcodec.ReadDeltaEntity(er, running.entity(num))
		if er.Overflowed() {
			return out, bitcodec.ErrOverflow
		}
		running.setEntity(num, state)
	}
	offset += er.BytesConsumed()

	playerBitmaskLen := len(newBitmask(MaxClients))
	if offset+playerBitmaskLen > len(buf) {
		return out, fmt.Errorf("replay: frame truncated at player bitmask: %w", io.ErrUnexpectedEOF)
	}
	playerBits := bitmask(append([]byte(nil), buf[offset:offset+playerBitmaskLen]...))
	offset += playerBitmaskLen
	running.applyPlayerBitmask(playerBits)

	numPlayers := 0
	for i := 0; i < MaxClients; i++ {
		if playerBits.get(i) {
			numPlayers++
		}
	}
	pr := bitcodec.NewBitReader(buf[offset:])
	for n := 0; n < numPlayers; n++ {
		clientNum := int(pr.ReadBits(8))
		if pr.Overflowed() {
			return out, bitcodec.ErrOverflow
		}
		if clientNum >= MaxClients {
			return out, fmt.Errorf("replay: player slot %d out of range: %w", clientNum, io.ErrUnexpectedEOF)
		}
		state := bitcodec.ReadDeltaPlayerstate(pr, running.player(clientNum))
		if pr.Overflowed() {
			return out, bitcodec.ErrOverflow
		}
		running.setPlayer(clientNum, state)
	}
	offset += pr.BytesConsumed()

	rest := bufio.NewReader(bytes.NewReader(buf[offset:]))
	csChanges, err := decodeCSChanges(rest)
	if err != nil {
		return out, err
	}
	out.CSChanges = csChanges

	cmds, err := decodeCommands(rest)
	if err != nil {
		return out, err
	}
	out.Commands = cmds

	return out, nil
}
