package replay

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ReliableCommand is one broadcast or targeted server command captured for
// replay (e.g. "cs 16 ...", "print ...", "scores ..."). target 255 (
// broadcastTarget) means every viewer; any other value addresses a single
// client slot the way sv_tv.c's SV_SendServerCommand does.
type ReliableCommand struct {
	Target int
	Text   string
}

// commandRing is a power-of-two ring buffer of reliable commands, grounded on
// the retained-log-with-sequence-number pattern used for event replay
// elsewhere in the pack, adapted here to the fixed MaxReliableCommands depth
// and modular sequence-number indexing sv_tv.c uses for its own reliable
// command buffer.
type commandRing struct {
	cmds     [MaxReliableCommands]ReliableCommand
	sequence int
}

func newCommandRing() *commandRing {
	return &commandRing{}
}

// push appends a command and advances the monotonic sequence, overwriting
// the oldest entry once the ring wraps.
func (r *commandRing) push(target int, text string) {
	r.cmds[r.sequence&(MaxReliableCommands-1)] = ReliableCommand{Target: target, Text: text}
	r.sequence++
}

// sinceDepth returns how many not-yet-drained commands exist, capped at the
// ring's capacity (older entries have already been overwritten).
func (r *commandRing) sinceDepth(lastSeen int) int {
	depth := r.sequence - lastSeen
	if depth < 0 {
		depth = 0
	}
	if depth > MaxReliableCommands {
		depth = MaxReliableCommands
	}
	return depth
}

// drain returns every command pushed since lastSeen (clamped to the ring's
// retained depth) in sequence order, and the new lastSeen watermark.
func (r *commandRing) drain(lastSeen int) ([]ReliableCommand, int) {
	depth := r.sinceDepth(lastSeen)
	if depth == 0 {
		return nil, r.sequence
	}
	start := r.sequence - depth
	out := make([]ReliableCommand, 0, depth)
	for i := start; i < r.sequence; i++ {
		out = append(out, r.cmds[i&(MaxReliableCommands-1)])
	}
	return out, r.sequence
}

// reset rewinds the ring to empty, used when a viewpoint rebuild restarts the
// reliable command stream (spec's Open Question: ring rewinds rather than
// replaying stale entries across a viewpoint switch).
func (r *commandRing) reset() {
	r.sequence = 0
	r.cmds = [MaxReliableCommands]ReliableCommand{}
}

// encodeCommands serializes a frame's reliable-command list as u16 count
// followed by {u8 target, u16 textLen, bytes} per entry.
func encodeCommands(cmds []ReliableCommand) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(len(cmds)))
	for _, c := range cmds {
		buf.WriteByte(byte(c.Target))
		text := []byte(c.Text)
		binary.Write(&buf, binary.LittleEndian, uint16(len(text)))
		buf.Write(text)
	}
	return buf.Bytes()
}

// decodeCommands is encodeCommands's inverse, reading from a frame's command
// region.
func decodeCommands(r *bufio.Reader) ([]ReliableCommand, error) {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]ReliableCommand, 0, count)
	for i := 0; i < int(count); i++ {
		target, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		var textLen uint16
		if err := binary.Read(r, binary.LittleEndian, &textLen); err != nil {
			return nil, err
		}
		text := make([]byte, textLen)
		if _, err := io.ReadFull(r, text); err != nil {
			return nil, err
		}
		out = append(out, ReliableCommand{Target: int(target), Text: string(text)})
	}
	return out, nil
}

func validateTarget(target int) error {
	if target != broadcastTarget && (target < 0 || target >= MaxClients) {
		return fmt.Errorf("replay: command target %d out of range", target)
	}
	return nil
}
