package replay

import (
	"fmt"
	"io"
	"time"
)

// Seeker drives a Decoder to a target server time: forward targets continue
// reading frames from where the stream already is, while backward targets
// reopen the file from scratch and re-read every frame from zero (RunningState
// has no way to "undo" a delta, so a true backward seek always restarts).
type Seeker struct {
	path      string
	dec       *Decoder
	currentMs int32
	cmds      *commandRing
}

// NewSeeker opens path for seekable playback.
func NewSeeker(path string) (*Seeker, error) {
	dec, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Seeker{path: path, dec: dec, cmds: newCommandRing()}, nil
}

// Commands exposes the reliable-command ring fed by Seek/Advance, consumed
// via GetServerCommand.
func (s *Seeker) Commands() *commandRing {
	if s == nil {
		return nil
	}
	return s.cmds
}

// Advance reads and applies exactly one frame without seeking toward any
// particular target, for tick-by-tick playback between explicit seeks. Any
// reliable commands the frame carries are pushed onto the command ring the
// same way Seek's read loop does.
func (s *Seeker) Advance() (DecodedFrame, error) {
	if s == nil {
		return DecodedFrame{}, fmt.Errorf("replay: seeker not initialised")
	}
	frame, err := s.dec.ReadFrame()
	if err != nil {
		return frame, err
	}
	s.currentMs = frame.ServerTime
	for _, c := range frame.Commands {
		s.cmds.push(c.Target, c.Text)
	}
	return frame, nil
}

// Decoder exposes the underlying decoder for snapshot building.
func (s *Seeker) Decoder() *Decoder {
	if s == nil {
		return nil
	}
	return s.dec
}

// CurrentMs reports the server time of the last frame consumed.
func (s *Seeker) CurrentMs() int32 {
	if s == nil {
		return 0
	}
	return s.currentMs
}

// Seek moves playback to targetMs: forward of the current position it just
// keeps reading, backward of it the decoder is reopened and replayed from
// the start. Seeking past the end of the recording parks at EOF rather than
// erroring — the caller sees AtEnd() on the returned decoder.
func (s *Seeker) Seek(targetMs int32) error {
	if s == nil {
		return fmt.Errorf("replay: seeker not initialised")
	}
	if targetMs < s.currentMs {
		if err := s.dec.Close(); err != nil {
			return err
		}
		dec, err := Open(s.path)
		if err != nil {
			return err
		}
		s.dec = dec
		s.currentMs = 0
		s.cmds.reset()
	}

	for {
		frame, err := s.dec.ReadFrame()
		if err == io.EOF {
			s.currentMs = targetMs
			return nil
		}
		if err != nil {
			return err
		}
		s.currentMs = frame.ServerTime
		for _, c := range frame.Commands {
			s.cmds.push(c.Target, c.Text)
		}
		if frame.ServerTime >= targetMs {
			return nil
		}
	}
}

// Close releases the underlying decoder.
func (s *Seeker) Close() error {
	if s == nil {
		return nil
	}
	return s.dec.Close()
}

// SeekSyncCommand builds the synthetic reliable command that TVSeek returns
// after a seek, so the seeking viewer's client reorients to the new
// viewpoint instead of trying to interpolate across the jump. It is not
// pushed onto any command ring.
func SeekSyncCommand(viewpoint int) ReliableCommand {
	return ReliableCommand{Target: broadcastTarget, Text: fmt.Sprintf("tv_seek_sync %d", viewpoint)}
}

// ClockSync reconciles wall-clock time against a recording's server time, the
// way a live connection's clock-offset handshake does, so a playback client
// can compute "how far into the recording am I right now" from a wall-clock
// reading instead of counting frames.
type ClockSync struct {
	originWall     time.Time
	originServerMs int32
}

// NewClockSync anchors a server time to a wall-clock reading.
func NewClockSync(wall time.Time, serverMs int32) ClockSync {
	return ClockSync{originWall: wall, originServerMs: serverMs}
}

// ServerTimeAt projects the server time corresponding to a later wall-clock
// reading.
func (c ClockSync) ServerTimeAt(wall time.Time) int32 {
	return c.originServerMs + int32(wall.Sub(c.originWall)/time.Millisecond)
}

// WallTimeFor is ServerTimeAt's inverse.
func (c ClockSync) WallTimeFor(serverMs int32) time.Time {
	return c.originWall.Add(time.Duration(serverMs-c.originServerMs) * time.Millisecond)
}
