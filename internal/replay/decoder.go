package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"trinity/tvdemo/internal/bitcodec"
)

// Decoder reads one .tvd file sequentially, applying each frame's entity and
// player deltas to a RunningState and its configstring changes to a
// configstringArena. Grounded on the teacher's Loader (rehydrate compressed
// artefacts, expose a deterministic iteration entry point) but streaming
// instead of slurping the whole file into memory up front, since a .tvd
// recording is expected to be far larger than the teacher's per-match dumps.
type Decoder struct {
	file    *os.File
	zr      *zstd.Decoder
	header  fileHeader
	trailer map[string][]byte
	running *RunningState
	cs      *configstringArena
	atEnd   bool
}

// Open parses a .tvd file's header and trailer and positions the decoder to
// read its first frame. Trailer parsing failure is non-fatal: DurationMs
// then falls back to the header's duration field.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var trailer map[string][]byte
	if info, statErr := f.Stat(); statErr == nil {
		if t, trailerErr := readTrailer(f, info.Size()); trailerErr == nil {
			trailer = t
		}
	}

	r := bufio.NewReader(f)
	header, err := readFileHeader(r)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("replay: reading header: %w", err)
	}
	zr, err := zstd.NewReader(r)
	if err != nil {
		f.Close()
		return nil, err
	}

	cs := newConfigstringArena()
	for _, entry := range header.Configstrings {
		if err := cs.update(int(entry.Index), entry.Data, false); err != nil {
			zr.Close()
			f.Close()
			return nil, err
		}
	}

	return &Decoder{
		file:    f,
		zr:      zr,
		header:  header,
		trailer: trailer,
		running: newRunningState(),
		cs:      cs,
	}, nil
}

// Header exposes the parsed fixed header.
func (d *Decoder) Header() fileHeader {
	if d == nil {
		return fileHeader{}
	}
	return d.header
}

// DurationMs reports the trailer's recorded duration, falling back to the
// header's duration field when the trailer could not be read. StopRecord
// patches that field at close, so it is 0 only for a file that was never
// finalized.
func (d *Decoder) DurationMs() uint32 {
	if d == nil {
		return 0
	}
	if ms, ok := decodeDurationValue(d.trailer["dur"]); ok {
		return ms
	}
	return d.header.DurationMs
}

// AtEnd reports whether the last ReadFrame call hit end of stream.
func (d *Decoder) AtEnd() bool {
	if d == nil {
		return true
	}
	return d.atEnd
}

// ReadFrame decodes the next frame, applies its entity/player deltas onto the
// running state, and folds its configstring changes into the arena. Returns
// io.EOF once the compressed body is exhausted. Truncation or corruption
// mid-stream is treated as end-of-stream per the spec's tolerant playback
// degrade policy, rather than propagated as a hard error.
func (d *Decoder) ReadFrame() (DecodedFrame, error) {
	if d == nil {
		return DecodedFrame{}, fmt.Errorf("replay: decoder not initialised")
	}
	if d.atEnd {
		return DecodedFrame{}, io.EOF
	}

	frame, err := decodeFrame(d.zr, d.running)
	if err != nil {
		d.atEnd = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, bitcodec.ErrOverflow) {
			return DecodedFrame{}, io.EOF
		}
		return DecodedFrame{}, err
	}

	for _, change := range frame.CSChanges {
		if err := d.cs.update(int(change.Index), change.Data, false); err != nil {
			d.atEnd = true
			return DecodedFrame{}, err
		}
	}
	return frame, nil
}

// Configstring returns the current value at index, reflecting every frame
// applied so far.
func (d *Decoder) Configstring(index int) []byte {
	if d == nil {
		return nil
	}
	return d.cs.get(index)
}

// Running exposes the live entity/player state for snapshot building.
func (d *Decoder) Running() *RunningState {
	if d == nil {
		return nil
	}
	return d.running
}

// csArena exposes the configstring arena to in-package callers that need to
// apply late-arriving "cs" reliable commands (GetServerCommand) or read
// per-client team/name attributes (teamForClient, GetPlayerList).
func (d *Decoder) csArena() *configstringArena {
	if d == nil {
		return nil
	}
	return d.cs
}

// PlayerLive reports whether clientNum currently has a live player slot.
func (d *Decoder) PlayerLive(clientNum int) bool {
	if d == nil || clientNum < 0 || clientNum >= MaxClients {
		return false
	}
	return d.running.playerAlive(clientNum)
}

// PlayerTeam reports clientNum's current team attribute, TeamSpectator if
// unknown.
func (d *Decoder) PlayerTeam(clientNum int) int {
	if d == nil || clientNum < 0 || clientNum >= MaxClients {
		return TeamSpectator
	}
	return teamForClient(d.cs, clientNum)
}

// IsEligibleViewpoint reports whether clientNum may be followed: it must be a
// live, non-spectator client, mirroring the revalidation CL_TV_RunFrame
// performs on tvPlay.viewpoint every tick.
func (d *Decoder) IsEligibleViewpoint(clientNum int) bool {
	return d.PlayerLive(clientNum) && d.PlayerTeam(clientNum) != TeamSpectator
}

// GetPlayerList mirrors CL_TV_GetPlayerList's exact output format.
func (d *Decoder) GetPlayerList(viewpoint int) string {
	if d == nil {
		return ""
	}
	return formatPlayerList(d.running, d.cs, viewpoint)
}

// Close releases the decoder's file handles.
func (d *Decoder) Close() error {
	if d == nil {
		return nil
	}
	d.zr.Close()
	return d.file.Close()
}
