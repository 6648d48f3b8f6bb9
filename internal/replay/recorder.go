package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"trinity/tvdemo/internal/bitcodec"
	"trinity/tvdemo/internal/logging"
)

var matchIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ClientInfo is the minimal per-slot connection state AutoStart's fallback
// policy needs: "any connected non-bot client" armss a recording even when no
// match-state provider is wired up.
type ClientInfo struct {
	Connected bool
	Bot       bool
}

// Stats summarises recorder health for monitoring endpoints.
type Stats struct {
	Recording     bool
	CurrentFile   string
	FramesWritten int64
	Dumps         int64
	LastDumpURI   string
	LastDumpTime  time.Time
}

// Recorder streams one .tvd file at a time: StartRecord opens it, WriteFrame
// appends ticks, StopRecord finalizes it. Buffering strategy is grounded on
// the teacher's Recorder (mutex-guarded, clock-injected, counters for
// monitoring) but frames are streamed straight to the zstd-wrapped file
// instead of being held in memory for a batch JSON dump, since a .tvd
// recording can run far longer than the teacher's per-match buffer was sized
// for.
type Recorder struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
	log *logging.Logger

	svFPS      uint32
	maxClients uint32

	recording   bool
	autoPending bool
	stream      *streamWriter
	tmpPath     string
	finalPath   string
	baseline    *BaselineState
	cs          *configstringArena
	pendingCS   []csEntry
	pendingCmds []ReliableCommand
	frameCount  int64

	startedAt   time.Time
	firstServer int32
	lastServer  int32

	dumps       int64
	lastDumpURI string
	lastDumpAt  time.Time
}

// NewRecorder constructs a replay recorder that writes .tvd files into dir.
func NewRecorder(dir string, svFPS, maxClients uint32, clock func() time.Time) (*Recorder, error) {
	if dir == "" {
		return nil, fmt.Errorf("replay directory must be provided")
	}
	if clock == nil {
		clock = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{dir: dir, now: clock, svFPS: svFPS, maxClients: maxClients, log: logging.L()}, nil
}

// IsRecording reports whether a .tvd file is currently open.
func (r *Recorder) IsRecording() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// StartRecord opens a new .tvd.tmp file named after name (or a generated
// tv_YYYYMMDD_HHMMSS name when name is empty), seeds the configstring arena
// from initial, and resets the delta baseline to empty.
func (r *Recorder) StartRecord(name, mapName string, initial []csEntry) (string, error) {
	if r == nil {
		return "", fmt.Errorf("recorder not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return "", fmt.Errorf("replay: recording already in progress")
	}

	cleaned := matchIDCleaner.ReplaceAllString(name, "")
	if cleaned == "" {
		cleaned = "tv_" + r.now().UTC().Format("20060102_150405")
	}
	filename := cleaned + ".tvd"
	tmpPath := filepath.Join(r.dir, filename+".tmp")
	finalPath := filepath.Join(r.dir, filename)

	r.cs = newConfigstringArena()
	for _, cs := range initial {
		inject := cs.Index == CSServerInfo
		if err := r.cs.update(int(cs.Index), cs.Data, inject); err != nil {
			return "", err
		}
	}
	var header fileHeader
	header.SVFPS = r.svFPS
	header.MaxClients = r.maxClients
	header.MapName = mapName
	header.Timestamp = r.now().UTC().Format(time.RFC3339)
	for i := 0; i < MaxConfigstrings; i++ {
		if data := r.cs.get(i); data != nil {
			header.Configstrings = append(header.Configstrings, csEntry{Index: uint16(i), Data: data})
		}
	}

	stream, err := createStream(tmpPath, header)
	if err != nil {
		return "", err
	}

	r.stream = stream
	r.tmpPath = tmpPath
	r.finalPath = finalPath
	r.baseline = newBaselineState()
	r.pendingCS = nil
	r.pendingCmds = nil
	r.frameCount = 0
	r.startedAt = r.now().UTC()
	r.firstServer = 0
	r.lastServer = 0
	r.recording = true
	r.autoPending = false
	r.log.Info("tvd recording started", logging.DemoPath(finalPath), logging.String("map", mapName))
	return finalPath, nil
}

// ConfigstringChanged applies an update to the recorder's configstring arena
// and queues the change to be included in the next WriteFrame call. Index
// CSServerInfo always carries "tv"="1" per the demo-aware serverinfo
// contract, regardless of what the caller passed in.
func (r *Recorder) ConfigstringChanged(index int, data []byte) error {
	if r == nil {
		return fmt.Errorf("recorder not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return fmt.Errorf("replay: no recording in progress")
	}

	before := r.cs.get(index)
	inject := index == CSServerInfo
	if err := r.cs.update(index, data, inject); err != nil {
		return err
	}
	after := r.cs.get(index)
	if string(before) == string(after) {
		return nil
	}
	r.pendingCS = append(r.pendingCS, csEntry{Index: uint16(index), Data: append([]byte(nil), after...)})
	return nil
}

// CaptureServerCommand queues a reliable command to be flushed with the next
// frame.
func (r *Recorder) CaptureServerCommand(target int, text string) error {
	if r == nil {
		return fmt.Errorf("recorder not configured")
	}
	if err := validateTarget(target); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return fmt.Errorf("replay: no recording in progress")
	}
	r.pendingCmds = append(r.pendingCmds, ReliableCommand{Target: target, Text: text})
	return nil
}

// WriteFrame encodes and appends one frame, flushing whatever configstring
// changes and reliable commands have queued up since the previous call.
func (r *Recorder) WriteFrame(serverTime int32, entities map[int]bitcodec.EntityState, players map[int]bitcodec.PlayerState) error {
	if r == nil {
		return fmt.Errorf("recorder not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return fmt.Errorf("replay: no recording in progress")
	}

	in := FrameInput{
		ServerTime: serverTime,
		Entities:   entities,
		Players:    players,
		CSChanges:  r.pendingCS,
		Commands:   r.pendingCmds,
	}
	parts := encodeFrame(r.baseline, in)
	if err := r.stream.writeFrame(serverTime, parts); err != nil {
		return err
	}

	if r.frameCount == 0 {
		r.firstServer = serverTime
	}
	r.pendingCS = nil
	r.pendingCmds = nil
	r.frameCount++
	r.lastServer = serverTime
	return nil
}

// StopRecord finalizes the current recording: the zstd stream is flushed and
// closed, the trailer (including "dur") is appended, the duration placeholder
// at durationOffset is patched, and the file is renamed from its .tvd.tmp
// staging name to its final name.
func (r *Recorder) StopRecord() (string, error) {
	if r == nil {
		return "", fmt.Errorf("recorder not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return "", fmt.Errorf("replay: no recording in progress")
	}

	durationMs := uint32(r.lastServer - r.firstServer)
	if err := r.stream.closeAndPatch(durationMs, nil); err != nil {
		return "", err
	}
	if err := os.Rename(r.tmpPath, r.finalPath); err != nil {
		return "", err
	}

	r.recording = false
	r.dumps++
	r.lastDumpURI = r.finalPath
	r.lastDumpAt = r.now().UTC()
	final := r.finalPath
	r.stream = nil
	r.log.Info("tvd recording finalized", logging.DemoPath(final), logging.ServerTimeMs(int32(durationMs)), logging.Int64("frames", r.frameCount))
	return final, nil
}

// DiscardRecord abandons the in-progress recording without writing a
// trailer, used when ConfigstringChanged reports ErrGameStateOverflow —
// the spec treats that as a fatal, unrecoverable
// condition for the current file.
func (r *Recorder) DiscardRecord() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil
	}
	err := r.stream.abort()
	os.Remove(r.tmpPath)
	r.recording = false
	r.stream = nil
	r.log.Warn("tvd recording discarded", logging.DemoPath(r.tmpPath))
	return err
}

// ArmAutoStart marks AutoStart as pending; each subsequent AutoStart call
// checks whether the arm condition has resolved.
func (r *Recorder) ArmAutoStart() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		r.autoPending = true
	}
}

// AutoStart resolves a pending auto-record arm once per call: it starts
// recording when matchState() reports "active", or, if matchState is nil or
// returns "", falls back to "any connected non-bot client". name and
// mapName are used if recording starts.
func (r *Recorder) AutoStart(name, mapName string, matchState func() string, clients func() []ClientInfo, initial []csEntry) (bool, error) {
	if r == nil {
		return false, nil
	}
	r.mu.Lock()
	pending := r.autoPending && !r.recording
	r.mu.Unlock()
	if !pending {
		return false, nil
	}

	ready := false
	state := ""
	if matchState != nil {
		state = matchState()
	}
	if state != "" {
		ready = state == "active"
	} else if clients != nil {
		for _, c := range clients() {
			if c.Connected && !c.Bot {
				ready = true
				break
			}
		}
	}
	if !ready {
		return false, nil
	}

	if _, err := r.StartRecord(name, mapName, initial); err != nil {
		return false, err
	}
	return true, nil
}

// Snapshot returns statistics describing the recorder state.
func (r *Recorder) Snapshot() Stats {
	if r == nil {
		return Stats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Recording:     r.recording,
		CurrentFile:   r.finalPath,
		FramesWritten: r.frameCount,
		Dumps:         r.dumps,
		LastDumpURI:   r.lastDumpURI,
		LastDumpTime:  r.lastDumpAt,
	}
}
