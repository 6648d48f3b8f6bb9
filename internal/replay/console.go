package replay

import "fmt"

// ViewerSession bundles the per-client pieces a console command handler
// needs: a seek-capable playback cursor, the viewpoint it is currently
// following, and the rate limiter guarding tv_seek/tv_view_* spam. It is the
// thin layer the server's command dispatch calls into; all the real
// behaviour lives in Seeker/ViewpointController/SnapshotBuilder.
type ViewerSession struct {
	ClientNum int
	Seeker    *Seeker
	Viewpoint *ViewpointController
	gate      *CommandGate
}

// NewViewerSession opens path for seekable playback and starts in free view.
// The viewpoint controller is wired to reject spectators and dead clients via
// the decoder's own live player/team state, mirroring CL_TV_RunFrame's
// viewpoint revalidation.
func NewViewerSession(clientNum int, path string, gate *CommandGate) (*ViewerSession, error) {
	sk, err := NewSeeker(path)
	if err != nil {
		return nil, err
	}
	vp := NewViewpointController()
	vp.SetEligibility(func(n int) bool { return sk.Decoder().IsEligibleViewpoint(n) })
	return &ViewerSession{
		ClientNum: clientNum,
		Seeker:    sk,
		Viewpoint: vp,
		gate:      gate,
	}, nil
}

// Close releases the session's playback resources.
func (s *ViewerSession) Close() error {
	if s == nil {
		return nil
	}
	return s.Seeker.Close()
}

// TVView handles "tv_view <clientNum|-1>". It rejects a target that fails the
// live/non-spectator eligibility check, leaving the current viewpoint
// unchanged, and rewinds the reliable-command ring on every accepted switch.
func (s *ViewerSession) TVView(clientNum int) error {
	if !s.Viewpoint.SetView(clientNum) {
		return fmt.Errorf("replay: client %d is not a valid viewpoint", clientNum)
	}
	s.Seeker.cmds.reset()
	return nil
}

// TVViewNext handles "tv_view_next", subject to the command gate.
func (s *ViewerSession) TVViewNext() (int, error) {
	if s.gate != nil && !s.gate.Allow(s.ClientNum) {
		return s.Viewpoint.View(), fmt.Errorf("replay: tv_view_next rate limited")
	}
	before := s.Viewpoint.View()
	next := s.Viewpoint.ViewNext()
	if next != before {
		s.Seeker.cmds.reset()
	}
	return next, nil
}

// TVViewPrev handles "tv_view_prev", subject to the command gate.
func (s *ViewerSession) TVViewPrev() (int, error) {
	if s.gate != nil && !s.gate.Allow(s.ClientNum) {
		return s.Viewpoint.View(), fmt.Errorf("replay: tv_view_prev rate limited")
	}
	before := s.Viewpoint.View()
	prev := s.Viewpoint.ViewPrev()
	if prev != before {
		s.Seeker.cmds.reset()
	}
	return prev, nil
}

// TVSeek handles "tv_seek <ms>", subject to the command gate, and returns the
// synthetic resync command the caller should deliver to this viewer only.
func (s *ViewerSession) TVSeek(targetMs int32) (ReliableCommand, error) {
	if s.gate != nil && !s.gate.Allow(s.ClientNum) {
		return ReliableCommand{}, fmt.Errorf("replay: tv_seek rate limited")
	}
	if err := s.Seeker.Seek(targetMs); err != nil {
		return ReliableCommand{}, err
	}
	s.Viewpoint.RebuildSnapshots()
	return SeekSyncCommand(s.Viewpoint.View()), nil
}

// PollServerCommand drains this session's reliable-command ring from lastSeen,
// applying any late-arriving configstring command back into the decoder's
// arena, and returns the reassembled command text plus the new watermark.
func (s *ViewerSession) PollServerCommand(lastSeen int) (string, int) {
	return GetServerCommand(s.Seeker.cmds, lastSeen, s.Seeker.Decoder().csArena())
}

// RecordControl bundles the server-side console commands that start and stop
// a .tvd recording: "record-start", "record-stop", "record-auto".
type RecordControl struct {
	rec *Recorder
}

// NewRecordControl wraps an existing Recorder for console dispatch.
func NewRecordControl(rec *Recorder) *RecordControl {
	return &RecordControl{rec: rec}
}

// Start handles "record-start <name>".
func (c *RecordControl) Start(name, mapName string, initial []csEntry) (string, error) {
	return c.rec.StartRecord(name, mapName, initial)
}

// Stop handles "record-stop".
func (c *RecordControl) Stop() (string, error) {
	return c.rec.StopRecord()
}

// Auto handles "record-auto": arms AutoStart so the next qualifying tick
// begins a recording automatically.
func (c *RecordControl) Auto() {
	c.rec.ArmAutoStart()
}
