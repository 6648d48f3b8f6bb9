package replay

import (
	"testing"
	"time"

	"trinity/tvdemo/internal/bitcodec"
)

// recordViewCycleDemo records three frames with clients 1 and 2 alive on
// TEAM_FREE (non-spectator), the minimum a viewer needs to be eligible as a
// followed viewpoint.
func recordViewCycleDemo(t *testing.T, dir string) string {
	t.Helper()
	rec, err := NewRecorder(dir, 20, 16, fixedClock(time.Now()))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	initial := []csEntry{
		{Index: CSServerInfo, Data: []byte(`\mapname\q3dm17`)},
		{Index: CSPlayers + 1, Data: []byte(`\n\Player1\t\0`)},
		{Index: CSPlayers + 2, Data: []byte(`\n\Player2\t\0`)},
	}
	path, err := rec.StartRecord("viewcycle", "q3dm17", initial)
	if err != nil {
		t.Fatalf("StartRecord: %v", err)
	}
	for _, ms := range []int32{100, 200, 300} {
		players := map[int]bitcodec.PlayerState{1: {Health: 100}, 2: {Health: 100}}
		if err := rec.WriteFrame(ms, nil, players); err != nil {
			t.Fatalf("WriteFrame(%d): %v", ms, err)
		}
	}
	if _, err := rec.StopRecord(); err != nil {
		t.Fatalf("StopRecord: %v", err)
	}
	return path
}

func TestViewerSessionSeekAndViewCycle(t *testing.T) {
	dir := t.TempDir()
	path := recordViewCycleDemo(t, dir)

	gate := NewCommandGate(10*time.Second, 5, time.Now)
	session, err := NewViewerSession(0, path, gate)
	if err != nil {
		t.Fatalf("NewViewerSession: %v", err)
	}
	defer session.Close()

	cmd, err := session.TVSeek(200)
	if err != nil {
		t.Fatalf("TVSeek: %v", err)
	}
	if cmd.Text == "" {
		t.Fatal("expected non-empty resync command text")
	}
	if session.Seeker.CurrentMs() != 200 {
		t.Fatalf("expected seek to land at 200, got %d", session.Seeker.CurrentMs())
	}

	session.Viewpoint.SetKnownPlayers([]int{1, 2})
	next, err := session.TVViewNext()
	if err != nil {
		t.Fatalf("TVViewNext: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected first ViewNext to land on 1, got %d", next)
	}
}

func TestViewerSessionRejectsSpectatorViewpoint(t *testing.T) {
	dir := t.TempDir()
	path := recordViewCycleDemo(t, dir)

	session, err := NewViewerSession(0, path, nil)
	if err != nil {
		t.Fatalf("NewViewerSession: %v", err)
	}
	defer session.Close()
	if _, err := session.Seeker.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	// Client 3 never appears in any frame, so it is neither live nor on a
	// non-spectator team — TVView must reject it and leave the view alone.
	if err := session.TVView(3); err == nil {
		t.Fatal("expected TVView to reject an unknown/dead client as a viewpoint")
	}
	if session.Viewpoint.View() != -1 {
		t.Fatalf("expected view to remain -1 after a rejected TVView, got %d", session.Viewpoint.View())
	}

	if err := session.TVView(1); err != nil {
		t.Fatalf("expected TVView(1) to be accepted for a live, non-spectator client: %v", err)
	}
	if session.Viewpoint.View() != 1 {
		t.Fatalf("expected view 1, got %d", session.Viewpoint.View())
	}
}

func TestRecordControlStartStop(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 20, 16, fixedClock(time.Now()))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	ctrl := NewRecordControl(rec)

	path, err := ctrl.Start("console-test", "q3dm17", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rec.WriteFrame(100, nil, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	stopped, err := ctrl.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped != path {
		t.Fatalf("expected stop path %q, got %q", path, stopped)
	}
}
