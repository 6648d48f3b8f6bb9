package replay

import (
	"io"
	"testing"
	"time"

	"trinity/tvdemo/internal/bitcodec"
)

func TestDecoderReadsBackWhatRecorderWrote(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 20, 16, fixedClock(time.Now()))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	initial := []csEntry{{Index: CSServerInfo, Data: []byte(`\mapname\q3dm17`)}}
	finalPath, err := rec.StartRecord("demo3", "q3dm17", initial)
	if err != nil {
		t.Fatalf("StartRecord: %v", err)
	}

	if err := rec.ConfigstringChanged(CSPlayers, []byte("Ranger")); err != nil {
		t.Fatalf("ConfigstringChanged: %v", err)
	}
	if err := rec.WriteFrame(100, map[int]bitcodec.EntityState{2: {ModelIndex: 5}}, map[int]bitcodec.PlayerState{0: {Health: 100}}); err != nil {
		t.Fatalf("WriteFrame 1: %v", err)
	}
	if err := rec.WriteFrame(200, map[int]bitcodec.EntityState{2: {ModelIndex: 5, Solid: 1}}, map[int]bitcodec.PlayerState{0: {Health: 80}}); err != nil {
		t.Fatalf("WriteFrame 2: %v", err)
	}
	if _, err := rec.StopRecord(); err != nil {
		t.Fatalf("StopRecord: %v", err)
	}

	dec, err := Open(finalPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dec.Close()

	if dec.Header().MapName != "q3dm17" {
		t.Fatalf("expected mapname q3dm17, got %q", dec.Header().MapName)
	}
	if string(dec.Configstring(CSServerInfo)) == "" {
		t.Fatal("expected serverinfo configstring seeded from header")
	}

	frame1, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame 1: %v", err)
	}
	if frame1.ServerTime != 100 {
		t.Fatalf("expected serverTime 100, got %d", frame1.ServerTime)
	}
	if string(dec.Configstring(CSPlayers)) != "Ranger" {
		t.Fatalf("expected configstring applied, got %q", dec.Configstring(CSPlayers))
	}
	if dec.Running().entity(2).ModelIndex != 5 {
		t.Fatalf("expected entity 2 modelindex 5, got %+v", dec.Running().entity(2))
	}

	frame2, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame 2: %v", err)
	}
	if frame2.ServerTime != 200 {
		t.Fatalf("expected serverTime 200, got %d", frame2.ServerTime)
	}
	if dec.Running().entity(2).Solid != 1 {
		t.Fatalf("expected entity 2 solid=1, got %+v", dec.Running().entity(2))
	}
	if dec.Running().player(0).Health != 80 {
		t.Fatalf("expected player 0 health=80, got %+v", dec.Running().player(0))
	}

	if _, err := dec.ReadFrame(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
	if !dec.AtEnd() {
		t.Fatal("expected AtEnd() true after EOF")
	}
	if dec.DurationMs() != 100 {
		t.Fatalf("expected duration 100, got %d", dec.DurationMs())
	}
}
