package replay

import (
	"strings"
	"testing"
	"time"

	"trinity/tvdemo/internal/bitcodec"
)

func recordSimpleDemo(t *testing.T, dir string) string {
	t.Helper()
	rec, err := NewRecorder(dir, 20, 16, fixedClock(time.Now()))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	path, err := rec.StartRecord("snaptest", "q3dm17", []csEntry{{Index: CSServerInfo, Data: []byte(`\mapname\q3dm17`)}})
	if err != nil {
		t.Fatalf("StartRecord: %v", err)
	}

	entities := map[int]bitcodec.EntityState{}
	for i := 0; i < MaxEntitiesInSnapshot+20; i++ {
		entities[i+1] = bitcodec.EntityState{Origin: [3]float32{float32(i) * 100, 0, 0}}
	}
	entities[0] = bitcodec.EntityState{Origin: [3]float32{1, 0, 0}}
	entities[999] = bitcodec.EntityState{EventType: scoreplumEventType(), OtherEntityNum: 0, Origin: [3]float32{2, 0, 0}}
	players := map[int]bitcodec.PlayerState{0: {Origin: [3]float32{0, 0, 0}, Health: 100}}

	if err := rec.WriteFrame(100, entities, players); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := rec.StopRecord(); err != nil {
		t.Fatalf("StopRecord: %v", err)
	}
	return path
}

func TestBuildSnapshotCapsExcludesViewpointAndKeepsTargetedEvent(t *testing.T) {
	dir := t.TempDir()
	path := recordSimpleDemo(t, dir)

	dec, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dec.Close()
	if _, err := dec.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	vp := NewViewpointController()
	vp.SetKnownPlayers([]int{0})
	vp.SetView(0)
	builder := NewSnapshotBuilder(dec, vp)
	snap := builder.BuildSnapshot(100)

	if len(snap.Entities) > MaxEntitiesInSnapshot {
		t.Fatalf("expected capped entity count <= %d, got %d", MaxEntitiesInSnapshot, len(snap.Entities))
	}
	found999 := false
	for _, num := range snap.EntityNums {
		if num == 0 {
			t.Fatal("expected followed viewpoint's own entity slot to be excluded from its snapshot")
		}
		if num == 999 {
			found999 = true
		}
	}
	if !found999 {
		t.Fatal("expected score-plum entity targeting the viewpoint to survive the distance cap")
	}
	if !snap.HasPlayer || snap.Player.Health != 100 {
		t.Fatalf("expected followed player state, got %+v", snap.Player)
	}
}

func TestBuildSnapshotExcludesScoreplumNotTargetingViewpoint(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 20, 16, fixedClock(time.Now()))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	path, err := rec.StartRecord("plumtest", "q3dm17", []csEntry{{Index: CSServerInfo, Data: []byte(`\mapname\q3dm17`)}})
	if err != nil {
		t.Fatalf("StartRecord: %v", err)
	}
	entities := map[int]bitcodec.EntityState{
		1: {EventType: scoreplumEventType(), OtherEntityNum: 5, Origin: [3]float32{10, 0, 0}},
		2: {EventType: scoreplumEventType(), OtherEntityNum: 0, Origin: [3]float32{20, 0, 0}},
	}
	players := map[int]bitcodec.PlayerState{0: {Health: 100}}
	if err := rec.WriteFrame(100, entities, players); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := rec.StopRecord(); err != nil {
		t.Fatalf("StopRecord: %v", err)
	}

	dec, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dec.Close()
	if _, err := dec.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	vp := NewViewpointController()
	vp.SetKnownPlayers([]int{0})
	vp.SetView(0)
	snap := NewSnapshotBuilder(dec, vp).BuildSnapshot(100)

	has := map[int]bool{}
	for _, n := range snap.EntityNums {
		has[n] = true
	}
	if has[1] {
		t.Fatal("expected scoreplum targeting client 5 to be excluded while following client 0")
	}
	if !has[2] {
		t.Fatal("expected scoreplum targeting the followed viewpoint to be included")
	}
}

func TestSkipEventEntityFiltersScoreplumsNotTargetingViewpoint(t *testing.T) {
	plum := bitcodec.EntityState{EventType: scoreplumEventType(), OtherEntityNum: 3}
	if !SkipEventEntity(plum, 7) {
		t.Fatal("expected scoreplum targeting a different client to be skipped")
	}
	if SkipEventEntity(plum, 3) {
		t.Fatal("expected scoreplum targeting the viewpoint to survive")
	}
	ordinary := bitcodec.EntityState{EventType: 5}
	if SkipEventEntity(ordinary, 7) {
		t.Fatal("expected a non-scoreplum event entity to never be skipped by SkipEventEntity")
	}
}

func TestGetServerCommandReassemblesFragmentsAndDropsDisconnect(t *testing.T) {
	ring := newCommandRing()
	ring.push(broadcastTarget, "bcs0 part-one-")
	ring.push(broadcastTarget, "bcs1 part-two-")
	ring.push(broadcastTarget, "bcs2 part-three")
	ring.push(5, "disconnect")
	ring.push(broadcastTarget, "print \"hi\"")

	text, newSeen := GetServerCommand(ring, 0, nil)
	if newSeen != 5 {
		t.Fatalf("expected newSeen 5, got %d", newSeen)
	}
	if text != "part-one-part-two-part-three\nprint \"hi\"" {
		t.Fatalf("unexpected reassembled text: %q", text)
	}
}

func TestGetServerCommandAppliesConfigstringCommand(t *testing.T) {
	ring := newCommandRing()
	ring.push(broadcastTarget, `cs 16 "\mapname\q3dm7"`)

	cs := newConfigstringArena()
	if _, newSeen := GetServerCommand(ring, 0, cs); newSeen != 1 {
		t.Fatalf("expected newSeen 1, got %d", newSeen)
	}
	if got := string(cs.get(16)); got != `\mapname\q3dm7` {
		t.Fatalf("expected configstring 16 applied, got %q", got)
	}
}

func TestParseCSCommandStripsQuotesAndParsesIndex(t *testing.T) {
	idx, data, ok := parseCSCommand(`cs 544 "\n\Ranger\t\0"`)
	if !ok {
		t.Fatal("expected parseCSCommand to recognize a cs command")
	}
	if idx != 544 {
		t.Fatalf("expected index 544, got %d", idx)
	}
	if data != `\n\Ranger\t\0` {
		t.Fatalf("unexpected data: %q", data)
	}
	if _, _, ok := parseCSCommand("print \"hi\""); ok {
		t.Fatal("expected a non-cs command to be rejected")
	}
}

func TestInjectScoresProducesFourteenFieldsPerPlayer(t *testing.T) {
	p := bitcodec.PlayerState{Health: 100, Armor: 50}
	p.Persistant[bitcodec.PersScore] = 7
	players := map[int]bitcodec.PlayerState{0: p}
	text := InjectScores(players, []int{0})
	if text == "" {
		t.Fatal("expected non-empty scores command")
	}
	if text[:7] != "scores " {
		t.Fatalf("expected scores command prefix, got %q", text)
	}
	if fields := strings.Fields(text); len(fields) != 2+14 {
		t.Fatalf("expected scores header plus 14 fields, got %d: %q", len(fields), text)
	}
}
