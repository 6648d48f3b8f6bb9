package replay

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"trinity/tvdemo/internal/bitcodec"
)

// Snapshot is what a connected viewer receives for one tick: the set of
// entities worth sending (capped and distance-sorted around the followed
// player), that player's own state if one is selected, and the server time
// it was built at.
type Snapshot struct {
	ServerTime int32
	EntityNums []int
	Entities   []bitcodec.EntityState
	HasPlayer  bool
	Player     bitcodec.PlayerState
}

// SnapshotBuilder turns a Decoder's live RunningState plus a
// ViewpointController's current selection into Snapshots.
type SnapshotBuilder struct {
	dec *Decoder
	vp  *ViewpointController
}

// NewSnapshotBuilder wires a decoder and viewpoint controller together.
func NewSnapshotBuilder(dec *Decoder, vp *ViewpointController) *SnapshotBuilder {
	return &SnapshotBuilder{dec: dec, vp: vp}
}

func squaredDistance(a, b [3]float32) float64 {
	dx := float64(a[0] - b[0])
	dy := float64(a[1] - b[1])
	dz := float64(a[2] - b[2])
	return dx*dx + dy*dy + dz*dz
}

// SkipEventEntity reports whether e should be excluded from the snapshot
// because it is a score-plum event entity aimed at a player other than the
// one being followed. Score plums and similar per-player event entities are
// only meaningful for the player they target.
func SkipEventEntity(e bitcodec.EntityState, viewpoint int) bool {
	return e.EventType == scoreplumEventType() && int(e.OtherEntityNum) != viewpoint
}

// BuildSnapshot assembles the current tick's snapshot: every live entity
// except the followed player's own slot and any filtered event entities is a
// candidate, and when the candidate count exceeds MaxEntitiesInSnapshot the
// set is capped to the nearest entities by squared distance from the
// followed player's origin (or the world origin in free view). There is no
// separate always-keep bucket — event entities share the one cap with
// everything else, exactly as a followed player's own client would see.
func (b *SnapshotBuilder) BuildSnapshot(serverTime int32) Snapshot {
	running := b.dec.Running()
	view := b.vp.View()

	var origin [3]float32
	hasPlayer := view >= 0 && running.playerAlive(view)
	if hasPlayer {
		origin = running.player(view).Origin
	}

	type candidate struct {
		num    int
		distSq float64
	}
	var candidates []candidate
	for i := 0; i < MaxGEntities; i++ {
		if !running.entityAlive(i) {
			continue
		}
		if i == view {
			continue
		}
		e := running.entity(i)
		if SkipEventEntity(e, view) {
			continue
		}
		candidates = append(candidates, candidate{num: i, distSq: squaredDistance(origin, e.Origin)})
	}

	if len(candidates) > MaxEntitiesInSnapshot {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].distSq < candidates[j].distSq })
		candidates = candidates[:MaxEntitiesInSnapshot]
	}
	chosen := candidates
	sort.Slice(chosen, func(i, j int) bool { return chosen[i].num < chosen[j].num })

	snap := Snapshot{ServerTime: serverTime, HasPlayer: hasPlayer}
	if hasPlayer {
		snap.Player = running.player(view)
	}
	snap.EntityNums = make([]int, len(chosen))
	snap.Entities = make([]bitcodec.EntityState, len(chosen))
	for i, c := range chosen {
		snap.EntityNums[i] = c.num
		snap.Entities[i] = running.entity(c.num)
	}
	b.vp.IncrementSnapCount()
	return snap
}

// parseCSCommand recognizes a "cs <index> <data>" reliable command and
// extracts the configstring index and value, stripping any quotes around data
// the way the original's tokenizer would strip them. Only text that begins
// with "cs " is recognized; the text GetServerCommand joins from bcs0/bcs1/
// bcs2 fragments carries no "cs " prefix and is not parsed here.
func parseCSCommand(text string) (idx int, data string, ok bool) {
	rest := strings.TrimPrefix(text, "cs ")
	if rest == text {
		return 0, "", false
	}
	fields := strings.SplitN(rest, " ", 2)
	if len(fields) != 2 {
		return 0, "", false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", false
	}
	return n, strings.Trim(fields[1], `"`), true
}

// GetServerCommand drains ring from lastSeen, joining split "bcs0"/"bcs1"/
// "bcs2" fragments into single lines (the fragment text is concatenated as-is
// and is not turned into a "cs" command or applied to cs), dropping any
// "disconnect" command — a TV viewer watching a player leave must not be
// disconnected itself — and applying any "cs" configstring command back into
// cs, exactly as CL_TV_GetServerCommand's "cs" branch calls
// CL_TV_UpdateConfigstring before returning.
func GetServerCommand(ring *commandRing, lastSeen int, cs *configstringArena) (string, int) {
	cmds, newSeen := ring.drain(lastSeen)
	var parts []string
	var fragment strings.Builder
	for _, c := range cmds {
		switch {
		case strings.HasPrefix(c.Text, "disconnect"):
			continue
		case strings.HasPrefix(c.Text, "bcs0 "):
			fragment.Reset()
			fragment.WriteString(strings.TrimPrefix(c.Text, "bcs0 "))
		case strings.HasPrefix(c.Text, "bcs1 "):
			fragment.WriteString(strings.TrimPrefix(c.Text, "bcs1 "))
		case strings.HasPrefix(c.Text, "bcs2 "):
			fragment.WriteString(strings.TrimPrefix(c.Text, "bcs2 "))
			parts = append(parts, fragment.String())
			fragment.Reset()
		default:
			parts = append(parts, c.Text)
		}
	}
	if cs != nil {
		for _, p := range parts {
			idx, data, ok := parseCSCommand(p)
			if !ok || idx < 0 || idx >= MaxConfigstrings {
				continue
			}
			cs.update(idx, []byte(data), idx == CSServerInfo)
		}
	}
	return strings.Join(parts, "\n"), newSeen
}

// InjectScores builds the 14-field "scores" command for each player in
// clientNums order: clientNum, score, rank, ping, time, killed, impressive,
// excellent, defend, assist, gauntlet frags, captures, health, armor.
func InjectScores(players map[int]bitcodec.PlayerState, clientNums []int) string {
	var b strings.Builder
	b.WriteString("scores ")
	b.WriteString(strconv.Itoa(len(clientNums)))
	for _, cn := range clientNums {
		p := players[cn]
		fmt.Fprintf(&b, " %d %d %d %d %d %d %d %d %d %d %d %d %d %d",
			cn,
			p.Persistant[bitcodec.PersScore],
			p.Persistant[bitcodec.PersRank],
			0, // ping: not tracked by replay, always reported as 0
			0, // connect time: not tracked by replay, always reported as 0
			p.Persistant[bitcodec.PersKilled],
			p.Persistant[bitcodec.PersImpressiveCount],
			p.Persistant[bitcodec.PersExcellentCount],
			p.Persistant[bitcodec.PersDefendCount],
			p.Persistant[bitcodec.PersAssistCount],
			p.Persistant[bitcodec.PersGauntletFragCount],
			p.Persistant[bitcodec.PersCaptures],
			p.Health,
			p.Armor,
		)
	}
	return b.String()
}
