package replay

import (
	"fmt"
	"strconv"
	"strings"
)

// infoValueForKey extracts a value from a Quake III-style infostring, which
// packs key/value pairs as "\key1\value1\key2\value2...". Mirrors
// Info_ValueForKey's contract from cl_tv.c's CL_TV_GetPlayerTeam/
// CL_TV_GetPlayerList callers.
func infoValueForKey(info, key string) string {
	if info == "" || key == "" {
		return ""
	}
	parts := strings.Split(info, "\\")
	// parts[0] is always empty for a leading backslash; walk pairs.
	for i := 1; i+1 < len(parts); i += 2 {
		if parts[i] == key {
			return parts[i+1]
		}
	}
	return ""
}

// infoSetValueForKey replaces (or appends) a key/value pair in an infostring,
// mirroring Info_SetValueForKey as used by CL_TV_UpdateConfigstring's
// unconditional "tv=1" re-injection into CS_SERVERINFO.
func infoSetValueForKey(info, key, value string) string {
	parts := strings.Split(info, "\\")
	var b strings.Builder
	replaced := false
	for i := 1; i+1 < len(parts); i += 2 {
		k, v := parts[i], parts[i+1]
		if k == key {
			v = value
			replaced = true
		}
		b.WriteByte('\\')
		b.WriteString(k)
		b.WriteByte('\\')
		b.WriteString(v)
	}
	if !replaced {
		b.WriteByte('\\')
		b.WriteString(key)
		b.WriteByte('\\')
		b.WriteString(value)
	}
	return b.String()
}

// teamForClient returns client n's "t" (team) attribute from its per-client
// configstring at CSPlayers+n, mirroring CL_TV_GetPlayerTeam. An empty or
// unparsable configstring defaults to TeamSpectator so an unpopulated slot
// is never mistaken for a live combatant.
func teamForClient(cs *configstringArena, clientNum int) int {
	info := string(cs.get(CSPlayers + clientNum))
	if info == "" {
		return TeamSpectator
	}
	v := infoValueForKey(info, "t")
	n, err := strconv.Atoi(v)
	if err != nil {
		return TeamSpectator
	}
	return n
}

// formatPlayerList renders CL_TV_GetPlayerList's exact wire format: the
// viewpoint on its own line, then one "clientNum\tname\tteam\tmodel\tvr" line
// per live client, each field read off that client's CS_PLAYERS+n
// configstring.
func formatPlayerList(running *RunningState, cs *configstringArena, viewpoint int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", viewpoint)
	for n := 0; n < MaxClients; n++ {
		if !running.playerAlive(n) {
			continue
		}
		info := string(cs.get(CSPlayers + n))
		name := infoValueForKey(info, "n")
		model := infoValueForKey(info, "model")
		vr := infoValueForKey(info, "vr")
		fmt.Fprintf(&b, "%d\t%s\t%d\t%s\t%s\n", n, name, teamForClient(cs, n), model, vr)
	}
	return b.String()
}
