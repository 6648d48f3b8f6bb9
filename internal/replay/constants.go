package replay

import "trinity/tvdemo/internal/bitcodec"

// Sizing constants mirror the ioquake3-derived original (sv_tv.c/cl_tv.c):
// power-of-two slot counts sized from their bit-width constants so the
// sentinel values used by the frame format (MAX_GENTITIES-1 entity
// terminator, MAX_RELIABLE_COMMANDS ring mask) fall out naturally.
const (
	// MaxGEntities bounds the entity slot space; bitcodec.GEntityNumBits sizes it.
	MaxGEntities = 1 << bitcodec.GEntityNumBits
	// MaxClients bounds the player slot space.
	MaxClients = 64
	// MaxConfigstrings bounds the configstring index space.
	MaxConfigstrings = 1024
	// MaxGameStateChars bounds the packed configstring arena.
	MaxGameStateChars = 16000
	// MaxReliableCommands sizes the command ring; must be a power of two.
	MaxReliableCommands = 64
	// MaxStringChars bounds a single reliable command's text.
	MaxStringChars = 1024
	// MaxEntitiesInSnapshot bounds how many entities a published snapshot carries.
	MaxEntitiesInSnapshot = 256

	// CSServerInfo is the configstring index carrying the server info block,
	// where tv=1 must always be present once TV demo playback is active.
	CSServerInfo = 0
	// CSPlayers is the base configstring index for per-client info blocks;
	// client n's info lives at CSPlayers+n.
	CSPlayers = 544

	// broadcastTarget is the reliable-command target meaning "all clients".
	broadcastTarget = 255

	// TeamSpectator is the team value (the "t" key of a client's CS_PLAYERS+n
	// configstring) meaning "not a live combatant" — CL_TV_GetPlayerTeam's
	// callers treat it as ineligible for
	// both autoselect and manual viewpoint switches.
	TeamSpectator = 3

	// entityEventBase is ET_EVENTS, the entity-type threshold above which
	// es.eType encodes an event rather than a physical entity class.
	entityEventBase = 0x80
)

// scoreplumEventOffset is EV_SCOREPLUM's offset above entityEventBase. The
// original's event enum isn't present in this pack (headers were filtered
// out of original_source/), so this is a documented, overridable best-known
// value rather than a verified constant; it only gates which event entities
// CL_TV_SkipEventEntity treats as viewpoint-specific score popups.
var scoreplumEventOffset int32 = 23

// scoreplumEventType returns the eType value CL_TV_SkipEventEntity compares
// against: a scoreplum is only worth hiding from viewers who aren't its
// target, everything else passes through like any other entity.
func scoreplumEventType() int32 {
	return entityEventBase + scoreplumEventOffset
}
