package bitcodec

// NumPowerups and NumPersistant size the fixed arrays carried on PlayerState.
// Persistant must be long enough to hold TV_PERS_CAPTURES (index 14).
const (
	NumPowerups   = 16
	NumPersistant = 16
)

// Persistant stat indices the TV command surface reads to synthesize the
// scoreboard command (mirrors cl_tv.c's TV_PERS_* constants).
const (
	PersScore             = 0
	PersRank              = 2
	PersKilled            = 8
	PersImpressiveCount   = 9
	PersExcellentCount    = 10
	PersDefendCount       = 11
	PersAssistCount       = 12
	PersGauntletFragCount = 13
	PersCaptures          = 14
)

const playerDeltaFields = 10

// PlayerState is the opaque, fixed-layout player record.
type PlayerState struct {
	Origin      [3]float32
	Velocity    [3]float32
	ViewAngles  [3]float32
	Health      int32
	Armor       int32
	Weapon      int32
	WeaponState int32
	Powerups    [NumPowerups]int32
	Persistant  [NumPersistant]int32
	ClientNum   int32
}

// WriteDeltaPlayerstate encodes only the fields of to that differ from from,
// preceded by a changed-field bitmask.
func WriteDeltaPlayerstate(w *BitWriter, from, to PlayerState) {
	var mask uint32
	if from.Origin != to.Origin {
		mask |= 1 << 0
	}
	if from.Velocity != to.Velocity {
		mask |= 1 << 1
	}
	if from.ViewAngles != to.ViewAngles {
		mask |= 1 << 2
	}
	if from.Health != to.Health {
		mask |= 1 << 3
	}
	if from.Armor != to.Armor {
		mask |= 1 << 4
	}
	if from.Weapon != to.Weapon {
		mask |= 1 << 5
	}
	if from.WeaponState != to.WeaponState {
		mask |= 1 << 6
	}
	if from.Powerups != to.Powerups {
		mask |= 1 << 7
	}
	if from.Persistant != to.Persistant {
		mask |= 1 << 8
	}
	if from.ClientNum != to.ClientNum {
		mask |= 1 << 9
	}

	w.WriteBits(mask, playerDeltaFields)

	if mask&(1<<0) != 0 {
		for _, v := range to.Origin {
			w.WriteFloat32(v)
		}
	}
	if mask&(1<<1) != 0 {
		for _, v := range to.Velocity {
			w.WriteFloat32(v)
		}
	}
	if mask&(1<<2) != 0 {
		for _, v := range to.ViewAngles {
			w.WriteFloat32(v)
		}
	}
	if mask&(1<<3) != 0 {
		w.WriteInt32(to.Health)
	}
	if mask&(1<<4) != 0 {
		w.WriteInt32(to.Armor)
	}
	if mask&(1<<5) != 0 {
		w.WriteInt32(to.Weapon)
	}
	if mask&(1<<6) != 0 {
		w.WriteInt32(to.WeaponState)
	}
	if mask&(1<<7) != 0 {
		for _, v := range to.Powerups {
			w.WriteInt32(v)
		}
	}
	if mask&(1<<8) != 0 {
		for _, v := range to.Persistant {
			w.WriteInt32(v)
		}
	}
	if mask&(1<<9) != 0 {
		w.WriteInt32(to.ClientNum)
	}
}

// ReadDeltaPlayerstate decodes a delta against from, inheriting unchanged
// fields from the baseline.
func ReadDeltaPlayerstate(r *BitReader, from PlayerState) PlayerState {
	mask := r.ReadBits(playerDeltaFields)
	to := from

	if mask&(1<<0) != 0 {
		for i := range to.Origin {
			to.Origin[i] = r.ReadFloat32()
		}
	}
	if mask&(1<<1) != 0 {
		for i := range to.Velocity {
			to.Velocity[i] = r.ReadFloat32()
		}
	}
	if mask&(1<<2) != 0 {
		for i := range to.ViewAngles {
			to.ViewAngles[i] = r.ReadFloat32()
		}
	}
	if mask&(1<<3) != 0 {
		to.Health = r.ReadInt32()
	}
	if mask&(1<<4) != 0 {
		to.Armor = r.ReadInt32()
	}
	if mask&(1<<5) != 0 {
		to.Weapon = r.ReadInt32()
	}
	if mask&(1<<6) != 0 {
		to.WeaponState = r.ReadInt32()
	}
	if mask&(1<<7) != 0 {
		for i := range to.Powerups {
			to.Powerups[i] = r.ReadInt32()
		}
	}
	if mask&(1<<8) != 0 {
		for i := range to.Persistant {
			to.Persistant[i] = r.ReadInt32()
		}
	}
	if mask&(1<<9) != 0 {
		to.ClientNum = r.ReadInt32()
	}
	return to
}
