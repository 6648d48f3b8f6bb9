package bitcodec

// GEntityNumBits sizes the entity-number field so MAX_GENTITIES-1 fits as the
// stream's sentinel terminator.
const GEntityNumBits = 10

const entityDeltaFields = 11

// EntityState is the fixed-layout record the core value-copies and
// zero-initializes; of its fields, only Origin, EventType and OtherEntityNum
// are read by snapshot building.
type EntityState struct {
	Origin          [3]float32
	Velocity        [3]float32
	Angles          [3]float32
	EventType       int32
	EventParm       int32
	Weapon          int32
	GroundEntityNum int32
	Powerups        uint32
	Solid           int32
	ModelIndex      int32
	OtherEntityNum  int32
}

// WriteEntityNum writes a raw entity slot number, used both for real deltas
// and the MAX_GENTITIES-1 stream terminator.
func WriteEntityNum(w *BitWriter, num int) {
	w.WriteBits(uint32(num), GEntityNumBits)
}

// ReadEntityNum reads a raw entity slot number.
func ReadEntityNum(r *BitReader) int {
	return int(r.ReadBits(GEntityNumBits))
}

// WriteDeltaEntity encodes only the fields of to that differ from from,
// preceded by a changed-field bitmask.
func WriteDeltaEntity(w *BitWriter, from, to EntityState) {
	var mask uint32
	if from.Origin != to.Origin {
		mask |= 1 << 0
	}
	if from.Velocity != to.Velocity {
		mask |= 1 << 1
	}
	if from.Angles != to.Angles {
		mask |= 1 << 2
	}
	if from.EventType != to.EventType {
		mask |= 1 << 3
	}
	if from.EventParm != to.EventParm {
		mask |= 1 << 4
	}
	if from.Weapon != to.Weapon {
		mask |= 1 << 5
	}
	if from.GroundEntityNum != to.GroundEntityNum {
		mask |= 1 << 6
	}
	if from.Powerups != to.Powerups {
		mask |= 1 << 7
	}
	if from.Solid != to.Solid {
		mask |= 1 << 8
	}
	if from.ModelIndex != to.ModelIndex {
		mask |= 1 << 9
	}
	if from.OtherEntityNum != to.OtherEntityNum {
		mask |= 1 << 10
	}

	w.WriteBits(mask, entityDeltaFields)

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
		for _, v := range to.Angles {
			w.WriteFloat32(v)
		}
	}
	if mask&(1<<3) != 0 {
		w.WriteInt32(to.EventType)
	}
	if mask&(1<<4) != 0 {
		w.WriteInt32(to.EventParm)
	}
	if mask&(1<<5) != 0 {
		w.WriteInt32(to.Weapon)
	}
	if mask&(1<<6) != 0 {
		w.WriteInt32(to.GroundEntityNum)
	}
	if mask&(1<<7) != 0 {
		w.WriteBits(to.Powerups, 32)
	}
	if mask&(1<<8) != 0 {
		w.WriteInt32(to.Solid)
	}
	if mask&(1<<9) != 0 {
		w.WriteInt32(to.ModelIndex)
	}
	if mask&(1<<10) != 0 {
		w.WriteInt32(to.OtherEntityNum)
	}
}

// ReadDeltaEntity decodes a delta against from, inheriting unchanged fields
// from the baseline exactly as the changed-field bitmask indicates.
func ReadDeltaEntity(r *BitReader, from EntityState) EntityState {
	mask := r.ReadBits(entityDeltaFields)
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
		for i := range to.Angles {
			to.Angles[i] = r.ReadFloat32()
		}
	}
	if mask&(1<<3) != 0 {
		to.EventType = r.ReadInt32()
	}
	if mask&(1<<4) != 0 {
		to.EventParm = r.ReadInt32()
	}
	if mask&(1<<5) != 0 {
		to.Weapon = r.ReadInt32()
	}
	if mask&(1<<6) != 0 {
		to.GroundEntityNum = r.ReadInt32()
	}
	if mask&(1<<7) != 0 {
		to.Powerups = r.ReadBits(32)
	}
	if mask&(1<<8) != 0 {
		to.Solid = r.ReadInt32()
	}
	if mask&(1<<9) != 0 {
		to.ModelIndex = r.ReadInt32()
	}
	if mask&(1<<10) != 0 {
		to.OtherEntityNum = r.ReadInt32()
	}
	return to
}
