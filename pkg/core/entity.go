package core

import "time"

// Address is a virtual address inside the target process.
type Address uint64

// Team is the side an object fights for.
type Team int16

const (
	TeamBlue    Team = 100
	TeamRed     Team = 200
	TeamNeutral Team = 300
)

// TeamFromRaw maps the raw team word to a Team. Anything that is not one of
// the two playing sides is neutral.
func TeamFromRaw(raw int16) Team {
	switch Team(raw) {
	case TeamBlue, TeamRed:
		return Team(raw)
	default:
		return TeamNeutral
	}
}

func (t Team) String() string {
	switch t {
	case TeamBlue:
		return "blue"
	case TeamRed:
		return "red"
	default:
		return "neutral"
	}
}

// Vector3 is a position in game space.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"` // height
	Z float32 `json:"z"`
}

// Entity is a point-in-time view of one live game object. A fresh decode
// replaces it; nothing mutates an Entity across frames.
type Entity struct {
	// identity
	Name      string
	Type      TypeCode
	NetworkID uint32
	Index     int16
	Address   Address

	// combat stats
	Health            float32
	MaxHealth         float32
	BaseAttack        float32
	BonusAttack       float32
	Armour            float32
	MagicResist       float32
	Crit              float32
	CritMulti         float32
	AbilityPower      float32
	BonusAbilityPower float32
	AtkSpeedMulti     float32
	BaseAttackSpeed   float32
	MaxAttackSpeed    float32
	BaseAttackRange   float32

	// spatial
	Position Vector3
	// How close the cursor has to be to select the object.
	TargetRadius float32
	// Bounding radius of the object's model.
	GameplayRadius float32

	// lifecycle
	IsAlive   bool
	IsVisible bool
	// Seconds until the object expires.
	Duration float32
	// Game time when the object was last seen by the local team.
	LastVisibleAt float32

	Team Team

	// Deep is set once the extended fields were decoded.
	Deep bool
	// DecodedAt is the wall clock time of the decode.
	DecodedAt time.Time
}

// Equal compares identity only: name, address and network id.
func (e Entity) Equal(other Entity) bool {
	return e.Name == other.Name &&
		e.Address == other.Address &&
		e.NetworkID == other.NetworkID
}

// NotEqual is the negation of Equal.
func (e Entity) NotEqual(other Entity) bool {
	return !e.Equal(other)
}

// IsEnemyTo reports whether both objects fight for different playing sides.
func (e Entity) IsEnemyTo(other Entity) bool {
	if e.Team == TeamNeutral || other.Team == TeamNeutral {
		return false
	}
	return e.Team != other.Team
}

// IsAllyTo reports whether both objects fight for the same playing side.
func (e Entity) IsAllyTo(other Entity) bool {
	if e.Team == TeamNeutral || other.Team == TeamNeutral {
		return false
	}
	return e.Team == other.Team
}

// AttackRange is the auto-attack reach measured from the object's center:
// the base range plus the object's own bounding radius. Range checks against
// a target add the target's GameplayRadius on top.
func (e Entity) AttackRange() float32 {
	return e.BaseAttackRange + e.GameplayRadius
}

// TotalAttack is base plus bonus attack damage.
func (e Entity) TotalAttack() float32 {
	return e.BaseAttack + e.BonusAttack
}

// AttackSpeed is the effective attacks per second, capped by MaxAttackSpeed
// when the cap is known.
func (e Entity) AttackSpeed() float32 {
	speed := e.BaseAttackSpeed * e.AtkSpeedMulti
	if e.MaxAttackSpeed > 0 && speed > e.MaxAttackSpeed {
		return e.MaxAttackSpeed
	}
	return speed
}

// IsOfType reports whether the object is in any of the given categories.
func (e Entity) IsOfType(flags ...CategoryFlag) bool {
	return e.Type.HasAny(flags...)
}

// IsOfOneType is IsOfType for a single flag.
func (e Entity) IsOfOneType(t1 CategoryFlag) bool {
	return e.Type.HasAny(t1)
}

// IsOfTwoTypes is IsOfType for two flags.
func (e Entity) IsOfTwoTypes(t1, t2 CategoryFlag) bool {
	return e.Type.HasAny(t1, t2)
}

// IsOfThreeTypes is IsOfType for three flags.
func (e Entity) IsOfThreeTypes(t1, t2, t3 CategoryFlag) bool {
	return e.Type.HasAny(t1, t2, t3)
}
