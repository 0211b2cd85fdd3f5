package loader

import (
	"fmt"

	"github.com/lviewgo/recorder/internal/memory"
)

// Layout holds the byte offsets of one game build's object structure.
// Offsets in the first group are relative to the object base and land in the
// primary buffer; the deep group is relative to the unit info pointer.
type Layout struct {
	PrimarySize int `mapstructure:"primarySize" json:"primarySize"`
	DeepSize    int `mapstructure:"deepSize" json:"deepSize"`
	PointerSize int `mapstructure:"pointerSize" json:"pointerSize"`
	NameLen     int `mapstructure:"nameLen" json:"nameLen"`

	Index             int `mapstructure:"index" json:"index"`
	Team              int `mapstructure:"team" json:"team"`
	Name              int `mapstructure:"nameOffset" json:"nameOffset"`
	NetworkID         int `mapstructure:"networkId" json:"networkId"`
	Position          int `mapstructure:"position" json:"position"`
	Visibility        int `mapstructure:"visibility" json:"visibility"`
	SpawnCount        int `mapstructure:"spawnCount" json:"spawnCount"`
	Expiry            int `mapstructure:"expiry" json:"expiry"`
	Health            int `mapstructure:"health" json:"health"`
	MaxHealth         int `mapstructure:"maxHealth" json:"maxHealth"`
	AbilityPower      int `mapstructure:"abilityPower" json:"abilityPower"`
	BonusAbilityPower int `mapstructure:"bonusAbilityPower" json:"bonusAbilityPower"`
	BonusAttack       int `mapstructure:"bonusAttack" json:"bonusAttack"`
	BaseAttack        int `mapstructure:"baseAttack" json:"baseAttack"`
	CritMulti         int `mapstructure:"critMulti" json:"critMulti"`
	Crit              int `mapstructure:"crit" json:"crit"`
	Armour            int `mapstructure:"armour" json:"armour"`
	MagicResist       int `mapstructure:"magicResist" json:"magicResist"`
	BaseAttackRange   int `mapstructure:"baseAttackRange" json:"baseAttackRange"`
	BaseAttackSpeed   int `mapstructure:"baseAttackSpeed" json:"baseAttackSpeed"`
	UnitInfoPtr       int `mapstructure:"unitInfoPtr" json:"unitInfoPtr"`

	AtkSpeedMulti  int `mapstructure:"atkSpeedMulti" json:"atkSpeedMulti"`
	GameplayRadius int `mapstructure:"gameplayRadius" json:"gameplayRadius"`
	MaxAttackSpeed int `mapstructure:"maxAttackSpeed" json:"maxAttackSpeed"`
	TargetRadius   int `mapstructure:"targetRadius" json:"targetRadius"`
}

// DefaultLayout returns the offsets of the 32-bit client build the recorder
// ships with.
func DefaultLayout() Layout {
	return Layout{
		PrimarySize: 0x3000,
		DeepSize:    0x1000,
		PointerSize: 4,
		NameLen:     0x40,

		Index:             0x20,
		Team:              0x4C,
		Name:              0x6C,
		NetworkID:         0xCC,
		Position:          0x1D8,
		Visibility:        0x270,
		SpawnCount:        0x284,
		Expiry:            0x298,
		Health:            0xD98,
		MaxHealth:         0xDA8,
		AbilityPower:      0x1200,
		BonusAbilityPower: 0x1208,
		BonusAttack:       0x11F4,
		BaseAttack:        0x1274,
		CritMulti:         0x1288,
		Crit:              0x1298,
		Armour:            0x129C,
		MagicResist:       0x12A4,
		BaseAttackRange:   0x12BC,
		BaseAttackSpeed:   0x12C8,
		UnitInfoPtr:       0x2F5C,

		AtkSpeedMulti:  0x1D0,
		GameplayRadius: 0x1D8,
		MaxAttackSpeed: 0x1DC,
		TargetRadius:   0x4C4,
	}
}

type field struct {
	name   string
	offset int
	width  int
	deep   bool
}

func (l Layout) fields() []field {
	return []field{
		{name: "index", offset: l.Index, width: 2},
		{name: "team", offset: l.Team, width: 2},
		{name: "name", offset: l.Name, width: l.NameLen},
		{name: "networkId", offset: l.NetworkID, width: 4},
		{name: "position", offset: l.Position, width: 12},
		{name: "visibility", offset: l.Visibility, width: 1},
		{name: "spawnCount", offset: l.SpawnCount, width: 4},
		{name: "expiry", offset: l.Expiry, width: 4},
		{name: "health", offset: l.Health, width: 4},
		{name: "maxHealth", offset: l.MaxHealth, width: 4},
		{name: "abilityPower", offset: l.AbilityPower, width: 4},
		{name: "bonusAbilityPower", offset: l.BonusAbilityPower, width: 4},
		{name: "bonusAttack", offset: l.BonusAttack, width: 4},
		{name: "baseAttack", offset: l.BaseAttack, width: 4},
		{name: "critMulti", offset: l.CritMulti, width: 4},
		{name: "crit", offset: l.Crit, width: 4},
		{name: "armour", offset: l.Armour, width: 4},
		{name: "magicResist", offset: l.MagicResist, width: 4},
		{name: "baseAttackRange", offset: l.BaseAttackRange, width: 4},
		{name: "baseAttackSpeed", offset: l.BaseAttackSpeed, width: 4},
		{name: "unitInfoPtr", offset: l.UnitInfoPtr, width: l.PointerSize},

		{name: "atkSpeedMulti", offset: l.AtkSpeedMulti, width: 4, deep: true},
		{name: "gameplayRadius", offset: l.GameplayRadius, width: 4, deep: true},
		{name: "maxAttackSpeed", offset: l.MaxAttackSpeed, width: 4, deep: true},
		{name: "targetRadius", offset: l.TargetRadius, width: 4, deep: true},
	}
}

// Validate checks that the sizes are usable and that every field fits its
// buffer. Overruns are reported as *memory.BufferOverrunError.
func (l Layout) Validate() error {
	if l.PrimarySize <= 0 || l.DeepSize <= 0 {
		return fmt.Errorf("buffer sizes must be positive, got primary=%d deep=%d", l.PrimarySize, l.DeepSize)
	}
	if l.PointerSize != 4 && l.PointerSize != 8 {
		return fmt.Errorf("pointer size must be 4 or 8, got %d", l.PointerSize)
	}
	if l.NameLen <= 0 {
		return fmt.Errorf("name length must be positive, got %d", l.NameLen)
	}

	for _, f := range l.fields() {
		size := l.PrimarySize
		if f.deep {
			size = l.DeepSize
		}
		if !fits(f.offset, f.width, size) {
			return &memory.BufferOverrunError{Field: f.name, Offset: f.offset, Width: f.width, Size: size}
		}
	}
	return nil
}
