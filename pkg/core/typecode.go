package core

import (
	"fmt"
	"strings"
)

// CategoryFlag is a single trait an object kind can have. Flags occupy bit 7
// and above of a TypeCode so that the low bits stay free for the kind index.
type CategoryFlag uint32

const (
	Invisible CategoryFlag = 1 << (iota + kindBits)
	Minion
	Jungle
	Objective
	Dragon
	Smitable
	Plant
	Player
	Turret
	Expirable
	Clone
)

const (
	kindBits = 7

	// KindMask selects the kind index bits of a TypeCode.
	KindMask TypeCode = 1<<kindBits - 1

	// MaxKind is the largest ObjectKind a table may hold.
	MaxKind ObjectKind = 63
)

// allFlags lists the flags in bit order, used for names and parsing.
var allFlags = []struct {
	flag CategoryFlag
	name string
}{
	{Invisible, "Invisible"},
	{Minion, "Minion"},
	{Jungle, "Jungle"},
	{Objective, "Objective"},
	{Dragon, "Dragon"},
	{Smitable, "Smitable"},
	{Plant, "Plant"},
	{Player, "Player"},
	{Turret, "Turret"},
	{Expirable, "Expirable"},
	{Clone, "Clone"},
}

// ParseCategoryFlag returns the flag with the given name (case-insensitive).
func ParseCategoryFlag(name string) (CategoryFlag, error) {
	for _, f := range allFlags {
		if strings.EqualFold(f.name, name) {
			return f.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown category flag %q", name)
}

// Names returns the names of all flags set in f, lowest bit first.
func (f CategoryFlag) Names() []string {
	names := []string{}
	for _, known := range allFlags {
		if f&known.flag != 0 {
			names = append(names, known.name)
		}
	}
	return names
}

func (f CategoryFlag) String() string {
	if f == 0 {
		return "None"
	}
	return strings.Join(f.Names(), "|")
}

// ObjectKind identifies one specific kind of object (baron, pink ward, ...).
type ObjectKind uint8

// TypeCode packs a union of CategoryFlags with an ObjectKind in one word:
// flags in bits 7 and up, kind in bits 0-6.
type TypeCode uint32

// NoObject is the code of an unclassified object. It matches no category.
const NoObject TypeCode = 0

// NewTypeCode packs flags and kind. It fails if the kind does not fit the
// reserved index range or if any flag bit lands inside it.
func NewTypeCode(flags CategoryFlag, kind ObjectKind) (TypeCode, error) {
	if kind > MaxKind {
		return NoObject, fmt.Errorf("object kind %d exceeds max %d", kind, MaxKind)
	}
	if TypeCode(flags)&KindMask != 0 {
		return NoObject, fmt.Errorf("category flags %#x overlap the kind bits", uint32(flags))
	}
	return TypeCode(flags) | TypeCode(kind), nil
}

// MustTypeCode is NewTypeCode for static tables; it panics on invalid input.
func MustTypeCode(flags CategoryFlag, kind ObjectKind) TypeCode {
	code, err := NewTypeCode(flags, kind)
	if err != nil {
		panic(err)
	}
	return code
}

// Flags returns the category union carried by the code.
func (c TypeCode) Flags() CategoryFlag {
	return CategoryFlag(c &^ KindMask)
}

// Kind returns the kind index carried by the code.
func (c TypeCode) Kind() ObjectKind {
	return ObjectKind(c & KindMask)
}

// HasAny reports whether the code carries at least one of the wanted flags.
func (c TypeCode) HasAny(wanted ...CategoryFlag) bool {
	var union CategoryFlag
	for _, f := range wanted {
		union |= f
	}
	return c.Flags()&union != 0
}

// HasAll reports whether the code carries every wanted flag.
func (c TypeCode) HasAll(wanted ...CategoryFlag) bool {
	var union CategoryFlag
	for _, f := range wanted {
		union |= f
	}
	return union != 0 && c.Flags()&union == union
}

func (c TypeCode) String() string {
	if c == NoObject {
		return "NoObject"
	}
	return fmt.Sprintf("%s#%d", c.Flags(), c.Kind())
}
