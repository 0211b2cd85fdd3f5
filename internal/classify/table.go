// Package classify maps in-game unit names and kind indices to packed
// TypeCodes through an immutable kind table.
package classify

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lviewgo/recorder/pkg/core"
	"gopkg.in/yaml.v3"
)

// Kind indices of the built-in table.
const (
	KindWard           core.ObjectKind = 1
	KindWardPink       core.ObjectKind = 2
	KindMinionCannon   core.ObjectKind = 3
	KindMinionMelee    core.ObjectKind = 4
	KindMinionRanged   core.ObjectKind = 5
	KindBaron          core.ObjectKind = 6
	KindHerald         core.ObjectKind = 7
	KindDragonFire     core.ObjectKind = 8
	KindDragonMountain core.ObjectKind = 9
	KindDragonOcean    core.ObjectKind = 10
	KindDragonAir      core.ObjectKind = 11
	KindDragonElder    core.ObjectKind = 12
	KindKrug           core.ObjectKind = 13
	KindKrugMedium     core.ObjectKind = 14
	KindKrugSmall      core.ObjectKind = 15
	KindWolf           core.ObjectKind = 16
	KindWolfSmall      core.ObjectKind = 17
	KindRazorbeak      core.ObjectKind = 18
	KindRazorbeakSmall core.ObjectKind = 19
	KindGromp          core.ObjectKind = 20
	KindBlue           core.ObjectKind = 21
	KindRed            core.ObjectKind = 22
	KindCrab           core.ObjectKind = 23
	KindPlantExplosion core.ObjectKind = 24
	KindPlantHealing   core.ObjectKind = 25
	KindPlantVision    core.ObjectKind = 26
	KindShacoBox       core.ObjectKind = 27
	KindTeemoMushroom  core.ObjectKind = 28
	KindShacoClone     core.ObjectKind = 29
	KindLeblancClone   core.ObjectKind = 30
)

// Entry describes one object kind.
type Entry struct {
	Kind  core.ObjectKind
	Label string
	Flags core.CategoryFlag
	// Unit names (lower case) that resolve to this kind.
	Names []string
}

// Code returns the packed TypeCode of the entry.
func (e Entry) Code() core.TypeCode {
	return core.MustTypeCode(e.Flags, e.Kind)
}

// Table is the immutable kind table. Build it once with NewTable,
// DefaultTable or LoadTable and share it by pointer.
type Table struct {
	version string
	byKind  map[core.ObjectKind]Entry
	codes   map[core.ObjectKind]core.TypeCode
	byName  map[string]core.ObjectKind
}

// NewTable validates the entries and builds a table. Duplicate kinds,
// duplicate names and kinds outside 0..63 are rejected.
func NewTable(version string, entries []Entry) (*Table, error) {
	t := &Table{
		version: version,
		byKind:  make(map[core.ObjectKind]Entry, len(entries)),
		codes:   make(map[core.ObjectKind]core.TypeCode, len(entries)),
		byName:  make(map[string]core.ObjectKind),
	}

	for _, e := range entries {
		code, err := core.NewTypeCode(e.Flags, e.Kind)
		if err != nil {
			return nil, fmt.Errorf("kind %q: %w", e.Label, err)
		}
		if code == core.NoObject {
			return nil, fmt.Errorf("kind %q: packs to the no-object code", e.Label)
		}
		if prev, ok := t.byKind[e.Kind]; ok {
			return nil, fmt.Errorf("kind %d used by both %q and %q", e.Kind, prev.Label, e.Label)
		}

		names := make([]string, 0, len(e.Names))
		for _, n := range e.Names {
			n = strings.ToLower(n)
			if other, ok := t.byName[n]; ok {
				return nil, fmt.Errorf("unit name %q mapped to kinds %d and %d", n, other, e.Kind)
			}
			t.byName[n] = e.Kind
			names = append(names, n)
		}
		e.Names = names

		t.byKind[e.Kind] = e
		t.codes[e.Kind] = code
	}

	return t, nil
}

// MustNewTable is NewTable for tables fixed at compile time.
func MustNewTable(version string, entries []Entry) *Table {
	t, err := NewTable(version, entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Version returns the table's version label.
func (t *Table) Version() string {
	return t.version
}

// Len returns the number of kinds.
func (t *Table) Len() int {
	return len(t.byKind)
}

// Entry returns the entry for kind.
func (t *Table) Entry(kind core.ObjectKind) (Entry, bool) {
	e, ok := t.byKind[kind]
	return e, ok
}

// Entries returns all entries ordered by kind.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.byKind))
	for _, e := range t.byKind {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

var defaultEntries = []Entry{
	{Kind: KindWard, Label: "Ward", Flags: core.Invisible | core.Expirable, Names: []string{"yellowtrinket", "sightward", "bluetrinket"}},
	{Kind: KindWardPink, Label: "WardPink", Flags: core.Invisible, Names: []string{"jammerdevice"}},

	{Kind: KindMinionCannon, Label: "MinionCannon", Flags: core.Minion, Names: []string{"sru_chaosminionsiege", "sru_orderminionsiege"}},
	{Kind: KindMinionMelee, Label: "MinionMelee", Flags: core.Minion, Names: []string{"sru_chaosminionmelee", "sru_orderminionmelee"}},
	{Kind: KindMinionRanged, Label: "MinionRanged", Flags: core.Minion, Names: []string{"sru_chaosminionranged", "sru_orderminionranged"}},

	{Kind: KindBaron, Label: "Baron", Flags: core.Jungle | core.Objective | core.Smitable, Names: []string{"sru_baron"}},
	{Kind: KindHerald, Label: "Herald", Flags: core.Jungle | core.Objective | core.Smitable, Names: []string{"sru_riftherald"}},

	{Kind: KindDragonFire, Label: "DragonFire", Flags: core.Jungle | core.Objective | core.Dragon | core.Smitable, Names: []string{"sru_dragon_fire"}},
	{Kind: KindDragonMountain, Label: "DragonMountain", Flags: core.Jungle | core.Objective | core.Dragon | core.Smitable, Names: []string{"sru_dragon_earth"}},
	{Kind: KindDragonOcean, Label: "DragonOcean", Flags: core.Jungle | core.Objective | core.Dragon | core.Smitable, Names: []string{"sru_dragon_water"}},
	{Kind: KindDragonAir, Label: "DragonAir", Flags: core.Jungle | core.Objective | core.Dragon | core.Smitable, Names: []string{"sru_dragon_air"}},
	{Kind: KindDragonElder, Label: "DragonElder", Flags: core.Jungle | core.Objective | core.Dragon | core.Smitable, Names: []string{"sru_dragon_elder"}},

	{Kind: KindKrug, Label: "Krug", Flags: core.Jungle | core.Smitable, Names: []string{"sru_krug"}},
	{Kind: KindKrugMedium, Label: "KrugMedium", Flags: core.Jungle, Names: []string{"sru_krugmini"}},
	{Kind: KindKrugSmall, Label: "KrugSmall", Flags: core.Jungle, Names: []string{"sru_krugminimini"}},

	{Kind: KindWolf, Label: "Wolf", Flags: core.Jungle | core.Smitable, Names: []string{"sru_murkwolf"}},
	{Kind: KindWolfSmall, Label: "WolfSmall", Flags: core.Jungle, Names: []string{"sru_murkwolfmini"}},

	{Kind: KindRazorbeak, Label: "Razorbeak", Flags: core.Jungle | core.Smitable, Names: []string{"sru_razorbeak"}},
	{Kind: KindRazorbeakSmall, Label: "RazorbeakSmall", Flags: core.Jungle, Names: []string{"sru_razorbeakmini"}},

	{Kind: KindGromp, Label: "Gromp", Flags: core.Jungle | core.Smitable, Names: []string{"sru_gromp"}},
	{Kind: KindBlue, Label: "Blue", Flags: core.Jungle | core.Smitable, Names: []string{"sru_blue"}},
	{Kind: KindRed, Label: "Red", Flags: core.Jungle | core.Smitable, Names: []string{"sru_red"}},
	{Kind: KindCrab, Label: "Crab", Flags: core.Jungle | core.Smitable, Names: []string{"sru_crab"}},

	{Kind: KindPlantExplosion, Label: "PlantExplosion", Flags: core.Jungle | core.Plant, Names: []string{"sru_plant_satchel"}},
	{Kind: KindPlantHealing, Label: "PlantHealing", Flags: core.Jungle | core.Plant, Names: []string{"sru_plant_health"}},
	{Kind: KindPlantVision, Label: "PlantVision", Flags: core.Jungle | core.Plant, Names: []string{"sru_plant_vision"}},

	{Kind: KindShacoBox, Label: "ShacoBox", Flags: core.Invisible | core.Expirable, Names: []string{"shacobox"}},
	{Kind: KindTeemoMushroom, Label: "TeemoMushroom", Flags: core.Invisible | core.Expirable, Names: []string{"teemomushroom"}},

	{Kind: KindShacoClone, Label: "ShacoClone", Flags: core.Clone, Names: []string{"shaco_clone"}},
	{Kind: KindLeblancClone, Label: "LeblancClone", Flags: core.Clone, Names: []string{"leblanc_clone"}},
}

var defaultTable = MustNewTable("builtin", defaultEntries)

// DefaultTable returns the built-in kind table.
func DefaultTable() *Table {
	return defaultTable
}

// tableFile is the YAML layout of a kind table file.
type tableFile struct {
	Version string `yaml:"version"`
	Kinds   []struct {
		Kind  int      `yaml:"kind"`
		Label string   `yaml:"label"`
		Flags []string `yaml:"flags"`
		Names []string `yaml:"names"`
	} `yaml:"kinds"`
}

// LoadTable reads a kind table from YAML:
//
//	version: "14.3"
//	kinds:
//	  - kind: 6
//	    label: Baron
//	    flags: [Jungle, Objective, Smitable]
//	    names: [sru_baron]
func LoadTable(r io.Reader) (*Table, error) {
	var file tableFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("error decoding kind table: %w", err)
	}

	entries := make([]Entry, 0, len(file.Kinds))
	for _, k := range file.Kinds {
		if k.Kind < 0 || k.Kind > int(core.MaxKind) {
			return nil, fmt.Errorf("kind %q: index %d outside 0..%d", k.Label, k.Kind, core.MaxKind)
		}
		var flags core.CategoryFlag
		for _, name := range k.Flags {
			f, err := core.ParseCategoryFlag(name)
			if err != nil {
				return nil, fmt.Errorf("kind %q: %w", k.Label, err)
			}
			flags |= f
		}
		entries = append(entries, Entry{
			Kind:  core.ObjectKind(k.Kind),
			Label: k.Label,
			Flags: flags,
			Names: k.Names,
		})
	}

	return NewTable(file.Version, entries)
}
