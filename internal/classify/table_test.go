package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lviewgo/recorder/pkg/core"
)

func TestDefaultTable_RoundTrip(t *testing.T) {
	table := DefaultTable()
	codec := NewCodec(table)

	require.Equal(t, 30, table.Len())

	for _, e := range table.Entries() {
		code := codec.Classify(e.Kind)
		assert.Equal(t, e.Kind, code.Kind(), "kind round trip for %s", e.Label)
		assert.Equal(t, e.Flags, code.Flags(), "flag round trip for %s", e.Label)
		assert.Less(t, uint32(code&core.KindMask), uint32(64))
		assert.Equal(t, e.Code(), code)
	}
}

func TestDefaultTable_IntendedFlags(t *testing.T) {
	// Each multi-flag kind is the union of its flags with the index in the
	// low bits, never flag + index arithmetic.
	tests := []struct {
		kind  core.ObjectKind
		flags core.CategoryFlag
	}{
		{KindWard, core.Invisible | core.Expirable},
		{KindWardPink, core.Invisible},
		{KindBaron, core.Jungle | core.Objective | core.Smitable},
		{KindDragonElder, core.Jungle | core.Objective | core.Dragon | core.Smitable},
		{KindKrugSmall, core.Jungle},
		{KindPlantVision, core.Jungle | core.Plant},
		{KindTeemoMushroom, core.Invisible | core.Expirable},
		{KindLeblancClone, core.Clone},
	}

	codec := NewCodec(nil)
	for _, tt := range tests {
		code := codec.Classify(tt.kind)
		assert.Equal(t, core.TypeCode(tt.flags)|core.TypeCode(tt.kind), code, "kind %d", tt.kind)
	}
}

func TestDefaultTable_UniqueKinds(t *testing.T) {
	seen := map[core.ObjectKind]string{}
	for _, e := range defaultEntries {
		prev, dup := seen[e.Kind]
		assert.False(t, dup, "kind %d shared by %s and %s", e.Kind, prev, e.Label)
		seen[e.Kind] = e.Label
	}
}

func TestNewTable_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		errMsg  string
	}{
		{
			name: "duplicate kind",
			entries: []Entry{
				{Kind: 3, Label: "A", Flags: core.Minion},
				{Kind: 3, Label: "B", Flags: core.Jungle},
			},
			errMsg: "used by both",
		},
		{
			name: "duplicate name",
			entries: []Entry{
				{Kind: 3, Label: "A", Flags: core.Minion, Names: []string{"x"}},
				{Kind: 4, Label: "B", Flags: core.Minion, Names: []string{"X"}},
			},
			errMsg: "mapped to kinds",
		},
		{
			name:    "kind out of range",
			entries: []Entry{{Kind: 64, Label: "A", Flags: core.Minion}},
			errMsg:  "exceeds max",
		},
		{
			name:    "no object",
			entries: []Entry{{Kind: 0, Label: "Nothing"}},
			errMsg:  "no-object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable("test", tt.entries)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMustNewTable_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNewTable("bad", []Entry{{Kind: 70, Label: "Overflow", Flags: core.Jungle}})
	})
}

func TestLoadTable(t *testing.T) {
	src := `
version: "14.3"
kinds:
  - kind: 6
    label: Baron
    flags: [Jungle, Objective, Smitable]
    names: [SRU_Baron]
  - kind: 40
    label: Atakhan
    flags: [jungle, objective]
    names: [sru_atakhan]
`
	table, err := LoadTable(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "14.3", table.Version())
	assert.Equal(t, 2, table.Len())

	codec := NewCodec(table)
	baron := codec.ClassifyName("sru_baron")
	assert.Equal(t, core.ObjectKind(6), baron.Kind())
	assert.Equal(t, core.Jungle|core.Objective|core.Smitable, baron.Flags())

	atakhan := codec.Classify(40)
	assert.True(t, atakhan.HasAny(core.Objective))
	assert.False(t, atakhan.HasAny(core.Smitable))
}

func TestLoadTable_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad yaml", "kinds: [:"},
		{"unknown flag", "kinds:\n  - kind: 2\n    label: X\n    flags: [Flying]\n"},
		{"negative kind", "kinds:\n  - kind: -1\n    label: X\n    flags: [Jungle]\n"},
		{"kind too large", "kinds:\n  - kind: 99\n    label: X\n    flags: [Jungle]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}
