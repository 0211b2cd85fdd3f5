// Package loader decodes live game objects out of process memory.
//
// A load reads the primary object buffer at the base address and, unless the
// caller asks for a shallow load, the unit info buffer the primary one points
// to. Every load works in its own pair of pooled scratch buffers.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lviewgo/recorder/internal/classify"
	"github.com/lviewgo/recorder/internal/memory"
	"github.com/lviewgo/recorder/pkg/core"
)

// ErrDeepLoad marks a failure of the second phase. The entity returned with
// it holds valid primary fields; whether to use them is the caller's call.
var ErrDeepLoad = errors.New("deep load failed")

// Option configures a single Load call.
type Option func(*config)

type config struct {
	shallow  bool
	gameTime float32
	previous *core.Entity
}

// ShallowOnly skips the unit info read. Radii, attack speed multiplier and
// max attack speed stay zero and Entity.Deep is false.
func ShallowOnly() Option {
	return func(c *config) {
		c.shallow = true
	}
}

// AtGameTime sets the game clock value stamped into LastVisibleAt when the
// object decodes as visible.
func AtGameTime(t float32) Option {
	return func(c *config) {
		c.gameTime = t
	}
}

// WithPrevious supplies the last decoded value for the same address so that
// LastVisibleAt survives frames where the object is hidden.
func WithPrevious(e core.Entity) Option {
	return func(c *config) {
		c.previous = &e
	}
}

// Loader decodes entities with one Layout and one Codec. It is safe for
// concurrent use.
type Loader struct {
	layout  Layout
	codec   *classify.Codec
	scratch *memory.ScratchPool
	now     func() time.Time
}

// New validates layout and creates a Loader. A nil codec uses the built-in
// kind table.
func New(layout Layout, codec *classify.Codec) (*Loader, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if codec == nil {
		codec = classify.NewCodec(nil)
	}
	return &Loader{
		layout:  layout,
		codec:   codec,
		scratch: memory.NewScratchPool(layout.PrimarySize, layout.DeepSize),
		now:     time.Now,
	}, nil
}

// Layout returns the layout the loader decodes with.
func (l *Loader) Layout() Layout {
	return l.layout
}

// Codec returns the codec used to classify decoded names.
func (l *Loader) Codec() *classify.Codec {
	return l.codec
}

// Load decodes the object at base.
//
// A primary read failure returns the zero Entity and a *memory.ReadError. A
// unit info failure returns the primary-only entity together with an error
// matching ErrDeepLoad.
func (l *Loader) Load(ctx context.Context, base core.Address, r memory.Reader, opts ...Option) (core.Entity, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	s := l.scratch.Get()
	defer l.scratch.Put(s)

	if err := memory.Read(ctx, r, base, s.Primary); err != nil {
		return core.Entity{}, err
	}

	e, unitInfo, err := l.decodePrimary(base, s.Primary)
	if err != nil {
		return core.Entity{}, err
	}

	if cfg.previous != nil && cfg.previous.Address == base {
		e.LastVisibleAt = cfg.previous.LastVisibleAt
	}
	if e.IsVisible {
		e.LastVisibleAt = cfg.gameTime
	}

	if cfg.shallow {
		return e, nil
	}

	if unitInfo == 0 {
		ptrAddr := base + core.Address(l.layout.UnitInfoPtr)
		return e, fmt.Errorf("%w: %w", ErrDeepLoad,
			&memory.ReadError{Address: ptrAddr, Length: l.layout.PointerSize, Err: memory.ErrInvalidPointer})
	}
	if err := memory.Read(ctx, r, unitInfo, s.Deep); err != nil {
		return e, fmt.Errorf("%w: %w", ErrDeepLoad, err)
	}
	if err := l.decodeDeep(&e, s.Deep); err != nil {
		return e, fmt.Errorf("%w: %w", ErrDeepLoad, err)
	}
	return e, nil
}

func (l *Loader) decodePrimary(base core.Address, buf []byte) (core.Entity, core.Address, error) {
	lay := l.layout
	r := fieldReader{buf: buf}

	e := core.Entity{
		Address:   base,
		Name:      r.cstring("name", lay.Name, lay.NameLen),
		Index:     r.i16("index", lay.Index),
		Team:      core.TeamFromRaw(r.i16("team", lay.Team)),
		NetworkID: r.u32("networkId", lay.NetworkID),
		Position:  r.vec3("position", lay.Position),
		IsVisible: r.u8("visibility", lay.Visibility) != 0,
		IsAlive:   r.i32("spawnCount", lay.SpawnCount)%2 == 0,
		Duration:  r.f32("expiry", lay.Expiry),

		Health:            r.f32("health", lay.Health),
		MaxHealth:         r.f32("maxHealth", lay.MaxHealth),
		AbilityPower:      r.f32("abilityPower", lay.AbilityPower),
		BonusAbilityPower: r.f32("bonusAbilityPower", lay.BonusAbilityPower),
		BonusAttack:       r.f32("bonusAttack", lay.BonusAttack),
		BaseAttack:        r.f32("baseAttack", lay.BaseAttack),
		CritMulti:         r.f32("critMulti", lay.CritMulti),
		Crit:              r.f32("crit", lay.Crit),
		Armour:            r.f32("armour", lay.Armour),
		MagicResist:       r.f32("magicResist", lay.MagicResist),
		BaseAttackRange:   r.f32("baseAttackRange", lay.BaseAttackRange),
		BaseAttackSpeed:   r.f32("baseAttackSpeed", lay.BaseAttackSpeed),

		DecodedAt: l.now(),
	}
	unitInfo := r.pointer("unitInfoPtr", lay.UnitInfoPtr, lay.PointerSize)
	if r.err != nil {
		return core.Entity{}, 0, r.err
	}

	e.Type = l.codec.ClassifyName(e.Name)
	return e, unitInfo, nil
}

func (l *Loader) decodeDeep(e *core.Entity, buf []byte) error {
	lay := l.layout
	r := fieldReader{buf: buf}

	atkSpeedMulti := r.f32("atkSpeedMulti", lay.AtkSpeedMulti)
	gameplayRadius := r.f32("gameplayRadius", lay.GameplayRadius)
	maxAttackSpeed := r.f32("maxAttackSpeed", lay.MaxAttackSpeed)
	targetRadius := r.f32("targetRadius", lay.TargetRadius)
	if r.err != nil {
		return r.err
	}

	e.AtkSpeedMulti = atkSpeedMulti
	e.GameplayRadius = gameplayRadius
	e.MaxAttackSpeed = maxAttackSpeed
	e.TargetRadius = targetRadius
	e.Deep = true
	return nil
}
