// Package convert provides functions to convert core values into GORM models
package convert

import (
	"encoding/json"

	"github.com/lviewgo/recorder/internal/geo"
	"github.com/lviewgo/recorder/internal/model"
	"github.com/lviewgo/recorder/pkg/core"
	"gorm.io/datatypes"
)

// namesToJSON converts a []string to datatypes.JSON for DB storage.
func namesToJSON(names []string) datatypes.JSON {
	if len(names) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(names)
	return datatypes.JSON(data)
}

// countsToJSON converts a category count map to datatypes.JSON.
func countsToJSON(counts map[string]int) datatypes.JSON {
	if len(counts) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(counts)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		ID:                s.ID,
		StartTime:         s.StartTime,
		ProcessID:         s.ProcessID,
		GameVersion:       s.GameVersion,
		LayoutName:        s.LayoutName,
		CaptureIntervalMs: s.CaptureInterval.Milliseconds(),
		RecorderVersion:   s.RecorderVersion,
		KindTableVersion:  s.KindTableVersion,
	}
}

// CoreToEntityState converts a recorded entity to a GORM model.EntityState.
func CoreToEntityState(s core.EntityState) model.EntityState {
	e := s.Entity
	return model.EntityState{
		Time:      s.Time,
		SessionID: s.SessionID,
		Frame:     s.Frame,
		GameTime:  s.GameTime,

		Address:     uint64(e.Address),
		NetworkID:   e.NetworkID,
		ObjectIndex: e.Index,
		Name:        e.Name,
		TypeCode:    uint32(e.Type),
		Kind:        uint8(e.Type.Kind()),
		Label:       s.Label,
		Categories:  namesToJSON(e.Type.Flags().Names()),
		Team:        int16(e.Team),

		Position:       geo.PointFromVector(e.Position),
		TargetRadius:   e.TargetRadius,
		GameplayRadius: e.GameplayRadius,

		Health:            e.Health,
		MaxHealth:         e.MaxHealth,
		BaseAttack:        e.BaseAttack,
		BonusAttack:       e.BonusAttack,
		Armour:            e.Armour,
		MagicResist:       e.MagicResist,
		Crit:              e.Crit,
		CritMulti:         e.CritMulti,
		AbilityPower:      e.AbilityPower,
		BonusAbilityPower: e.BonusAbilityPower,
		AtkSpeedMulti:     e.AtkSpeedMulti,
		BaseAttackSpeed:   e.BaseAttackSpeed,
		MaxAttackSpeed:    e.MaxAttackSpeed,
		BaseAttackRange:   e.BaseAttackRange,
		AttackRange:       e.AttackRange(),

		IsAlive:       e.IsAlive,
		IsVisible:     e.IsVisible,
		Duration:      e.Duration,
		LastVisibleAt: e.LastVisibleAt,
		Deep:          e.Deep,
		Degraded:      s.Degraded,
	}
}

// CoreToFrameStat converts core.FrameStats to a GORM model.FrameStat.
func CoreToFrameStat(f core.FrameStats) model.FrameStat {
	return model.FrameStat{
		Time:       f.Time,
		SessionID:  f.SessionID,
		Frame:      f.Frame,
		GameTime:   f.GameTime,
		DurationMs: float64(f.Duration.Microseconds()) / 1000,
		Listed:     f.Listed,
		Decoded:    f.Decoded,
		Degraded:   f.Degraded,
		Failed:     f.Failed,
		Unknown:    f.Unknown,
		Evicted:    f.Evicted,
		Categories: countsToJSON(f.Categories),
	}
}
