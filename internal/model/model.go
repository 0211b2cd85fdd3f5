package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&RecorderInfo{},
	&Session{},
	&EntityState{},
	&FrameStat{},
}

// RecorderInfo identifies the recorder instance that owns the database
type RecorderInfo struct {
	ID              uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt       time.Time `json:"createdAt"`
	InstanceName    string    `json:"instanceName" gorm:"size:127"`
	RecorderVersion string    `json:"recorderVersion" gorm:"size:32"`
}

func (*RecorderInfo) TableName() string {
	return "recorder_infos"
}

// Session is one recording of a game process
type Session struct {
	ID                uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	StartTime         time.Time `json:"startTime" gorm:"type:timestamptz;"`
	EndTime           time.Time `json:"endTime" gorm:"type:timestamptz;"`
	ProcessID         int       `json:"processId"`
	GameVersion       string    `json:"gameVersion" gorm:"size:32"`
	LayoutName        string    `json:"layoutName" gorm:"size:64"`
	CaptureIntervalMs int64     `json:"captureIntervalMs"`
	RecorderVersion   string    `json:"recorderVersion" gorm:"size:32"`
	KindTableVersion  string    `json:"kindTableVersion" gorm:"size:32"`
	FrameCount        uint      `json:"frameCount" gorm:"default:0"`
}

func (*Session) TableName() string {
	return "sessions"
}

// EntityState is one decoded game object on one frame
type EntityState struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_entitystate_session_id"`
	Session   Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Frame     uint      `json:"frame" gorm:"index:idx_entitystate_frame"`
	GameTime  float32   `json:"gameTime"`

	Address     uint64         `json:"address" gorm:"index:idx_entitystate_address"`
	NetworkID   uint32         `json:"networkId" gorm:"index:idx_entitystate_network_id"`
	ObjectIndex int16          `json:"objectIndex"`
	Name        string         `json:"name" gorm:"size:64"`
	TypeCode    uint32         `json:"typeCode"`
	Kind        uint8          `json:"kind"`
	Label       string         `json:"label" gorm:"size:64"`
	Categories  datatypes.JSON `json:"categories"`
	Team        int16          `json:"team"`

	Position       geom.Point `json:"position"` // ground plane in XY, height in Z
	TargetRadius   float32    `json:"targetRadius"`
	GameplayRadius float32    `json:"gameplayRadius"`

	Health            float32 `json:"health"`
	MaxHealth         float32 `json:"maxHealth"`
	BaseAttack        float32 `json:"baseAttack"`
	BonusAttack       float32 `json:"bonusAttack"`
	Armour            float32 `json:"armour"`
	MagicResist       float32 `json:"magicResist"`
	Crit              float32 `json:"crit"`
	CritMulti         float32 `json:"critMulti"`
	AbilityPower      float32 `json:"abilityPower"`
	BonusAbilityPower float32 `json:"bonusAbilityPower"`
	AtkSpeedMulti     float32 `json:"atkSpeedMulti"`
	BaseAttackSpeed   float32 `json:"baseAttackSpeed"`
	MaxAttackSpeed    float32 `json:"maxAttackSpeed"`
	BaseAttackRange   float32 `json:"baseAttackRange"`
	AttackRange       float32 `json:"attackRange"`

	IsAlive       bool    `json:"isAlive" gorm:"default:false"`
	IsVisible     bool    `json:"isVisible" gorm:"default:false"`
	Duration      float32 `json:"duration"`
	LastVisibleAt float32 `json:"lastVisibleAt"`
	Deep          bool    `json:"deep" gorm:"default:false"`
	Degraded      bool    `json:"degraded" gorm:"default:false"`
}

func (*EntityState) TableName() string {
	return "entity_states"
}

// FrameStat summarizes one scan of the object list
type FrameStat struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time      `json:"time" gorm:"type:timestamptz;"`
	SessionID  uint           `json:"sessionId" gorm:"index:idx_framestat_session_id"`
	Session    Session        `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Frame      uint           `json:"frame"`
	GameTime   float32        `json:"gameTime"`
	DurationMs float64        `json:"durationMs"`
	Listed     int            `json:"listed"`
	Decoded    int            `json:"decoded"`
	Degraded   int            `json:"degraded"`
	Failed     int            `json:"failed"`
	Unknown    int            `json:"unknown"`
	Evicted    int            `json:"evicted"`
	Categories datatypes.JSON `json:"categories"`
}

func (*FrameStat) TableName() string {
	return "frame_stats"
}
