package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntity_Equal(t *testing.T) {
	a := Entity{Name: "sru_baron", Address: 0x1000, NetworkID: 0x40000012, Health: 9000}
	b := Entity{Name: "sru_baron", Address: 0x1000, NetworkID: 0x40000012, Health: 120, Armour: 80}

	assert.True(t, a.Equal(b), "mutable stats must not affect identity")
	assert.False(t, a.NotEqual(b))

	tests := []struct {
		name  string
		other Entity
	}{
		{"different name", Entity{Name: "sru_herald", Address: 0x1000, NetworkID: 0x40000012}},
		{"different address", Entity{Name: "sru_baron", Address: 0x2000, NetworkID: 0x40000012}},
		{"different network id", Entity{Name: "sru_baron", Address: 0x1000, NetworkID: 0x40000013}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, a.Equal(tt.other))
			assert.True(t, a.NotEqual(tt.other))
		})
	}
}

func TestEntity_Relationships(t *testing.T) {
	teams := []Team{TeamBlue, TeamRed, TeamNeutral}

	for _, ta := range teams {
		for _, tb := range teams {
			a := Entity{Name: "a", Team: ta}
			b := Entity{Name: "b", Team: tb}

			assert.Equal(t, a.IsEnemyTo(b), b.IsEnemyTo(a), "enemy symmetry %s/%s", ta, tb)
			assert.Equal(t, a.IsAllyTo(b), b.IsAllyTo(a), "ally symmetry %s/%s", ta, tb)
			assert.False(t, a.IsEnemyTo(b) && a.IsAllyTo(b))

			if ta == TeamNeutral || tb == TeamNeutral {
				assert.False(t, a.IsEnemyTo(b))
				assert.False(t, a.IsAllyTo(b))
			}
		}
		self := Entity{Name: "self", Team: ta}
		assert.False(t, self.IsEnemyTo(self))
	}

	blue := Entity{Team: TeamBlue}
	red := Entity{Team: TeamRed}
	assert.True(t, blue.IsEnemyTo(red))
	assert.True(t, blue.IsAllyTo(Entity{Team: TeamBlue}))
}

func TestTeamFromRaw(t *testing.T) {
	assert.Equal(t, TeamBlue, TeamFromRaw(100))
	assert.Equal(t, TeamRed, TeamFromRaw(200))
	assert.Equal(t, TeamNeutral, TeamFromRaw(300))
	assert.Equal(t, TeamNeutral, TeamFromRaw(0))
	assert.Equal(t, TeamNeutral, TeamFromRaw(-1))
	assert.Equal(t, "red", TeamRed.String())
}

func TestEntity_AttackRange(t *testing.T) {
	e := Entity{BaseAttackRange: 550, GameplayRadius: 65}
	assert.Equal(t, float32(615), e.AttackRange())

	shallow := Entity{BaseAttackRange: 175}
	assert.Equal(t, float32(175), shallow.AttackRange())
}

func TestEntity_AttackSpeed(t *testing.T) {
	e := Entity{BaseAttackSpeed: 0.625, AtkSpeedMulti: 2, MaxAttackSpeed: 2.5}
	assert.InDelta(t, 1.25, e.AttackSpeed(), 1e-6)

	capped := Entity{BaseAttackSpeed: 0.7, AtkSpeedMulti: 5, MaxAttackSpeed: 2.5}
	assert.InDelta(t, 2.5, capped.AttackSpeed(), 1e-6)
}

func TestEntity_IsOfType(t *testing.T) {
	ward := Entity{Type: MustTypeCode(Invisible|Expirable, 1)}

	assert.True(t, ward.IsOfOneType(Invisible))
	assert.True(t, ward.IsOfTwoTypes(Player, Expirable))
	assert.True(t, ward.IsOfThreeTypes(Minion, Jungle, Invisible))
	assert.False(t, ward.IsOfThreeTypes(Minion, Jungle, Turret))
	assert.True(t, ward.IsOfType(Clone, Invisible))
	assert.Equal(t, float32(0), ward.TotalAttack())
}
