package unit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"warband/sim/internal/geom"
)

func testDefinition(id string, t Type) *Definition {
	return &Definition{
		ID:   id,
		Type: t,
		Stats: Stats{
			Speed:           4,
			MaxHealth:       100,
			AttackDamage:    10,
			CollisionRadius: 0.5,
		},
	}
}

func aiDefinition(id string) *Definition {
	def := testDefinition(id, TypeEnemy)
	def.AI = &AIConfig{
		DetectionRange:       10,
		AttackRange:          1.5,
		Speed:                4,
		RotationSpeed:        6,
		PatrolRadius:         8,
		PauseDurationMax:     2,
		TargetUpdateInterval: 0.4,
	}
	return def
}

func TestRegisterDefinitionRejectsDuplicates(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, r.RegisterDefinition(testDefinition("grunt", TypeEnemy)))

	err := r.RegisterDefinition(testDefinition("grunt", TypeEnemy))
	require.ErrorIs(t, err, ErrDuplicateDefinition)
}

func TestRegisterDefinitionValidates(t *testing.T) {
	r := NewRegistry(10)

	bad := testDefinition("bad", TypeEnemy)
	bad.Stats.CollisionRadius = 0
	require.Error(t, r.RegisterDefinition(bad))

	worse := testDefinition("worse", Type("dragon"))
	require.Error(t, r.RegisterDefinition(worse))
}

func TestCreateUnitUnknownDefinition(t *testing.T) {
	r := NewRegistry(10)
	_, err := r.CreateUnit("ghost", geom.Vec3{}, nil)
	require.ErrorIs(t, err, ErrUnknownDefinition)
}

func TestCreateUnitCapacity(t *testing.T) {
	r := NewRegistry(2)
	require.NoError(t, r.RegisterDefinition(testDefinition("grunt", TypeEnemy)))

	_, err := r.CreateUnit("grunt", geom.Vec3{}, nil)
	require.NoError(t, err)
	_, err = r.CreateUnit("grunt", geom.Vec3{}, nil)
	require.NoError(t, err)

	_, err = r.CreateUnit("grunt", geom.Vec3{}, nil)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	// Capacity is backpressure, not a terminal state: removal frees a slot.
	first := r.Units()[0]
	require.True(t, r.RemoveUnit(first.ID))
	_, err = r.CreateUnit("grunt", geom.Vec3{}, nil)
	require.NoError(t, err)
}

func TestCreateUnitInitializesBehaviorOnlyForAIUnits(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, r.RegisterDefinition(aiDefinition("grunt")))
	require.NoError(t, r.RegisterDefinition(testDefinition("hero", TypePlayer)))

	spawn := geom.Vec3{X: 5, Z: -3}
	grunt, err := r.CreateUnit("grunt", spawn, nil)
	require.NoError(t, err)
	require.NotNil(t, grunt.Behavior)
	require.Equal(t, StateIdle, grunt.Behavior.State)
	require.Equal(t, spawn, grunt.Behavior.Home)

	hero, err := r.CreateUnit("hero", geom.Vec3{}, nil)
	require.NoError(t, err)
	require.Nil(t, hero.Behavior, "player units never get behavior state")
}

func TestCreateUnitStatsOverride(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, r.RegisterDefinition(testDefinition("grunt", TypeEnemy)))

	u, err := r.CreateUnit("grunt", geom.Vec3{}, &CreateOptions{
		Rotation: 1.5,
		Stats:    &Stats{MaxHealth: 200},
	})
	require.NoError(t, err)
	require.Equal(t, 200.0, u.MaxHealth)
	require.Equal(t, 200.0, u.Health)
	require.Equal(t, 4.0, u.Speed, "unset override fields keep definition values")
	require.Equal(t, 1.5, u.Rotation)
}

func TestRemoveUnit(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, r.RegisterDefinition(testDefinition("grunt", TypeEnemy)))
	u, err := r.CreateUnit("grunt", geom.Vec3{}, nil)
	require.NoError(t, err)

	require.True(t, r.RemoveUnit(u.ID))
	require.False(t, r.RemoveUnit(u.ID), "second removal reports unknown id")
	_, ok := r.Unit(u.ID)
	require.False(t, ok)
}

func TestUnitsInRange(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, r.RegisterDefinition(testDefinition("grunt", TypeEnemy)))

	near, _ := r.CreateUnit("grunt", geom.Vec3{X: 1}, nil)
	far, _ := r.CreateUnit("grunt", geom.Vec3{X: 50}, nil)
	self, _ := r.CreateUnit("grunt", geom.Vec3{}, nil)

	got := r.UnitsInRange(geom.Vec3{}, 5, self)
	require.Len(t, got, 1)
	require.Equal(t, near.ID, got[0].ID)
	_ = far
}

func TestUnitsByTypeAndPlayer(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, r.RegisterDefinition(testDefinition("grunt", TypeEnemy)))
	require.NoError(t, r.RegisterDefinition(testDefinition("hero", TypePlayer)))

	_, err := r.CreateUnit("grunt", geom.Vec3{}, nil)
	require.NoError(t, err)
	hero, err := r.CreateUnit("hero", geom.Vec3{}, nil)
	require.NoError(t, err)

	require.Len(t, r.UnitsByType(TypeEnemy), 1)
	require.Len(t, r.UnitsByType(TypePlayer), 1)
	require.Equal(t, hero.ID, r.Player().ID)
}

func TestApplyDamageClamps(t *testing.T) {
	u := &Unit{Health: 100, MaxHealth: 100}

	died := u.ApplyDamage(150)
	require.True(t, died)
	require.Equal(t, 0.0, u.Health)

	// Further damage on a dead unit does not report death twice.
	require.False(t, u.ApplyDamage(10))
	require.Equal(t, 0.0, u.Health)

	u.Heal(500)
	require.Equal(t, 100.0, u.Health)
}

func TestSetStaminaClamps(t *testing.T) {
	def := testDefinition("grunt", TypeEnemy)
	def.Combat = &CombatConfig{MaxStamina: 50, StaminaRegen: 10}
	u := &Unit{Def: def}

	u.SetStamina(80)
	require.Equal(t, 50.0, u.Combat.Stamina)
	u.SetStamina(-10)
	require.Equal(t, 0.0, u.Combat.Stamina)
}
