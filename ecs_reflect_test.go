package snowscene

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snowColumnType = reflect.TypeOf(SnowSystemComponent{})

func TestReflectSliceMake_TypedColumn(t *testing.T) {
	col := reflectSliceMake(snowColumnType)

	snow, ok := col.([]SnowSystemComponent)
	require.True(t, ok, "column is %T", col)
	assert.Empty(t, snow)

	_, ok = reflectSliceMake(reflect.TypeOf(LightComponent{})).([]LightComponent)
	assert.True(t, ok)
}

func TestReflectSliceAppend_ReserveThenWrite(t *testing.T) {
	col := reflectSliceMake(snowColumnType)

	// rows are reserved as zero values, then the component is written in place
	for i := 0; i < 2; i++ {
		col = reflectSliceAppend(col, reflect.Zero(snowColumnType))
	}
	first := SnowSystemComponent{Index: 0, Rotation: mgl32.Vec3{1, 2, 3}}
	second := SnowSystemComponent{Index: 1, Material: SnowMaterial{Sprite: "snowflake1.png", Size: 20}}
	reflectSliceSet(col, 0, reflect.ValueOf(first))
	reflectSliceSet(col, 1, reflect.ValueOf(second))

	assert.Equal(t, first, reflectSliceGet(col, 0).Interface().(SnowSystemComponent))
	assert.Equal(t, second, reflectSliceGet(col, 1).Interface().(SnowSystemComponent))
	assert.Equal(t, []SnowSystemComponent{first, second}, col.([]SnowSystemComponent))
}

func TestReflectSliceGet_AddressableRow(t *testing.T) {
	col := reflectSliceAppend(reflectSliceMake(snowColumnType), reflect.ValueOf(SnowSystemComponent{Index: 3}))

	// queries hand out pointers into the column
	ptr := reflectSliceGet(col, 0).Addr().Interface().(*SnowSystemComponent)
	ptr.Material.Size = 12

	assert.Equal(t, float32(12), col.([]SnowSystemComponent)[0].Material.Size)
}

func TestReflectSliceSet_ZeroesRecycledRow(t *testing.T) {
	col := reflectSliceAppend(reflectSliceMake(snowColumnType), reflect.ValueOf(SnowSystemComponent{Index: 4}))

	reflectSliceSet(col, 0, reflect.Zero(snowColumnType))

	assert.Zero(t, col.([]SnowSystemComponent)[0])
}

func TestReflectSlice_MoveBetweenColumns(t *testing.T) {
	src := reflectSliceAppend(reflectSliceMake(snowColumnType), reflect.ValueOf(SnowSystemComponent{Index: 2}))
	dst := reflectSliceMake(snowColumnType)
	dst = reflectSliceAppend(dst, reflect.Zero(snowColumnType))

	reflectSliceSet(dst, 0, reflectSliceGet(src, 0))

	assert.Equal(t, 2, dst.([]SnowSystemComponent)[0].Index)
}

func TestReflectSlice_Mismatches(t *testing.T) {
	col := reflectSliceAppend(reflectSliceMake(snowColumnType), reflect.Zero(snowColumnType))
	light := reflect.ValueOf(LightComponent{Type: LightTypePoint})

	assert.Panics(t, func() { reflectSliceAppend(col, light) })
	assert.Panics(t, func() { reflectSliceSet(col, 0, light) })
	assert.Panics(t, func() { reflectSliceGet(col, 1) })
}
