package snowscene

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestInput_SetButtonEdges(t *testing.T) {
	input := &Input{}

	input.setButton(KeySpace, glfw.Press)
	assert.True(t, input.Pressed[KeySpace])
	assert.True(t, input.JustPressed[KeySpace])

	input.setButton(KeySpace, glfw.Repeat)
	assert.True(t, input.Pressed[KeySpace])
	assert.False(t, input.JustPressed[KeySpace])

	input.setButton(KeySpace, glfw.Release)
	assert.False(t, input.Pressed[KeySpace])
	assert.True(t, input.JustReleased[KeySpace])

	input.setButton(KeySpace, glfw.Release)
	assert.False(t, input.JustReleased[KeySpace])
}

func TestInput_AnyJustPressed(t *testing.T) {
	input := &Input{}
	assert.False(t, input.AnyJustPressed())

	input.JustPressed[MouseButtonLeft] = true
	assert.False(t, input.AnyJustPressed(), "mouse buttons do not count")

	input.JustPressed[KeyM] = true
	assert.True(t, input.AnyJustPressed())
	assert.False(t, input.AnyJustPressed(KeyM))

	input.JustPressed[KeyA] = true
	assert.True(t, input.AnyJustPressed(KeyM))
}

func TestInputModule_Headless(t *testing.T) {
	app := NewAppBuilder().UseModule(InputModule{}).Build()

	input, ok := Resource[Input](app)
	assert.True(t, ok)
	assert.False(t, input.Pressed[KeyA])
	assert.True(t, app.Step())
}
