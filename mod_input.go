package snowscene

import (
	"slices"

	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyA int = iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeySpace
	KeyEnter
	KeyEscape
	KeyTab
	KeyBackspace
	KeyInsert
	KeyDelete
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyMinus
	KeyEqual
	KeyKPPlus
	KeyKPMinus
	KeyShift
	KeyControl
	KeyLeftAlt
	KeyKPEqual
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
)

// KeyCount bounds the key and button codes above.
const KeyCount = MouseButtonMiddle + 1

// InputModule samples keyboard, mouse and scroll state once per frame. Without
// a window it only provides the Input resource, which tests drive directly.
type InputModule struct{}

type Input struct {
	Pressed      [KeyCount]bool
	JustPressed  [KeyCount]bool
	JustReleased [KeyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	// ScrollX and ScrollY are the wheel offsets received this frame.
	ScrollX, ScrollY float64

	scrollX, scrollY float64
	sampled          bool
}

// AnyJustPressed reports whether a key went down this frame, ignoring the
// keys listed in except and the mouse buttons.
func (input *Input) AnyJustPressed(except ...int) bool {
	for key := 0; key < MouseButtonLeft; key++ {
		if !input.JustPressed[key] || slices.Contains(except, key) {
			continue
		}
		return true
	}
	return false
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	input := &Input{}
	app.addResources(input)

	ws, ok := Resource[WindowState](app)
	if !ok || ws.window == nil {
		return
	}
	ws.window.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		input.scrollX += xoff
		input.scrollY += yoff
	})
	app.UseSystem(
		System(inputSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

func inputSystem(s *WindowState, input *Input) {
	if s.window == nil {
		return
	}
	for key, glfwKey := range keyToGlfw {
		input.setButton(key, s.window.GetKey(glfwKey))
	}
	for btn, glfwBtn := range buttonToGlfw {
		input.setButton(btn, s.window.GetMouseButton(glfwBtn))
	}

	mx, my := s.window.GetCursorPos()
	if input.sampled {
		input.MouseDeltaX = mx - input.MouseX
		input.MouseDeltaY = my - input.MouseY
	}
	input.MouseX, input.MouseY = mx, my
	input.sampled = true

	input.ScrollX, input.ScrollY = input.scrollX, input.scrollY
	input.scrollX, input.scrollY = 0, 0
}

func (input *Input) setButton(key int, action glfw.Action) {
	input.JustPressed[key] = false
	input.JustReleased[key] = false
	switch action {
	case glfw.Press, glfw.Repeat:
		if !input.Pressed[key] {
			input.JustPressed[key] = true
		}
		input.Pressed[key] = true
	case glfw.Release:
		if input.Pressed[key] {
			input.JustReleased[key] = true
		}
		input.Pressed[key] = false
	}
}

var buttonToGlfw = map[int]glfw.MouseButton{
	MouseButtonLeft:   glfw.MouseButtonLeft,
	MouseButtonRight:  glfw.MouseButtonRight,
	MouseButtonMiddle: glfw.MouseButtonMiddle,
}

var keyToGlfw = map[int]glfw.Key{
	KeyA:         glfw.KeyA,
	KeyB:         glfw.KeyB,
	KeyC:         glfw.KeyC,
	KeyD:         glfw.KeyD,
	KeyE:         glfw.KeyE,
	KeyF:         glfw.KeyF,
	KeyG:         glfw.KeyG,
	KeyH:         glfw.KeyH,
	KeyI:         glfw.KeyI,
	KeyJ:         glfw.KeyJ,
	KeyK:         glfw.KeyK,
	KeyL:         glfw.KeyL,
	KeyM:         glfw.KeyM,
	KeyN:         glfw.KeyN,
	KeyO:         glfw.KeyO,
	KeyP:         glfw.KeyP,
	KeyQ:         glfw.KeyQ,
	KeyR:         glfw.KeyR,
	KeyS:         glfw.KeyS,
	KeyT:         glfw.KeyT,
	KeyU:         glfw.KeyU,
	KeyV:         glfw.KeyV,
	KeyW:         glfw.KeyW,
	KeyX:         glfw.KeyX,
	KeyY:         glfw.KeyY,
	KeyZ:         glfw.KeyZ,
	Key0:         glfw.Key0,
	Key1:         glfw.Key1,
	Key2:         glfw.Key2,
	Key3:         glfw.Key3,
	Key4:         glfw.Key4,
	Key5:         glfw.Key5,
	Key6:         glfw.Key6,
	Key7:         glfw.Key7,
	Key8:         glfw.Key8,
	Key9:         glfw.Key9,
	KeySpace:     glfw.KeySpace,
	KeyEnter:     glfw.KeyEnter,
	KeyEscape:    glfw.KeyEscape,
	KeyTab:       glfw.KeyTab,
	KeyBackspace: glfw.KeyBackspace,
	KeyInsert:    glfw.KeyInsert,
	KeyDelete:    glfw.KeyDelete,
	KeyRight:     glfw.KeyRight,
	KeyLeft:      glfw.KeyLeft,
	KeyDown:      glfw.KeyDown,
	KeyUp:        glfw.KeyUp,
	KeyF1:        glfw.KeyF1,
	KeyF2:        glfw.KeyF2,
	KeyF3:        glfw.KeyF3,
	KeyF4:        glfw.KeyF4,
	KeyF5:        glfw.KeyF5,
	KeyF6:        glfw.KeyF6,
	KeyF7:        glfw.KeyF7,
	KeyF8:        glfw.KeyF8,
	KeyF9:        glfw.KeyF9,
	KeyF10:       glfw.KeyF10,
	KeyF11:       glfw.KeyF11,
	KeyF12:       glfw.KeyF12,
	KeyMinus:     glfw.KeyMinus,
	KeyEqual:     glfw.KeyEqual,
	KeyKPPlus:    glfw.KeyKPAdd,
	KeyKPMinus:   glfw.KeyKPSubtract,
	KeyShift:     glfw.KeyLeftShift,
	KeyControl:   glfw.KeyLeftControl,
	KeyLeftAlt:   glfw.KeyLeftAlt,
	KeyKPEqual:   glfw.KeyKPEqual,
}
